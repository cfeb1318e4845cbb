package cachefile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// GzipSuffix selects compressed output in Create.
const GzipSuffix = ".gz"

var preamble = []string{
	Header,
	"# Do not edit!",
	"#",
	"# Type\tpath\tsize\tmtime\tlinks",
	"",
}

// Writer encodes records. Output is buffered; Close flushes it.
type Writer struct {
	path       string
	file       *os.File
	compressor *gzip.Writer
	buffered   *bufio.Writer
	err        error
}

// Create truncates or creates path and writes the header. A name ending in
// .gz produces a gzip-compressed file.
func Create(path string) (*Writer, error) {
	file, createErr := os.Create(path)
	if createErr != nil {
		return nil, &IoError{Op: operationOpen, Path: path, Err: createErr}
	}
	writer := newWriter(file, strings.HasSuffix(path, GzipSuffix), path)
	writer.file = file
	return writer, nil
}

// NewWriter encodes records into destination, compressing when requested.
func NewWriter(destination io.Writer, compressed bool) *Writer {
	return newWriter(destination, compressed, "")
}

func newWriter(destination io.Writer, compressed bool, path string) *Writer {
	writer := &Writer{path: path}
	output := destination
	if compressed {
		writer.compressor = gzip.NewWriter(destination)
		output = writer.compressor
	}
	writer.buffered = bufio.NewWriter(output)
	for _, line := range preamble {
		writer.writeLine(line)
	}
	return writer
}

// Write appends one record. After the first failure every call returns the
// same *IoError.
func (writer *Writer) Write(record Record) error {
	writer.writeLine(Format(record))
	return writer.err
}

func (writer *Writer) writeLine(line string) {
	if writer.err != nil {
		return
	}
	if _, writeErr := writer.buffered.WriteString(line + "\n"); writeErr != nil {
		writer.err = &IoError{Op: operationWrite, Path: writer.path, Err: writeErr}
	}
}

// Close flushes buffered output and closes the compressor and file. The
// partially written file is left in place on error.
func (writer *Writer) Close() error {
	closeErr := writer.buffered.Flush()
	if writer.compressor != nil {
		closeErr = errors.Join(closeErr, writer.compressor.Close())
	}
	if writer.file != nil {
		closeErr = errors.Join(closeErr, writer.file.Close())
	}
	if writer.err != nil {
		return writer.err
	}
	if closeErr != nil {
		return &IoError{Op: operationClose, Path: writer.path, Err: closeErr}
	}
	return nil
}
