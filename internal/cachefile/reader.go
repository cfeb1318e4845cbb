package cachefile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	operationOpen  = "open"
	operationRead  = "read"
	operationWrite = "write"
	operationClose = "close"

	maximumLineLength = 1 << 20
)

var gzipMagic = []byte{0x1f, 0x8b}

// Reader decodes records one at a time. Gzip input is detected from its
// magic bytes, so compressed caches need no particular file name.
type Reader struct {
	path         string
	file         *os.File
	decompressor *gzip.Reader
	scanner      *bufio.Scanner
	line         int
}

// Open opens a cache file for reading.
func Open(path string) (*Reader, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, &IoError{Op: operationOpen, Path: path, Err: openErr}
	}
	reader, readerErr := newReader(file, path)
	if readerErr != nil {
		file.Close()
		return nil, readerErr
	}
	reader.file = file
	return reader, nil
}

// NewReader decodes records from source, which may be gzip-compressed.
func NewReader(source io.Reader) (*Reader, error) {
	return newReader(source, "")
}

func newReader(source io.Reader, path string) (*Reader, error) {
	buffered := bufio.NewReader(source)
	reader := &Reader{path: path}
	var input io.Reader = buffered
	magic, peekErr := buffered.Peek(len(gzipMagic))
	if peekErr == nil && string(magic) == string(gzipMagic) {
		decompressor, gzipErr := gzip.NewReader(buffered)
		if gzipErr != nil {
			return nil, &IoError{Op: operationOpen, Path: path, Err: gzipErr}
		}
		reader.decompressor = decompressor
		input = decompressor
	}
	reader.scanner = bufio.NewScanner(input)
	reader.scanner.Buffer(make([]byte, 0, 64*1024), maximumLineLength)
	return reader, nil
}

// Next returns the next record. It returns io.EOF at the end of input, a
// *ParseError for a malformed line and an *IoError when reading fails.
func (reader *Reader) Next() (Record, error) {
	for reader.scanner.Scan() {
		reader.line++
		text := strings.TrimSpace(reader.scanner.Text())
		if isSkippedLine(text) {
			continue
		}
		record, parseErr := Parse(text)
		if parseErr != nil {
			return Record{}, &ParseError{Line: reader.line, Text: text, Err: parseErr}
		}
		return record, nil
	}
	if scanErr := reader.scanner.Err(); scanErr != nil {
		return Record{}, &IoError{Op: operationRead, Path: reader.path, Err: scanErr}
	}
	return Record{}, io.EOF
}

// Line returns the number of the line most recently consumed.
func (reader *Reader) Line() int { return reader.line }

// Close releases the decompressor and the underlying file, if any.
func (reader *Reader) Close() error {
	var closeErr error
	if reader.decompressor != nil {
		closeErr = reader.decompressor.Close()
	}
	if reader.file != nil {
		closeErr = errors.Join(closeErr, reader.file.Close())
	}
	if closeErr != nil {
		return &IoError{Op: operationClose, Path: reader.path, Err: closeErr}
	}
	return nil
}
