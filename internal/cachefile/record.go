// Package cachefile reads and writes the line-oriented dirstat cache format.
//
// A cache file holds one record per line:
//
//	TYPE<TAB>PATH<TAB>SIZE<TAB>MTIME<TAB>LINKS
//
// Directory records carry absolute paths; every other record carries a name
// relative to the most recent directory or grouping record. MTIME is written
// as 0x followed by the hexadecimal Unix time in seconds. Percent signs,
// whitespace (including non-ASCII spaces) and control characters in PATH are
// escaped as %XX. Fields are separated by ASCII whitespace only.
package cachefile

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Header is the first line of every cache file written by this package.
const Header = "[dirstat 1.0 cache file]"

// GroupName is the PATH of a grouping record.
const GroupName = "<Files>"

// Type identifies the kind of entry a record describes.
type Type byte

const (
	TypeFile      Type = 'F'
	TypeSymlink   Type = 'L'
	TypeSpecial   Type = 'S'
	TypeDirectory Type = 'D'
	TypeGroup     Type = 'G'
	TypeExcluded  Type = 'X'
)

func (recordType Type) String() string {
	return string(recordType)
}

// IsLeaf reports whether records of this type describe a non-directory entry.
func (recordType Type) IsLeaf() bool {
	switch recordType {
	case TypeFile, TypeSymlink, TypeSpecial, TypeExcluded:
		return true
	default:
		return false
	}
}

func (recordType Type) valid() bool {
	return recordType.IsLeaf() || recordType == TypeDirectory || recordType == TypeGroup
}

// Record is one decoded cache line. Path is unescaped.
type Record struct {
	Type  Type
	Path  string
	Size  int64
	MTime time.Time
	Links uint64
}

const (
	recordFieldCount       = 5
	recordFieldSeparator   = "\t"
	hexTimePrefix          = "0x"
	escapeFormat           = "%%%02X"
	errorFieldCountFormat  = "expected %d fields, found %d"
	errorUnknownTypeFormat = "unknown record type %q"
	errorFieldFormat       = "invalid %s %q: %w"
)

var errNegativeSize = errors.New("negative size")

// Format encodes a record as one line without the trailing newline.
func Format(record Record) string {
	var mtimeSeconds int64
	if !record.MTime.IsZero() {
		mtimeSeconds = record.MTime.Unix()
	}
	var builder strings.Builder
	builder.WriteByte(byte(record.Type))
	builder.WriteString(recordFieldSeparator)
	builder.WriteString(EscapePath(record.Path))
	builder.WriteString(recordFieldSeparator)
	builder.WriteString(strconv.FormatInt(record.Size, 10))
	builder.WriteString(recordFieldSeparator)
	if mtimeSeconds < 0 {
		builder.WriteByte('-')
		mtimeSeconds = -mtimeSeconds
	}
	builder.WriteString(hexTimePrefix)
	builder.WriteString(strconv.FormatInt(mtimeSeconds, 16))
	builder.WriteString(recordFieldSeparator)
	builder.WriteString(strconv.FormatUint(record.Links, 10))
	return builder.String()
}

// Parse decodes one record line. Header, comment and blank lines are not
// records; callers skip them before calling Parse.
func Parse(line string) (Record, error) {
	fields := strings.FieldsFunc(line, isFieldSeparator)
	if len(fields) != recordFieldCount {
		return Record{}, fmt.Errorf(errorFieldCountFormat, recordFieldCount, len(fields))
	}
	if len(fields[0]) != 1 || !Type(fields[0][0]).valid() {
		return Record{}, fmt.Errorf(errorUnknownTypeFormat, fields[0])
	}
	path, unescapeErr := url.PathUnescape(fields[1])
	if unescapeErr != nil {
		return Record{}, fmt.Errorf(errorFieldFormat, "path", fields[1], unescapeErr)
	}
	size, sizeErr := strconv.ParseInt(fields[2], 10, 64)
	if sizeErr == nil && size < 0 {
		sizeErr = errNegativeSize
	}
	if sizeErr != nil {
		return Record{}, fmt.Errorf(errorFieldFormat, "size", fields[2], sizeErr)
	}
	mtimeSeconds, mtimeErr := strconv.ParseInt(fields[3], 0, 64)
	if mtimeErr != nil {
		return Record{}, fmt.Errorf(errorFieldFormat, "mtime", fields[3], mtimeErr)
	}
	links, linksErr := strconv.ParseUint(fields[4], 10, 64)
	if linksErr != nil {
		return Record{}, fmt.Errorf(errorFieldFormat, "links", fields[4], linksErr)
	}
	record := Record{Type: Type(fields[0][0]), Path: path, Size: size, Links: links}
	if mtimeSeconds != 0 {
		record.MTime = time.Unix(mtimeSeconds, 0)
	}
	return record, nil
}

// EscapePath percent-encodes the runes that would break the field layout:
// the percent sign itself, whitespace and control characters. Multi-byte
// runes are encoded one byte at a time.
func EscapePath(path string) string {
	if !needsEscape(path) {
		return path
	}
	var builder strings.Builder
	builder.Grow(len(path) + 8)
	for index := 0; index < len(path); {
		character, width := utf8.DecodeRuneInString(path[index:])
		if escapable(character, width) {
			for offset := 0; offset < width; offset++ {
				fmt.Fprintf(&builder, escapeFormat, path[index+offset])
			}
		} else {
			builder.WriteString(path[index : index+width])
		}
		index += width
	}
	return builder.String()
}

func needsEscape(path string) bool {
	for index := 0; index < len(path); {
		character, width := utf8.DecodeRuneInString(path[index:])
		if escapable(character, width) {
			return true
		}
		index += width
	}
	return false
}

func escapable(character rune, width int) bool {
	if character == utf8.RuneError && width <= 1 {
		return false
	}
	return character == '%' || character <= ' ' || character == 0x7f || unicode.IsSpace(character)
}

// isFieldSeparator splits on ASCII whitespace so that names carrying
// unescaped non-ASCII spaces still parse.
func isFieldSeparator(character rune) bool {
	switch character {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func isSkippedLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[")
}
