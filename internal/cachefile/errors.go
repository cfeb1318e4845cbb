package cachefile

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed record. Readers return it for the offending
// line and continue with the next one on the following call.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("cache line %d: %v: %q", err.Line, err.Err, err.Text)
}

func (err *ParseError) Unwrap() error { return err.Err }

// StartsDirectory reports whether the malformed line may have been a
// directory record: its type is D or cannot be recognised. Relative records
// following such a line cannot be placed.
func (err *ParseError) StartsDirectory() bool {
	fields := strings.FieldsFunc(err.Text, isFieldSeparator)
	if len(fields) == 0 {
		return false
	}
	if len(fields[0]) != 1 {
		return true
	}
	recordType := Type(fields[0][0])
	return recordType == TypeDirectory || !recordType.valid()
}

// IoError reports a failure to open, read, write or close a cache file.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (err *IoError) Error() string {
	if err.Path == "" {
		return fmt.Sprintf("cache %s: %v", err.Op, err.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", err.Op, err.Path, err.Err)
}

func (err *IoError) Unwrap() error { return err.Err }
