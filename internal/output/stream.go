package output

import (
	"fmt"
	"io"

	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

type StreamRenderer interface {
	Handle(event stream.Event) error
	Flush() error
}

// NewStreamRenderer selects the renderer for an output format.
func NewStreamRenderer(format string, stdout, stderr io.Writer) (StreamRenderer, error) {
	switch format {
	case types.FormatRaw, "":
		return NewRawStreamRenderer(stdout, stderr), nil
	case types.FormatJSON:
		return NewJSONStreamRenderer(stdout, stderr), nil
	case types.FormatNDJSON:
		return NewNDJSONStreamRenderer(stdout), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
