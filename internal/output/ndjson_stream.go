package output

import (
	"encoding/json"
	"io"

	"github.com/temirov/dirstat/internal/services/stream"
)

// ndjsonStreamRenderer writes every event as one JSON line as it arrives.
type ndjsonStreamRenderer struct {
	encoder *json.Encoder
}

func NewNDJSONStreamRenderer(stdout io.Writer) StreamRenderer {
	if stdout == nil {
		return &ndjsonStreamRenderer{}
	}
	return &ndjsonStreamRenderer{encoder: json.NewEncoder(stdout)}
}

func (renderer *ndjsonStreamRenderer) Handle(event stream.Event) error {
	if renderer.encoder == nil {
		return nil
	}
	return renderer.encoder.Encode(event)
}

func (renderer *ndjsonStreamRenderer) Flush() error {
	return nil
}
