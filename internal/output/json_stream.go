package output

import (
	"encoding/json"
	"io"

	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

// jsonDocument is the single object written by the json format.
type jsonDocument struct {
	ScanID   string                `json:"scanId,omitempty"`
	Command  string                `json:"command,omitempty"`
	Tree     *types.TreeOutputNode `json:"tree"`
	Summary  *types.OutputSummary  `json:"summary"`
	Warnings []string              `json:"warnings,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type jsonStreamRenderer struct {
	stdout   io.Writer
	stderr   io.Writer
	document jsonDocument
}

func NewJSONStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &jsonStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *jsonStreamRenderer) Handle(event stream.Event) error {
	if renderer.document.ScanID == "" {
		renderer.document.ScanID = event.ScanID
		renderer.document.Command = event.Command
	}
	switch event.Kind {
	case stream.EventKindWarning:
		if event.Message != nil {
			renderer.document.Warnings = append(renderer.document.Warnings, event.Message.Message)
		}
	case stream.EventKindError:
		if event.Err != nil {
			renderer.document.Error = event.Err.Message
		}
		_, err := writeDiagnostic(renderer.stderr, event)
		return err
	case stream.EventKindTree:
		renderer.document.Tree = cloneTreeNode(event.Tree)
	case stream.EventKindSummary:
		if event.Summary != nil {
			copied := *event.Summary
			renderer.document.Summary = &copied
		}
	}
	return nil
}

func (renderer *jsonStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	encoded, err := json.MarshalIndent(renderer.document, indentPrefix, indentSpacer)
	if err != nil {
		return err
	}
	if _, err := renderer.stdout.Write(encoded); err != nil {
		return err
	}
	_, err = renderer.stdout.Write([]byte("\n"))
	return err
}
