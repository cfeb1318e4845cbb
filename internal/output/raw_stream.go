package output

import (
	"fmt"
	"io"

	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

const abortedNotice = "Scan aborted; the tree below is partial."

type rawStreamRenderer struct {
	stdout  io.Writer
	stderr  io.Writer
	aborted bool
	summary *types.OutputSummary
	trees   []*types.TreeOutputNode
}

func NewRawStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &rawStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *rawStreamRenderer) Handle(event stream.Event) error {
	if handled, err := writeDiagnostic(renderer.stderr, event); handled {
		return err
	}
	switch event.Kind {
	case stream.EventKindAborted:
		renderer.aborted = true
	case stream.EventKindSummary:
		if event.Summary != nil {
			copied := *event.Summary
			renderer.summary = &copied
		}
	case stream.EventKindTree:
		if event.Tree != nil {
			renderer.trees = append(renderer.trees, cloneTreeNode(event.Tree))
		}
	}
	return nil
}

func (renderer *rawStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	if renderer.aborted && renderer.stderr != nil {
		fmt.Fprintln(renderer.stderr, abortedNotice)
	}
	for index, node := range renderer.trees {
		if index > 0 {
			fmt.Fprintln(renderer.stdout)
		}
		WriteTreeRaw(renderer.stdout, node)
	}
	if renderer.summary != nil {
		if len(renderer.trees) > 0 {
			fmt.Fprintln(renderer.stdout)
		}
		fmt.Fprintln(renderer.stdout, FormatSummaryLine(renderer.summary))
	}
	return nil
}
