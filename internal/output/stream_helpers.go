package output

import (
	"fmt"
	"io"

	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

func cloneTreeNode(node *types.TreeOutputNode) *types.TreeOutputNode {
	if node == nil {
		return nil
	}

	cloned := *node

	if len(node.Children) > 0 {
		cloned.Children = make([]*types.TreeOutputNode, len(node.Children))
		for index, child := range node.Children {
			if child == nil {
				continue
			}
			cloned.Children[index] = cloneTreeNode(child)
		}
	} else {
		cloned.Children = nil
	}

	return &cloned
}

// writeDiagnostic forwards warning and error events to stderr and reports
// whether the event was one of them.
func writeDiagnostic(stderr io.Writer, event stream.Event) (bool, error) {
	switch event.Kind {
	case stream.EventKindWarning:
		if event.Message != nil && stderr != nil {
			_, err := fmt.Fprintln(stderr, event.Message.Message)
			return true, err
		}
		return true, nil
	case stream.EventKindError:
		if event.Err != nil && stderr != nil {
			_, err := fmt.Fprintln(stderr, event.Err.Message)
			return true, err
		}
		return true, nil
	default:
		return false, nil
	}
}
