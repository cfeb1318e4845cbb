package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/temirov/dirstat/internal/output"
	"github.com/temirov/dirstat/internal/services/stream"
	"github.com/temirov/dirstat/internal/types"
)

func sampleEvents(root string) []stream.Event {
	return []stream.Event{
		{Kind: stream.EventKindStart, Path: root, ScanID: "scan-1", Command: types.CommandScan},
		{Kind: stream.EventKindWarning, Message: &stream.LogEvent{Level: "warning", Message: "json warning"}},
		{Kind: stream.EventKindEntry, Entry: &stream.EntryEvent{Path: root + "/file.txt", Name: "file.txt", Type: types.NodeTypeFile, SizeBytes: 5}},
		{Kind: stream.EventKindTree, Tree: &types.TreeOutputNode{Path: root, Type: types.NodeTypeDirectory, TotalSizeBytes: 5}},
		{Kind: stream.EventKindSummary, Summary: &types.OutputSummary{Root: root, TotalItems: 1, TotalSizeBytes: 5, Finished: true}},
		{Kind: stream.EventKindDone},
	}
}

func TestJSONStreamRendererWritesSingleDocument(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	renderer := output.NewJSONStreamRenderer(&stdout, &stderr)

	root := "/tmp"
	for _, event := range sampleEvents(root) {
		if err := renderer.Handle(event); err != nil {
			t.Fatalf("handle event failed: %v", err)
		}
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	var decoded struct {
		ScanID   string                `json:"scanId"`
		Tree     *types.TreeOutputNode `json:"tree"`
		Summary  *types.OutputSummary  `json:"summary"`
		Warnings []string              `json:"warnings"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("decode document: %v\n%s", err, stdout.String())
	}
	if decoded.ScanID != "scan-1" {
		t.Fatalf("unexpected scan id %q", decoded.ScanID)
	}
	if decoded.Tree == nil || decoded.Tree.Path != root || decoded.Tree.TotalSizeBytes != 5 {
		t.Fatalf("tree payload mismatch: %+v", decoded.Tree)
	}
	if decoded.Summary == nil || decoded.Summary.TotalItems != 1 {
		t.Fatalf("summary payload mismatch: %+v", decoded.Summary)
	}
	if len(decoded.Warnings) != 1 || decoded.Warnings[0] != "json warning" {
		t.Fatalf("unexpected warnings %v", decoded.Warnings)
	}
	if stderr.Len() != 0 {
		t.Fatalf("warnings belong in the document, got stderr %q", stderr.String())
	}
}

func TestJSONStreamRendererReportsErrors(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	renderer := output.NewJSONStreamRenderer(&stdout, &stderr)
	if err := renderer.Handle(stream.Event{Kind: stream.EventKindError, Err: &stream.ErrorEvent{Message: "boom"}}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.Contains(stdout.String(), `"error": "boom"`) || !strings.Contains(stderr.String(), "boom") {
		t.Fatalf("expected error in document and on stderr: %s / %s", stdout.String(), stderr.String())
	}
}

func TestNDJSONStreamRendererWritesOneLinePerEvent(t *testing.T) {
	var stdout bytes.Buffer
	renderer := output.NewNDJSONStreamRenderer(&stdout)

	events := sampleEvents("/tmp")
	for _, event := range events {
		if err := renderer.Handle(event); err != nil {
			t.Fatalf("handle event failed: %v", err)
		}
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	lines := strings.FieldsFunc(stdout.String(), func(r rune) bool { return r == '\n' || r == '\r' })
	if len(lines) != len(events) {
		t.Fatalf("expected %d json events, got %d", len(events), len(lines))
	}
	for index, line := range lines {
		var decoded stream.Event
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("failed to decode line %d: %v", index, err)
		}
		if decoded.Kind != events[index].Kind {
			t.Fatalf("line %d: expected kind %s, got %s", index, events[index].Kind, decoded.Kind)
		}
	}
}
