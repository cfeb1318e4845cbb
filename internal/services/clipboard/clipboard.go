// Package clipboard copies rendered reports to the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"io"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard: no clipboard utility available")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

var _ Copier = (*Service)(nil)

// Capture forwards writes to target while keeping a copy of everything
// written, so a report can be copied once it has been flushed.
type Capture struct {
	target io.Writer
	buffer bytes.Buffer
}

// NewCapture wraps target. A nil target only records.
func NewCapture(target io.Writer) *Capture {
	return &Capture{target: target}
}

func (capture *Capture) Write(data []byte) (int, error) {
	capture.buffer.Write(data)
	if capture.target == nil {
		return len(data), nil
	}
	return capture.target.Write(data)
}

// String returns everything written so far.
func (capture *Capture) String() string {
	return capture.buffer.String()
}

// CopyTo hands the captured text to copier. Nothing is copied when no
// output was produced.
func (capture *Capture) CopyTo(copier Copier) error {
	if copier == nil || capture.buffer.Len() == 0 {
		return nil
	}
	return copier.Copy(capture.buffer.String())
}
