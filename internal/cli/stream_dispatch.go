package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/dirstat/internal/dirtree"
	"github.com/temirov/dirstat/internal/metrics"
	"github.com/temirov/dirstat/internal/output"
	"github.com/temirov/dirstat/internal/services/clipboard"
	"github.com/temirov/dirstat/internal/services/stream"
)

const (
	metricsTextfileErrorFormat = "write metrics textfile %s: %w"
	logMessageClipboardFailed  = "copy to clipboard failed"
)

type streamProducer func(context.Context, dirtree.ScanMetrics, chan<- stream.Event) error

// runStream renders the events of produce with the configured renderer.
// An interrupt cancels the scan; the partial tree is still rendered.
func (state *applicationState) runStream(ctx context.Context, settings outputSettings, produce streamProducer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var registry *prometheus.Registry
	if settings.metricsTextfile != "" {
		registry = metrics.NewRegistry()
	}
	scanMetrics := metrics.NewScanMetrics(registry)

	stdout := state.stdout
	var capture *clipboard.Capture
	if settings.clipboard {
		capture = clipboard.NewCapture(stdout)
		stdout = capture
	}
	renderer, rendererErr := output.NewStreamRenderer(settings.format, stdout, state.stderr)
	if rendererErr != nil {
		return rendererErr
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dispatchStream(signalCtx,
		func(streamCtx context.Context, events chan<- stream.Event) error {
			return produce(streamCtx, scanMetrics, events)
		},
		renderer.Handle,
	)
	if flushErr := renderer.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if capture != nil {
		if copyErr := capture.CopyTo(state.copier); copyErr != nil {
			state.logger.Warn(logMessageClipboardFailed, zap.Error(copyErr))
		}
	}
	if registry != nil {
		if writeErr := metrics.WriteTextfile(settings.metricsTextfile, registry); writeErr != nil && err == nil {
			err = fmt.Errorf(metricsTextfileErrorFormat, settings.metricsTextfile, writeErr)
		}
	}
	return err
}

// dispatchStream runs produce and consume concurrently. The consumer keeps
// draining the channel after a failure so the producer can always finish;
// a consumer failure cancels the producer instead.
func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, groupCtx := errgroup.WithContext(ctx)
	streamCtx, cancel := context.WithCancel(groupCtx)
	defer cancel()
	events := make(chan stream.Event)
	var consumeErr error

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for event := range events {
			if consumeErr != nil {
				continue
			}
			if err := consume(event); err != nil {
				consumeErr = err
				cancel()
			}
		}
		return nil
	})

	waitErr := group.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}
