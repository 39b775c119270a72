package trigger

import (
	"context"
	"errors"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/incident"
)

// Source is one trigger producer (impact detector, keyword listener). It
// emits candidate signals until ctx is done. Source lifecycle is decoupled
// from arbitration: a source neither knows nor cares whether its signal
// was accepted.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(incident.TriggerSignal)) error
}

// Sources fans all producers into one inbound channel consumed by a
// single arbitration loop.
type Sources struct {
	arbiter *Arbiter
	logger  log.Logger
	srcs    []Source
}

// NewSources creates the fan-in runner.
func NewSources(a *Arbiter, logger log.Logger, srcs ...Source) *Sources {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sources{arbiter: a, logger: logger, srcs: srcs}
}

// Run starts every source and consumes their signals until ctx is done.
// Rejected signals are logged and dropped, never queued: while one
// incident is in flight the first signal wins.
func (s *Sources) Run(ctx context.Context) {
	signals := make(chan incident.TriggerSignal, 8)

	for _, src := range s.srcs {
		go func() {
			if err := src.Run(ctx, func(sig incident.TriggerSignal) {
				select {
				case signals <- sig:
				case <-ctx.Done():
				}
			}); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(ctx, err, "trigger source stopped", "source", src.Name())
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if _, err := s.arbiter.Submit(ctx, sig); err != nil {
				s.logger.Info(ctx, "trigger signal rejected",
					"trigger", sig.Kind,
					"reason", err.Error(),
				)
			}
		}
	}
}

// FeedSource adapts an external signal feed (sensor bridge, test harness)
// into a Source.
type FeedSource struct {
	SourceName string
	Feed       <-chan incident.TriggerSignal
}

// Name implements Source.
func (f *FeedSource) Name() string { return f.SourceName }

// Run implements Source.
func (f *FeedSource) Run(ctx context.Context, emit func(incident.TriggerSignal)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-f.Feed:
			if !ok {
				return nil
			}
			emit(sig)
		}
	}
}
