package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/linnemanlabs/guardian/internal/incident"
)

// countdown is the cancellation window for one incident. Exactly one of
// the cancelled/expired callbacks runs: both paths race for the resolved
// flag and the loser is a no-op, so a cancel landing on the same tick as
// expiry can never be applied after dispatch has started.
type countdown struct {
	incident *incident.Incident
	tick     time.Duration

	remaining atomic.Int64
	resolved  atomic.Bool
	cancelled chan struct{}
}

func newCountdown(inc *incident.Incident, window, tick time.Duration) *countdown {
	cd := &countdown{
		incident:  inc,
		tick:      tick,
		cancelled: make(chan struct{}),
	}
	cd.remaining.Store(int64(window / tick))
	return cd
}

// cancel resolves the countdown as cancelled. Returns false if it already
// expired (or was already cancelled).
func (c *countdown) cancel() bool {
	if !c.resolved.CompareAndSwap(false, true) {
		return false
	}
	close(c.cancelled)
	return true
}

func (c *countdown) secondsRemaining() int {
	return int(c.remaining.Load())
}

// run ticks the window down and invokes exactly one terminal callback.
func (c *countdown) run(ctx context.Context, onCancelled, onExpired func(context.Context, *incident.Incident)) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.cancelled:
			onCancelled(ctx, c.incident)
			return
		case <-ticker.C:
			if c.remaining.Add(-1) > 0 {
				continue
			}
			if !c.resolved.CompareAndSwap(false, true) {
				// A cancel won the race on the final tick.
				onCancelled(ctx, c.incident)
				return
			}
			onExpired(ctx, c.incident)
			return
		}
	}
}
