package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/incident"
)

func TestSources_FanIn(t *testing.T) {
	t.Parallel()

	d := &mockDispatcher{}
	a := New(twoContacts(), d, &mockEnqueuer{}, nil, log.Nop(), nil, fastConfig())

	impact := make(chan incident.TriggerSignal)
	voice := make(chan incident.TriggerSignal)
	s := NewSources(a, log.Nop(),
		&FeedSource{SourceName: "impact", Feed: impact},
		&FeedSource{SourceName: "voice", Feed: voice},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	impact <- incident.TriggerSignal{Kind: incident.TriggerImpact, OccurredAt: time.Now()}

	// The accepted signal runs its countdown to dispatch.
	deadline := time.After(2 * time.Second)
	for len(d.dispatched()) == 0 {
		select {
		case <-deadline:
			t.Fatal("impact signal never dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A voice signal while idle is accepted too; while in flight it would
	// have been logged and dropped without blocking the feed.
	waitIdle(t, a)
	voice <- incident.TriggerSignal{Kind: incident.TriggerVoice, OccurredAt: time.Now()}

	deadline = time.After(2 * time.Second)
	for len(d.dispatched()) < 2 {
		select {
		case <-deadline:
			t.Fatal("voice signal never dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
