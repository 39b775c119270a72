// Package connectivity tracks whether the device can reach the outside
// world. It probes a well-known endpoint on an interval and publishes
// offline→online edges so the offline queue can flush promptly on
// reconnect.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const probeTimeout = 5 * time.Second

// Monitor probes for reachability and notifies subscribers when the
// device transitions from offline to online.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   log.Logger

	online atomic.Bool

	mu   sync.Mutex
	subs []chan struct{}
}

// New creates a Monitor. The monitor starts pessimistic: it reports
// offline until the first successful probe.
func New(probeURL string, interval time.Duration, logger log.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: probeTimeout},
		logger:   logger,
	}
}

// Online reports the last observed state.
func (m *Monitor) Online() bool { return m.online.Load() }

// Subscribe returns a channel that receives a notification on every
// offline→online transition. Sends are coalesced: a slow receiver sees
// at most one pending notification.
func (m *Monitor) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Run probes until ctx is cancelled. An immediate probe runs before the
// first tick.
func (m *Monitor) Run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	up := m.probe(ctx)
	was := m.online.Swap(up)
	if up && !was {
		m.logger.Info(ctx, "connectivity restored")
		m.notify()
	}
	if !up && was {
		m.logger.Warn(ctx, "connectivity lost")
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 500
}

func (m *Monitor) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetOnline overrides the observed state and fires subscriber
// notifications on an offline→online edge. Test and manual-override use.
func (m *Monitor) SetOnline(up bool) {
	was := m.online.Swap(up)
	if up && !was {
		m.notify()
	}
}
