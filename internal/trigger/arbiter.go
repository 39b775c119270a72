package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/contacts"
	"github.com/linnemanlabs/guardian/internal/dispatch"
	"github.com/linnemanlabs/guardian/internal/history"
	"github.com/linnemanlabs/guardian/internal/incident"
)

var (
	// ErrIncidentInFlight means an incident is already in countdown or
	// dispatching; the first signal wins and later ones are rejected.
	ErrIncidentInFlight = errors.New("incident already in flight")

	// ErrInsufficientContacts means the contact store holds fewer contacts
	// than the policy floor; the engine refuses to arm.
	ErrInsufficientContacts = errors.New("insufficient emergency contacts")

	// ErrNoActiveIncident means cancel was called with nothing to cancel.
	ErrNoActiveIncident = errors.New("no active incident")
)

// Dispatcher runs delivery for an incident whose countdown expired.
type Dispatcher interface {
	Dispatch(ctx context.Context, inc *incident.Incident) (*dispatch.Report, error)
}

// Enqueuer places a fully-failed incident on the offline queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, inc *incident.Incident) error
}

// SubmitResult is the outcome of an accepted trigger signal.
type SubmitResult struct {
	ID              string
	CountdownSecond int
}

// Config tunes the arbiter.
type Config struct {
	// Window is the cancellation countdown. Zero means 10s.
	Window time.Duration

	// MinContacts is the policy floor below which the engine refuses to
	// arm. Values below 2 are raised to 2.
	MinContacts int

	// TickInterval overrides the countdown tick for tests. Zero means 1s.
	TickInterval time.Duration
}

// Arbiter serializes trigger acceptance. The in-flight flag is the only
// shared mutable state; it is claimed with a compare-and-swap so two
// signals arriving in the same tick cannot both be accepted.
type Arbiter struct {
	contacts   contacts.Store
	dispatcher Dispatcher
	queue      Enqueuer
	history    *history.Store
	logger     log.Logger
	metrics    *Metrics
	cfg        Config

	inFlight atomic.Bool

	mu      sync.Mutex
	current *countdown
}

// New creates an Arbiter.
func New(cs contacts.Store, d Dispatcher, q Enqueuer, h *history.Store, logger log.Logger, m *Metrics, cfg Config) *Arbiter {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.MinContacts < 2 {
		cfg.MinContacts = 2
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Arbiter{
		contacts:   cs,
		dispatcher: d,
		queue:      q,
		history:    h,
		logger:     logger,
		metrics:    m,
		cfg:        cfg,
	}
}

// Submit arbitrates one trigger signal. On acceptance the incident enters
// its countdown and the arbiter stays claimed until the incident reaches a
// terminal state. Rejections mutate nothing.
func (a *Arbiter) Submit(ctx context.Context, sig incident.TriggerSignal) (*SubmitResult, error) {
	// Claim first: the contact check below must never let two concurrent
	// signals both pass.
	if !a.inFlight.CompareAndSwap(false, true) {
		a.countSubmit("rejected_in_flight")
		return nil, ErrIncidentInFlight
	}

	list, err := a.contacts.List(ctx)
	if err != nil {
		a.inFlight.Store(false)
		a.countSubmit("rejected_contacts_error")
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if len(list) < a.cfg.MinContacts {
		a.inFlight.Store(false)
		a.countSubmit("rejected_insufficient_contacts")
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientContacts, len(list), a.cfg.MinContacts)
	}

	inc := &incident.Incident{
		ID:        ulid.Make().String(),
		Trigger:   sig.Kind,
		CreatedAt: time.Now(),
		Status:    incident.StatusCountdown,
	}

	a.recordHistory(ctx, inc)

	cd := newCountdown(inc, a.cfg.Window, a.cfg.TickInterval)
	a.mu.Lock()
	a.current = cd
	a.mu.Unlock()

	a.logger.Info(ctx, "trigger accepted",
		"incident_id", inc.ID,
		"trigger", sig.Kind,
		"countdown_seconds", int(a.cfg.Window/time.Second),
	)
	a.countSubmit("accepted")

	// The countdown and any dispatch run detached from the submitting
	// request; cancelling the HTTP call must not abort the incident.
	go cd.run(context.WithoutCancel(ctx), a.onCancelled, a.onExpired)

	return &SubmitResult{
		ID:              inc.ID,
		CountdownSecond: int(a.cfg.Window / time.Second),
	}, nil
}

// Cancel aborts the active countdown. Once dispatching has begun the
// incident can no longer be cancelled and ErrNoActiveIncident is returned.
func (a *Arbiter) Cancel(ctx context.Context) error {
	a.mu.Lock()
	cd := a.current
	a.mu.Unlock()

	if cd == nil || !cd.cancel() {
		return ErrNoActiveIncident
	}
	a.logger.Info(ctx, "countdown cancelled", "incident_id", cd.incident.ID)
	if a.metrics != nil {
		a.metrics.CancellationsTotal.Inc()
	}
	return nil
}

// Active returns a snapshot of the in-flight incident, if any, with the
// countdown seconds remaining (zero once dispatching).
func (a *Arbiter) Active() (*incident.Incident, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil || !a.inFlight.Load() {
		return nil, 0, false
	}
	// Copied under the lock: the countdown callbacks write these fields
	// under the same lock.
	cp := *a.current.incident
	return &cp, a.current.secondsRemaining(), true
}

// mutate applies incident field writes under the same lock Active uses
// for its copy, so a snapshot taken mid-resolution never tears.
func (a *Arbiter) mutate(inc *incident.Incident, fn func(*incident.Incident)) {
	a.mu.Lock()
	fn(inc)
	a.mu.Unlock()
}

// onCancelled finishes a cancelled incident: recorded to history, never
// queued, arbiter re-armed.
func (a *Arbiter) onCancelled(ctx context.Context, inc *incident.Incident) {
	a.mutate(inc, func(inc *incident.Incident) {
		inc.Status = incident.StatusCancelled
		inc.CompletedAt = time.Now()
	})
	a.recordHistory(ctx, inc)
	a.release(inc)
}

// onExpired moves the incident to dispatching and runs delivery exactly
// once. The countdown's atomic resolve guarantees this path and
// onCancelled are mutually exclusive.
func (a *Arbiter) onExpired(ctx context.Context, inc *incident.Incident) {
	a.mutate(inc, func(inc *incident.Incident) {
		inc.Status = incident.StatusDispatching
	})
	a.recordHistory(ctx, inc)
	a.logger.Info(ctx, "countdown expired, dispatching", "incident_id", inc.ID)

	report, err := a.dispatcher.Dispatch(ctx, inc)
	if err != nil {
		// Resolution error: nothing deliverable, nothing to retry. The
		// incident fails without a queue entry.
		a.logger.Error(ctx, err, "dispatch aborted", "incident_id", inc.ID)
		a.mutate(inc, func(inc *incident.Incident) {
			inc.Status = incident.StatusFailed
			inc.CompletedAt = time.Now()
		})
		a.recordHistory(ctx, inc)
		a.release(inc)
		return
	}

	a.mutate(inc, func(inc *incident.Incident) {
		inc.Location = report.Location
		inc.Message = report.Message
		inc.DeliveryResults = report.Results
		inc.Status = report.Status
	})

	if report.Status == incident.StatusFailed {
		// Full primary failure is treated the same as being offline: hand
		// the incident to the queue for retry. Detach the snapshot first:
		// once the queue owns the incident it is no longer active, and
		// Enqueue writes its status outside our lock.
		a.detach(inc)
		if err := a.queue.Enqueue(ctx, inc); err != nil {
			// Persistence hiccup: the live attempt already failed, so the
			// incident stays failed in history and the next flush cycle
			// has nothing; log loudly.
			a.logger.Error(ctx, err, "enqueue after failed dispatch", "incident_id", inc.ID)
			inc.CompletedAt = time.Now()
			a.recordHistory(ctx, inc)
		}
		a.release(inc)
		return
	}

	a.mutate(inc, func(inc *incident.Incident) {
		inc.CompletedAt = time.Now()
	})
	a.recordHistory(ctx, inc)
	a.release(inc)
}

// detach removes the incident from the active snapshot without re-arming.
func (a *Arbiter) detach(inc *incident.Incident) {
	a.mu.Lock()
	if a.current != nil && a.current.incident.ID == inc.ID {
		a.current = nil
	}
	a.mu.Unlock()
}

// release re-arms the arbiter once the incident reached a terminal state.
func (a *Arbiter) release(inc *incident.Incident) {
	a.mu.Lock()
	if a.current != nil && a.current.incident.ID == inc.ID {
		a.current = nil
	}
	a.mu.Unlock()
	a.inFlight.Store(false)

	if a.metrics != nil {
		a.metrics.IncidentsTotal.WithLabelValues(string(inc.Status)).Inc()
	}
}

func (a *Arbiter) recordHistory(ctx context.Context, inc *incident.Incident) {
	if a.history == nil {
		return
	}
	if err := a.history.Record(ctx, inc); err != nil {
		a.logger.Error(ctx, err, "record incident history", "incident_id", inc.ID)
	}
}

func (a *Arbiter) countSubmit(result string) {
	if a.metrics != nil {
		a.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
