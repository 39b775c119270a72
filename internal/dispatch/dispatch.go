// Package dispatch drives per-contact, per-channel alert delivery: contact
// and location snapshot, one-shot message rendering, concurrent fan-out
// with channel fallback, and result aggregation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/contacts"
	"github.com/linnemanlabs/guardian/internal/incident"
)

var tracer = otel.Tracer("github.com/linnemanlabs/guardian/internal/dispatch")

// ErrNoContacts means there is nobody to notify: the dispatch aborts with
// no queue entry, since a retry cannot succeed either.
var ErrNoContacts = errors.New("no contacts configured")

// Transport delivers one text to one phone number over a single channel.
// Implementations map their own failure modes into the returned error.
type Transport interface {
	Channel() incident.Channel
	Send(ctx context.Context, phone, text string) error
}

// LocationProvider supplies a best-effort coordinate fix. May be slow or
// unavailable; the coordinator never waits past its configured bound.
type LocationProvider interface {
	Current(ctx context.Context) (*incident.Location, error)
}

// Report is the aggregate outcome of one dispatch run.
type Report struct {
	Status   incident.Status
	Location *incident.Location
	Message  string
	Results  []incident.DeliveryResult
}

// Hooks receive dispatch lifecycle events for instrumentation. The zero
// value is a no-op.
type Hooks struct {
	OnDispatch func(status incident.Status, dur time.Duration)
	OnAttempt  func(channel incident.Channel, outcome incident.Outcome)
	OnLocation func(ok bool)
}

// Config bounds the coordinator's waits.
type Config struct {
	// LocationTimeout caps the location snapshot. Zero means 3s.
	LocationTimeout time.Duration

	// AttemptTimeout caps each channel attempt. An attempt still unsettled
	// at the bound counts as failed. Zero means 15s.
	AttemptTimeout time.Duration
}

// Coordinator owns the delivery algorithm. It is stateless across
// dispatches; all mutable state lives in the incident passed in.
type Coordinator struct {
	contacts contacts.Store
	location LocationProvider
	primary  Transport
	chat     []Transport // secondary chain in priority order
	logger   log.Logger
	hooks    Hooks
	cfg      Config
}

// New creates a Coordinator. primary is required (plain SMS); chat is the
// optional secondary chain, highest priority first.
func New(cs contacts.Store, loc LocationProvider, primary Transport, chat []Transport, logger log.Logger, hooks Hooks, cfg Config) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = 3 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 15 * time.Second
	}
	return &Coordinator{
		contacts: cs,
		location: loc,
		primary:  primary,
		chat:     chat,
		logger:   logger,
		hooks:    hooks,
		cfg:      cfg,
	}
}

// Dispatch delivers the incident's alert to every contact. Transport
// failures are captured per-result and never propagate; only contact
// resolution failing before any attempt returns an error.
func (c *Coordinator) Dispatch(ctx context.Context, inc *incident.Incident) (*Report, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dispatch.Dispatch", trace.WithAttributes(
		attribute.String("guardian.incident.id", inc.ID),
		attribute.String("guardian.incident.trigger", string(inc.Trigger)),
	))
	defer span.End()

	L := c.logger.With("incident_id", inc.ID, "trigger", inc.Trigger)

	list, err := c.contacts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve contacts: %w", err)
	}
	if len(list) == 0 {
		return nil, ErrNoContacts
	}

	loc := c.snapshotLocation(ctx, L)

	// Rendered once; every contact receives identical text. A queued
	// incident keeps its original message on retry.
	msg := inc.Message
	if msg == "" {
		msg = incident.RenderMessage(loc, time.Now())
	}

	L.Info(ctx, "dispatch started",
		"contacts", len(list),
		"has_location", loc != nil,
	)

	perContact := make([][]incident.DeliveryResult, len(list))
	var wg sync.WaitGroup
	for i, contact := range list {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perContact[i] = c.deliverToContact(ctx, L, contact, msg)
		}()
	}
	wg.Wait()

	report := &Report{Location: loc, Message: msg}
	var primaryOK int
	for _, results := range perContact {
		for _, r := range results {
			report.Results = append(report.Results, r)
			if r.Channel == c.primary.Channel() && r.Outcome == incident.OutcomeDelivered {
				primaryOK++
			}
		}
	}

	switch {
	case primaryOK == len(list):
		report.Status = incident.StatusSent
	case primaryOK > 0:
		report.Status = incident.StatusPartiallySent
	default:
		report.Status = incident.StatusFailed
	}

	if c.hooks.OnDispatch != nil {
		c.hooks.OnDispatch(report.Status, time.Since(start))
	}

	span.SetAttributes(
		attribute.String("guardian.dispatch.status", string(report.Status)),
		attribute.Int("guardian.dispatch.primary_ok", primaryOK),
	)
	L.Info(ctx, "dispatch settled",
		"status", report.Status,
		"primary_ok", primaryOK,
		"contacts", len(list),
		"duration", time.Since(start).Seconds(),
	)

	return report, nil
}

// deliverToContact runs the channel chain for one contact: primary SMS
// always, then the secondary chat chain if the contact opted in. Secondary
// failures never mark the contact as failed.
func (c *Coordinator) deliverToContact(ctx context.Context, L log.Logger, contact contacts.Contact, msg string) []incident.DeliveryResult {
	phone, err := contacts.NormalizePhone(contact.Phone)
	if err != nil {
		// Unusable number: recorded as a primary failure for this contact.
		return []incident.DeliveryResult{{
			ContactID:   contact.ID,
			Channel:     c.primary.Channel(),
			Outcome:     incident.OutcomeFailed,
			Reason:      err.Error(),
			AttemptedAt: time.Now(),
		}}
	}

	results := []incident.DeliveryResult{c.attempt(ctx, L, c.primary, contact.ID, phone, msg)}

	if contact.ChatOptIn {
		for _, t := range c.chat {
			r := c.attempt(ctx, L, t, contact.ID, phone, msg)
			results = append(results, r)
			if r.Outcome == incident.OutcomeDelivered {
				break
			}
		}
	}

	return results
}

// attempt runs one bounded channel attempt. The transport call runs in its
// own goroutine so an attempt that never settles cannot hold up the
// aggregation barrier; at the bound it is treated as failed.
func (c *Coordinator) attempt(ctx context.Context, L log.Logger, t Transport, contactID, phone, msg string) incident.DeliveryResult {
	result := incident.DeliveryResult{
		ContactID:   contactID,
		Channel:     t.Channel(),
		AttemptedAt: time.Now(),
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.Send(attemptCtx, phone, msg) }()

	var err error
	select {
	case err = <-done:
	case <-attemptCtx.Done():
		err = fmt.Errorf("attempt timed out after %s", c.cfg.AttemptTimeout)
	}

	if err != nil {
		result.Outcome = incident.OutcomeFailed
		result.Reason = err.Error()
		L.Warn(ctx, "delivery attempt failed",
			"contact_id", contactID,
			"channel", t.Channel(),
			"reason", err.Error(),
		)
	} else {
		result.Outcome = incident.OutcomeDelivered
	}

	if c.hooks.OnAttempt != nil {
		c.hooks.OnAttempt(t.Channel(), result.Outcome)
	}
	return result
}

// snapshotLocation fetches a best-effort fix under a short timeout. A miss
// is not an error; the alert goes out with location unavailable.
func (c *Coordinator) snapshotLocation(ctx context.Context, L log.Logger) *incident.Location {
	if c.location == nil {
		return nil
	}

	locCtx, cancel := context.WithTimeout(ctx, c.cfg.LocationTimeout)
	defer cancel()

	type fix struct {
		loc *incident.Location
		err error
	}
	done := make(chan fix, 1)
	go func() {
		loc, err := c.location.Current(locCtx)
		done <- fix{loc, err}
	}()

	select {
	case f := <-done:
		if f.err != nil {
			L.Warn(ctx, "location fetch failed", "reason", f.err.Error())
			if c.hooks.OnLocation != nil {
				c.hooks.OnLocation(false)
			}
			return nil
		}
		if c.hooks.OnLocation != nil {
			c.hooks.OnLocation(f.loc != nil)
		}
		return f.loc
	case <-locCtx.Done():
		L.Warn(ctx, "location fetch timed out", "timeout", c.cfg.LocationTimeout.String())
		if c.hooks.OnLocation != nil {
			c.hooks.OnLocation(false)
		}
		return nil
	}
}
