// Package queue is the durable offline queue: incidents whose dispatch
// could not be confirmed are held here and retried when connectivity
// returns or the safety-net timer fires.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/dispatch"
	"github.com/linnemanlabs/guardian/internal/history"
	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/kv"
)

const keyPrefix = "queue/"

// Dispatcher re-runs delivery for a queued incident.
type Dispatcher interface {
	Dispatch(ctx context.Context, inc *incident.Incident) (*dispatch.Report, error)
}

// Hooks receive queue lifecycle events for instrumentation. The zero value
// is a no-op.
type Hooks struct {
	OnEnqueue func()
	OnFlush   func(delivered, kept int)
	OnDepth   func(depth int)
}

// Service owns the queued-incident lifecycle. Enqueue, Flush and Clear are
// each serialized against Flush: a flush in progress is never re-entered.
type Service struct {
	kv         kv.Store
	dispatcher Dispatcher
	history    *history.Store
	logger     log.Logger
	hooks      Hooks

	flushMu sync.Mutex
}

// New creates a queue Service.
func New(store kv.Store, d Dispatcher, h *history.Store, logger log.Logger, hooks Hooks) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		kv:         store,
		dispatcher: d,
		history:    h,
		logger:     logger,
		hooks:      hooks,
	}
}

// Enqueue persists the incident for later redelivery. Idempotent on
// incident id: re-enqueuing refreshes the payload but keeps the retry
// counter. The incident moves to queued status.
func (s *Service) Enqueue(ctx context.Context, inc *incident.Incident) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	entry := incident.QueueEntry{Incident: *inc}

	if existing, ok, err := s.get(ctx, inc.ID); err != nil {
		s.logger.Error(ctx, err, "read existing queue entry", "incident_id", inc.ID)
	} else if ok {
		entry.Retries = existing.Retries
		entry.LastAttemptAt = existing.LastAttemptAt
	}

	entry.Incident.Status = incident.StatusQueued
	if err := s.put(ctx, &entry); err != nil {
		return err
	}

	inc.Status = incident.StatusQueued
	s.recordHistory(ctx, inc)

	if s.hooks.OnEnqueue != nil {
		s.hooks.OnEnqueue()
	}
	s.observeDepth(ctx)

	s.logger.Info(ctx, "incident queued", "incident_id", inc.ID, "retries", entry.Retries)
	return nil
}

// Flush attempts redelivery for every queued entry, oldest first, at most
// once per entry per call. Concurrent calls coalesce: if a flush is
// already running the call returns immediately.
func (s *Service) Flush(ctx context.Context) {
	if !s.flushMu.TryLock() {
		s.logger.Info(ctx, "flush already in progress, skipping")
		return
	}
	defer s.flushMu.Unlock()

	entries, err := s.List(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "list queue for flush")
		return
	}
	if len(entries) == 0 {
		return
	}

	s.logger.Info(ctx, "flushing offline queue", "entries", len(entries))

	var delivered, kept int
	for i := range entries {
		entry := &entries[i]
		inc := entry.Incident
		inc.Status = incident.StatusDispatching

		report, err := s.dispatcher.Dispatch(ctx, &inc)
		if err != nil || report.Status == incident.StatusFailed {
			// Renewed failure: bump the counter and leave it queued.
			// A resolution error (e.g. contacts were removed since) keeps
			// the entry too; the user may restore the contact list.
			entry.Retries++
			entry.LastAttemptAt = time.Now()
			if err != nil {
				s.logger.Warn(ctx, "flush attempt failed",
					"incident_id", inc.ID,
					"retries", entry.Retries,
					"reason", err.Error(),
				)
			} else {
				entry.Incident.DeliveryResults = report.Results
				s.logger.Warn(ctx, "flush attempt failed",
					"incident_id", inc.ID,
					"retries", entry.Retries,
					"reason", "all primary deliveries failed",
				)
			}
			if perr := s.put(ctx, entry); perr != nil {
				s.logger.Error(ctx, perr, "persist retry counter", "incident_id", inc.ID)
			}
			kept++
			continue
		}

		inc.Status = report.Status
		inc.Location = report.Location
		inc.Message = report.Message
		inc.DeliveryResults = report.Results
		inc.CompletedAt = time.Now()

		if err := s.kv.Delete(ctx, keyPrefix+inc.ID); err != nil {
			s.logger.Error(ctx, err, "remove delivered queue entry", "incident_id", inc.ID)
		}
		s.recordHistory(ctx, &inc)
		delivered++

		s.logger.Info(ctx, "queued incident delivered",
			"incident_id", inc.ID,
			"status", inc.Status,
			"retries", entry.Retries,
		)
	}

	if s.hooks.OnFlush != nil {
		s.hooks.OnFlush(delivered, kept)
	}
	s.observeDepth(ctx)
}

// List returns all queued entries, oldest first.
func (s *Service) List(ctx context.Context) ([]incident.QueueEntry, error) {
	pairs, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	out := make([]incident.QueueEntry, 0, len(pairs))
	for _, p := range pairs {
		var entry incident.QueueEntry
		if err := json.Unmarshal(p.Value, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", p.Key, err)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Incident.CreatedAt.Before(out[j].Incident.CreatedAt)
	})
	return out, nil
}

// Clear removes one entry without attempting delivery. The history record
// is marked cancelled: the user explicitly discarded the alert.
func (s *Service) Clear(ctx context.Context, id string) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.clearLocked(ctx, id)
}

// clearLocked does the work of Clear. Callers hold flushMu, so a flush in
// progress can never re-persist an entry the user just discarded.
func (s *Service) clearLocked(ctx context.Context, id string) error {
	entry, ok, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.kv.Delete(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("clear queue entry %s: %w", id, err)
	}

	entry.Incident.Status = incident.StatusCancelled
	entry.Incident.CompletedAt = time.Now()
	s.recordHistory(ctx, &entry.Incident)
	s.observeDepth(ctx)

	s.logger.Info(ctx, "queue entry cleared", "incident_id", id)
	return nil
}

// ClearAll removes every entry without attempting delivery.
func (s *Service) ClearAll(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if err := s.clearLocked(ctx, entries[i].Incident.ID); err != nil {
			return err
		}
	}
	return nil
}

// Run flushes on every wake event (connectivity restored) and on a
// periodic safety-net timer, until ctx is done.
func (s *Service) Run(ctx context.Context, wake <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			s.Flush(ctx)
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) get(ctx context.Context, id string) (*incident.QueueEntry, bool, error) {
	b, ok, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, false, fmt.Errorf("get queue entry %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var entry incident.QueueEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal queue entry %s: %w", id, err)
	}
	return &entry, true, nil
}

func (s *Service) put(ctx context.Context, entry *incident.QueueEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry %s: %w", entry.Incident.ID, err)
	}
	if err := s.kv.Set(ctx, keyPrefix+entry.Incident.ID, b); err != nil {
		return fmt.Errorf("persist queue entry %s: %w", entry.Incident.ID, err)
	}
	return nil
}

// recordHistory is best-effort: a history write failure is logged, never
// surfaced into the delivery path.
func (s *Service) recordHistory(ctx context.Context, inc *incident.Incident) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, inc); err != nil {
		s.logger.Error(ctx, err, "record incident history", "incident_id", inc.ID)
	}
}

func (s *Service) observeDepth(ctx context.Context) {
	if s.hooks.OnDepth == nil {
		return
	}
	entries, err := s.List(ctx)
	if err != nil {
		return
	}
	s.hooks.OnDepth(len(entries))
}
