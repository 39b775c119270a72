package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/guardian/internal/dispatch"
	"github.com/linnemanlabs/guardian/internal/history"
	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/kv/memkv"
)

// mockDispatcher returns a configurable status, optionally blocking until
// released to test flush serialization.
type mockDispatcher struct {
	mu      sync.Mutex
	status  incident.Status
	calls   int
	block   chan struct{}
}

func (m *mockDispatcher) Dispatch(_ context.Context, inc *incident.Incident) (*dispatch.Report, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	status := m.status
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	return &dispatch.Report{
		Status:  status,
		Message: inc.Message,
		Results: []incident.DeliveryResult{{ContactID: "c1", Channel: incident.ChannelSMS}},
	}, nil
}

func (m *mockDispatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockDispatcher) setStatus(s incident.Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func queuedIncident(id string, created time.Time) *incident.Incident {
	return &incident.Incident{
		ID:        id,
		Trigger:   incident.TriggerManual,
		CreatedAt: created,
		Status:    incident.StatusFailed,
		Message:   "[EMERGENCY ALERT]\ntest",
	}
}

func TestEnqueue_Idempotent(t *testing.T) {
	t.Parallel()

	s := New(memkv.New(), &mockDispatcher{status: incident.StatusFailed}, nil, log.Nop(), Hooks{})
	ctx := context.Background()

	inc := queuedIncident("01A", time.Now())
	if err := s.Enqueue(ctx, inc); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Enqueue(ctx, inc); err != nil {
		t.Fatalf("Enqueue again: %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want exactly 1 after duplicate enqueue", len(entries))
	}
	if entries[0].Incident.Status != incident.StatusQueued {
		t.Errorf("status = %q, want queued", entries[0].Incident.Status)
	}
}

func TestEnqueue_PreservesRetryCounter(t *testing.T) {
	t.Parallel()

	d := &mockDispatcher{status: incident.StatusFailed}
	s := New(memkv.New(), d, nil, log.Nop(), Hooks{})
	ctx := context.Background()

	inc := queuedIncident("01A", time.Now())
	_ = s.Enqueue(ctx, inc)

	// Failed flush bumps the counter.
	s.Flush(ctx)
	entries, _ := s.List(ctx)
	if entries[0].Retries != 1 {
		t.Fatalf("retries = %d, want 1 after failed flush", entries[0].Retries)
	}

	// Re-enqueue must not reset it.
	_ = s.Enqueue(ctx, inc)
	entries, _ = s.List(ctx)
	if entries[0].Retries != 1 {
		t.Errorf("retries = %d, want 1 preserved across re-enqueue", entries[0].Retries)
	}
}

func TestFlush_DeliversAndRemoves(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	hist := history.New(store)
	d := &mockDispatcher{status: incident.StatusFailed}
	s := New(store, d, hist, log.Nop(), Hooks{})
	ctx := context.Background()

	inc := queuedIncident("01A", time.Now())
	_ = s.Enqueue(ctx, inc)

	// Transports still down: entry stays.
	s.Flush(ctx)
	if entries, _ := s.List(ctx); len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 while transports down", len(entries))
	}

	// Transports recover: entry delivered and removed, history updated.
	d.setStatus(incident.StatusSent)
	s.Flush(ctx)

	entries, _ := s.List(ctx)
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0 after recovery", len(entries))
	}

	rec, ok, err := hist.Get(ctx, "01A")
	if err != nil || !ok {
		t.Fatalf("history Get = ok=%v err=%v", ok, err)
	}
	if rec.Status != incident.StatusSent {
		t.Errorf("history status = %q, want sent", rec.Status)
	}
	if rec.CompletedAt.IsZero() {
		t.Error("history record should carry completion time")
	}
}

func TestFlush_OldestFirst(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	var order []string
	d := &orderDispatcher{order: &order}
	s := New(store, d, nil, log.Nop(), Hooks{})
	ctx := context.Background()

	base := time.Now()
	_ = s.Enqueue(ctx, queuedIncident("01B", base.Add(time.Minute)))
	_ = s.Enqueue(ctx, queuedIncident("01A", base))
	_ = s.Enqueue(ctx, queuedIncident("01C", base.Add(2*time.Minute)))

	s.Flush(ctx)

	want := []string{"01A", "01B", "01C"}
	if len(order) != 3 {
		t.Fatalf("dispatched %d, want 3", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

type orderDispatcher struct {
	mu    sync.Mutex
	order *[]string
}

func (d *orderDispatcher) Dispatch(_ context.Context, inc *incident.Incident) (*dispatch.Report, error) {
	d.mu.Lock()
	*d.order = append(*d.order, inc.ID)
	d.mu.Unlock()
	return &dispatch.Report{Status: incident.StatusSent}, nil
}

func TestFlush_NotReentrant(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	block := make(chan struct{})
	d := &mockDispatcher{status: incident.StatusSent, block: block}
	s := New(store, d, nil, log.Nop(), Hooks{})
	ctx := context.Background()

	_ = s.Enqueue(ctx, queuedIncident("01A", time.Now()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Flush(ctx) // blocks inside the dispatcher
	}()

	// Wait until the first flush holds the lock.
	for i := 0; i < 100 && d.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	// A second connectivity event mid-flush must be dropped, not queued.
	s.Flush(ctx)
	if got := d.callCount(); got != 1 {
		t.Errorf("dispatch calls = %d during overlapping flush, want 1", got)
	}

	close(block)
	wg.Wait()
}

func TestClear_WaitsForFlush(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	hist := history.New(store)
	block := make(chan struct{})
	d := &mockDispatcher{status: incident.StatusFailed, block: block}
	s := New(store, d, hist, log.Nop(), Hooks{})
	ctx := context.Background()

	_ = s.Enqueue(ctx, queuedIncident("01A", time.Now()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Flush(ctx) // blocks inside the dispatcher, attempt will fail
	}()

	for i := 0; i < 100 && d.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	// The user discards the alert mid-flush. Clear must wait for the
	// flush to finish so the failed attempt cannot re-persist the entry
	// behind the removal.
	cleared := make(chan error, 1)
	go func() { cleared <- s.Clear(ctx, "01A") }()

	select {
	case err := <-cleared:
		t.Fatalf("Clear returned mid-flush (err=%v), want it to block", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	if err := <-cleared; err != nil {
		t.Fatalf("Clear: %v", err)
	}
	wg.Wait()

	if entries, _ := s.List(ctx); len(entries) != 0 {
		t.Fatalf("entries = %+v after clear, want none", entries)
	}
	rec, ok, _ := hist.Get(ctx, "01A")
	if !ok || rec.Status != incident.StatusCancelled {
		t.Errorf("history = ok=%v status=%v, want cancelled record", ok, rec)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	hist := history.New(store)
	s := New(store, &mockDispatcher{status: incident.StatusFailed}, hist, log.Nop(), Hooks{})
	ctx := context.Background()

	_ = s.Enqueue(ctx, queuedIncident("01A", time.Now()))
	_ = s.Enqueue(ctx, queuedIncident("01B", time.Now()))

	if err := s.Clear(ctx, "01A"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, _ := s.List(ctx)
	if len(entries) != 1 || entries[0].Incident.ID != "01B" {
		t.Fatalf("entries = %+v, want only 01B", entries)
	}

	// Cleared incident recorded as cancelled.
	rec, ok, _ := hist.Get(ctx, "01A")
	if !ok || rec.Status != incident.StatusCancelled {
		t.Errorf("history = ok=%v status=%v, want cancelled record", ok, rec)
	}

	// Clearing a missing id is fine.
	if err := s.Clear(ctx, "nope"); err != nil {
		t.Errorf("Clear missing: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if entries, _ := s.List(ctx); len(entries) != 0 {
		t.Errorf("entries = %d after ClearAll, want 0", len(entries))
	}
}

func TestRun_FlushesOnWake(t *testing.T) {
	t.Parallel()

	store := memkv.New()
	d := &mockDispatcher{status: incident.StatusSent}
	s := New(store, d, nil, log.Nop(), Hooks{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Enqueue(ctx, queuedIncident("01A", time.Now()))

	wake := make(chan struct{}, 1)
	go s.Run(ctx, wake, time.Hour)

	wake <- struct{}{}

	deadline := time.After(2 * time.Second)
	for {
		entries, _ := s.List(ctx)
		if len(entries) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue not flushed after wake event")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
