package history

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/kv/memkv"
)

func TestRecordGetList(t *testing.T) {
	t.Parallel()

	s := New(memkv.New())
	ctx := context.Background()

	older := &incident.Incident{
		ID:        "01AAA",
		Trigger:   incident.TriggerManual,
		Status:    incident.StatusCancelled,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	newer := &incident.Incident{
		ID:        "01BBB",
		Trigger:   incident.TriggerImpact,
		Status:    incident.StatusSent,
		CreatedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}

	if err := s.Record(ctx, older); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, newer); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, ok, err := s.Get(ctx, "01AAA")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v", ok, err)
	}
	if got.Status != incident.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	// Re-record with a new status; must update in place.
	older.Status = incident.StatusSent
	if err := s.Record(ctx, older); err != nil {
		t.Fatalf("Record update: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "01BBB" {
		t.Errorf("list[0] = %s, want newest first (01BBB)", list[0].ID)
	}
	if list[1].Status != incident.StatusSent {
		t.Errorf("updated record not reflected in list: %q", list[1].Status)
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	s := New(memkv.New())
	if _, ok, err := s.Get(context.Background(), "nope"); err != nil || ok {
		t.Fatalf("Get missing = ok=%v err=%v, want absent", ok, err)
	}
}
