package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, "a", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "a", []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || string(v) != "two" {
		t.Fatalf("Get = %q ok=%v err=%v, want two", v, ok, err)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestList_PrefixAndOrder(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	for _, k := range []string{"queue/b", "queue/a", "incident/x", "queue/c"} {
		if err := s.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	got, err := s.List(ctx, "queue/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"queue/a", "queue/b", "queue/c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Key != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, p.Key, want[i])
		}
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, "queue/01", []byte("entry")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get(ctx, "queue/01")
	if err != nil || !ok || string(v) != "entry" {
		t.Fatalf("Get after reopen = %q ok=%v err=%v, want entry", v, ok, err)
	}
}
