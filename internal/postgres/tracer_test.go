package postgres

import (
	"context"
	"testing"
	"time"
)

func TestShortenFuncName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full path", "github.com/linnemanlabs/guardian/internal/contacts/pgstore.(*Store).List", "(*Store).List"},
		{"already short", "(*Store).List", "List"},
		{"empty string", "", ""},
		{"no dots", "main", "main"},
		{"no slashes", "pgstore.(*Store).List", "(*Store).List"},
		{"single segment", "foo.Bar", "Bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := shortenFuncName(tt.in)
			if got != tt.want {
				t.Errorf("shortenFuncName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQueryObserver_SetAndClear(t *testing.T) {
	// Not parallel: mutates the package-level observer.
	var calls int
	SetQueryObserver(QueryObserverFunc(func(_ context.Context, route, outcome string, dur time.Duration) {
		calls++
		if route != "internal" {
			t.Errorf("route = %q, want internal", route)
		}
		if outcome != "ok" {
			t.Errorf("outcome = %q, want ok", outcome)
		}
	}))
	defer SetQueryObserver(nil)

	obs := getQueryObserver()
	if obs == nil {
		t.Fatal("observer should be set")
	}
	obs.ObserveQuery(context.Background(), "internal", "ok", time.Millisecond)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	SetQueryObserver(nil)
	if getQueryObserver() != nil {
		t.Error("observer should be cleared")
	}
}
