package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitor_EdgeNotification(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := New(srv.URL, time.Hour, nil)
	wake := m.Subscribe()

	m.check(context.Background())
	if m.Online() {
		t.Fatal("expected offline while probe fails")
	}
	select {
	case <-wake:
		t.Fatal("unexpected notification while offline")
	default:
	}

	up.Store(true)
	m.check(context.Background())
	if !m.Online() {
		t.Fatal("expected online after successful probe")
	}
	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("no notification on offline→online edge")
	}

	// Staying online must not re-notify.
	m.check(context.Background())
	select {
	case <-wake:
		t.Fatal("notification without a state transition")
	default:
	}
}

func TestMonitor_CoalescedSends(t *testing.T) {
	t.Parallel()

	m := New("http://127.0.0.1:0", time.Hour, nil)
	wake := m.Subscribe()

	// Flap several times without draining; the subscriber channel holds
	// at most one pending notification.
	for i := 0; i < 3; i++ {
		m.SetOnline(true)
		m.SetOnline(false)
	}

	<-wake
	select {
	case <-wake:
		t.Fatal("expected sends to coalesce to one")
	default:
	}
}

func TestMonitor_StartsOffline(t *testing.T) {
	t.Parallel()

	m := New("http://127.0.0.1:0", time.Hour, nil)
	if m.Online() {
		t.Fatal("monitor should start pessimistic")
	}
}
