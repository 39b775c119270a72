package incident

import (
	"strings"
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusCancelled, StatusSent, StatusPartiallySent, StatusFailed, StatusQueued}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}

	active := []Status{StatusCountdown, StatusDispatching}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestRenderMessage_WithLocation(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	msg := RenderMessage(&Location{Latitude: 52.520008, Longitude: 13.404954}, at)

	if !strings.HasPrefix(msg, "[EMERGENCY ALERT]") {
		t.Errorf("message should start with alert header, got %q", msg)
	}
	if !strings.Contains(msg, "https://maps.google.com/?q=52.520008,13.404954") {
		t.Errorf("message should contain maps link, got %q", msg)
	}
	if !strings.Contains(msg, "2026-03-01T12:30:00Z") {
		t.Errorf("message should contain RFC3339 timestamp, got %q", msg)
	}
}

func TestRenderMessage_NilLocation(t *testing.T) {
	t.Parallel()

	msg := RenderMessage(nil, time.Now())
	if !strings.Contains(msg, "Location unavailable") {
		t.Errorf("nil location should render as unavailable, got %q", msg)
	}
}
