// Package incident defines the domain model for Guardian's emergency
// engine: trigger signals, the incident lifecycle, and per-contact
// delivery results.
package incident

import "time"

// TriggerKind identifies what produced an activation signal.
type TriggerKind string

const (
	// TriggerManual is the user pressing the panic button.
	TriggerManual TriggerKind = "manual"

	// TriggerImpact is the accelerometer impact detector.
	TriggerImpact TriggerKind = "impact"

	// TriggerVoice is the spoken distress-keyword listener.
	TriggerVoice TriggerKind = "voice"
)

// TriggerSignal is a candidate activation produced by a trigger source.
// Signals are ephemeral: consumed by the arbiter, never persisted.
type TriggerSignal struct {
	Kind       TriggerKind
	OccurredAt time.Time
}

// Status tracks where an incident is in its lifecycle.
type Status string

const (
	// StatusCountdown means the cancellation window is running.
	StatusCountdown Status = "countdown"

	// StatusCancelled means the user cancelled during the countdown.
	StatusCancelled Status = "cancelled"

	// StatusDispatching means the countdown expired and delivery is in progress.
	StatusDispatching Status = "dispatching"

	// StatusSent means every contact's primary channel succeeded.
	StatusSent Status = "sent"

	// StatusPartiallySent means some but not all primary deliveries succeeded.
	StatusPartiallySent Status = "partially_sent"

	// StatusFailed means no primary delivery succeeded.
	StatusFailed Status = "failed"

	// StatusQueued means the incident is held in the offline queue for retry.
	StatusQueued Status = "queued"
)

// Terminal reports whether the status ends the countdown/dispatch pipeline.
// Queued is terminal for the pipeline: the offline queue owns the incident
// from there and the arbiter may accept new signals.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusSent, StatusPartiallySent, StatusFailed, StatusQueued:
		return true
	}
	return false
}

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelSMS            Channel = "sms"
	ChannelChatSelfHosted Channel = "chat_selfhosted"
	ChannelChatPaid       Channel = "chat_paid"
	ChannelChatNative     Channel = "chat_native"
)

// Outcome is the result of one channel attempt for one contact.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// DeliveryResult records one channel attempt against one contact.
type DeliveryResult struct {
	ContactID   string    `json:"contact_id"`
	Channel     Channel   `json:"channel"`
	Outcome     Outcome   `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// Location is a best-effort coordinate snapshot taken at dispatch time.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Incident is one emergency episode from trigger to terminal delivery status.
type Incident struct {
	ID              string           `json:"id"`
	Trigger         TriggerKind      `json:"trigger"`
	CreatedAt       time.Time        `json:"created_at"`
	Location        *Location        `json:"location,omitempty"`
	Message         string           `json:"message,omitempty"`
	Status          Status           `json:"status"`
	DeliveryResults []DeliveryResult `json:"delivery_results,omitempty"`
	CompletedAt     time.Time        `json:"completed_at,omitempty"`
}

// QueueEntry is a queued incident plus retry bookkeeping. It exists only
// while the incident status is queued.
type QueueEntry struct {
	Incident      Incident  `json:"incident"`
	Retries       int       `json:"retries"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}
