// Package api exposes the engine over HTTP: trigger submission and
// cancellation, the active incident, incident history, and offline-queue
// inspection.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/trigger"
)

// TriggerService defines the arbitration operations the API needs.
type TriggerService interface {
	Submit(ctx context.Context, sig incident.TriggerSignal) (*trigger.SubmitResult, error)
	Cancel(ctx context.Context) error
	Active() (*incident.Incident, int, bool)
}

// QueueService defines the offline-queue operations the API needs.
type QueueService interface {
	List(ctx context.Context) ([]incident.QueueEntry, error)
	Clear(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}

// HistoryReader reads the incident record.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*incident.Incident, bool, error)
	List(ctx context.Context) ([]incident.Incident, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger  log.Logger
	svc     TriggerService
	queue   QueueService
	history HistoryReader
}

// New creates a new API handler.
func New(logger log.Logger, svc TriggerService, queue QueueService, history HistoryReader) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("trigger service is required"))
	}
	if queue == nil {
		panic(xerrors.New("queue service is required"))
	}
	if history == nil {
		panic(xerrors.New("history reader is required"))
	}
	return &API{
		logger:  logger,
		svc:     svc,
		queue:   queue,
		history: history,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/trigger", a.handleTrigger)
		r.Post("/cancel", a.handleCancel)
		r.Get("/incident/active", a.handleActiveIncident)
		r.Get("/incidents", a.handleListIncidents)
		r.Get("/incidents/{id}", a.handleGetIncident)
		r.Get("/queue", a.handleListQueue)
		r.Delete("/queue", a.handleClearQueue)
		r.Delete("/queue/{id}", a.handleClearQueueEntry)
	})
}

func (a *API) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("guardian.incident.id", id))

	inc, ok, err := a.history.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get incident", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("guardian.incident.status", string(inc.Status)))

	writeJSON(w, http.StatusOK, inc)
}

func (a *API) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	list, err := a.history.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list incidents")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": list})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func mapSubmitError(err error) (int, string) {
	switch {
	case errors.Is(err, trigger.ErrIncidentInFlight):
		return http.StatusConflict, `{"error":"incident already in flight"}`
	case errors.Is(err, trigger.ErrInsufficientContacts):
		return http.StatusPreconditionFailed, `{"error":"insufficient emergency contacts"}`
	}
	return http.StatusInternalServerError, `{"error":"internal error"}`
}
