package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/guardian/internal/incident"
	"github.com/linnemanlabs/guardian/internal/trigger"
)

type triggerRequest struct {
	Kind string `json:"kind"`
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	kind := incident.TriggerKind(req.Kind)
	switch kind {
	case incident.TriggerManual, incident.TriggerImpact, incident.TriggerVoice:
	case "":
		kind = incident.TriggerManual
	default:
		http.Error(w, `{"error":"unknown trigger kind"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("guardian.trigger.kind", string(kind)))

	result, err := a.svc.Submit(r.Context(), incident.TriggerSignal{
		Kind:       kind,
		OccurredAt: time.Now(),
	})
	if err != nil {
		status, body := mapSubmitError(err)
		if status == http.StatusInternalServerError {
			a.logger.Error(r.Context(), err, "trigger submit failed", "kind", kind)
		}
		http.Error(w, body, status)
		return
	}

	span.SetAttributes(attribute.String("guardian.incident.id", result.ID))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":                result.ID,
		"countdown_seconds": result.CountdownSecond,
	})
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Cancel(r.Context()); err != nil {
		if errors.Is(err, trigger.ErrNoActiveIncident) {
			http.Error(w, `{"error":"no active incident"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "cancel failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (a *API) handleActiveIncident(w http.ResponseWriter, r *http.Request) {
	inc, remaining, ok := a.svc.Active()
	if !ok {
		http.Error(w, `{"error":"no active incident"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incident":          inc,
		"seconds_remaining": remaining,
	})
}
