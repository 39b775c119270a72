package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleListQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := a.queue.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list queue")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleClearQueueEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.queue.Clear(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "failed to clear queue entry", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	if err := a.queue.ClearAll(r.Context()); err != nil {
		a.logger.Error(r.Context(), err, "failed to clear queue")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
