package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/store"
)

// listWebhookLogs returns the newest log entries, optionally filtered by ?status= and ?waId=
func (r *Router) listWebhookLogs(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := store.LogFilter{
		Status: models.WebhookStatus(q.Get("status")),
		WaID:   q.Get("waId"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		f.Limit = n
	}

	list, err := r.logs.List(req.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch webhook logs")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) getWebhookLog(w http.ResponseWriter, req *http.Request) {
	entry, err := r.logs.Get(req.Context(), mux.Vars(req)["id"])
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Webhook log not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch webhook log")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
