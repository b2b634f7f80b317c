package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/xelth-com/watibridge/internal/pipeline"
)

const maxWebhookBody = 1 << 20

// receiveWebhook runs the pipeline for one WATI delivery. Processed and
// ignored events both answer 200 so WATI does not redeliver them.
func (r *Router) receiveWebhook(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(body) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Empty payload"})
		return
	}

	// the run outlives a client that hangs up early
	res, err := r.processor.Handle(context.WithoutCancel(req.Context()), body)
	if errors.Is(err, pipeline.ErrInvalidPayload) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid JSON"})
		return
	}
	if err != nil {
		log.Printf("❌ Webhook: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Server error"})
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (r *Router) webhookToken(ctx context.Context) (string, error) {
	s, err := r.settings.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.WebhookToken, nil
}
