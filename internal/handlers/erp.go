package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/xelth-com/watibridge/internal/utils"
	"github.com/xelth-com/watibridge/internal/websocket"
)

// pingERP checks the configured ERP credentials
func (r *Router) pingERP(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 15*time.Second)
	defer cancel()

	user, err := r.backend.Ping(ctx)
	if err != nil {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"ok":      false,
			"backend": r.backend.Name(),
			"error":   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"backend": r.backend.Name(),
		"user":    user,
	})
}

// serveWs upgrades dashboard connections; the access token comes as ?token=
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Live updates disabled")
		return
	}
	if _, err := utils.ValidateAccessToken(req.URL.Query().Get("token"), r.cfg.JWTSecret); err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	websocket.ServeWs(r.hub, w, req)
}
