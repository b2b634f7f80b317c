// Package handlers exposes the webhook endpoint and the administrator API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/xelth-com/watibridge/internal/buildinfo"
	"github.com/xelth-com/watibridge/internal/config"
	"github.com/xelth-com/watibridge/internal/erp"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/middleware"
	"github.com/xelth-com/watibridge/internal/pipeline"
	"github.com/xelth-com/watibridge/internal/store"
	"github.com/xelth-com/watibridge/internal/websocket"
)

// Deps are the services the router dispatches to
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Processor *pipeline.Processor
	Mappings  locations.Store
	Settings  store.SettingsStore
	Logs      store.LogStore
	Backend   erp.Backend
	Hub       *websocket.Hub
}

// Router wraps the mux router and the services it needs
type Router struct {
	*mux.Router
	cfg       *config.Config
	db        *gorm.DB
	processor *pipeline.Processor
	mappings  locations.Store
	mapper    *locations.Mapper
	settings  store.SettingsStore
	logs      store.LogStore
	backend   erp.Backend
	hub       *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		cfg:       d.Config,
		db:        d.DB,
		processor: d.Processor,
		mappings:  d.Mappings,
		mapper:    locations.NewMapper(d.Mappings),
		settings:  d.Settings,
		logs:      d.Logs,
		backend:   d.Backend,
		hub:       d.Hub,
	}

	base := r.Router
	if d.Config.PathPrefix != "" {
		base = r.PathPrefix(d.Config.PathPrefix).Subrouter()
	}

	// Health check endpoint
	base.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Webhook (WATI)
	hook := base.PathPrefix("/api/webhooks").Subrouter()
	limit := rate.Inf
	if d.Config.Pipeline.RateLimit > 0 {
		limit = rate.Limit(d.Config.Pipeline.RateLimit)
	}
	limiter := rate.NewLimiter(limit, max(d.Config.Pipeline.RateBurst, 1))
	hook.Use(middleware.RateLimit(limiter), middleware.WebhookToken(r.webhookToken))
	hook.HandleFunc("/wati", r.receiveWebhook).Methods("POST")

	// Auth routes
	auth := base.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")

	// Admin API (protected)
	api := base.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(d.Config.JWTSecret))
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	api.HandleFunc("/location-mappings", r.listMappings).Methods("GET")
	api.HandleFunc("/location-mappings", r.createMapping).Methods("POST")
	api.HandleFunc("/location-mappings/resolve/{code}", r.resolveMapping).Methods("GET")
	api.HandleFunc("/location-mappings/{id:[0-9]+}", r.getMapping).Methods("GET")
	api.HandleFunc("/location-mappings/{id:[0-9]+}", r.updateMapping).Methods("PUT")
	api.HandleFunc("/location-mappings/{id:[0-9]+}", r.deleteMapping).Methods("DELETE")

	api.HandleFunc("/settings", r.getSettings).Methods("GET")
	api.HandleFunc("/settings", r.updateSettings).Methods("PUT")
	api.HandleFunc("/settings/webhook-qr", r.webhookQR).Methods("GET")

	api.HandleFunc("/webhook-logs", r.listWebhookLogs).Methods("GET")
	api.HandleFunc("/webhook-logs/{id}", r.getWebhookLog).Methods("GET")

	api.HandleFunc("/erp/ping", r.pingERP).Methods("GET")

	// Dashboard events; browsers cannot set headers on websocket upgrades
	base.HandleFunc("/ws", r.serveWs).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus returns build info and the switches that change pipeline behaviour
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	s, err := r.settings.Load(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	clients := 0
	if r.hub != nil {
		clients = r.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "running",
		"buildTime":  buildinfo.BuildTime,
		"commitHash": buildinfo.CommitHash,
		"commitTime": buildinfo.CommitTime,
		"startTime":  buildinfo.StartTime,
		"serverTime": time.Now().UTC().Format(time.RFC3339),
		"erpBackend": r.backend.Name(),
		"testMode":   s.TestMode,
		"webhookUrl": r.cfg.WebhookURL(),
		"dashboards": clients,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
