package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/watibridge/internal/models"
)

// settingsView is the settings record as the dashboard sees it.
// Secrets are reported as present or absent, never returned.
type settingsView struct {
	*models.WatiSettings
	HasAPIKey       bool `json:"hasApiKey"`
	HasWebhookToken bool `json:"hasWebhookToken"`
}

// settingsUpdate carries only the fields the request sets
type settingsUpdate struct {
	APIEndpoint            *string `json:"apiEndpoint"`
	APIKey                 *string `json:"apiKey"`
	WebhookToken           *string `json:"webhookToken"`
	TestMode               *bool   `json:"testMode"`
	DefaultCompany         *string `json:"defaultCompany"`
	AutoSubmitSalesOrders  *bool   `json:"autoSubmitSalesOrders"`
	CreateProductionPlans  *bool   `json:"createProductionPlans"`
	NotifySenderOnSuccess  *bool   `json:"notifySenderOnSuccess"`
	NotifySenderOnError    *bool   `json:"notifySenderOnError"`
	SuccessMessageTemplate *string `json:"successMessageTemplate"`
	ParseErrorTemplate     *string `json:"parseErrorTemplate"`
	CreateErrorTemplate    *string `json:"createErrorTemplate"`
}

func (u settingsUpdate) apply(s *models.WatiSettings) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&s.APIEndpoint, u.APIEndpoint)
	setString(&s.APIKey, u.APIKey)
	setString(&s.WebhookToken, u.WebhookToken)
	setString(&s.DefaultCompany, u.DefaultCompany)
	setString(&s.SuccessMessageTemplate, u.SuccessMessageTemplate)
	setString(&s.ParseErrorTemplate, u.ParseErrorTemplate)
	setString(&s.CreateErrorTemplate, u.CreateErrorTemplate)
	setBool(&s.TestMode, u.TestMode)
	setBool(&s.AutoSubmitSalesOrders, u.AutoSubmitSalesOrders)
	setBool(&s.CreateProductionPlans, u.CreateProductionPlans)
	setBool(&s.NotifySenderOnSuccess, u.NotifySenderOnSuccess)
	setBool(&s.NotifySenderOnError, u.NotifySenderOnError)
}

func viewOf(s *models.WatiSettings) settingsView {
	return settingsView{
		WatiSettings:    s,
		HasAPIKey:       s.HasAPIKey(),
		HasWebhookToken: s.WebhookToken != "",
	}
}

func (r *Router) getSettings(w http.ResponseWriter, req *http.Request) {
	s, err := r.settings.Load(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s))
}

func (r *Router) updateSettings(w http.ResponseWriter, req *http.Request) {
	var body settingsUpdate
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	s, err := r.settings.Load(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	before := s.TestMode
	body.apply(s)
	if err := r.settings.Save(req.Context(), s); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	if before != s.TestMode {
		log.Printf("⚙️ Settings: test mode %v", s.TestMode)
	}
	respondJSON(w, http.StatusOK, viewOf(s))
}

// webhookQR renders the webhook URL as a PNG for pairing from a phone
func (r *Router) webhookQR(w http.ResponseWriter, req *http.Request) {
	png, err := qrcode.Encode(r.cfg.WebhookURL(), qrcode.Low, 256)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
