package wati

import (
	"encoding/json"
	"strings"
)

// Event types that carry an inbound customer message
const (
	EventMessage         = "message"
	EventMessageReceived = "messageReceived"
)

// MessageTypeDocument is the WATI type of file attachments
const MessageTypeDocument = "document"

// DefaultFilename is used when the sender's caption is not a file name
const DefaultFilename = "so_from_whatsapp.pdf"

// WebhookPayload is the JSON body WATI posts for every webhook event
type WebhookPayload struct {
	EventType  string          `json:"eventType"`
	Type       string          `json:"type"`
	WaID       string          `json:"waId"`
	ID         string          `json:"id"`
	Text       string          `json:"text"`
	Data       json.RawMessage `json:"data"`
	SenderName string          `json:"senderName"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// ParsePayload decodes a webhook body
func ParsePayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MediaURL returns data when it is a string; documents carry their download URL there
func (p *WebhookPayload) MediaURL() string {
	if len(p.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Data, &s); err != nil {
		return ""
	}
	return s
}

// IgnoreReason returns why the event is not a PDF sent by a customer, or "" when it should be processed
func (p *WebhookPayload) IgnoreReason() string {
	if p.EventType != EventMessage && p.EventType != EventMessageReceived {
		return "event: " + p.EventType
	}
	if p.Type != MessageTypeDocument {
		return "not a document"
	}
	if !p.IsPDF() {
		return "not a PDF"
	}
	if p.MediaURL() == "" {
		return "no media URL"
	}
	return ""
}

// IsPDF checks the media URL and the caption for a .pdf name
func (p *WebhookPayload) IsPDF() bool {
	return strings.Contains(strings.ToLower(p.MediaURL()), ".pdf") ||
		strings.HasSuffix(strings.ToLower(strings.TrimSpace(p.Text)), ".pdf")
}

// Filename is the caption when it names a PDF, else DefaultFilename
func (p *WebhookPayload) Filename() string {
	name := strings.TrimSpace(p.Text)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return DefaultFilename
}
