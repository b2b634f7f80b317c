package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookStatus is the lifecycle of one inbound event
type WebhookStatus string

const (
	WebhookReceived   WebhookStatus = "Received"
	WebhookIgnored    WebhookStatus = "Ignored"
	WebhookProcessing WebhookStatus = "Processing"
	WebhookError      WebhookStatus = "Error"
	WebhookSuccess    WebhookStatus = "Success"
)

// WebhookLog records every WATI delivery and what the pipeline did with it
type WebhookLog struct {
	ID                 string         `gorm:"primaryKey;type:uuid" json:"id"`
	Status             WebhookStatus  `gorm:"type:varchar(20);index;not null" json:"status"`
	Payload            datatypes.JSON `json:"payload"`
	WhatsAppNumber     string         `gorm:"index" json:"whatsappNumber"`
	MessageType        string         `json:"messageType"`
	WatiMessageID      string         `gorm:"index" json:"watiMessageId"`
	Reason             string         `json:"reason,omitempty"`
	PDFFile            string         `json:"pdfFile,omitempty"`
	SalesOrdersCreated string         `json:"salesOrdersCreated,omitempty"`
	ErrorLog           string         `gorm:"type:text" json:"errorLog,omitempty"`
	GroupResults       datatypes.JSON `json:"groupResults,omitempty"`
	TestMode           bool           `json:"testMode"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (WebhookLog) TableName() string {
	return "webhook_logs"
}

// BeforeCreate assigns the log id
func (l *WebhookLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
