package models

import "time"

// SettingsID is the primary key of the single settings row
const SettingsID = 1

// Default message templates
const (
	DefaultSuccessTemplate     = "Sales Order {so_name} received. Items: {item_count} lines | Delivery: {delivery_date}"
	DefaultParseErrorTemplate  = "Could not process your PDF. Issues: {error}. Please contact the office."
	DefaultCreateErrorTemplate = "Sales Order could not be created. {error}. Please contact the office."
)

// WatiSettings is the administrator-managed configuration record
type WatiSettings struct {
	ID                     uint   `gorm:"primaryKey" json:"id"`
	APIEndpoint            string `json:"apiEndpoint"`
	APIKey                 string `json:"-"`
	WebhookToken           string `json:"-"`
	WebhookURL             string `json:"webhookUrl"`
	TestMode               bool   `gorm:"default:false" json:"testMode"`
	DefaultCompany         string `json:"defaultCompany"`
	AutoSubmitSalesOrders  bool   `gorm:"default:false" json:"autoSubmitSalesOrders"`
	CreateProductionPlans  bool   `gorm:"default:false" json:"createProductionPlans"`
	NotifySenderOnSuccess  bool   `gorm:"default:true" json:"notifySenderOnSuccess"`
	NotifySenderOnError    bool   `gorm:"default:true" json:"notifySenderOnError"`
	SuccessMessageTemplate string `gorm:"type:text" json:"successMessageTemplate"`
	ParseErrorTemplate     string `gorm:"type:text" json:"parseErrorTemplate"`
	CreateErrorTemplate    string `gorm:"type:text" json:"createErrorTemplate"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (WatiSettings) TableName() string {
	return "wati_settings"
}

// HasAPIKey reports whether outbound WATI calls can be authenticated
func (s *WatiSettings) HasAPIKey() bool {
	return s.APIKey != ""
}
