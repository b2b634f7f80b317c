package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// LocationMapping maps a location code printed on the listing (e.g. "AVINA14")
// to an ERP warehouse name (e.g. "Avina 14 - SEMSB").
type LocationMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LocationCode string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"locationCode"`
	Warehouse    string    `gorm:"not null" json:"warehouse"`
	Description  string    `json:"description"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (LocationMapping) TableName() string {
	return "location_mappings"
}

// BeforeSave keeps codes in their canonical form so lookups stay exact-match
func (m *LocationMapping) BeforeSave(tx *gorm.DB) error {
	m.LocationCode = NormalizeLocationCode(m.LocationCode)
	m.Warehouse = strings.TrimSpace(m.Warehouse)
	return nil
}

// NormalizeLocationCode trims and upper-cases a location code
func NormalizeLocationCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
