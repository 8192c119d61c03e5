package models

import (
	"time"

	"github.com/google/uuid"
)

// CalendarSource is one upstream reservation feed (an OTA calendar export)
// consumed by the sync function.
type CalendarSource struct {
	BaseUUIDModel
	Name       string     `gorm:"type:text;not null"     json:"name"`
	Provider   string     `gorm:"type:text"              json:"provider"`
	URL        string     `gorm:"type:text;not null"     json:"url"`
	PropertyID uuid.UUID  `gorm:"type:uuid;not null;index" json:"propertyId"`
	IsActive   bool       `gorm:"type:bool;default:true" json:"isActive"`
	LastSyncAt *time.Time `gorm:"type:timestamp"         json:"lastSyncAt,omitempty"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
