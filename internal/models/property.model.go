package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Property struct {
	BaseUUIDModel
	Name               string          `gorm:"type:text;not null"     json:"name"`
	Address            string          `gorm:"type:text"              json:"address"`
	Timezone           string          `gorm:"type:text;default:'UTC'" json:"timezone"`
	CleaningFee        decimal.Decimal `gorm:"type:numeric(10,2)"     json:"cleaningFee"`
	IsActive           bool            `gorm:"type:bool;default:true" json:"isActive"`
	DefaultChecklistID *uuid.UUID      `gorm:"type:uuid"              json:"defaultChecklistId,omitempty"`

	DefaultChecklist *ChecklistTemplate `gorm:"foreignKey:DefaultChecklistID" json:"defaultChecklist,omitempty"`
}
