package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChecklistTemplate is the mutable, admin-managed definition of cleaning steps.
// Schedules never reference a template directly once cleaning starts; they carry
// a frozen snapshot instead, so template edits cannot retroactively change work
// that is already in progress.
type ChecklistTemplate struct {
	BaseUUIDModel
	Name       string     `gorm:"type:text;not null"     json:"name"`
	PropertyID *uuid.UUID `gorm:"type:uuid;index"        json:"propertyId,omitempty"`
	IsDefault  bool       `gorm:"type:bool;default:false" json:"isDefault"`
	IsActive   bool       `gorm:"type:bool;default:true"  json:"isActive"`

	Items []ChecklistTemplateItem `gorm:"foreignKey:TemplateID" json:"items,omitempty"`
}

type ChecklistTemplateItem struct {
	BaseUUIDModel
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"templateId"`
	Title      string    `gorm:"type:text;not null"       json:"title"`
	Category   string    `gorm:"type:text"                json:"category"`
	Position   int       `gorm:"type:int;default:0"       json:"position"`
}

// ChecklistItem is one entry of a frozen snapshot, carried on the schedule row.
type ChecklistItem struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Done     bool      `json:"done"`
}

// ChecklistSnapshot is the frozen copy taken when a schedule enters cleaning.
// LoadedAt records the freeze instant.
type ChecklistSnapshot struct {
	TemplateID *uuid.UUID      `json:"templateId,omitempty"`
	LoadedAt   time.Time       `json:"loadedAt"`
	Items      []ChecklistItem `json:"items"`
}

// SnapshotFrom freezes the template's current items into a schedule snapshot.
func SnapshotFrom(template *ChecklistTemplate, at time.Time) ChecklistSnapshot {
	snapshot := ChecklistSnapshot{LoadedAt: at}
	if template == nil {
		return snapshot
	}

	snapshot.TemplateID = &template.ID
	snapshot.Items = make([]ChecklistItem, 0, len(template.Items))
	for _, item := range template.Items {
		snapshot.Items = append(snapshot.Items, ChecklistItem{
			ID:       item.ID,
			Title:    item.Title,
			Category: item.Category,
		})
	}

	return snapshot
}

type ChecklistSnapshotColumn = datatypes.JSONType[ChecklistSnapshot]
