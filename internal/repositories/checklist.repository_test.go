package repositories

import (
	"testing"

	. "turnkeep/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCacheableTemplate(t *testing.T) {
	propertyID := uuid.New()
	otherID := uuid.New()

	scoped := &ChecklistTemplate{Name: "Scoped", PropertyID: &propertyID, IsActive: true}
	foreign := &ChecklistTemplate{Name: "Foreign", PropertyID: &otherID, IsActive: true}
	global := &ChecklistTemplate{Name: "Global", IsDefault: true, IsActive: true}

	tests := []struct {
		name     string
		template *ChecklistTemplate
		want     bool
	}{
		{"nil template is never cached", nil, false},
		{"global fallback is never cached", global, false},
		{"template scoped to another property is never cached", foreign, false},
		{"template scoped to the requesting property is cached", scoped, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cacheableTemplate(propertyID, tc.template))
		})
	}
}
