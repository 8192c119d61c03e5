package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestStatusOrder(t *testing.T) {
	assert.Equal(t, 0, StatusWaiting.Index())
	assert.Equal(t, 1, StatusReleased.Index())
	assert.Equal(t, 2, StatusCleaning.Index())
	assert.Equal(t, 3, StatusCompleted.Index())
	assert.Equal(t, -1, Status("archived").Index())
}

func TestStatusNext(t *testing.T) {
	assert.Equal(t, StatusReleased, StatusWaiting.Next())
	assert.Equal(t, StatusCleaning, StatusReleased.Next())
	assert.Equal(t, StatusCompleted, StatusCleaning.Next())
	assert.Equal(t, Status(""), StatusCompleted.Next(), "completed is terminal")
	assert.Equal(t, Status(""), Status("archived").Next())
}

func TestStatusValid(t *testing.T) {
	for _, status := range StatusOrder {
		assert.True(t, status.Valid())
	}
	assert.False(t, Status("").Valid())
	assert.False(t, Status("done").Valid())
}

func TestSnapshotFrom(t *testing.T) {
	t.Run("copies template items unticked", func(t *testing.T) {
		template := &ChecklistTemplate{Name: "Standard"}
		template.ID = uuid.New()
		template.Items = []ChecklistTemplateItem{
			{Title: "Strip linens", Category: "bedroom", Position: 1},
			{Title: "Mop floors", Category: "general", Position: 2},
		}
		for i := range template.Items {
			template.Items[i].ID = uuid.New()
		}

		at := time.Now().UTC()
		snapshot := SnapshotFrom(template, at)

		require.NotNil(t, snapshot.TemplateID)
		assert.Equal(t, template.ID, *snapshot.TemplateID)
		assert.Equal(t, at, snapshot.LoadedAt)
		require.Len(t, snapshot.Items, 2)
		for i, item := range snapshot.Items {
			assert.Equal(t, template.Items[i].ID, item.ID)
			assert.Equal(t, template.Items[i].Title, item.Title)
			assert.False(t, item.Done)
		}
	})

	t.Run("nil template yields empty snapshot with freeze instant", func(t *testing.T) {
		at := time.Now().UTC()
		snapshot := SnapshotFrom(nil, at)

		assert.Nil(t, snapshot.TemplateID)
		assert.Equal(t, at, snapshot.LoadedAt)
		assert.Empty(t, snapshot.Items)
	})
}

func TestScheduleChecklistLoaded(t *testing.T) {
	schedule := &Schedule{}
	assert.False(t, schedule.ChecklistLoaded())

	schedule.Checklist = datatypes.NewJSONType(SnapshotFrom(nil, time.Now().UTC()))
	assert.True(t, schedule.ChecklistLoaded())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleCleaner.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}
