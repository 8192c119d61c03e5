package services

import (
	"context"
	"errors"
	"testing"
	"time"

	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]*Schedule
	events    []*ScheduleEvent
	saveErr   error
	appendErr error
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[uuid.UUID]*Schedule)}
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, errors.New("schedule not found")
	}
	return schedule, nil
}

func (f *fakeScheduleRepo) List(
	ctx context.Context,
	filter repositories.ScheduleFilter,
) ([]*Schedule, error) {
	var out []*Schedule
	for _, schedule := range f.schedules {
		out = append(out, schedule)
	}
	return out, nil
}

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	f.schedules[schedule.ID] = schedule
	return nil
}

func (f *fakeScheduleRepo) Save(ctx context.Context, schedule *Schedule) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.schedules[schedule.ID] = schedule
	return nil
}

func (f *fakeScheduleRepo) SaveWithEvent(
	ctx context.Context,
	schedule *Schedule,
	event *ScheduleEvent,
) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.appendErr != nil {
		return f.appendErr
	}
	f.schedules[schedule.ID] = schedule
	f.events = append(f.events, event)
	return nil
}

func (f *fakeScheduleRepo) AppendEvent(ctx context.Context, event *ScheduleEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeScheduleRepo) History(
	ctx context.Context,
	scheduleID uuid.UUID,
) ([]*ScheduleEvent, error) {
	var out []*ScheduleEvent
	for _, event := range f.events {
		if event.ScheduleID == scheduleID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	delete(f.schedules, id)
	return nil
}

type fakeChecklistRepo struct {
	template        *ChecklistTemplate
	defaultTemplate *ChecklistTemplate
	err             error
}

func (f *fakeChecklistRepo) GetByID(ctx context.Context, id uuid.UUID) (*ChecklistTemplate, error) {
	if f.defaultTemplate != nil && f.defaultTemplate.ID == id {
		return f.defaultTemplate, nil
	}
	return nil, errors.New("template not found")
}

func (f *fakeChecklistRepo) GetActiveForProperty(
	ctx context.Context,
	propertyID uuid.UUID,
) (*ChecklistTemplate, error) {
	return f.template, f.err
}

func (f *fakeChecklistRepo) GetAll(ctx context.Context) ([]*ChecklistTemplate, error) {
	return nil, nil
}

func (f *fakeChecklistRepo) Create(ctx context.Context, template *ChecklistTemplate) error {
	return nil
}

func (f *fakeChecklistRepo) Update(ctx context.Context, template *ChecklistTemplate) error {
	return nil
}

func (f *fakeChecklistRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fakePropertyRepo struct {
	property *Property
}

func (f *fakePropertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	if f.property != nil && f.property.ID == id {
		return f.property, nil
	}
	return nil, errors.New("property not found")
}

func (f *fakePropertyRepo) GetAllActive(ctx context.Context) ([]*Property, error) {
	return nil, nil
}

func (f *fakePropertyRepo) Create(ctx context.Context, property *Property) error {
	return nil
}

func (f *fakePropertyRepo) Update(ctx context.Context, property *Property) error {
	return nil
}

func newLifecycleFixture(
	checklist *fakeChecklistRepo,
) (*LifecycleService, *fakeScheduleRepo) {
	scheduleRepo := newFakeScheduleRepo()
	service := &LifecycleService{
		scheduleRepo:  scheduleRepo,
		checklistRepo: checklist,
		propertyRepo:  &fakePropertyRepo{},
		log:           logger.New("test"),
	}
	return service, scheduleRepo
}

func seedSchedule(t *testing.T, repo *fakeScheduleRepo, status Status) *Schedule {
	t.Helper()

	now := time.Now().UTC()
	schedule := &Schedule{
		PropertyID: uuid.New(),
		CheckOut:   now.Add(-4 * time.Hour),
		CheckIn:    now.Add(20 * time.Hour),
		Status:     status,
		IsActive:   true,
	}
	require.NoError(t, repo.Create(context.Background(), schedule))
	return schedule
}

func adminActor() *User {
	user := &User{Role: RoleAdmin}
	user.ID = uuid.New()
	return user
}

func cleanerActor() *User {
	user := &User{Role: RoleCleaner}
	user.ID = uuid.New()
	return user
}

func TestApplyTransition_RecordsOneHistoryEvent(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusWaiting)
	actor := adminActor()

	updated, err := service.ApplyTransition(context.Background(), schedule, StatusReleased, actor)
	require.NoError(t, err)

	assert.Equal(t, StatusReleased, updated.Status)
	require.Len(t, repo.events, 1)
	event := repo.events[0]
	assert.Equal(t, ActionStatusChanged, event.Action)
	assert.Equal(t, StatusWaiting, event.FromStatus)
	assert.Equal(t, StatusReleased, event.ToStatus)
	assert.Equal(t, actor.ID, event.ActorID)
	assert.Equal(t, RoleAdmin, event.ActorRole)
}

func TestApplyTransition_IdempotentOnRepeat(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusWaiting)
	actor := adminActor()

	first, err := service.ApplyTransition(context.Background(), schedule, StatusReleased, actor)
	require.NoError(t, err)

	// Same target again: no new event, no changed stamps.
	second, err := service.ApplyTransition(context.Background(), first, StatusReleased, actor)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.events, 1, "a repeated transition must not append history")
}

func TestApplyTransition_CleaningFreezesChecklist(t *testing.T) {
	template := &ChecklistTemplate{
		Name:     "Standard",
		IsActive: true,
		Items: []ChecklistTemplateItem{
			{Title: "Strip linens", Category: "bedroom", Position: 1},
			{Title: "Sanitize bathroom", Category: "bathroom", Position: 2},
		},
	}
	template.ID = uuid.New()
	for i := range template.Items {
		template.Items[i].ID = uuid.New()
	}

	service, repo := newLifecycleFixture(&fakeChecklistRepo{template: template})
	schedule := seedSchedule(t, repo, StatusReleased)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	require.NotNil(t, updated.StartedAt)
	require.True(t, updated.ChecklistLoaded())

	snapshot := updated.Checklist.Data()
	require.NotNil(t, snapshot.TemplateID)
	assert.Equal(t, template.ID, *snapshot.TemplateID)
	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, "Strip linens", snapshot.Items[0].Title)
	assert.False(t, snapshot.Items[0].Done)
}

func TestApplyTransition_CleaningPrefersPropertyDefaultChecklist(t *testing.T) {
	ownerDefault := &ChecklistTemplate{
		Name:     "Owner default",
		IsActive: true,
		Items:    []ChecklistTemplateItem{{Title: "Restock soap", Position: 1}},
	}
	ownerDefault.ID = uuid.New()
	ownerDefault.Items[0].ID = uuid.New()

	newest := &ChecklistTemplate{Name: "Newest active", IsActive: true}
	newest.ID = uuid.New()

	service, repo := newLifecycleFixture(&fakeChecklistRepo{
		template:        newest,
		defaultTemplate: ownerDefault,
	})
	schedule := seedSchedule(t, repo, StatusReleased)

	property := &Property{DefaultChecklistID: &ownerDefault.ID}
	property.ID = schedule.PropertyID
	service.propertyRepo = &fakePropertyRepo{property: property}

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	snapshot := updated.Checklist.Data()
	require.NotNil(t, snapshot.TemplateID)
	assert.Equal(t, ownerDefault.ID, *snapshot.TemplateID,
		"the property's default ref must beat by-scope resolution")
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "Restock soap", snapshot.Items[0].Title)
}

func TestApplyTransition_InactiveDefaultChecklistFallsBack(t *testing.T) {
	retired := &ChecklistTemplate{Name: "Retired", IsActive: false}
	retired.ID = uuid.New()

	newest := &ChecklistTemplate{Name: "Current", IsActive: true}
	newest.ID = uuid.New()

	service, repo := newLifecycleFixture(&fakeChecklistRepo{
		template:        newest,
		defaultTemplate: retired,
	})
	schedule := seedSchedule(t, repo, StatusReleased)

	property := &Property{DefaultChecklistID: &retired.ID}
	property.ID = schedule.PropertyID
	service.propertyRepo = &fakePropertyRepo{property: property}

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	snapshot := updated.Checklist.Data()
	require.NotNil(t, snapshot.TemplateID)
	assert.Equal(t, newest.ID, *snapshot.TemplateID,
		"an inactive default must fall through to by-scope resolution")
}

func TestApplyTransition_CleaningWithoutTemplateGetsEmptySnapshot(t *testing.T) {
	// (nil, nil) from the repo means no active template configured.
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusReleased)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	assert.True(t, updated.ChecklistLoaded())
	assert.Nil(t, updated.Checklist.Data().TemplateID)
	assert.Empty(t, updated.Checklist.Data().Items)
}

func TestApplyTransition_CleaningDoesNotOverwriteExistingSnapshot(t *testing.T) {
	template := &ChecklistTemplate{Name: "Replacement", IsActive: true}
	template.ID = uuid.New()

	service, repo := newLifecycleFixture(&fakeChecklistRepo{template: template})
	schedule := seedSchedule(t, repo, StatusReleased)

	frozen := SnapshotFrom(nil, time.Now().UTC().Add(-time.Hour))
	schedule.Checklist = datatypes.NewJSONType(frozen)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	assert.Nil(t, updated.Checklist.Data().TemplateID,
		"an already-frozen snapshot must survive re-entry into cleaning")
	assert.Equal(t, frozen.LoadedAt.Unix(), updated.Checklist.Data().LoadedAt.Unix())
}

func TestApplyTransition_CleaningAutoAssignsUnassignedActor(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusReleased)
	actor := cleanerActor()

	updated, err := service.ApplyTransition(context.Background(), schedule, StatusCleaning, actor)
	require.NoError(t, err)

	require.NotNil(t, updated.CleanerID)
	assert.Equal(t, actor.ID, *updated.CleanerID)
}

func TestApplyTransition_CleaningKeepsExistingAssignment(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusReleased)

	assigned := uuid.New()
	schedule.CleanerID = &assigned

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.NoError(t, err)

	assert.Equal(t, assigned, *updated.CleanerID)
}

func TestApplyTransition_OnTimeCompletionHasNoDelay(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusCleaning)
	schedule.CheckIn = time.Now().UTC().Add(3 * time.Hour)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCompleted, cleanerActor(),
	)
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	require.Len(t, repo.events, 1)
	assert.Equal(t, ActionStatusChanged, repo.events[0].Action)
	assert.Nil(t, repo.events[0].Payload.Data().DelayMinutes)
}

func TestApplyTransition_LateCompletionRecordsDelayMinutes(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusCleaning)
	schedule.CheckIn = time.Now().UTC().Add(-47 * time.Minute)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusCompleted, cleanerActor(),
	)
	require.NoError(t, err)

	require.NotNil(t, updated.CompletedAt)
	require.Len(t, repo.events, 1)
	event := repo.events[0]
	assert.Equal(t, ActionCompletedWithDelay, event.Action)

	delay := event.Payload.Data().DelayMinutes
	require.NotNil(t, delay)
	assert.Equal(t, int64(47), *delay)
}

func TestApplyTransition_BackwardMoveTaggedReverted(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusCompleted)

	updated, err := service.ApplyTransition(
		context.Background(), schedule, StatusWaiting, adminActor(),
	)
	require.NoError(t, err)

	assert.Equal(t, StatusWaiting, updated.Status)
	require.Len(t, repo.events, 1)
	assert.Equal(t, ActionReverted, repo.events[0].Action)
	assert.Equal(t, StatusCompleted, repo.events[0].FromStatus)
}

func TestApplyTransition_SaveFailureRestoresStatus(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusWaiting)
	repo.saveErr = errors.New("connection reset")

	_, err := service.ApplyTransition(context.Background(), schedule, StatusReleased, adminActor())
	require.Error(t, err)

	assert.Equal(t, StatusWaiting, schedule.Status)
	assert.Empty(t, repo.events)
}

func TestApplyTransition_EventWriteFailureRollsBackStamps(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusReleased)
	repo.appendErr = errors.New("history insert failed")

	_, err := service.ApplyTransition(
		context.Background(), schedule, StatusCleaning, cleanerActor(),
	)
	require.Error(t, err)

	// No status change may persist without its history row, and the
	// caller's copy must not keep the cleaning stamps.
	assert.Equal(t, StatusReleased, schedule.Status)
	assert.Nil(t, schedule.StartedAt)
	assert.Nil(t, schedule.CleanerID)
	assert.False(t, schedule.ChecklistLoaded())
	assert.Empty(t, repo.events)
	assert.Equal(t, StatusReleased, repo.schedules[schedule.ID].Status)
}

func TestApplyTransition_CompletionRollbackClearsCompletedAt(t *testing.T) {
	service, repo := newLifecycleFixture(&fakeChecklistRepo{})
	schedule := seedSchedule(t, repo, StatusCleaning)
	repo.saveErr = errors.New("connection reset")

	_, err := service.ApplyTransition(
		context.Background(), schedule, StatusCompleted, cleanerActor(),
	)
	require.Error(t, err)

	assert.Equal(t, StatusCleaning, schedule.Status)
	assert.Nil(t, schedule.CompletedAt)
}
