package repositories

import (
	"turnkeep/internal/database"
)

type Repository struct {
	User           UserRepository
	Property       PropertyRepository
	Checklist      ChecklistRepository
	Schedule       ScheduleRepository
	CalendarSource CalendarSourceRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:           NewUserRepository(db),
		Property:       NewPropertyRepository(db),
		Checklist:      NewChecklistRepository(db),
		Schedule:       NewScheduleRepository(db),
		CalendarSource: NewCalendarSourceRepository(db),
	}
}
