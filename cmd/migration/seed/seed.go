package seed

import (
	"time"

	"turnkeep/config"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed loads development fixtures: one user per role, a couple of properties
// with checklist templates and feeds, and schedules across the lifecycle.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	users, err := seedUsers(db, log)
	if err != nil {
		return err
	}

	properties, err := seedProperties(db, log)
	if err != nil {
		return err
	}

	if err := seedChecklists(db, properties, log); err != nil {
		return err
	}

	if err := seedCalendarSources(db, properties, log); err != nil {
		return err
	}

	if err := seedSchedules(db, properties, users, log); err != nil {
		return err
	}

	log.Info("Seed complete")
	return nil
}

func seedUsers(db *gorm.DB, log logger.Logger) (map[Role]*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, log.Err("failed to hash seed password", err)
	}

	users := []User{
		{
			FirstName:    "Alma",
			LastName:     "Reyes",
			DisplayName:  "Alma",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         RoleAdmin,
			IsActive:     true,
		},
		{
			FirstName:    "Marco",
			LastName:     "Lind",
			DisplayName:  "Marco",
			Email:        "manager@example.com",
			PasswordHash: string(hash),
			Role:         RoleManager,
			IsActive:     true,
		},
		{
			FirstName:    "Carla",
			LastName:     "Osei",
			DisplayName:  "Carla",
			Email:        "cleaner@example.com",
			PasswordHash: string(hash),
			Role:         RoleCleaner,
			IsActive:     true,
		},
	}

	byRole := make(map[Role]*User, len(users))
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return nil, log.Err("failed to seed user", err, "email", users[i].Email)
		}
		byRole[users[i].Role] = &users[i]
		log.Info("Seeded user", "email", users[i].Email, "role", users[i].Role)
	}

	return byRole, nil
}

func seedProperties(db *gorm.DB, log logger.Logger) ([]*Property, error) {
	properties := []*Property{
		{
			Name:        "Seaview Loft",
			Address:     "12 Harbor Rd",
			CleaningFee: decimal.NewFromInt(85),
			IsActive:    true,
		},
		{
			Name:        "Garden Studio",
			Address:     "4 Elm Ct",
			CleaningFee: decimal.NewFromInt(60),
			IsActive:    true,
		},
	}

	for _, property := range properties {
		if err := db.Create(property).Error; err != nil {
			return nil, log.Err("failed to seed property", err, "name", property.Name)
		}
	}

	return properties, nil
}

func seedChecklists(db *gorm.DB, properties []*Property, log logger.Logger) error {
	standard := &ChecklistTemplate{
		Name:      "Standard turnover",
		IsDefault: true,
		IsActive:  true,
		Items: []ChecklistTemplateItem{
			{Title: "Strip and wash linens", Category: "bedroom", Position: 1},
			{Title: "Sanitize bathroom", Category: "bathroom", Position: 2},
			{Title: "Wipe kitchen surfaces", Category: "kitchen", Position: 3},
			{Title: "Restock consumables", Category: "general", Position: 4},
			{Title: "Photograph each room", Category: "general", Position: 5},
		},
	}
	if err := db.Create(standard).Error; err != nil {
		return log.Err("failed to seed default checklist", err)
	}

	seaview := &ChecklistTemplate{
		Name:       "Seaview deep clean",
		PropertyID: &properties[0].ID,
		IsActive:   true,
		Items: []ChecklistTemplateItem{
			{Title: "Rinse balcony furniture", Category: "outdoor", Position: 1},
			{Title: "Descale shower glass", Category: "bathroom", Position: 2},
			{Title: "Check hot tub chemicals", Category: "outdoor", Position: 3},
		},
	}
	if err := db.Create(seaview).Error; err != nil {
		return log.Err("failed to seed property checklist", err)
	}

	return nil
}

func seedCalendarSources(db *gorm.DB, properties []*Property, log logger.Logger) error {
	sources := []*CalendarSource{
		{
			Name:       "Seaview Airbnb feed",
			Provider:   "airbnb",
			URL:        "https://calendar.example.com/seaview.ics",
			PropertyID: properties[0].ID,
			IsActive:   true,
		},
		{
			Name:       "Garden booking feed",
			Provider:   "booking",
			URL:        "https://calendar.example.com/garden.ics",
			PropertyID: properties[1].ID,
			IsActive:   true,
		},
	}

	for _, source := range sources {
		if err := db.Create(source).Error; err != nil {
			return log.Err("failed to seed calendar source", err, "name", source.Name)
		}
	}

	return nil
}

func seedSchedules(
	db *gorm.DB,
	properties []*Property,
	users map[Role]*User,
	log logger.Logger,
) error {
	now := time.Now().UTC()
	cleaner := users[RoleCleaner]

	schedules := []*Schedule{
		{
			PropertyID:      properties[0].ID,
			GuestName:       "J. Fontaine",
			ReservationCode: "HMABC123",
			CleaningFee:     properties[0].CleaningFee,
			CheckOut:        now.Add(48 * time.Hour),
			CheckIn:         now.Add(72 * time.Hour),
			Status:          StatusWaiting,
			Priority:        PriorityNormal,
			IsActive:        true,
		},
		{
			PropertyID:      properties[0].ID,
			GuestName:       "R. Okafor",
			ReservationCode: "HMDEF456",
			CleaningFee:     properties[0].CleaningFee,
			CheckOut:        now.Add(-2 * time.Hour),
			CheckIn:         now.Add(22 * time.Hour),
			Status:          StatusReleased,
			Priority:        PriorityHigh,
			CleanerID:       &cleaner.ID,
			IsActive:        true,
		},
		{
			PropertyID:      properties[1].ID,
			GuestName:       "T. Larsen",
			ReservationCode: "HMGHI789",
			CleaningFee:     properties[1].CleaningFee,
			CheckOut:        now.Add(-6 * time.Hour),
			CheckIn:         now.Add(18 * time.Hour),
			Status:          StatusWaiting,
			Priority:        PriorityNormal,
			IsActive:        true,
		},
	}

	for _, schedule := range schedules {
		if err := db.Create(schedule).Error; err != nil {
			return log.Err(
				"failed to seed schedule",
				err,
				"reservation", schedule.ReservationCode,
			)
		}
	}

	return nil
}
