package repositories

import (
	"context"
	"time"
	"turnkeep/internal/database"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	USER_CACHE_EXPIRY = 24 * time.Hour
	USER_CACHE_PREFIX = "user"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetActiveCleaners(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}

type userRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUserRepository(db database.DB) UserRepository {
	return &userRepository{
		db:  db,
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var cached User
	found, err := database.NewCacheBuilder(r.db.Cache.General, id).
		WithContext(ctx).
		WithHash(USER_CACHE_PREFIX).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get user from cache", "userID", id, "error", err)
	}
	if found {
		return &cached, nil
	}

	user, err := gorm.G[*User](r.db.SQL).Where(BaseUUIDModel{ID: id}).First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get user", err, "userID", id)
	}

	if err := r.addToCache(ctx, user); err != nil {
		log.Warn("failed to add user to cache", "userID", id, "error", err)
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByEmail")

	user, err := gorm.G[*User](r.db.SQL).Where(User{Email: email}).First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get user by email", err, "email", email)
	}

	return user, nil
}

func (r *userRepository) GetActiveCleaners(ctx context.Context) ([]*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveCleaners")

	cleaners, err := gorm.G[*User](r.db.SQL).
		Where(User{Role: RoleCleaner, IsActive: true}).
		Order("display_name ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get active cleaners", err)
	}

	return cleaners, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(user).Error; err != nil {
		return log.Err("failed to create user", err, "email", user.Email)
	}

	return nil
}

func (r *userRepository) Update(ctx context.Context, user *User) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := r.db.SQLWithContext(ctx).Save(user).Error; err != nil {
		return log.Err("failed to update user", err, "userID", user.ID)
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, user.ID).
		WithContext(ctx).
		WithHash(USER_CACHE_PREFIX).
		Delete(); err != nil {
		log.Warn("failed to clear user cache after update", "userID", user.ID, "error", err)
	}

	return nil
}

func (r *userRepository) addToCache(ctx context.Context, user *User) error {
	return database.NewCacheBuilder(r.db.Cache.General, user.ID).
		WithContext(ctx).
		WithHash(USER_CACHE_PREFIX).
		WithStruct(user).
		WithTTL(USER_CACHE_EXPIRY).
		Set()
}
