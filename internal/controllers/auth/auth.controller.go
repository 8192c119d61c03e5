package authController

import (
	"context"
	"time"

	"turnkeep/internal/database"
	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"
	"turnkeep/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	userRepo       repositories.UserRepository
	sessionService *services.SessionService
	db             database.DB
	log            logger.Logger
}

type AuthControllerInterface interface {
	Login(ctx context.Context, req LoginRequest) (string, *UserProfile, error)
	Logout(ctx context.Context, token string) error
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserProfile, error)
	ListCleaners(ctx context.Context) ([]UserProfile, error)
}

type CreateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
}

func New(
	services services.Service,
	repos repositories.Repository,
	db database.DB,
) AuthControllerInterface {
	return &AuthController{
		userRepo:       repos.User,
		sessionService: services.Session,
		db:             db,
		log:            logger.New("authController"),
	}
}

func (ac *AuthController) Login(
	ctx context.Context,
	req LoginRequest,
) (string, *UserProfile, error) {
	log := ac.log.TraceFromContext(ctx).Function("Login")

	user, err := ac.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		log.Info("login failed, unknown email", "email", req.Email)
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Info("login refused for inactive user", "userID", user.ID)
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Info("login failed, bad password", "userID", user.ID)
		return "", nil, ErrInvalidCredentials
	}

	token, err := ac.sessionService.IssueToken(ctx, user)
	if err != nil {
		return "", nil, log.Err("failed to issue session token", err, "userID", user.ID)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := ac.userRepo.Update(ctx, user); err != nil {
		log.Er("failed to record last login", err, "userID", user.ID)
	}

	profile := user.ToProfile()
	log.Info("user logged in", "userID", user.ID, "role", user.Role)
	return token, &profile, nil
}

func (ac *AuthController) Logout(ctx context.Context, token string) error {
	log := ac.log.TraceFromContext(ctx).Function("Logout")

	if err := ac.sessionService.RevokeToken(ctx, token); err != nil {
		return log.Err("failed to revoke session", err)
	}
	return nil
}

// CreateUser provisions an account with a hashed password. Admin only,
// enforced at the route.
func (ac *AuthController) CreateUser(
	ctx context.Context,
	req CreateUserRequest,
) (*UserProfile, error) {
	log := ac.log.TraceFromContext(ctx).Function("CreateUser")

	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	if !req.Role.Valid() {
		log.Warn("invalid role on user create", "role", req.Role)
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, log.Err("failed to hash password", err)
	}

	user := &User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}

	if err := ac.userRepo.Create(ctx, user); err != nil {
		return nil, log.Err("failed to create user", err, "email", req.Email)
	}

	profile := user.ToProfile()
	log.Info("user created", "userID", user.ID, "role", user.Role)
	return &profile, nil
}

// ListCleaners returns active cleaner accounts for assignment pickers.
func (ac *AuthController) ListCleaners(ctx context.Context) ([]UserProfile, error) {
	log := ac.log.TraceFromContext(ctx).Function("ListCleaners")

	cleaners, err := ac.userRepo.GetActiveCleaners(ctx)
	if err != nil {
		return nil, log.Err("failed to list cleaners", err)
	}

	profiles := make([]UserProfile, 0, len(cleaners))
	for _, cleaner := range cleaners {
		profiles = append(profiles, cleaner.ToProfile())
	}
	return profiles, nil
}
