package services

import (
	"context"
	"fmt"
	"time"

	"turnkeep/config"
	"turnkeep/internal/database"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SESSION_CACHE_PREFIX = "session"

// SessionClaims resolve a token into {actor id, role}. Role is embedded in
// the token and re-checked against the session cache so revoked sessions die
// before the token expires.
type SessionClaims struct {
	UserID uuid.UUID `json:"uid"`
	Role   Role      `json:"role"`
	jwt.RegisteredClaims
}

type SessionService struct {
	db     database.DB
	secret []byte
	ttl    time.Duration
	log    logger.Logger
}

func NewSessionService(db database.DB, config config.Config) *SessionService {
	return &SessionService{
		db:     db,
		secret: []byte(config.JWTSecret),
		ttl:    time.Duration(config.SessionTTLHours) * time.Hour,
		log:    logger.New("sessionService"),
	}
}

// IssueToken creates a signed session token for the user and registers the
// session in the cache.
func (s *SessionService) IssueToken(ctx context.Context, user *User) (string, error) {
	log := s.log.TraceFromContext(ctx).Function("IssueToken")

	sessionID := uuid.New().String()
	now := time.Now()

	claims := SessionClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", log.Err("failed to sign session token", err, "userID", user.ID)
	}

	if err := database.NewCacheBuilder(s.db.Cache.Session, sessionID).
		WithContext(ctx).
		WithHash(SESSION_CACHE_PREFIX).
		WithStruct(user.ID).
		WithTTL(s.ttl).
		Set(); err != nil {
		return "", log.Err("failed to register session", err, "userID", user.ID)
	}

	log.Info("session issued", "userID", user.ID, "sessionID", sessionID)
	return token, nil
}

// ValidateToken parses and verifies a session token and confirms the session
// has not been revoked.
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) (*SessionClaims, error) {
	log := s.log.TraceFromContext(ctx).Function("ValidateToken")

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	var userID uuid.UUID
	found, err := database.NewCacheBuilder(s.db.Cache.Session, claims.ID).
		WithContext(ctx).
		WithHash(SESSION_CACHE_PREFIX).
		Get(&userID)
	if err != nil {
		return nil, log.Err("failed to check session", err, "sessionID", claims.ID)
	}
	if !found || userID != claims.UserID {
		return nil, fmt.Errorf("session revoked or expired")
	}

	return claims, nil
}

// RevokeToken removes the session backing a token. An invalid token is a
// no-op.
func (s *SessionService) RevokeToken(ctx context.Context, tokenString string) error {
	log := s.log.TraceFromContext(ctx).Function("RevokeToken")

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || claims.ID == "" {
		return nil
	}

	if err := database.NewCacheBuilder(s.db.Cache.Session, claims.ID).
		WithContext(ctx).
		WithHash(SESSION_CACHE_PREFIX).
		Delete(); err != nil {
		return log.Err("failed to revoke session", err, "sessionID", claims.ID)
	}

	log.Info("session revoked", "sessionID", claims.ID)
	return nil
}
