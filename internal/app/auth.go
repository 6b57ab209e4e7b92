/**
 * @description
 * Authentication and session logic: registration with bcrypt hashing, login
 * with a failed-attempt lockout, HS256 token issuance, and token
 * verification backed by a cached user session.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Token signing and verification.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

const (
	bcryptCost      = 12
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// Register creates a new user. The role defaults to viewer.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	role := req.Role
	if role == "" {
		role = domain.RoleViewer
	}
	switch role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleAgent, domain.RoleViewer:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, email, string(hash), role)
}

// Login verifies credentials and issues a signed token. Five consecutive
// failures lock the user out for fifteen minutes. A missing user and a wrong
// password both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	user, err := s.repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if err := s.repo.RecordFailedLogin(ctx, user.ID); err != nil {
			return nil, err
		}
		if user.FailedLoginAttempts+1 >= maxFailedLogins {
			if err := s.repo.LockUser(ctx, user.ID, time.Now().Add(lockoutDuration)); err != nil {
				return nil, err
			}
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.ResetFailedLogins(ctx, user.ID); err != nil {
		return nil, err
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		s.cache.Set(ctx, userCacheKey(user.ID), payload, sessionCacheTTL)
	}
	return &domain.LoginResult{Token: token, User: *user}, nil
}

// Logout drops the cached session. The token itself expires on its own.
func (s *Service) Logout(ctx context.Context, userID int64) {
	s.cache.Delete(ctx, userCacheKey(userID))
}

// AuthenticateToken verifies a bearer token and resolves the user behind it,
// read-through the session cache. Inactive users are rejected even with a
// valid token.
func (s *Service) AuthenticateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID := int64(rawID)

	if lookup := s.cache.Get(ctx, userCacheKey(userID)); lookup.Status == cache.Hit {
		var user domain.User
		if err := json.Unmarshal(lookup.Value, &user); err == nil {
			if !user.IsActive {
				return nil, ErrInvalidToken
			}
			return &user, nil
		}
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	if payload, err := json.Marshal(user); err == nil {
		s.cache.Set(ctx, userCacheKey(userID), payload, sessionCacheTTL)
	}
	return user, nil
}

func (s *Service) signToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(s.jwtTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
