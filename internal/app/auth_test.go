package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

type authRepoStub struct {
	store.Repository

	user *domain.User

	recordFailedCalled bool
	lockCalled         bool
	lockUntil          time.Time
	resetCalled        bool
	createdRole        string
}

func (s *authRepoStub) CreateUser(ctx context.Context, email, passwordHash, role string) (*domain.User, error) {
	s.createdRole = role
	return &domain.User{ID: 1, Email: email, Role: role, IsActive: true}, nil
}

func (s *authRepoStub) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.user == nil {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *authRepoStub) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *authRepoStub) RecordFailedLogin(ctx context.Context, userID int64) error {
	s.recordFailedCalled = true
	return nil
}

func (s *authRepoStub) LockUser(ctx context.Context, userID int64, until time.Time) error {
	s.lockCalled = true
	s.lockUntil = until
	return nil
}

func (s *authRepoStub) ResetFailedLogins(ctx context.Context, userID int64) error {
	s.resetCalled = true
	return nil
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	return &domain.User{ID: 9, Email: "agent@collectra.io", PasswordHash: string(hash), Role: domain.RoleAgent, IsActive: true}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(&authRepoStub{})

	if _, err := svc.Register(context.Background(), domain.RegisterRequest{Email: "nope", Password: "longenough"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(context.Background(), domain.RegisterRequest{Email: "a@b.io", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.Register(context.Background(), domain.RegisterRequest{Email: "a@b.io", Password: "longenough", Role: "superuser"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegister_DefaultsToViewer(t *testing.T) {
	repo := &authRepoStub{}
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), domain.RegisterRequest{Email: "New@Collectra.IO", Password: "longenough"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if repo.createdRole != domain.RoleViewer {
		t.Fatalf("expected default viewer role, got %q", repo.createdRole)
	}
	if user.Email != "new@collectra.io" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
}

func TestLogin_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	missing := newTestService(&authRepoStub{})
	_, errMissing := missing.Login(context.Background(), domain.LoginRequest{Email: "ghost@x.io", Password: "whatever1"})

	repo := &authRepoStub{user: activeUser(t, "correct-horse")}
	svc := newTestService(repo)
	_, errWrong := svc.Login(context.Background(), domain.LoginRequest{Email: "agent@collectra.io", Password: "wrong-horse"})

	if !errors.Is(errMissing, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", errMissing, errWrong)
	}
	if !repo.recordFailedCalled {
		t.Fatal("expected failed attempt recorded")
	}
}

func TestLogin_FifthFailureLocksUser(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.FailedLoginAttempts = 4
	repo := &authRepoStub{user: user}
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), domain.LoginRequest{Email: user.Email, Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !repo.lockCalled {
		t.Fatal("expected lockout after fifth failure")
	}
	if until := time.Until(repo.lockUntil); until < 14*time.Minute || until > 16*time.Minute {
		t.Fatalf("expected roughly 15 minute lockout, got %v", until)
	}
}

func TestLogin_LockedUserRejected(t *testing.T) {
	user := activeUser(t, "correct-horse")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &lockedUntil
	svc := newTestService(&authRepoStub{user: user})

	_, err := svc.Login(context.Background(), domain.LoginRequest{Email: user.Email, Password: "correct-horse"})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestLogin_ExpiredLockAdmits(t *testing.T) {
	user := activeUser(t, "correct-horse")
	lockedUntil := time.Now().Add(-time.Minute)
	user.LockedUntil = &lockedUntil
	repo := &authRepoStub{user: user}
	svc := newTestService(repo)

	result, err := svc.Login(context.Background(), domain.LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a signed token")
	}
	if !repo.resetCalled {
		t.Fatal("expected failure counter reset on success")
	}
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	user := activeUser(t, "correct-horse")
	repo := &authRepoStub{user: user}
	svc := newTestService(repo)

	result, err := svc.Login(context.Background(), domain.LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	resolved, err := svc.AuthenticateToken(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("AuthenticateToken returned error: %v", err)
	}
	if resolved.ID != user.ID || resolved.Role != user.Role {
		t.Fatalf("token resolved to wrong user: %+v", resolved)
	}
}

func TestAuthenticateToken_RejectsGarbage(t *testing.T) {
	svc := newTestService(&authRepoStub{user: activeUser(t, "pw-irrelevant")})

	if _, err := svc.AuthenticateToken(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestAuthenticateToken_RejectsForeignSignature(t *testing.T) {
	repo := &authRepoStub{user: activeUser(t, "correct-horse")}
	issuer := NewService(repo, nil, nil, "other-secret", time.Hour)
	verifier := newTestService(repo)

	token, err := issuer.signToken(repo.user)
	if err != nil {
		t.Fatalf("signToken returned error: %v", err)
	}
	if _, err := verifier.AuthenticateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestAuthenticateToken_RejectsInactiveUser(t *testing.T) {
	user := activeUser(t, "correct-horse")
	repo := &authRepoStub{user: user}
	svc := newTestService(repo)

	token, err := svc.signToken(user)
	if err != nil {
		t.Fatalf("signToken returned error: %v", err)
	}

	user.IsActive = false
	if _, err := svc.AuthenticateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for deactivated user, got %v", err)
	}
}
