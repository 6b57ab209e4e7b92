package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/collectra/collections-service/internal/app"
	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

type apiRepoStub struct {
	store.Repository

	user    *domain.User
	account *domain.Account
}

func (s *apiRepoStub) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.user == nil {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *apiRepoStub) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *apiRepoStub) ResetFailedLogins(ctx context.Context, userID int64) error { return nil }
func (s *apiRepoStub) RecordFailedLogin(ctx context.Context, userID int64) error { return nil }

func (s *apiRepoStub) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	if s.account == nil || s.account.ID != accountID {
		return nil, store.ErrAccountNotFound
	}
	return s.account, nil
}

func (s *apiRepoStub) ListAccounts(ctx context.Context, opts domain.AccountListOptions) (*domain.AccountPage, error) {
	page := &domain.AccountPage{Page: opts.Page, Limit: opts.Limit, Data: []domain.Account{}}
	if s.account != nil {
		page.Data = append(page.Data, *s.account)
		page.Total = 1
		page.TotalPages = 1
	}
	return page, nil
}

func testRouter(t *testing.T, repo store.Repository, limiter app.RateLimiter) http.Handler {
	t.Helper()
	service := app.NewService(repo, cache.New(nil), nil, "api-test-secret", time.Hour)
	return Routes(NewHandlers(service), service, limiter, RouterConfig{
		AllowedOrigins: []string{"*"},
		APIRateLimit:   1000,
		APIRateWindow:  time.Minute,
		AuthRateLimit:  5,
		AuthRateWindow: 15 * time.Minute,
		BulkRateLimit:  10,
		BulkRateWindow: time.Minute,
	})
}

func stubUser(t *testing.T, role string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	return &domain.User{ID: 3, Email: "op@collectra.io", PasswordHash: string(hash), Role: role, IsActive: true}
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()
	body := `{"email":"op@collectra.io","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("login response decode failed: %v", err)
	}
	return result.Token
}

func authedRequest(method, target, body, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestHealthEndpointIsOpen(t *testing.T) {
	router := testRouter(t, &apiRepoStub{}, app.NoopRateLimiter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t, &apiRepoStub{}, app.NoopRateLimiter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestListAccountsWithValidToken(t *testing.T) {
	repo := &apiRepoStub{
		user:    stubUser(t, domain.RoleAgent),
		account: &domain.Account{ID: 7, AccountNumber: "ACC-7", CustomerName: "Ada", Status: "active"},
	}
	router := testRouter(t, repo, app.NoopRateLimiter{})
	token := loginToken(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/accounts?page=1&limit=10", "", token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	var page domain.AccountPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestAccountNotFoundMapsTo404(t *testing.T) {
	repo := &apiRepoStub{user: stubUser(t, domain.RoleAgent)}
	router := testRouter(t, repo, app.NoopRateLimiter{})
	token := loginToken(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/accounts/999", "", token))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestViewerCannotCreateAccount(t *testing.T) {
	repo := &apiRepoStub{user: stubUser(t, domain.RoleViewer)}
	router := testRouter(t, repo, app.NoopRateLimiter{})
	token := loginToken(t, router)

	body := `{"account_number":"ACC-1","customer_name":"Ada"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/accounts", body, token))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rec.Code)
	}
}

func TestBulkUpdateEmptyBatchIs400(t *testing.T) {
	repo := &apiRepoStub{user: stubUser(t, domain.RoleManager)}
	router := testRouter(t, repo, app.NoopRateLimiter{})
	token := loginToken(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/accounts/bulk-update", `{"updates":[]}`, token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d: %s", rec.Code, rec.Body.String())
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, scope, subject string, limit int64, window time.Duration) (app.RateLimitResult, error) {
	return app.RateLimitResult{Allowed: false, RetryAfter: 30 * time.Second}, nil
}

func TestRateLimitedRequestsGet429(t *testing.T) {
	repo := &apiRepoStub{user: stubUser(t, domain.RoleAgent)}
	router := testRouter(t, repo, denyAllLimiter{})

	body := `{"email":"op@collectra.io","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", rec.Header().Get("Retry-After"))
	}
}
