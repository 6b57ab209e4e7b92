/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the collections-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/collectra/collections-service/internal/domain"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrDuplicateActivity      = errors.New("duplicate activity within lookback window")
	ErrInvalidFilter          = errors.New("invalid filter key")
	ErrInvalidColumn          = errors.New("column not allowed")
	ErrNoFields               = errors.New("no fields to update")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	CreateUser(ctx context.Context, email, passwordHash, role string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID int64) (*domain.User, error)
	RecordFailedLogin(ctx context.Context, userID int64) error
	LockUser(ctx context.Context, userID int64, until time.Time) error
	ResetFailedLogins(ctx context.Context, userID int64) error

	// Account methods
	CreateAccount(ctx context.Context, req domain.CreateAccountRequest, createdBy int64) (*domain.Account, error)
	FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, opts domain.AccountListOptions) (*domain.AccountPage, error)
	UpdateAccount(ctx context.Context, accountID int64, fields map[string]interface{}) (*domain.Account, error)
	SoftDeleteAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	BulkUpdateAccounts(ctx context.Context, updates []domain.AccountUpdate) ([]domain.Account, error)
	// ExportAccounts returns every non-deleted account matching the filters,
	// unpaginated, for CSV export. Capped at 100000 rows.
	ExportAccounts(ctx context.Context, filters domain.AccountFilters) ([]domain.Account, error)

	// Payment methods
	CreatePayment(ctx context.Context, accountID int64, req domain.CreatePaymentRequest, processedBy int64) (*domain.Payment, error)
	FindPaymentByID(ctx context.Context, paymentID int64) (*domain.Payment, error)
	ListPaymentsByAccountID(ctx context.Context, accountID int64, opts domain.PaymentListOptions) ([]domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status string, notes *string) (*domain.Payment, error)
	// CompletePayment marks the payment completed and decrements the owning
	// account's balance by the payment amount exactly once. The whole
	// operation runs inside one transaction with the payment row locked, so
	// replays and concurrent completions are no-ops.
	CompletePayment(ctx context.Context, paymentID int64) (*domain.Payment, error)

	// Activity methods
	CreateActivity(ctx context.Context, accountID, userID int64, req domain.CreateActivityRequest) (*domain.Activity, error)
	FindRecentDuplicateActivity(ctx context.Context, accountID, userID int64, activityType, description string, lookback time.Duration) (*domain.Activity, error)
	ListActivitiesByAccountID(ctx context.Context, accountID int64, opts domain.ActivityListOptions) ([]domain.Activity, error)
	ListActivitiesBulk(ctx context.Context, opts domain.BulkActivityOptions) ([]domain.Activity, error)
}
