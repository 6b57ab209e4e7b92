/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for users and accounts. It contains the parameterized SQL for account CRUD,
 * the paginated list query built on the filter compiler, and the bulk update
 * transaction runner.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collectra/collections-service/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// --- Users ---

const userColumns = `id, email, password_hash, role, is_active, failed_login_attempts, locked_until, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.FailedLoginAttempts, &u.LockedUntil, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, email, passwordHash, role string) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, email, passwordHash, role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, userID int64) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET failed_login_attempts = failed_login_attempts + 1 WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) LockUser(ctx context.Context, userID int64, until time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET locked_until = $1 WHERE id = $2`, until, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, userID int64) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- Accounts ---

const accountColumns = `id, account_number, customer_name, customer_email, customer_phone, balance, status,
	assigned_agent, address, metadata, created_by, is_deleted, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.AccountNumber, &a.CustomerName, &a.CustomerEmail, &a.CustomerPhone,
		&a.Balance, &a.Status, &a.AssignedAgent, &a.Address, &a.Metadata,
		&a.CreatedBy, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, req domain.CreateAccountRequest, createdBy int64) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (account_number, customer_name, customer_email, customer_phone, balance, assigned_agent, address, metadata, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns
	account, err := scanAccount(r.db.QueryRow(ctx, query,
		req.AccountNumber, req.CustomerName, req.CustomerEmail, req.CustomerPhone,
		req.Balance, req.AssignedAgent, nullableJSON(req.Address), nullableJSON(req.Metadata), createdBy,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccountNumber
		}
		return nil, err
	}
	return account, nil
}

func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND is_deleted = FALSE`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// ListAccounts runs the data query and the count query against the same
// compiled predicate, so the reported total is always consistent with the
// returned page. A page beyond the last returns an empty slice with the
// correct total.
func (r *PostgresRepository) ListAccounts(ctx context.Context, opts domain.AccountListOptions) (*domain.AccountPage, error) {
	opts = NormalizeAccountListOptions(opts)

	cf, err := compileAccountFilters(opts.Filters)
	if err != nil {
		return nil, err
	}

	base := ` FROM accounts WHERE is_deleted = FALSE` + cf.whereSQL()
	predicateArgs := append([]interface{}(nil), cf.args...)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+base, predicateArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	dataQuery := `SELECT ` + accountColumns + base +
		` ORDER BY ` + opts.Sort + ` ` + opts.Order +
		` LIMIT ` + cf.next(opts.Limit) + ` OFFSET ` + cf.next(offset)

	rows, err := r.db.Query(ctx, dataQuery, cf.args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, opts.Limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.AccountPage{
		Data:       accounts,
		Total:      total,
		Page:       opts.Page,
		Limit:      opts.Limit,
		TotalPages: totalPages(total, opts.Limit),
	}, nil
}

// ExportAccounts reuses the compiled filter predicate without pagination so
// exports see exactly the rows a filtered list would page through.
func (r *PostgresRepository) ExportAccounts(ctx context.Context, filters domain.AccountFilters) ([]domain.Account, error) {
	cf, err := compileAccountFilters(filters)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_deleted = FALSE` + cf.whereSQL() +
		` ORDER BY created_at DESC LIMIT 100000`
	rows, err := r.db.Query(ctx, query, cf.args...)
	if err != nil {
		return nil, fmt.Errorf("export accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// buildAccountSet renders the SET clause for an account update from a
// column/value mapping, enforcing the updatable column allow-list. Placeholder
// numbering starts at 1; the caller appends its own WHERE arguments after.
func buildAccountSet(fields map[string]interface{}) (string, []interface{}, error) {
	if len(fields) == 0 {
		return "", nil, ErrNoFields
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if !identifierPattern.MatchString(key) || !updatableAccountColumns[key] {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidColumn, key)
		}
		args = append(args, fields[key])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", key, len(args)))
	}
	assignments = append(assignments, "updated_at = NOW()")

	return strings.Join(assignments, ", "), args, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, accountID int64, fields map[string]interface{}) (*domain.Account, error) {
	setClause, args, err := buildAccountSet(fields)
	if err != nil {
		return nil, err
	}
	args = append(args, accountID)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d AND is_deleted = FALSE RETURNING %s`,
		setClause, len(args), accountColumns)
	account, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccountNumber
		}
		return nil, err
	}
	return account, nil
}

func (r *PostgresRepository) SoftDeleteAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `UPDATE accounts SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// BulkUpdateAccounts applies every per-row update inside one transaction. If
// any row fails (unknown identifier, disallowed column, constraint violation)
// the whole batch rolls back and no partial effect is observable. Updated
// rows are returned in input order.
func (r *PostgresRepository) BulkUpdateAccounts(ctx context.Context, updates []domain.AccountUpdate) ([]domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bulk update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	results := make([]domain.Account, 0, len(updates))
	for _, update := range updates {
		setClause, args, err := buildAccountSet(update.Fields)
		if err != nil {
			return nil, err
		}
		args = append(args, update.ID)

		query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d AND is_deleted = FALSE RETURNING %s`,
			setClause, len(args), accountColumns)
		account, err := scanAccount(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, update.ID)
			}
			if isUniqueViolation(err) {
				return nil, ErrDuplicateAccountNumber
			}
			return nil, err
		}
		results = append(results, *account)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bulk update tx: %w", err)
	}
	return results, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

