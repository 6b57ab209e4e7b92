/**
 * @description
 * PostgreSQL implementation of payment and activity persistence. Payment
 * completion runs inside a transaction with the payment row locked, so the
 * balance decrement on the owning account is applied exactly once even when
 * status updates are replayed or race each other.
 *
 * @dependencies
 * - context, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/collectra/collections-service/internal/domain"
)

// --- Payments ---

const paymentColumns = `id, account_id, amount, payment_method, status, transaction_id, processed_by, notes, balance_applied, payment_date`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Amount, &p.PaymentMethod, &p.Status,
		&p.TransactionID, &p.ProcessedBy, &p.Notes, &p.BalanceApplied, &p.PaymentDate,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) CreatePayment(ctx context.Context, accountID int64, req domain.CreatePaymentRequest, processedBy int64) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (account_id, amount, payment_method, transaction_id, processed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query,
		accountID, req.Amount, req.PaymentMethod, req.TransactionID, processedBy, req.Notes,
	))
}

func (r *PostgresRepository) FindPaymentByID(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

func (r *PostgresRepository) ListPaymentsByAccountID(ctx context.Context, accountID int64, opts domain.PaymentListOptions) ([]domain.Payment, error) {
	page, limit := ClampPageLimit(opts.Page, opts.Limit)
	offset := (page - 1) * limit

	query := `
		SELECT p.id, p.account_id, p.amount, p.payment_method, p.status, p.transaction_id,
		       p.processed_by, p.notes, p.balance_applied, p.payment_date, u.email
		FROM payments p
		LEFT JOIN users u ON p.processed_by = u.id
		WHERE p.account_id = $1
		ORDER BY p.payment_date DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, limit)
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(
			&p.ID, &p.AccountID, &p.Amount, &p.PaymentMethod, &p.Status,
			&p.TransactionID, &p.ProcessedBy, &p.Notes, &p.BalanceApplied, &p.PaymentDate,
			&p.ProcessedEmail,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, paymentID int64, status string, notes *string) (*domain.Payment, error) {
	query := `
		UPDATE payments
		SET status = $1, notes = COALESCE($2, notes)
		WHERE id = $3
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, status, notes, paymentID))
}

// CompletePayment is the single idempotent "apply completed payment"
// operation. The payment row is locked for the duration of the transaction;
// once balance_applied is set, re-invocation returns the row unchanged.
func (r *PostgresRepository) CompletePayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	payment, err := scanPayment(tx.QueryRow(ctx, lockQuery, paymentID))
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusCompleted {
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return payment, nil
	}

	// The balance moved on an earlier completion and the status was later
	// transitioned backward. Restore the status without touching the balance.
	if payment.BalanceApplied {
		restoreQuery := `
			UPDATE payments
			SET status = $1
			WHERE id = $2
			RETURNING ` + paymentColumns
		payment, err = scanPayment(tx.QueryRow(ctx, restoreQuery, domain.PaymentStatusCompleted, paymentID))
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return payment, nil
	}

	updateQuery := `
		UPDATE payments
		SET status = $1, balance_applied = TRUE
		WHERE id = $2
		RETURNING ` + paymentColumns
	payment, err = scanPayment(tx.QueryRow(ctx, updateQuery, domain.PaymentStatusCompleted, paymentID))
	if err != nil {
		return nil, err
	}

	result, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND is_deleted = FALSE`,
		payment.Amount, payment.AccountID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply balance decrement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete payment tx: %w", err)
	}
	return payment, nil
}

// --- Activities ---

const activityColumns = `id, account_id, user_id, activity_type, description, metadata, created_at`

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.AccountID, &a.UserID, &a.ActivityType, &a.Description, &a.Metadata, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) CreateActivity(ctx context.Context, accountID, userID int64, req domain.CreateActivityRequest) (*domain.Activity, error) {
	query := `
		INSERT INTO activities (account_id, user_id, activity_type, description, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + activityColumns
	return scanActivity(r.db.QueryRow(ctx, query,
		accountID, userID, req.ActivityType, req.Description, nullableJSON(req.Metadata),
	))
}

func (r *PostgresRepository) FindRecentDuplicateActivity(ctx context.Context, accountID, userID int64, activityType, description string, lookback time.Duration) (*domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE account_id = $1 AND user_id = $2 AND activity_type = $3 AND description = $4
		  AND created_at > NOW() - ($5 * INTERVAL '1 second')
		ORDER BY created_at DESC
		LIMIT 1
	`
	activity, err := scanActivity(r.db.QueryRow(ctx, query,
		accountID, userID, activityType, description, int64(lookback.Seconds()),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return activity, nil
}

func (r *PostgresRepository) ListActivitiesByAccountID(ctx context.Context, accountID int64, opts domain.ActivityListOptions) ([]domain.Activity, error) {
	page, limit := ClampPageLimit(opts.Page, opts.Limit)
	offset := (page - 1) * limit

	query := `
		SELECT a.id, a.account_id, a.user_id, a.activity_type, a.description, a.metadata, a.created_at, u.email
		FROM activities a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE a.account_id = $1
	`
	args := []interface{}{accountID}
	if opts.ActivityType != "" {
		args = append(args, opts.ActivityType)
		query += fmt.Sprintf(" AND a.activity_type = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0, limit)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.AccountID, &a.UserID, &a.ActivityType, &a.Description, &a.Metadata, &a.CreatedAt, &a.UserEmail); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *PostgresRepository) ListActivitiesBulk(ctx context.Context, opts domain.BulkActivityOptions) ([]domain.Activity, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = 1000
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT a.id, a.account_id, a.user_id, a.activity_type, a.description, a.metadata, a.created_at,
		       u.email, acc.customer_name
		FROM activities a
		LEFT JOIN users u ON a.user_id = u.id
		LEFT JOIN accounts acc ON a.account_id = acc.id
		WHERE 1=1
	`
	var args []interface{}
	if len(opts.AccountIDs) > 0 {
		args = append(args, opts.AccountIDs)
		query += fmt.Sprintf(" AND a.account_id = ANY($%d)", len(args))
	}
	if opts.ActivityType != "" {
		args = append(args, opts.ActivityType)
		query += fmt.Sprintf(" AND a.activity_type = $%d", len(args))
	}
	if opts.StartDate != nil {
		args = append(args, *opts.StartDate)
		query += fmt.Sprintf(" AND a.created_at >= $%d", len(args))
	}
	if opts.EndDate != nil {
		args = append(args, *opts.EndDate)
		query += fmt.Sprintf(" AND a.created_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.AccountID, &a.UserID, &a.ActivityType, &a.Description, &a.Metadata, &a.CreatedAt, &a.UserEmail, &a.CustomerName); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
