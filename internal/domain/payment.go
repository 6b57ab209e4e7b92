package domain

import "time"

// Payment statuses. A transition into completed decrements the owning
// account's balance exactly once; the balance_applied flag on the row guards
// against replays.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment represents a payment recorded against an account. Maps to the
// `payments` table.
type Payment struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	Amount         int64     `json:"amount"` // in cents
	PaymentMethod  *string   `json:"payment_method,omitempty"`
	Status         string    `json:"status"`
	TransactionID  *string   `json:"transaction_id,omitempty"`
	ProcessedBy    *int64    `json:"processed_by,omitempty"`
	ProcessedEmail *string   `json:"processed_by_email,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	BalanceApplied bool      `json:"-"`
	PaymentDate    time.Time `json:"payment_date"`
}

// CreatePaymentRequest is the DTO for recording a payment against an account.
type CreatePaymentRequest struct {
	Amount        int64   `json:"amount"` // in cents
	PaymentMethod *string `json:"payment_method,omitempty"`
	Status        string  `json:"status,omitempty"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// UpdatePaymentStatusRequest is the DTO for payment status updates.
type UpdatePaymentStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// PaymentListOptions controls pagination for per-account payment history.
type PaymentListOptions struct {
	Page  int
	Limit int
}

// PaymentPage is the paginated result shape for payment history queries.
type PaymentPage struct {
	Data      []Payment `json:"data"`
	AccountID int64     `json:"account_id"`
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
}
