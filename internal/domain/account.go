/**
 * @description
 * This file defines the core domain models for the collections-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and query options
 *   ensures clear separation of concerns and type safety.
 * - Balances and payment amounts are stored as `int64` to represent the value
 *   in the smallest currency unit (cents), which avoids floating-point
 *   inaccuracies with financial data.
 */

package domain

import (
	"encoding/json"
	"time"
)

// Account statuses. The status column is constrained to this set in the schema.
const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
	AccountStatusClosed   = "closed"
)

// Account represents a collections account record. This struct maps directly
// to the `accounts` table in the database. Soft-deleted accounts carry
// IsDeleted=true and are excluded from all reads and mutations except the
// delete itself.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	CustomerPhone *string         `json:"customer_phone,omitempty"`
	Balance       int64           `json:"balance"` // in cents
	Status        string          `json:"status"`
	AssignedAgent *int64          `json:"assigned_agent,omitempty"`
	Address       json.RawMessage `json:"address,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedBy     *int64          `json:"created_by,omitempty"`
	IsDeleted     bool            `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateAccountRequest is the DTO for incoming account creation API requests.
type CreateAccountRequest struct {
	AccountNumber string          `json:"account_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	CustomerPhone *string         `json:"customer_phone,omitempty"`
	Balance       int64           `json:"balance"` // in cents
	AssignedAgent *int64          `json:"assigned_agent,omitempty"`
	Address       json.RawMessage `json:"address,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// AccountFilters is the open-ended filter mapping accepted by account list and
// export endpoints. Recognized keys get dedicated predicates; unrecognized
// scalar keys fall through to an allow-listed column match.
type AccountFilters map[string]interface{}

// AccountListOptions controls pagination, sorting and filtering for account
// list queries.
type AccountListOptions struct {
	Page    int
	Limit   int
	Sort    string
	Order   string
	Filters AccountFilters
}

// AccountPage is the paginated result shape returned by account list queries.
type AccountPage struct {
	Data       []Account `json:"data"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// AccountUpdate names one target account and the column/value pairs to apply.
// Used both for single updates and as one row of a bulk update batch.
type AccountUpdate struct {
	ID     int64                  `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// BulkUpdateRequest is the DTO for the bulk account update endpoint.
type BulkUpdateRequest struct {
	Updates []AccountUpdate `json:"updates"`
}
