package domain

import (
	"encoding/json"
	"time"
)

// Activity represents one entry in an account's activity timeline. Maps to
// the `activities` table. No two activities with identical
// (account, user, type, description) may be created within a 5-minute window.
type Activity struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	UserID       int64           `json:"user_id"`
	UserEmail    *string         `json:"user_email,omitempty"`
	CustomerName *string         `json:"customer_name,omitempty"`
	ActivityType string          `json:"activity_type"`
	Description  string          `json:"description"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateActivityRequest is the DTO for logging an activity against an account.
type CreateActivityRequest struct {
	ActivityType string          `json:"activity_type"`
	Description  string          `json:"description"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// ActivityListOptions controls pagination and type filtering for a single
// account's activity timeline.
type ActivityListOptions struct {
	Page         int
	Limit        int
	ActivityType string
}

// ActivityPage is the paginated result shape for per-account timelines.
type ActivityPage struct {
	Data      []Activity `json:"data"`
	AccountID int64      `json:"account_id"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	Filter    string     `json:"filter,omitempty"`
}

// BulkActivityOptions selects activities across accounts for the bulk
// activity query endpoint.
type BulkActivityOptions struct {
	AccountIDs   []int64
	ActivityType string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
}

// BulkActivityResult is the result shape for cross-account activity queries.
type BulkActivityResult struct {
	Data  []Activity `json:"data"`
	Total int        `json:"total"`
}
