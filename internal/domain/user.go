package domain

import "time"

// User roles, ordered from most to least privileged.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
	RoleViewer  = "viewer"
)

// User represents an operator of the collections platform. Maps to the
// `users` table. PasswordHash never leaves the service.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}

// RegisterRequest is the DTO for user registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the DTO for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the signed token and the public view of the user.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
