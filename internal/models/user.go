package models

import "errors"

var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores when a unique constraint is violated.
	ErrConflict = errors.New("already exists")
)

// User represents a row in the PostgreSQL users table.
// Role holds the stored text form ("user", "moderator", ...); the auth
// package owns its interpretation.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"` // never serialize
	Role           string `json:"role"`
}

// SignupRequest is the JSON body for POST /api/v1/signup.
type SignupRequest struct {
	Username  string `json:"username"   validate:"required,max=50"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name"  validate:"max=50"`
	Email     string `json:"email"      validate:"required,email,max=254"`
	Password  string `json:"password"   validate:"required,max=72"`
}

// LoginRequest is the JSON body for POST /api/v1/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON body for POST /api/v1/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// UserPatch is the JSON body for PUT /api/v1/users/me. Nil fields are left untouched.
type UserPatch struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=50"`
	Password  *string `json:"password"   validate:"omitempty,min=1,max=72"`
}
