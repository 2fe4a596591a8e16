package http

import (
	"time"

	"github.com/sci-com/scicom-api/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error  string   `json:"error" example:"invalid query"`
	Fields []string `json:"fields,omitempty"`
}

// RegisterRequest carries the sign up fields.
type RegisterRequest struct {
	Username     string `json:"username" example:"anna"`
	Email        string `json:"email" example:"anna@tum.de"`
	Password     string `json:"password" example:"correct horse battery"`
	IsPolitician bool   `json:"isPolitician" example:"false"`
}

type LoginRequest struct {
	Username string `json:"username" example:"anna"`
	Password string `json:"password" example:"correct horse battery"`
}

// EmailTokenRequest is the payload of email verification.
type EmailTokenRequest struct {
	Email string `json:"email" example:"anna@tum.de"`
	Token string `json:"token" example:"mF3kQ0d6Zr2b8sXw1LpN4hTy"`
}

type EmailRequest struct {
	Email string `json:"email" example:"anna@tum.de"`
}

type ChangePasswordRequest struct {
	OriginalPassword string `json:"originalPassword"`
	NewPassword      string `json:"newPassword"`
}

// SetPasswordRequest confirms a password reset.
type SetPasswordRequest struct {
	Email    string `json:"email" example:"anna@tum.de"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenResponse is returned by endpoints that sign a user in.
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// ProjectRequest carries the writable project fields. Dates accept
// YYYY-MM-DD or RFC 3339.
type ProjectRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	From        *string  `json:"from"`
	To          *string  `json:"to"`
	Nature      *string  `json:"nature"`
	State       *string  `json:"state"`
	Tags        []string `json:"tags"`
	Salary      *float64 `json:"salary"`
	Questions   []string `json:"questions"`
}

type StatusRequest struct {
	Status string `json:"status" example:"closed"`
}

type ApplicationRequest struct {
	Project string            `json:"project" example:"2f1d6a9e-64a4-4d5e-9c1a-3b7f0e2d8c11"`
	Answers map[string]string `json:"answers"`
}

type BookmarkRequest struct {
	ProjectID string `json:"project_id" example:"2f1d6a9e-64a4-4d5e-9c1a-3b7f0e2d8c11"`
}

// PageResponse wraps one page of a listing.
type PageResponse struct {
	Results    any   `json:"results"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}
