// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"seller@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresIn    int       `json:"expires_in" example:"86400"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserInfo  `json:"user"`
}

// UserInfo represents user information returned in login response
type UserInfo struct {
	ID         uint    `json:"id" example:"123"`
	UUID       string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email      string  `json:"email" example:"seller@example.com"`
	FirstName  string  `json:"first_name" example:"Jordan"`
	LastName   string  `json:"last_name" example:"Reyes"`
	Role       string  `json:"role" example:"seller"`
	Department *string `json:"department,omitempty" example:"finance"`
	IsActive   *bool   `json:"is_active" example:"true"`
	CreatedAt  string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// Common error codes for login operations
const (
	ErrorUserNotFound      = "USER_NOT_FOUND"
	ErrorIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorAccountInactive   = "ACCOUNT_INACTIVE"
	ErrorValidationFailed  = "VALIDATION_ERROR"
	ErrorInternalServer    = "INTERNAL_SERVER_ERROR"
)
