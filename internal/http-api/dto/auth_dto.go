package dto

import (
	"time"

	"bookshare/internal/models"
)

// Data Transfer Objects for authentication requests and responses

// RegisterRequest: payload for account creation (sign-up step 1)
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest: payload for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProfileRequest: payload for sign-up step 2
type ProfileRequest struct {
	FullName        string      `json:"full_name" binding:"required"`
	Phone           string      `json:"phone" binding:"required"`
	ChapterLocation string      `json:"chapter_location" binding:"required"`
	Role            models.Role `json:"role" binding:"required,oneof=student chapterLeader"`
}

// AuthResponse: response payload after successful login
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
}

// RegisterResponse: response payload after successful registration
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	Phase   string          `json:"phase"`
	UserID  string          `json:"user_id,omitempty"`
	Email   string          `json:"email,omitempty"`
	Profile *models.Profile `json:"profile,omitempty"`
}
