package handler

import (
	"strings"

	"github.com/99minutos/account-service/internal/core/domain"
)

// apiResponse is the success envelope shared by every endpoint.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorResponse documents the error envelope rendered by the HTTP error handler.
type errorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"unauthorized"`
	Message string `json:"message" example:"unauthorized request"`
}

// --- Request types ---

type loginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// trim strips surrounding whitespace from the identifiers so validation sees
// what the service will store.
func (r *loginRequest) trim() {
	r.UserName = strings.TrimSpace(r.UserName)
	r.Email = strings.TrimSpace(r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"     validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
}

func (r *updateAccountRequest) trim() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
}

// --- Response payloads ---

type loginData struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type tokensData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
