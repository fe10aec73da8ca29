package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// RegisterInput carries the registration form. Cover is optional.
type RegisterInput struct {
	FullName string
	Email    string
	UserName string
	Password string
	Avatar   *Asset
	Cover    *Asset
}

// LoginInput carries login credentials. Either UserName or Email identifies
// the account.
type LoginInput struct {
	UserName string
	Email    string
	Password string
}

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens domain.TokenPair
	User   *domain.User
}

// SessionService owns registration and the access/refresh token lifecycle.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}
