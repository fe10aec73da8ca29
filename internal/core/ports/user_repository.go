package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// UserPatch lists the fields an update may touch. Nil pointers are left
// unchanged; an empty RefreshToken clears the stored token.
type UserPatch struct {
	FullName      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
	PasswordHash  *string
	RefreshToken  *string
}

// UserRepository is the credential store. Returned users carry every field,
// credentials included; callers sanitize before handing them out.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByAlternateKey matches on userName OR email; empty keys are ignored.
	FindByAlternateKey(ctx context.Context, userName, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateByID(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	// SwapRefreshToken replaces the stored refresh token only if it still
	// equals current. It returns domain.ErrStaleRefreshToken otherwise.
	SwapRefreshToken(ctx context.Context, id, current, next string) error
}
