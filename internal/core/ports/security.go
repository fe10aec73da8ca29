package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// PasswordHasher derives and checks one-way password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenCodec issues and verifies the access/refresh pair. Verification
// failures are reported as domain.ErrInvalidToken.
type TokenCodec interface {
	IssuePair(user *domain.User) (domain.TokenPair, error)
	VerifyAccess(token string) (domain.AccessClaims, error)
	VerifyRefresh(token string) (domain.RefreshClaims, error)
}

// LoginThrottle counts failed password checks per account. The session
// service keys it by user id.
type LoginThrottle interface {
	Allowed(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
