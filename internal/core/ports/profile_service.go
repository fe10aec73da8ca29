package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// ProfileService manages non-credential profile fields and the read models
// built on top of users.
type ProfileService interface {
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, asset *Asset) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, userID string, asset *Asset) (*domain.User, error)
	GetChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]domain.VideoSummary, error)
}
