package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// ChannelRepository resolves a channel profile with its subscription counts.
// viewerID may be empty for anonymous viewers.
type ChannelRepository interface {
	FindChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error)
}

// WatchHistoryRepository resolves a user's watch history into video summaries,
// in stored order.
type WatchHistoryRepository interface {
	WatchHistory(ctx context.Context, userID string) ([]domain.VideoSummary, error)
}
