package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// ProfileService updates profile fields and serves the channel and
// watch-history read models.
type ProfileService struct {
	users    ports.UserRepository
	channels ports.ChannelRepository
	history  ports.WatchHistoryRepository
	assets   ports.AssetHost
	evictor  ports.AssetEvictor
	log      zerolog.Logger
}

func NewProfileService(
	users ports.UserRepository,
	channels ports.ChannelRepository,
	history ports.WatchHistoryRepository,
	assets ports.AssetHost,
	evictor ports.AssetEvictor,
	log zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		users:    users,
		channels: channels,
		history:  history,
		assets:   assets,
		evictor:  evictor,
		log:      log,
	}
}

// UpdateAccountDetails sets fullName and email. Both are required.
func (s *ProfileService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = domain.NormalizeKey(email)
	if fullName == "" || email == "" {
		return nil, domain.Validation("all fields are required")
	}

	updated, err := s.users.UpdateByID(ctx, userID, ports.UserPatch{FullName: &fullName, Email: &email})
	if err != nil {
		return nil, fmt.Errorf("update account details: %w", err)
	}
	return updated.Sanitized(), nil
}

func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error) {
	return s.replaceImage(ctx, userID, asset, imageField{
		name:   "avatar",
		folder: avatarFolder,
		get:    func(u *domain.User) string { return u.AvatarURL },
		patch:  func(url string) ports.UserPatch { return ports.UserPatch{AvatarURL: &url} },
	})
}

func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error) {
	return s.replaceImage(ctx, userID, asset, imageField{
		name:   "cover image",
		folder: coverFolder,
		get:    func(u *domain.User) string { return u.CoverImageURL },
		patch:  func(url string) ports.UserPatch { return ports.UserPatch{CoverImageURL: &url} },
	})
}

type imageField struct {
	name   string
	folder string
	get    func(*domain.User) string
	patch  func(url string) ports.UserPatch
}

// replaceImage uploads the new image, points the user at it, and only then
// evicts the previous one. Any failure before the pointer update leaves the
// record and the old image untouched.
func (s *ProfileService) replaceImage(ctx context.Context, userID string, asset *ports.Asset, f imageField) (*domain.User, error) {
	if asset == nil {
		return nil, domain.Validation("%s file is missing", f.name)
	}

	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", f.name, err)
	}
	previous := f.get(current)

	url, err := s.assets.Upload(ctx, f.folder, *asset)
	if err != nil {
		return nil, domain.Internal("error while uploading "+f.name, err)
	}

	updated, err := s.users.UpdateByID(ctx, userID, f.patch(url))
	if err != nil {
		s.evictor.Evict(ctx, userID, url)
		return nil, fmt.Errorf("update %s: %w", f.name, err)
	}

	if previous != "" && previous != url {
		s.evictor.Evict(ctx, userID, previous)
	}

	s.log.Info().Str("user_id", userID).Str("field", f.name).Msg("profile image replaced")
	return updated.Sanitized(), nil
}

// GetChannelProfile looks a channel up by userName, case-insensitively.
// viewerID is empty for anonymous requests.
func (s *ProfileService) GetChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	userName = domain.NormalizeKey(userName)
	if userName == "" {
		return nil, domain.Validation("username is missing")
	}

	profile, err := s.channels.FindChannelProfile(ctx, userName, viewerID)
	if err != nil {
		return nil, fmt.Errorf("channel profile: %w", err)
	}
	return profile, nil
}

// GetWatchHistory resolves the user's watch history in stored order.
func (s *ProfileService) GetWatchHistory(ctx context.Context, userID string) ([]domain.VideoSummary, error) {
	if userID == "" {
		return nil, domain.Unauthorized("unauthorized request")
	}

	videos, err := s.history.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("watch history: %w", err)
	}
	if videos == nil {
		videos = []domain.VideoSummary{}
	}
	return videos, nil
}
