package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"

	// bcrypt rejects longer passwords.
	maxPasswordBytes = 72
)

// SessionDeps groups the collaborators of SessionService.
type SessionDeps struct {
	Users    ports.UserRepository
	Hasher   ports.PasswordHasher
	Tokens   ports.TokenCodec
	Assets   ports.AssetHost
	Evictor  ports.AssetEvictor
	Throttle ports.LoginThrottle
	Log      zerolog.Logger
}

// SessionService implements registration, login, logout, refresh-token
// rotation and password changes.
//
// Each user has a single refresh-token slot. Issuing a new token overwrites the
// slot, so a rotated-out token is detected on replay, at the cost of one live
// session per user. Multi-device sessions would need one slot per device.
type SessionService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenCodec
	assets   ports.AssetHost
	evictor  ports.AssetEvictor
	throttle ports.LoginThrottle
	log      zerolog.Logger
	now      func() time.Time
}

func NewSessionService(deps SessionDeps) *SessionService {
	return &SessionService{
		users:    deps.Users,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		assets:   deps.Assets,
		evictor:  deps.Evictor,
		throttle: deps.Throttle,
		log:      deps.Log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account. The avatar is mandatory and the cover image
// optional; both are uploaded before the user record is written.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := domain.NormalizeKey(in.Email)
	userName := domain.NormalizeKey(in.UserName)

	if fullName == "" || email == "" || userName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, domain.Validation("all fields are required")
	}
	if in.Avatar == nil {
		return nil, domain.Validation("avatar file is required")
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByAlternateKey(ctx, userName, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("register: lookup: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}

	avatarURL, coverURL, err := s.uploadProfileImages(ctx, userName, in.Avatar, in.Cover)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		UserName:      userName,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		WatchHistory:  []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		s.evictor.Evict(ctx, userName, avatarURL)
		if coverURL != "" {
			s.evictor.Evict(ctx, userName, coverURL)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("user_name", created.UserName).Msg("user registered")
	return created.Sanitized(), nil
}

// uploadProfileImages uploads the avatar and the optional cover concurrently.
// A failed avatar upload aborts registration; a failed cover upload only
// leaves the cover empty.
func (s *SessionService) uploadProfileImages(ctx context.Context, owner string, avatar, cover *ports.Asset) (string, string, error) {
	var avatarURL, coverURL string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.assets.Upload(gctx, avatarFolder, *avatar)
		if err != nil {
			return domain.Internal("avatar upload failed", err)
		}
		avatarURL = url
		return nil
	})
	if cover != nil {
		g.Go(func() error {
			url, err := s.assets.Upload(gctx, coverFolder, *cover)
			if err != nil {
				s.log.Warn().Err(err).Str("user_name", owner).Msg("cover image upload failed")
				return nil
			}
			coverURL = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if coverURL != "" {
			s.evictor.Evict(ctx, owner, coverURL)
		}
		return "", "", err
	}
	return avatarURL, coverURL, nil
}

// Login verifies credentials, issues a fresh token pair and stores the refresh
// token on the user, replacing any previous one.
func (s *SessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	userName := domain.NormalizeKey(in.UserName)
	email := domain.NormalizeKey(in.Email)
	if userName == "" && email == "" {
		return nil, domain.Validation("username or email is required")
	}
	if in.Password == "" {
		return nil, domain.Validation("password is required")
	}

	user, err := s.users.FindByAlternateKey(ctx, userName, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("login: lookup: %w", err)
	}

	// Failures are counted per account, so switching between userName and
	// email does not reset the budget.
	if !s.loginAllowed(ctx, user.ID) {
		return nil, &domain.Error{Kind: domain.KindRateLimited, Message: "too many failed login attempts, try again later"}
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		if err := s.throttle.RecordFailure(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Msg("failed to record login failure")
		}
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.throttle.Reset(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login throttle")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, domain.Internal("issue tokens", err)
	}

	refresh := pair.RefreshToken
	updated, err := s.users.UpdateByID(ctx, user.ID, ports.UserPatch{RefreshToken: &refresh})
	if err != nil {
		return nil, fmt.Errorf("login: store refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.LoginResult{Tokens: pair, User: updated.Sanitized()}, nil
}

// loginAllowed fails open: a broken throttle store must not lock users out.
func (s *SessionService) loginAllowed(ctx context.Context, identifier string) bool {
	ok, err := s.throttle.Allowed(ctx, identifier)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle unavailable")
		return true
	}
	return ok
}

// Logout clears the stored refresh token. Calling it twice is harmless.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	cleared := ""
	if _, err := s.users.UpdateByID(ctx, userID, ports.UserPatch{RefreshToken: &cleared}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// match the one stored on the user; the stored token is then replaced, so the
// presented one can never be used again.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.TokenPair{}, domain.Unauthorized("unauthorized request")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TokenPair{}, domain.Unauthorized("invalid refresh token")
		}
		return domain.TokenPair{}, fmt.Errorf("refresh: lookup: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(user.RefreshToken)) != 1 {
		s.log.Warn().Str("user_id", user.ID).Msg("stale refresh token presented")
		return domain.TokenPair{}, domain.ErrStaleRefreshToken
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, domain.Internal("issue tokens", err)
	}

	if err := s.users.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		return domain.TokenPair{}, fmt.Errorf("refresh: rotate: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("refresh token rotated")
	return pair, nil
}

// ChangePassword replaces the password hash. Access tokens already issued stay
// valid until they expire.
func (s *SessionService) ChangePassword(ctx context.Context, userID string, in ports.ChangePasswordInput) error {
	if in.NewPassword != in.ConfirmPassword {
		return domain.Validation("new password and confirm password must match")
	}
	if strings.TrimSpace(in.NewPassword) == "" || in.OldPassword == "" {
		return domain.Validation("old and new password are required")
	}
	if err := checkPasswordLength(in.NewPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !s.hasher.Verify(in.OldPassword, user.PasswordHash) {
		return domain.Unauthorized("invalid old password")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return domain.Internal("hash password", err)
	}
	if _, err := s.users.UpdateByID(ctx, userID, ports.UserPatch{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

func checkPasswordLength(password string) error {
	if len(password) > maxPasswordBytes {
		return domain.Validation("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

// CurrentUser returns the sanitized projection of the authenticated user.
func (s *SessionService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user.Sanitized(), nil
}
