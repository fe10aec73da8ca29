// Package token signs and verifies the access/refresh JWT pair.
//
// Access and refresh tokens use independent secrets and lifetimes, so a leaked
// access secret cannot mint refresh tokens and the reverse.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/99minutos/account-service/internal/core/domain"
)

// Config holds the signing secrets and lifetimes of both token kinds.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

func (c Config) validate() error {
	switch {
	case c.AccessSecret == "" || c.RefreshSecret == "":
		return errors.New("token: access and refresh secrets are required")
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("token: access and refresh secrets must differ")
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("token: expiries must be positive")
	}
	return nil
}

type accessClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// Codec implements ports.TokenCodec with HS256.
type Codec struct {
	cfg   Config
	clock clockwork.Clock
}

func NewCodec(cfg Config, clock clockwork.Clock) (*Codec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Codec{cfg: cfg, clock: clock}, nil
}

// IssuePair signs a fresh access token (full identity) and refresh token (id only).
func (c *Codec) IssuePair(user *domain.User) (domain.TokenPair, error) {
	access, err := c.sign(accessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		UserName:         user.UserName,
		FullName:         user.FullName,
		RegisteredClaims: c.registered(c.cfg.AccessTTL),
	}, c.cfg.AccessSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := c.sign(refreshClaims{
		UserID:           user.ID,
		RegisteredClaims: c.registered(c.cfg.RefreshTTL),
	}, c.cfg.RefreshSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (c *Codec) VerifyAccess(token string) (domain.AccessClaims, error) {
	var claims accessClaims
	if err := c.parse(token, &claims, c.cfg.AccessSecret); err != nil {
		return domain.AccessClaims{}, err
	}
	if claims.UserID == "" {
		return domain.AccessClaims{}, domain.InvalidToken(errors.New("missing subject"))
	}
	return domain.AccessClaims{
		UserID:   claims.UserID,
		Email:    claims.Email,
		UserName: claims.UserName,
		FullName: claims.FullName,
	}, nil
}

func (c *Codec) VerifyRefresh(token string) (domain.RefreshClaims, error) {
	var claims refreshClaims
	if err := c.parse(token, &claims, c.cfg.RefreshSecret); err != nil {
		return domain.RefreshClaims{}, err
	}
	if claims.UserID == "" {
		return domain.RefreshClaims{}, domain.InvalidToken(errors.New("missing subject"))
	}
	return domain.RefreshClaims{UserID: claims.UserID}, nil
}

// registered carries expiry plus a random jti, so two tokens issued in the
// same second for the same user still differ.
func (c *Codec) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := c.clock.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (c *Codec) parse(token string, claims jwt.Claims, secret string) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil {
		return domain.InvalidToken(err)
	}
	return nil
}
