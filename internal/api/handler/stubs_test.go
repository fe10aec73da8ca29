package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type stubSessionService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	logoutFn         func(ctx context.Context, userID string) error
	refreshFn        func(ctx context.Context, token string) (domain.TokenPair, error)
	changePasswordFn func(ctx context.Context, userID string, in ports.ChangePasswordInput) error
	currentUserFn    func(ctx context.Context, userID string) (*domain.User, error)
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubSessionService) Logout(ctx context.Context, userID string) error {
	return s.logoutFn(ctx, userID)
}

func (s *stubSessionService) Refresh(ctx context.Context, token string) (domain.TokenPair, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubSessionService) ChangePassword(ctx context.Context, userID string, in ports.ChangePasswordInput) error {
	return s.changePasswordFn(ctx, userID, in)
}

func (s *stubSessionService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.currentUserFn(ctx, userID)
}

type stubProfileService struct {
	updateAccountFn func(ctx context.Context, userID, fullName, email string) (*domain.User, error)
	updateAvatarFn  func(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error)
	updateCoverFn   func(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error)
	channelFn       func(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error)
	historyFn       func(ctx context.Context, userID string) ([]domain.VideoSummary, error)
}

func (s *stubProfileService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	return s.updateAccountFn(ctx, userID, fullName, email)
}

func (s *stubProfileService) UpdateAvatar(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error) {
	return s.updateAvatarFn(ctx, userID, asset)
}

func (s *stubProfileService) UpdateCoverImage(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error) {
	return s.updateCoverFn(ctx, userID, asset)
}

func (s *stubProfileService) GetChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	return s.channelFn(ctx, userName, viewerID)
}

func (s *stubProfileService) GetWatchHistory(ctx context.Context, userID string) ([]domain.VideoSummary, error) {
	return s.historyFn(ctx, userID)
}

var testCookies = CookieConfig{Secure: true, AccessTTL: 15 * time.Minute, RefreshTTL: 240 * time.Hour}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// multipartRequest builds a form with the given fields and files (field name → content).
func multipartRequest(t *testing.T, method, target string, fields, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for field, content := range files {
		fw, err := w.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

// authenticated marks the context the way the Auth middleware does.
func authenticated(c echo.Context, userID string) echo.Context {
	c.Set(middleware.ContextUserID, userID)
	return c
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
