package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type sessionFixture struct {
	svc      *SessionService
	users    *stubUserRepo
	tokens   *stubTokenCodec
	assets   *stubAssetHost
	evictor  *stubEvictor
	throttle *stubThrottle
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		users:    newStubUserRepo(),
		tokens:   newStubTokenCodec(),
		assets:   newStubAssetHost(),
		evictor:  &stubEvictor{},
		throttle: newStubThrottle(3),
	}
	f.svc = NewSessionService(SessionDeps{
		Users:    f.users,
		Hasher:   stubHasher{},
		Tokens:   f.tokens,
		Assets:   f.assets,
		Evictor:  f.evictor,
		Throttle: f.throttle,
		Log:      zerolog.Nop(),
	})
	return f
}

func aliceInput() ports.RegisterInput {
	return ports.RegisterInput{
		FullName: "Alice",
		Email:    "a@x.com",
		UserName: "alice",
		Password: "p1",
		Avatar:   testAsset("avatar.png"),
	}
}

func (f *sessionFixture) registerAlice(t *testing.T) *domain.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), aliceInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestSessionService_Register_Success(t *testing.T) {
	f := newSessionFixture()
	in := aliceInput()
	in.UserName = "  Alice "
	in.Email = "A@X.com"
	in.Cover = testAsset("cover.png")

	user, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash != "" || user.RefreshToken != "" {
		t.Fatalf("expected sanitized user, got %+v", user)
	}
	if user.UserName != "alice" || user.Email != "a@x.com" {
		t.Fatalf("expected normalized keys, got %q %q", user.UserName, user.Email)
	}
	if user.AvatarURL == "" || user.CoverImageURL == "" {
		t.Fatalf("expected avatar and cover urls, got %q %q", user.AvatarURL, user.CoverImageURL)
	}

	stored := f.users.get(user.ID)
	if stored.PasswordHash == "" || stored.PasswordHash == "p1" {
		t.Fatalf("expected password to be hashed, got %q", stored.PasswordHash)
	}
}

func TestSessionService_Register_Validation(t *testing.T) {
	cases := map[string]func(*ports.RegisterInput){
		"missing full name": func(in *ports.RegisterInput) { in.FullName = "   " },
		"missing email":     func(in *ports.RegisterInput) { in.Email = "" },
		"missing user name": func(in *ports.RegisterInput) { in.UserName = "" },
		"missing password":  func(in *ports.RegisterInput) { in.Password = " " },
		"missing avatar":    func(in *ports.RegisterInput) { in.Avatar = nil },
		"password too long": func(in *ports.RegisterInput) { in.Password = strings.Repeat("a", 73) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newSessionFixture()
			in := aliceInput()
			mutate(&in)

			_, err := f.svc.Register(context.Background(), in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if f.users.writeCount() != 0 || f.assets.uploadCount() != 0 {
				t.Fatalf("expected no side effects")
			}
		})
	}
}

func TestSessionService_Register_Duplicate(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	writes := f.users.writeCount()
	uploads := f.assets.uploadCount()

	in := aliceInput()
	in.Email = "other@x.com"
	if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for userName, got %v", err)
	}

	in = aliceInput()
	in.UserName = "other"
	if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for email, got %v", err)
	}

	if f.users.writeCount() != writes || f.assets.uploadCount() != uploads {
		t.Fatalf("duplicate registration must not write or upload")
	}
}

func TestSessionService_Register_AvatarUploadFails(t *testing.T) {
	f := newSessionFixture()
	f.assets.fail[avatarFolder] = errors.New("asset host down")

	_, err := f.svc.Register(context.Background(), aliceInput())
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal failure, got %v", err)
	}
	if f.users.writeCount() != 0 {
		t.Fatalf("expected no user to be created")
	}
}

func TestSessionService_Register_CoverUploadFailureIsNotFatal(t *testing.T) {
	f := newSessionFixture()
	f.assets.fail[coverFolder] = errors.New("asset host down")
	in := aliceInput()
	in.Cover = testAsset("cover.png")

	user, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.CoverImageURL != "" {
		t.Fatalf("expected empty cover, got %q", user.CoverImageURL)
	}
}

func TestSessionService_Register_CreateFailureEvictsUploads(t *testing.T) {
	f := newSessionFixture()
	f.users.createErr = errors.New("write concern failed")
	in := aliceInput()
	in.Cover = testAsset("cover.png")

	if _, err := f.svc.Register(context.Background(), in); err == nil {
		t.Fatalf("expected error")
	}
	if got := len(f.evictor.urls()); got != 2 {
		t.Fatalf("expected both uploads evicted, got %d", got)
	}
}

func TestSessionService_Login_Success(t *testing.T) {
	f := newSessionFixture()
	alice := f.registerAlice(t)

	res, err := f.svc.Login(context.Background(), ports.LoginInput{UserName: "ALICE", Password: "p1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", res.Tokens)
	}
	if res.User.PasswordHash != "" || res.User.RefreshToken != "" {
		t.Fatalf("expected sanitized user")
	}
	if stored := f.users.get(alice.ID); stored.RefreshToken != res.Tokens.RefreshToken {
		t.Fatalf("stored refresh token %q != issued %q", stored.RefreshToken, res.Tokens.RefreshToken)
	}
}

func TestSessionService_Login_ByEmail(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)

	if _, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "p1"}); err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
}

func TestSessionService_Login_Failures(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, ports.LoginInput{Password: "p1"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{UserName: "ghost", Password: "p1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "bad"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSessionService_Login_Throttled(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "bad"})
	}

	_, err := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "p1"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestSessionService_Login_ThrottleCountsPerAccount(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	ctx := context.Background()

	_, _ = f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "bad"})
	_, _ = f.svc.Login(ctx, ports.LoginInput{Email: "a@x.com", Password: "bad"})
	_, _ = f.svc.Login(ctx, ports.LoginInput{UserName: "ALICE", Password: "bad"})

	_, err := f.svc.Login(ctx, ports.LoginInput{Email: "a@x.com", Password: "p1"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited after alternating identifiers, got %v", err)
	}
}

func TestSessionService_Login_ThrottleErrorFailsOpen(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	f.throttle.err = errors.New("redis down")

	if _, err := f.svc.Login(context.Background(), ports.LoginInput{UserName: "alice", Password: "p1"}); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
}

func TestSessionService_Refresh_RotatesAndRejectsReplay(t *testing.T) {
	f := newSessionFixture()
	alice := f.registerAlice(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "p1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	first := res.Tokens.RefreshToken

	second, err := f.svc.Refresh(ctx, first)
	if err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if second.RefreshToken == first {
		t.Fatalf("expected a new refresh token")
	}
	if stored := f.users.get(alice.ID); stored.RefreshToken != second.RefreshToken {
		t.Fatalf("stored token was not rotated")
	}

	if _, err := f.svc.Refresh(ctx, first); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected replay to be unauthorized, got %v", err)
	}

	third, err := f.svc.Refresh(ctx, second.RefreshToken)
	if err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, second.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected replay of second token to be unauthorized, got %v", err)
	}
	if third.RefreshToken == second.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
}

func TestSessionService_Refresh_Failures(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for missing token, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	ghost := &domain.User{ID: "ghost"}
	pair, _ := f.tokens.IssuePair(ghost)
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for missing user, got %v", err)
	}
}

func TestSessionService_Refresh_ConcurrentReplayOnlyOneWins(t *testing.T) {
	f := newSessionFixture()
	f.registerAlice(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "p1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("unexpected error kind: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful refresh, got %d", successes)
	}
}

func TestSessionService_Logout(t *testing.T) {
	f := newSessionFixture()
	alice := f.registerAlice(t)
	ctx := context.Background()

	res, _ := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "p1"})

	if err := f.svc.Logout(ctx, alice.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := f.svc.Logout(ctx, alice.ID); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if stored := f.users.get(alice.ID); stored.RefreshToken != "" {
		t.Fatalf("expected refresh token to be cleared")
	}
	if _, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
}

func TestSessionService_ChangePassword(t *testing.T) {
	f := newSessionFixture()
	alice := f.registerAlice(t)
	ctx := context.Background()
	original := f.users.get(alice.ID).PasswordHash

	err := f.svc.ChangePassword(ctx, alice.ID, ports.ChangePasswordInput{OldPassword: "p1", NewPassword: "p2", ConfirmPassword: "p3"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.users.get(alice.ID).PasswordHash != original {
		t.Fatalf("mismatched confirmation must not change the hash")
	}

	long := strings.Repeat("a", 73)
	err = f.svc.ChangePassword(ctx, alice.ID, ports.ChangePasswordInput{OldPassword: "p1", NewPassword: long, ConfirmPassword: long})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for a 73-byte password, got %v", err)
	}

	err = f.svc.ChangePassword(ctx, alice.ID, ports.ChangePasswordInput{OldPassword: "wrong", NewPassword: "p2", ConfirmPassword: "p2"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = f.svc.ChangePassword(ctx, alice.ID, ports.ChangePasswordInput{OldPassword: "p1", NewPassword: "p2", ConfirmPassword: "p2"})
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{UserName: "alice", Password: "p2"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestSessionService_CurrentUser(t *testing.T) {
	f := newSessionFixture()
	alice := f.registerAlice(t)

	u, err := f.svc.CurrentUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if u.PasswordHash != "" || u.UserName != "alice" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := f.svc.CurrentUser(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
