package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Credential store
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	seq       int
	writes    int
	createErr error
	updateErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.WatchHistory = append([]string(nil), u.WatchHistory...)
	return &clone
}

func (r *stubUserRepo) seed(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", r.seq)
	}
	r.byID[u.ID] = cloneUser(u)
	return cloneUser(u)
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.byID[id])
}

func (r *stubUserRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByAlternateKey(_ context.Context, userName, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if (userName != "" && u.UserName == userName) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.UserName == user.UserName || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("user-%d", r.seq)
	r.byID[created.ID] = cloneUser(created)
	r.writes++
	return created, nil
}

func (r *stubUserRepo) UpdateByID(_ context.Context, id string, patch ports.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	if patch.CoverImageURL != nil {
		u.CoverImageURL = *patch.CoverImageURL
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.RefreshToken != nil {
		u.RefreshToken = *patch.RefreshToken
	}
	r.writes++
	return cloneUser(u), nil
}

func (r *stubUserRepo) SwapRefreshToken(_ context.Context, id, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.RefreshToken != current {
		return domain.ErrStaleRefreshToken
	}
	u.RefreshToken = next
	r.writes++
	return nil
}

// ---------------------------------------------------------------------------
// Hasher, token codec, throttle
// ---------------------------------------------------------------------------

type stubHasher struct {
	hashErr error
}

func (h stubHasher) Hash(p string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed$" + p, nil
}

func (stubHasher) Verify(p, digest string) bool { return digest == "hashed$"+p }

type stubTokenCodec struct {
	mu      sync.Mutex
	seq     int
	refresh map[string]string
}

func newStubTokenCodec() *stubTokenCodec {
	return &stubTokenCodec{refresh: make(map[string]string)}
}

func (c *stubTokenCodec) IssuePair(u *domain.User) (domain.TokenPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	pair := domain.TokenPair{
		AccessToken:  fmt.Sprintf("access-%s-%d", u.ID, c.seq),
		RefreshToken: fmt.Sprintf("refresh-%s-%d", u.ID, c.seq),
	}
	c.refresh[pair.RefreshToken] = u.ID
	return pair, nil
}

func (c *stubTokenCodec) VerifyAccess(string) (domain.AccessClaims, error) {
	return domain.AccessClaims{}, domain.InvalidToken(errors.New("not supported"))
}

func (c *stubTokenCodec) VerifyRefresh(token string) (domain.RefreshClaims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.refresh[token]
	if !ok {
		return domain.RefreshClaims{}, domain.InvalidToken(errors.New("unknown token"))
	}
	return domain.RefreshClaims{UserID: id}, nil
}

type stubThrottle struct {
	mu       sync.Mutex
	limit    int
	failures map[string]int
	err      error
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{limit: limit, failures: make(map[string]int)}
}

func (t *stubThrottle) Allowed(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return false, t.err
	}
	return t.failures[id] < t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[id]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, id)
	return nil
}

// ---------------------------------------------------------------------------
// Asset host and evictor
// ---------------------------------------------------------------------------

type stubAssetHost struct {
	mu       sync.Mutex
	seq      int
	fail     map[string]error // folder -> error
	uploaded []string
}

func newStubAssetHost() *stubAssetHost {
	return &stubAssetHost{fail: make(map[string]error)}
}

func (h *stubAssetHost) Upload(_ context.Context, folder string, a ports.Asset) (string, error) {
	if a.Body != nil {
		_, _ = io.Copy(io.Discard, a.Body)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.fail[folder]; err != nil {
		return "", err
	}
	h.seq++
	url := fmt.Sprintf("https://assets.test/%s/%d-%s", folder, h.seq, a.Filename)
	h.uploaded = append(h.uploaded, url)
	return url, nil
}

func (h *stubAssetHost) Delete(context.Context, string) error { return nil }

func (h *stubAssetHost) uploadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.uploaded)
}

type eviction struct {
	userID string
	url    string
}

type stubEvictor struct {
	mu      sync.Mutex
	evicted []eviction
}

func (e *stubEvictor) Evict(_ context.Context, userID, url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, eviction{userID: userID, url: url})
}

func (e *stubEvictor) urls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.evicted))
	for _, ev := range e.evicted {
		out = append(out, ev.url)
	}
	return out
}

func testAsset(name string) *ports.Asset {
	return &ports.Asset{
		Filename:    name,
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("\x89PNG"),
	}
}

// ---------------------------------------------------------------------------
// Read models
// ---------------------------------------------------------------------------

type stubChannelRepo struct {
	profiles   map[string]*domain.ChannelProfile
	lastViewer string
}

func (r *stubChannelRepo) FindChannelProfile(_ context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	r.lastViewer = viewerID
	p, ok := r.profiles[userName]
	if !ok {
		return nil, domain.ErrChannelNotFound
	}
	clone := *p
	return &clone, nil
}

type stubHistoryRepo struct {
	videos map[string][]domain.VideoSummary
	err    error
}

func (r *stubHistoryRepo) WatchHistory(_ context.Context, userID string) ([]domain.VideoSummary, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.videos[userID], nil
}
