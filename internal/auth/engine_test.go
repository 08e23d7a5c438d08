package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"deviceauth/internal/autherr"
	"deviceauth/internal/security"
	"deviceauth/internal/session/domain"
	sessionservice "deviceauth/internal/session/service"
	"deviceauth/internal/token"
	userdomain "deviceauth/internal/user/domain"
)

type memUserDir struct {
	mu sync.Mutex
	m  map[string]*userdomain.User // keyed by id
}

func newMemUserDir() *memUserDir {
	return &memUserDir{m: make(map[string]*userdomain.User)}
}

func (d *memUserDir) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.m[id]; ok {
		u2 := *u
		return &u2, nil
	}
	return nil, nil
}

func (d *memUserDir) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.m {
		if u.Email == email {
			u2 := *u
			return &u2, nil
		}
	}
	return nil, nil
}

func (d *memUserDir) Create(ctx context.Context, u *userdomain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u2 := *u
	d.m[u.ID] = &u2
	return nil
}

func (d *memUserDir) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.m)
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) FindByAccessToken(ctx context.Context, tok string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.IsActive && s.AccessToken == tok {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindByRefreshToken(ctx context.Context, tok string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.IsActive && s.RefreshToken == tok {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.IsActive && s.UserID == userID && s.DeviceID == deviceID {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.IsActive && s.UserID == userID {
			s2 := *s
			out = append(out, &s2)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Deactivate(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok {
		s.IsActive = false
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memSessionRepo) DeactivateAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func (r *memSessionRepo) DeactivateForUserDevice(ctx context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID && s.DeviceID == deviceID {
			s.IsActive = false
		}
	}
	return nil
}

func (r *memSessionRepo) DeactivateAllForUserExceptDevice(ctx context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID && s.DeviceID != deviceID {
			s.IsActive = false
		}
	}
	return nil
}

func (r *memSessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok {
		s.LastActivityAt = &at
	}
	return nil
}

func (r *memSessionRepo) UpdateTokens(ctx context.Context, sessionID, accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok {
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
	}
	return nil
}

func (r *memSessionRepo) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func (r *memSessionRepo) activeFor(userID string) []*domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.IsActive && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *memUserDir, *memSessionRepo) {
	t.Helper()
	codec, err := token.NewCodec("access-secret", "refresh-secret", "15m", "7d", nil)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	users := newMemUserDir()
	repo := newMemSessionRepo()
	manager := sessionservice.NewManager(repo, nil)
	hasher := security.NewHasher(4) // min cost keeps the tests fast
	return NewEngine(users, codec, manager, hasher, nil), users, repo
}

func TestRegister(t *testing.T) {
	e, users, repo := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "Dev@Example.com", Password: "Passw0rd!", DeviceID: "phone"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Email != "dev@example.com" {
		t.Fatalf("email = %q, want lowercased", res.User.Email)
	}
	if res.User.Role != userdomain.DefaultRole {
		t.Fatalf("role = %q, want default %q", res.User.Role, userdomain.DefaultRole)
	}
	if res.Pair == nil || res.Pair.AccessToken == "" || res.Pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if got := len(repo.activeFor(res.User.ID)); got != 1 {
		t.Fatalf("active sessions after register = %d, want 1", got)
	}

	// Duplicate email fails without touching the directory.
	before := users.count()
	_, err = e.Register(ctx, Credentials{Email: "dev@example.com", Password: "Passw0rd!"})
	if !errors.Is(err, autherr.ErrUserAlreadyExists) {
		t.Fatalf("duplicate register: got %v, want ErrUserAlreadyExists", err)
	}
	if users.count() != before {
		t.Fatal("duplicate register mutated the user directory")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	e, users, _ := newTestEngine(t)

	_, err := e.Register(context.Background(), Credentials{Email: "a@b.com", Password: "password"})
	if !errors.Is(err, autherr.ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}
	if users.count() != 0 {
		t.Fatal("weak-password register must not create a user")
	}
}

func TestLogin(t *testing.T) {
	e, _, repo := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "phone"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := e.Login(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.User.ID != res.User.ID {
		t.Fatalf("login resolved user %q, want %q", got.User.ID, res.User.ID)
	}
	if n := len(repo.activeFor(res.User.ID)); n != 2 {
		t.Fatalf("active sessions across two devices = %d, want 2", n)
	}

	// Same device again: the earlier laptop session is superseded.
	if _, err := e.Login(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "laptop"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if n := len(repo.activeFor(res.User.ID)); n != 2 {
		t.Fatalf("active sessions after same-device relogin = %d, want 2", n)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown email and wrong password produce the same error.
	_, err := e.Login(ctx, Credentials{Email: "nobody@b.com", Password: "Passw0rd!"})
	if !errors.Is(err, autherr.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
	_, err = e.Login(ctx, Credentials{Email: "a@b.com", Password: "Wrong0ne!"})
	if !errors.Is(err, autherr.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRefresh(t *testing.T) {
	e, _, repo := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "phone"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, err := e.Refresh(ctx, res.Pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full rotated pair")
	}

	// The stored pair rotated in place: same session row, new tokens.
	active := repo.activeFor(res.User.ID)
	if len(active) != 1 {
		t.Fatalf("active sessions after refresh = %d, want 1", len(active))
	}
	if active[0].AccessToken != pair.AccessToken || active[0].RefreshToken != pair.RefreshToken {
		t.Fatal("session row does not hold the rotated pair")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = e.Refresh(ctx, res.Pair.AccessToken)
	if !errors.Is(err, autherr.ErrInvalidRefreshToken) {
		t.Fatalf("refresh with access token: got %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRefreshAfterLogout(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	e.Logout(ctx, res.Pair.AccessToken)

	// The refresh token is still well-signed, but no live session holds it.
	_, err = e.Refresh(ctx, res.Pair.RefreshToken)
	if !errors.Is(err, autherr.ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout: got %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogoutAll(t *testing.T) {
	e, _, repo := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "phone"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := e.Login(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "laptop"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := e.LogoutAll(ctx, res.User.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n := len(repo.activeFor(res.User.ID)); n != 0 {
		t.Fatalf("active sessions after LogoutAll = %d, want 0", n)
	}
}

func TestLogoutOthers(t *testing.T) {
	e, _, repo := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Register(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "phone"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	laptop, err := e.Login(ctx, Credentials{Email: "a@b.com", Password: "Passw0rd!", DeviceID: "laptop"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := e.LogoutOthers(ctx, laptop.Pair.AccessToken); err != nil {
		t.Fatalf("LogoutOthers: %v", err)
	}
	active := repo.activeFor(res.User.ID)
	if len(active) != 1 || active[0].DeviceID != "laptop" {
		t.Fatalf("after LogoutOthers: active = %+v, want only the laptop session", active)
	}

	// Without a live session there is no device to exempt.
	err = e.LogoutOthers(ctx, res.Pair.AccessToken)
	if !errors.Is(err, autherr.ErrUnauthorized) {
		t.Fatalf("LogoutOthers with dead session: got %v, want ErrUnauthorized", err)
	}
}

func TestProfileIsPureProjection(t *testing.T) {
	e, _, _ := newTestEngine(t)

	p := Principal{UserID: "u-1", Email: "a@b.com", Role: "admin"}
	pub := e.Profile(p)
	if pub.ID != "u-1" || pub.Email != "a@b.com" || pub.Role != "admin" {
		t.Fatalf("Profile = %+v, want the principal's fields", pub)
	}
}
