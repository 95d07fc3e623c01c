package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collegecompass/api/internal/auth"
	"github.com/collegecompass/api/internal/upload"
)

type fakeRepo struct {
	users    map[uuid.UUID]User
	byEmail  map[string]uuid.UUID
	sessions map[string]RefreshToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[uuid.UUID]User{},
		byEmail:  map[string]uuid.UUID{},
		sessions: map[string]RefreshToken{},
	}
}

func (r *fakeRepo) addUser(email, password string, active bool) User {
	hash, _ := auth.HashPassword(password)
	u := User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Active:       active,
	}
	r.users[u.ID] = u
	r.byEmail[email] = u.ID
	return u
}

func (r *fakeRepo) Create(ctx context.Context, p CreateParams) (User, error) {
	if _, ok := r.byEmail[p.Email]; ok {
		return User{}, ErrEmailTaken
	}
	u := User{ID: uuid.New(), Name: p.Name, Email: p.Email, PasswordHash: p.PasswordHash, Role: p.Role, Active: true}
	r.users[u.ID] = u
	r.byEmail[p.Email] = u.ID
	return u, nil
}

func (r *fakeRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Name, u.College, u.Branch, u.Year = p.Name, p.College, p.Branch, p.Year
	r.users[id] = u
	return u, nil
}

func (r *fakeRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func (r *fakeRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	r.users[id] = u
	return nil
}

func (r *fakeRepo) InsertRefreshToken(ctx context.Context, t RefreshToken) error {
	r.sessions[t.TokenHash] = t
	return nil
}

func (r *fakeRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (RefreshToken, error) {
	t, ok := r.sessions[hash]
	if !ok {
		return RefreshToken{}, ErrNotFound
	}
	return t, nil
}

func (r *fakeRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	t, ok := r.sessions[hash]
	if !ok {
		return ErrNotFound
	}
	t.Revoked = true
	r.sessions[hash] = t
	return nil
}

func (r *fakeRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	for hash, t := range r.sessions {
		if t.Subject == subject && hash != keepHash {
			t.Revoked = true
			r.sessions[hash] = t
		}
	}
	return nil
}

type fakeRedis struct {
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (r *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	r.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (r *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	value, ok := r.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (r *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := r.values[key]; ok {
			delete(r.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func newTestService(repo *fakeRepo, rds *fakeRedis) *Service {
	jwtMgr := auth.NewJWTManager("0123456789abcdef0123456789abcdef", 15*time.Minute)
	return NewService(repo, rds, jwtMgr, 24*time.Hour)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeRedis())

	cases := []struct {
		name  string
		in    RegisterParams
		field string
	}{
		{"missing name", RegisterParams{Email: "a@b.c", Password: "longenough"}, "name"},
		{"bad email", RegisterParams{Name: "A", Email: "nope", Password: "longenough"}, "email"},
		{"short password", RegisterParams{Name: "A", Email: "a@b.c", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.in)
		var verr *upload.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Errorf("%s: expected %s validation error, got %v", tc.name, tc.field, err)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeRedis())

	res, err := svc.Register(context.Background(), RegisterParams{
		Name: "Asha", Email: "asha@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("register must open a session")
	}
	if res.Profile.Role != auth.RoleUser {
		t.Fatalf("role = %q", res.Profile.Role)
	}

	if _, err := svc.Login(context.Background(), "asha@example.com", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "asha@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("off@example.com", "correct horse", false)
	svc := newTestService(repo, newFakeRedis())

	if _, err := svc.Login(context.Background(), "off@example.com", "correct horse"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected disabled account, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	repo := newFakeRepo()
	rds := newFakeRedis()
	repo.addUser("asha@example.com", "correct horse", true)
	svc := newTestService(repo, rds)

	first, err := svc.Login(context.Background(), "asha@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}

	// The first token was invalidated by the rotation.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected invalid refresh, got %v", err)
	}
}

func TestRefreshRequiresRedisEntry(t *testing.T) {
	repo := newFakeRepo()
	rds := newFakeRedis()
	repo.addUser("asha@example.com", "correct horse", true)
	svc := newTestService(repo, rds)

	res, err := svc.Login(context.Background(), "asha@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Simulate the mirror expiring ahead of the database record.
	rds.values = map[string]string{}
	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected invalid refresh, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	repo := newFakeRepo()
	rds := newFakeRedis()
	repo.addUser("asha@example.com", "correct horse", true)
	svc := newTestService(repo, rds)

	res, err := svc.Login(context.Background(), "asha@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected invalid refresh after logout, got %v", err)
	}
	if err := svc.Logout(context.Background(), "unknown-token"); err != nil {
		t.Fatalf("logout of an unknown token must be silent: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newFakeRepo()
	u := repo.addUser("asha@example.com", "correct horse", true)
	svc := newTestService(repo, newFakeRedis())

	if err := svc.ChangePassword(context.Background(), u.ID, "wrong", "new password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "correct horse", "new password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "asha@example.com", "new password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
