package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/collegecompass/api/internal/auth"
	"github.com/collegecompass/api/internal/upload"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrRefreshInvalid is returned for unknown, expired or revoked sessions.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

type sessionRepository interface {
	Create(ctx context.Context, p CreateParams) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	InsertRefreshToken(ctx context.Context, t RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service concentrates account and session rules.
type Service struct {
	repo       sessionRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

func NewService(repo sessionRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *Service {
	return &Service{repo: repo, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT exposes the token manager for middleware wiring.
func (s *Service) JWT() *auth.JWTManager { return s.jwt }

// LoginResult is the standard authentication payload.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	RefreshExpiry time.Time
	Profile       Profile
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

func (p RegisterParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return upload.NewValidationError("name", "name is required")
	}
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return upload.NewValidationError("email", "a valid email is required")
	}
	if len(p.Password) < 8 {
		return upload.NewValidationError("password", "password must have at least 8 characters")
	}
	return nil
}

// Register creates the account and opens a first session.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*LoginResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, CreateParams{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, u)
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Msg("login: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: password verify failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, u)
}

// Refresh rotates a refresh token into a new session.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if record.Revoked || time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrRefreshInvalid
	}

	status, err := s.redis.Get(ctx, auth.RefreshRedisKey(hash)).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	u, err := s.repo.GetByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, u)
}

// Logout revokes the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetProfile loads the account for the session subject.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (Profile, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Profile{}, upload.NewValidationError("name", "name is required")
	}
	u, err := s.repo.UpdateProfile(ctx, id, p)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// ChangePassword verifies the current password before replacing it.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < 8 {
		return upload.NewValidationError("password", "password must have at least 8 characters")
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(current, u.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	return s.repo.InvalidateOtherRefreshTokens(ctx, id, "")
}

// Deactivate disables the account and kills its sessions.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	return s.repo.InvalidateOtherRefreshTokens(ctx, id, "")
}

func (s *Service) openSession(ctx context.Context, u User) (*LoginResult, error) {
	if !u.Active {
		return nil, ErrAccountDisabled
	}

	access, _, err := s.jwt.GenerateAccessToken(u.ID.String(), u.Role)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := time.Now().UTC().Add(s.refreshTTL)
	if err := s.repo.InsertRefreshToken(ctx, RefreshToken{
		ID:        uuid.New(),
		Subject:   u.ID,
		TokenHash: refreshHash,
		ExpiresAt: expires,
	}); err != nil {
		return nil, err
	}
	if err := s.repo.InvalidateOtherRefreshTokens(ctx, u.ID, refreshHash); err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, auth.RefreshRedisKey(refreshHash), "active", time.Until(expires)).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  rawRefresh,
		RefreshExpiry: expires,
		Profile:       u.Profile(),
	}, nil
}
