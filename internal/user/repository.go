package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collegecompass/api/internal/db"
)

// ErrEmailTaken is returned when a registration collides with an existing
// account.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, name, email, password_hash, role, active, college, branch, year,
	bookmarks, purchases, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (User, error) {
	const query = `
        INSERT INTO users (name, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO NOTHING
        RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(p.Name),
		strings.ToLower(strings.TrimSpace(p.Email)),
		p.PasswordHash,
		p.Role,
	)
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrEmailTaken
	}
	return u, err
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

type ProfileUpdate struct {
	Name    string
	College string
	Branch  string
	Year    string
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (User, error) {
	const query = `
        UPDATE users
        SET name = $2, college = $3, branch = $4, year = $5, updated_at = now()
        WHERE id = $1
        RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, id, strings.TrimSpace(p.Name), p.College, p.Branch, p.Year)
	return scanUser(row)
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleBookmark flips a note in the user's bookmark set and reports the new
// state.
func (r *Repository) ToggleBookmark(ctx context.Context, id, noteID uuid.UUID) (bool, error) {
	const query = `
        UPDATE users
        SET bookmarks = CASE
            WHEN $2 = ANY(bookmarks) THEN array_remove(bookmarks, $2)
            ELSE array_append(bookmarks, $2)
        END, updated_at = now()
        WHERE id = $1
        RETURNING $2 = ANY(bookmarks)
    `

	var bookmarked bool
	err := r.pool.QueryRow(ctx, query, id, noteID).Scan(&bookmarked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return bookmarked, err
}

// Enroll records the purchase and bumps the course's enrollment counter in
// one transaction, so the two writes can never disagree.
func (r *Repository) Enroll(ctx context.Context, id, courseID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const purchase = `
            UPDATE users
            SET purchases = array_append(purchases, $2), updated_at = now()
            WHERE id = $1 AND NOT ($2 = ANY(purchases))
        `
		if _, err := tx.Exec(ctx, purchase, id, courseID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE courses SET enrolled = enrolled + 1, updated_at = now() WHERE id = $1`, courseID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) HasPurchase(ctx context.Context, id, courseID uuid.UUID) (bool, error) {
	const query = `SELECT $2 = ANY(purchases) FROM users WHERE id = $1`

	var has bool
	err := r.pool.QueryRow(ctx, query, id, courseID).Scan(&has)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return has, err
}

// List returns accounts for the admin panel, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total)
	return total, err
}

// InsertRefreshToken persists a new session hash.
func (r *Repository) InsertRefreshToken(ctx context.Context, t RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO refresh_tokens (id, subject, token_hash, expires_at)
        VALUES ($1, $2, $3, $4)
    `, t.ID, t.Subject, t.TokenHash, t.ExpiresAt)
	return err
}

func (r *Repository) GetRefreshTokenByHash(ctx context.Context, hash string) (RefreshToken, error) {
	const query = `
        SELECT id, subject, token_hash, expires_at, revoked, created_at
        FROM refresh_tokens
        WHERE token_hash = $1
    `

	var t RefreshToken
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&t.ID, &t.Subject, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrNotFound
	}
	return t, err
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1`, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateOtherRefreshTokens revokes every session of the subject except
// the one just issued.
func (r *Repository) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE refresh_tokens
        SET revoked = true
        WHERE subject = $1 AND token_hash <> $2 AND NOT revoked
    `, subject, keepHash)
	return err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Active,
		&u.College,
		&u.Branch,
		&u.Year,
		&u.Bookmarks,
		&u.Purchases,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.Bookmarks == nil {
		u.Bookmarks = []uuid.UUID{}
	}
	if u.Purchases == nil {
		u.Purchases = []uuid.UUID{}
	}
	return u, nil
}
