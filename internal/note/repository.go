package note

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collegecompass/api/internal/upload"
)

const noteColumns = `id, owner_id, title, description, category, branch, year, subject, exam_name, tags,
	file_external_id, file_url, file_name, file_size, file_type,
	downloads, liked_by, created_at, updated_at`

// Repository persists notes in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasRecent reports whether the owner already submitted a note with the same
// title inside the window.
func (r *Repository) HasRecent(ctx context.Context, owner uuid.UUID, title string, window time.Duration) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notes
            WHERE owner_id = $1 AND title = $2 AND created_at > $3
        )
    `

	var exists bool
	err := r.pool.QueryRow(ctx, query, owner, title, time.Now().Add(-window)).Scan(&exists)
	return exists, err
}

func (r *Repository) Create(ctx context.Context, draft Draft, blob upload.Blob) (Note, error) {
	const query = `
        INSERT INTO notes (owner_id, title, description, category, branch, year, subject, exam_name, tags,
            file_external_id, file_url, file_name, file_size, file_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING ` + noteColumns

	row := r.pool.QueryRow(ctx, query,
		draft.OwnerID,
		draft.Title,
		draft.Description,
		draft.Category,
		draft.Branch,
		draft.Year,
		draft.Subject,
		draft.ExamName,
		draft.Tags,
		blob.ExternalID,
		blob.URL,
		blob.Name,
		blob.Size,
		blob.ContentType,
	)
	return scanNote(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`

	return scanNote(r.pool.QueryRow(ctx, query, id))
}

// Update rewrites the note's fields. A nil blob keeps the stored file
// reference untouched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, draft Draft, blob *upload.Blob) (Note, error) {
	query := `
        UPDATE notes
        SET title = $2, description = $3, category = $4, branch = $5, year = $6,
            subject = $7, exam_name = $8, tags = $9, updated_at = now()`
	args := []any{
		id,
		draft.Title,
		draft.Description,
		draft.Category,
		draft.Branch,
		draft.Year,
		draft.Subject,
		draft.ExamName,
		draft.Tags,
	}
	if blob != nil {
		query += `,
            file_external_id = $10, file_url = $11, file_name = $12, file_size = $13, file_type = $14`
		args = append(args, blob.ExternalID, blob.URL, blob.Name, blob.Size, blob.ContentType)
	}
	query += ` WHERE id = $1 RETURNING ` + noteColumns

	return scanNote(r.pool.QueryRow(ctx, query, args...))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Filter narrows a note listing. Zero values are ignored.
type Filter struct {
	Category string
	Branch   string
	Year     string
	Subject  string
	ExamName string
	OwnerID  *uuid.UUID
	Search   string
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Note, error) {
	base := `SELECT ` + noteColumns + ` FROM notes`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	add := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Branch != "" {
		add("branch = $%d", filter.Branch)
	}
	if filter.Year != "" {
		add("year = $%d", filter.Year)
	}
	if filter.Subject != "" {
		add("subject = $%d", filter.Subject)
	}
	if filter.ExamName != "" {
		add("exam_name = $%d", filter.ExamName)
	}
	if filter.OwnerID != nil {
		add("owner_id = $%d", *filter.OwnerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR $%d = ANY(tags))", idx, idx, idx+1))
		args = append(args, "%"+search+"%", search)
		idx += 2
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// IncrementDownloads bumps the counter and returns the new total.
func (r *Repository) IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `UPDATE notes SET downloads = downloads + 1 WHERE id = $1 RETURNING downloads`

	var downloads int
	err := r.pool.QueryRow(ctx, query, id).Scan(&downloads)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return downloads, err
}

// ToggleLike adds or removes the user from the note's like set and returns
// the new count plus whether the user now likes the note.
func (r *Repository) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	const query = `
        UPDATE notes
        SET liked_by = CASE
            WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2)
            ELSE array_append(liked_by, $2)
        END
        WHERE id = $1
        RETURNING cardinality(liked_by), $2 = ANY(liked_by)
    `

	var (
		likes int
		liked bool
	)
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&likes, &liked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrNotFound
	}
	return likes, liked, err
}

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Description,
		&n.Category,
		&n.Branch,
		&n.Year,
		&n.Subject,
		&n.ExamName,
		&n.Tags,
		&n.Blob.ExternalID,
		&n.Blob.URL,
		&n.Blob.Name,
		&n.Blob.Size,
		&n.Blob.ContentType,
		&n.Downloads,
		&n.LikedBy,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	n.Likes = len(n.LikedBy)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}
