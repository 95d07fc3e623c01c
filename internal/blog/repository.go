package blog

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

const blogColumns = `id, owner_id, title, summary, content, author, category, tags,
	publish_date, read_time,
	file_external_id, file_url, file_name, file_size, file_type,
	views, liked_by, comments, created_at, updated_at`

// Repository persists blog posts in Postgres. Comments live as a jsonb
// column on the post itself.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) HasRecent(ctx context.Context, owner uuid.UUID, title string, window time.Duration) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM blogs
            WHERE owner_id = $1 AND title = $2 AND created_at > $3
        )
    `

	var exists bool
	err := r.pool.QueryRow(ctx, query, owner, title, time.Now().Add(-window)).Scan(&exists)
	return exists, err
}

func (r *Repository) Create(ctx context.Context, draft Draft, blob upload.Blob) (Blog, error) {
	const query = `
        INSERT INTO blogs (owner_id, title, summary, content, author, category, tags,
            publish_date, read_time,
            file_external_id, file_url, file_name, file_size, file_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING ` + blogColumns

	row := r.pool.QueryRow(ctx, query,
		draft.OwnerID,
		draft.Title,
		draft.Summary,
		draft.Content,
		draft.Author,
		draft.Category,
		draft.Tags,
		draft.PublishDate,
		draft.ReadTime,
		blob.ExternalID,
		blob.URL,
		blob.Name,
		blob.Size,
		blob.ContentType,
	)
	return scanBlog(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Blog, error) {
	const query = `SELECT ` + blogColumns + ` FROM blogs WHERE id = $1`

	return scanBlog(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, draft Draft, blob *upload.Blob) (Blog, error) {
	query := `
        UPDATE blogs
        SET title = $2, summary = $3, content = $4, author = $5, category = $6,
            tags = $7, publish_date = $8, read_time = $9, updated_at = now()`
	args := []any{
		id,
		draft.Title,
		draft.Summary,
		draft.Content,
		draft.Author,
		draft.Category,
		draft.Tags,
		draft.PublishDate,
		draft.ReadTime,
	}
	if blob != nil {
		query += `,
            file_external_id = $10, file_url = $11, file_name = $12, file_size = $13, file_type = $14`
		args = append(args, blob.ExternalID, blob.URL, blob.Name, blob.Size, blob.ContentType)
	}
	query += ` WHERE id = $1 RETURNING ` + blogColumns

	return scanBlog(r.pool.QueryRow(ctx, query, args...))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Filter narrows a blog listing. Zero values are ignored.
type Filter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Blog, error) {
	base := `SELECT ` + blogColumns + ` FROM blogs`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", idx))
		args = append(args, filter.Category)
		idx++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY publish_date DESC, created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blogs []Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}
	return blogs, rows.Err()
}

// IncrementViews bumps the counter and returns the refreshed post.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) (Blog, error) {
	const query = `UPDATE blogs SET views = views + 1 WHERE id = $1 RETURNING ` + blogColumns

	return scanBlog(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	const query = `
        UPDATE blogs
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

// AddComment appends a comment to the post's jsonb list.
func (r *Repository) AddComment(ctx context.Context, id uuid.UUID, comment Comment) (Blog, error) {
	const query = `
        UPDATE blogs
        SET comments = comments || $2::jsonb, updated_at = now()
        WHERE id = $1
        RETURNING ` + blogColumns

	comment.ID = uuid.New()
	comment.CreatedAt = time.Now().UTC()
	return scanBlog(r.pool.QueryRow(ctx, query, id, []Comment{comment}))
}

func scanBlog(row pgx.Row) (Blog, error) {
	var b Blog
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Title,
		&b.Summary,
		&b.Content,
		&b.Author,
		&b.Category,
		&b.Tags,
		&b.PublishDate,
		&b.ReadTime,
		&b.Blob.ExternalID,
		&b.Blob.URL,
		&b.Blob.Name,
		&b.Blob.Size,
		&b.Blob.ContentType,
		&b.Views,
		&b.LikedBy,
		&b.Comments,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Blog{}, ErrNotFound
	}
	if err != nil {
		return Blog{}, err
	}
	b.Likes = len(b.LikedBy)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.Comments == nil {
		b.Comments = []Comment{}
	}
	return b, nil
}
