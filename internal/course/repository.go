package course

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const courseColumns = `id, title, description, instructor, category, price_inr, thumbnail_url,
	lessons, resources, enrolled, liked_by, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, in Input) (Course, error) {
	const query = `
        INSERT INTO courses (title, description, instructor, category, price_inr, thumbnail_url, lessons, resources)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + courseColumns

	row := r.pool.QueryRow(ctx, query,
		in.Title,
		in.Description,
		in.Instructor,
		in.Category,
		in.PriceINR,
		in.ThumbnailURL,
		in.Lessons,
		in.Resources,
	)
	return scanCourse(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	return scanCourse(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (Course, error) {
	const query = `
        UPDATE courses
        SET title = $2, description = $3, instructor = $4, category = $5,
            price_inr = $6, thumbnail_url = $7, lessons = $8, resources = $9, updated_at = now()
        WHERE id = $1
        RETURNING ` + courseColumns

	row := r.pool.QueryRow(ctx, query,
		id,
		in.Title,
		in.Description,
		in.Instructor,
		in.Category,
		in.PriceINR,
		in.ThumbnailURL,
		in.Lessons,
		in.Resources,
	)
	return scanCourse(row)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type Filter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Course, error) {
	base := `SELECT ` + courseColumns + ` FROM courses`

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
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR instructor ILIKE $%d)", idx, idx))
		args = append(args, "%"+search+"%")
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
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

	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *Repository) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	const query = `
        UPDATE courses
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

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Instructor,
		&c.Category,
		&c.PriceINR,
		&c.ThumbnailURL,
		&c.Lessons,
		&c.Resources,
		&c.Enrolled,
		&c.LikedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	if err != nil {
		return Course{}, err
	}
	c.Likes = len(c.LikedBy)
	if c.Lessons == nil {
		c.Lessons = []Lesson{}
	}
	if c.Resources == nil {
		c.Resources = []Resource{}
	}
	return c, nil
}
