package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const examColumns = `id, name, description, category, eligibility, apply_url,
	exam_date, last_apply_date, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, in Input) (Exam, error) {
	const query = `
        INSERT INTO exams (name, description, category, eligibility, apply_url, exam_date, last_apply_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + examColumns

	row := r.pool.QueryRow(ctx, query,
		in.Name,
		in.Description,
		in.Category,
		in.Eligibility,
		in.ApplyURL,
		in.ExamDate,
		in.LastApplyDate,
	)
	return scanExam(row)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Exam, error) {
	const query = `SELECT ` + examColumns + ` FROM exams WHERE id = $1`

	return scanExam(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (Exam, error) {
	const query = `
        UPDATE exams
        SET name = $2, description = $3, category = $4, eligibility = $5,
            apply_url = $6, exam_date = $7, last_apply_date = $8, updated_at = now()
        WHERE id = $1
        RETURNING ` + examColumns

	row := r.pool.QueryRow(ctx, query,
		id,
		in.Name,
		in.Description,
		in.Category,
		in.Eligibility,
		in.ApplyURL,
		in.ExamDate,
		in.LastApplyDate,
	)
	return scanExam(row)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
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

func (r *Repository) List(ctx context.Context, filter Filter) ([]Exam, error) {
	base := `SELECT ` + examColumns + ` FROM exams`

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
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", idx, idx))
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
	query += fmt.Sprintf(" ORDER BY exam_date ASC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func scanExam(row pgx.Row) (Exam, error) {
	var e Exam
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Description,
		&e.Category,
		&e.Eligibility,
		&e.ApplyURL,
		&e.ExamDate,
		&e.LastApplyDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Exam{}, ErrNotFound
	}
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}
