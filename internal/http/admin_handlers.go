package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// handleReady reports whether both backing stores answer. Load balancers
// use it to pull an instance before its pool is gone.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "NOT_READY", "database unreachable", nil)
		return
	}
	if err := h.redis.Ping(r.Context()).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "NOT_READY", "redis unreachable", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	users, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	total, err := h.accounts.Count(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users, "total": total})
}

func (h *Handler) handleAdminSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid user id", nil)
		return
	}

	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "active flag is required", nil)
		return
	}

	if err := h.accounts.SetActive(r.Context(), id, *body.Active); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"active": *body.Active})
}

// StatsRepository aggregates the counters shown on the admin dashboard.
type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (s *StatsRepository) Stats(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT
            (SELECT count(*) FROM users),
            (SELECT count(*) FROM notes),
            (SELECT count(*) FROM blogs),
            (SELECT count(*) FROM courses),
            (SELECT count(*) FROM exams),
            (SELECT coalesce(sum(downloads), 0) FROM notes)
    `

	var users, notes, blogs, courses, exams, downloads int
	err := s.pool.QueryRow(ctx, query).Scan(&users, &notes, &blogs, &courses, &exams, &downloads)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"users":     users,
		"notes":     notes,
		"blogs":     blogs,
		"courses":   courses,
		"exams":     exams,
		"downloads": downloads,
	}, nil
}
