// Package http wires the REST surface: public catalog reads, authenticated
// account and upload routes, and the admin panel.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collegecompass/api/internal/blog"
	"github.com/collegecompass/api/internal/config"
	"github.com/collegecompass/api/internal/contact"
	"github.com/collegecompass/api/internal/course"
	"github.com/collegecompass/api/internal/exam"
	httpmiddleware "github.com/collegecompass/api/internal/http/middleware"
	"github.com/collegecompass/api/internal/note"
	"github.com/collegecompass/api/internal/payment"
	"github.com/collegecompass/api/internal/upload"
	"github.com/collegecompass/api/internal/user"
)

type noteWorkflow interface {
	Create(ctx context.Context, draft note.Draft, file *upload.File) (note.Note, error)
	Update(ctx context.Context, id uuid.UUID, draft note.Draft, file *upload.File) (note.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type noteReader interface {
	Get(ctx context.Context, id uuid.UUID) (note.Note, error)
	List(ctx context.Context, filter note.Filter) ([]note.Note, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error)
	ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error)
}

type blogWorkflow interface {
	Create(ctx context.Context, draft blog.Draft, file *upload.File) (blog.Blog, error)
	Update(ctx context.Context, id uuid.UUID, draft blog.Draft, file *upload.File) (blog.Blog, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type blogReader interface {
	Get(ctx context.Context, id uuid.UUID) (blog.Blog, error)
	List(ctx context.Context, filter blog.Filter) ([]blog.Blog, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (blog.Blog, error)
	ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error)
	AddComment(ctx context.Context, id uuid.UUID, comment blog.Comment) (blog.Blog, error)
}

type courseRepository interface {
	Create(ctx context.Context, in course.Input) (course.Course, error)
	Get(ctx context.Context, id uuid.UUID) (course.Course, error)
	Update(ctx context.Context, id uuid.UUID, in course.Input) (course.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter course.Filter) ([]course.Course, error)
	ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error)
}

type examRepository interface {
	Create(ctx context.Context, in exam.Input) (exam.Exam, error)
	Get(ctx context.Context, id uuid.UUID) (exam.Exam, error)
	Update(ctx context.Context, id uuid.UUID, in exam.Input) (exam.Exam, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter exam.Filter) ([]exam.Exam, error)
}

type accountRepository interface {
	ToggleBookmark(ctx context.Context, id, noteID uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]user.User, error)
	Count(ctx context.Context) (int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// pinger is satisfied by pgxpool.Pool; redisPinger by the go-redis client.
type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type mailer interface {
	Send(ctx context.Context, msg contact.Message) error
}

// Stats counts are queried per request; the admin panel is low traffic.
type statsSource interface {
	Stats(ctx context.Context) (map[string]int, error)
}

type Handler struct {
	cfg      *config.Config
	users    *user.Service
	accounts accountRepository
	notes    noteWorkflow
	noteRepo noteReader
	blogs    blogWorkflow
	blogRepo blogReader
	courses  courseRepository
	exams    examRepository
	payments *payment.Service
	mailer   mailer
	stats    statsSource
	db       pinger
	redis    redisPinger

	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// Deps lists everything the router needs, already constructed.
type Deps struct {
	Config   *config.Config
	Users    *user.Service
	Accounts accountRepository
	Notes    noteWorkflow
	NoteRepo noteReader
	Blogs    blogWorkflow
	BlogRepo blogReader
	Courses  courseRepository
	Exams    examRepository
	Payments *payment.Service
	Mailer   mailer
	Stats    statsSource
	DB       pinger
	Redis    redisPinger
}

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		cfg:           d.Config,
		users:         d.Users,
		accounts:      d.Accounts,
		notes:         d.Notes,
		noteRepo:      d.NoteRepo,
		blogs:         d.Blogs,
		blogRepo:      d.BlogRepo,
		courses:       d.Courses,
		exams:         d.Exams,
		payments:      d.Payments,
		mailer:        d.Mailer,
		stats:         d.Stats,
		db:            d.DB,
		redis:         d.Redis,
		publicLimiter: httpmiddleware.NewRateLimiter(d.Config.RateLimitPublic.RequestsPerSecond, d.Config.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(d.Config.RateLimitAuth.RequestsPerSecond, d.Config.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.CORS(d.Config.AllowOrigins))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", h.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/refresh", h.handleRefresh)
		r.Post("/auth/logout", h.handleLogout)

		r.Get("/notes", h.handleListNotes)
		r.Get("/notes/{id}", h.handleGetNote)

		r.Get("/blogs", h.handleListBlogs)
		r.Get("/blogs/{id}", h.handleGetBlog)

		r.Get("/courses", h.handleListCourses)
		r.Get("/courses/{id}", h.handleGetCourse)

		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{id}", h.handleGetExam)

		r.Post("/contact", h.handleContact)
	})

	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(h.users.JWT()))
		r.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		r.Get("/me", h.handleGetProfile)
		r.Put("/me", h.handleUpdateProfile)
		r.Put("/me/password", h.handleChangePassword)
		r.Delete("/me", h.handleDeactivate)

		r.Post("/notes/{id}/download", h.handleDownloadNote)
		r.Post("/notes/{id}/like", h.handleLikeNote)
		r.Post("/notes/{id}/bookmark", h.handleBookmarkNote)

		r.Post("/blogs/{id}/like", h.handleLikeBlog)
		r.Post("/blogs/{id}/comments", h.handleCommentBlog)

		r.Post("/courses/{id}/like", h.handleLikeCourse)
		r.Post("/courses/{id}/enroll", h.handleEnrollFree)

		r.Post("/payments/orders", h.handleCreateOrder)
		r.Post("/payments/verify", h.handleVerifyPayment)
	})

	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(h.users.JWT()))
		r.Use(httpmiddleware.RequireAdmin)

		r.Get("/admin/stats", h.handleAdminStats)
		r.Get("/admin/users", h.handleAdminListUsers)
		r.Put("/admin/users/{id}/active", h.handleAdminSetUserActive)

		// Note writes run the upload workflow and are restricted to
		// administrators; readers only ever list, get and download.
		r.Post("/notes", h.handleCreateNote)
		r.Put("/notes/{id}", h.handleUpdateNote)
		r.Delete("/notes/{id}", h.handleDeleteNote)

		r.Post("/admin/blogs", h.handleCreateBlog)
		r.Put("/admin/blogs/{id}", h.handleUpdateBlog)
		r.Delete("/admin/blogs/{id}", h.handleDeleteBlog)

		r.Post("/admin/courses", h.handleAdminCreateCourse)
		r.Put("/admin/courses/{id}", h.handleAdminUpdateCourse)
		r.Delete("/admin/courses/{id}", h.handleAdminDeleteCourse)

		r.Post("/admin/exams", h.handleAdminCreateExam)
		r.Put("/admin/exams/{id}", h.handleAdminUpdateExam)
		r.Delete("/admin/exams/{id}", h.handleAdminDeleteExam)
	})

	return r
}

// subjectID parses the authenticated subject as a UUID.
func subjectID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
