package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collegecompass/api/internal/auth"
	"github.com/collegecompass/api/internal/blog"
	"github.com/collegecompass/api/internal/config"
	"github.com/collegecompass/api/internal/contact"
	"github.com/collegecompass/api/internal/course"
	"github.com/collegecompass/api/internal/exam"
	"github.com/collegecompass/api/internal/note"
	"github.com/collegecompass/api/internal/payment"
	"github.com/collegecompass/api/internal/storage"
	"github.com/collegecompass/api/internal/upload"
	"github.com/collegecompass/api/internal/user"
)

type stubNoteWorkflow struct {
	created note.Note
	err     error
	calls   int
}

func (s *stubNoteWorkflow) Create(ctx context.Context, draft note.Draft, file *upload.File) (note.Note, error) {
	s.calls++
	if s.err != nil {
		return note.Note{}, s.err
	}
	n := s.created
	n.Title = draft.Title
	return n, nil
}

func (s *stubNoteWorkflow) Update(ctx context.Context, id uuid.UUID, draft note.Draft, file *upload.File) (note.Note, error) {
	if s.err != nil {
		return note.Note{}, s.err
	}
	return s.created, nil
}

func (s *stubNoteWorkflow) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

type stubNoteReader struct {
	notes map[uuid.UUID]note.Note
}

func (s *stubNoteReader) Get(ctx context.Context, id uuid.UUID) (note.Note, error) {
	n, ok := s.notes[id]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	return n, nil
}

func (s *stubNoteReader) List(ctx context.Context, filter note.Filter) ([]note.Note, error) {
	var out []note.Note
	for _, n := range s.notes {
		out = append(out, n)
	}
	return out, nil
}

func (s *stubNoteReader) IncrementDownloads(ctx context.Context, id uuid.UUID) (int, error) {
	n, ok := s.notes[id]
	if !ok {
		return 0, note.ErrNotFound
	}
	n.Downloads++
	s.notes[id] = n
	return n.Downloads, nil
}

func (s *stubNoteReader) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	if _, ok := s.notes[id]; !ok {
		return 0, false, note.ErrNotFound
	}
	return 1, true, nil
}

type stubBlogWorkflow struct{}

func (stubBlogWorkflow) Create(ctx context.Context, draft blog.Draft, file *upload.File) (blog.Blog, error) {
	return blog.Blog{Title: draft.Title}, nil
}
func (stubBlogWorkflow) Update(ctx context.Context, id uuid.UUID, draft blog.Draft, file *upload.File) (blog.Blog, error) {
	return blog.Blog{ID: id, Title: draft.Title}, nil
}
func (stubBlogWorkflow) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubBlogReader struct{}

func (stubBlogReader) Get(ctx context.Context, id uuid.UUID) (blog.Blog, error) {
	return blog.Blog{ID: id}, nil
}
func (stubBlogReader) List(ctx context.Context, filter blog.Filter) ([]blog.Blog, error) {
	return nil, nil
}
func (stubBlogReader) IncrementViews(ctx context.Context, id uuid.UUID) (blog.Blog, error) {
	return blog.Blog{ID: id, Views: 1}, nil
}
func (stubBlogReader) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	return 1, true, nil
}
func (stubBlogReader) AddComment(ctx context.Context, id uuid.UUID, c blog.Comment) (blog.Blog, error) {
	return blog.Blog{ID: id, Comments: []blog.Comment{c}}, nil
}

type stubCourses struct {
	courses map[uuid.UUID]course.Course
	created int
}

func (s *stubCourses) Create(ctx context.Context, in course.Input) (course.Course, error) {
	s.created++
	return course.Course{ID: uuid.New(), Title: in.Title}, nil
}
func (s *stubCourses) Get(ctx context.Context, id uuid.UUID) (course.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}
func (s *stubCourses) Update(ctx context.Context, id uuid.UUID, in course.Input) (course.Course, error) {
	return course.Course{ID: id, Title: in.Title}, nil
}
func (s *stubCourses) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubCourses) List(ctx context.Context, filter course.Filter) ([]course.Course, error) {
	return nil, nil
}
func (s *stubCourses) ToggleLike(ctx context.Context, id, userID uuid.UUID) (int, bool, error) {
	return 1, true, nil
}

type stubExams struct{}

func (stubExams) Create(ctx context.Context, in exam.Input) (exam.Exam, error) {
	return exam.Exam{ID: uuid.New(), Name: in.Name}, nil
}
func (stubExams) Get(ctx context.Context, id uuid.UUID) (exam.Exam, error) {
	return exam.Exam{ID: id}, nil
}
func (stubExams) Update(ctx context.Context, id uuid.UUID, in exam.Input) (exam.Exam, error) {
	return exam.Exam{ID: id, Name: in.Name}, nil
}
func (stubExams) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (stubExams) List(ctx context.Context, filter exam.Filter) ([]exam.Exam, error) {
	return nil, nil
}

type stubAccounts struct{}

func (stubAccounts) ToggleBookmark(ctx context.Context, id, noteID uuid.UUID) (bool, error) {
	return true, nil
}
func (stubAccounts) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	return nil, nil
}
func (stubAccounts) Count(ctx context.Context) (int, error) { return 0, nil }
func (stubAccounts) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func (stubAccounts) Enroll(ctx context.Context, id, courseID uuid.UUID) error { return nil }
func (stubAccounts) HasPurchase(ctx context.Context, id, courseID uuid.UUID) (bool, error) {
	return false, nil
}

type stubMailer struct {
	sent []contact.Message
}

func (s *stubMailer) Send(ctx context.Context, msg contact.Message) error {
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubStats struct{}

func (stubStats) Stats(ctx context.Context) (map[string]int, error) {
	return map[string]int{"users": 1}, nil
}

type stubUserRepo struct{}

func (stubUserRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (stubUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (stubUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, p user.ProfileUpdate) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (stubUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return nil
}
func (stubUserRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error { return nil }
func (stubUserRepo) InsertRefreshToken(ctx context.Context, t user.RefreshToken) error {
	return nil
}
func (stubUserRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (user.RefreshToken, error) {
	return user.RefreshToken{}, user.ErrNotFound
}
func (stubUserRepo) RevokeRefreshToken(ctx context.Context, hash string) error { return nil }
func (stubUserRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	return nil
}

type stubRedis struct{}

func (stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}
func (stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}
func (stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntResult(0, nil)
}
func (stubRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

type stubDB struct{}

func (stubDB) Ping(ctx context.Context) error { return nil }

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	srv      http.Handler
	jwt      *auth.JWTManager
	notes    *stubNoteWorkflow
	noteRepo *stubNoteReader
	mailer   *stubMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwtMgr := auth.NewJWTManager(testSecret, time.Hour)
	users := user.NewService(stubUserRepo{}, stubRedis{}, jwtMgr, time.Hour)

	cfg := &config.Config{
		MaxUploadBytes:  10 << 20,
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	notes := &stubNoteWorkflow{created: note.Note{ID: uuid.New()}}
	noteRepo := &stubNoteReader{notes: map[uuid.UUID]note.Note{}}
	mailer := &stubMailer{}

	courses := &stubCourses{courses: map[uuid.UUID]course.Course{}}
	payments := payment.NewService(courses, stubAccounts{}, stubRedis{}, testSecret)

	srv := NewRouter(Deps{
		Config:   cfg,
		Users:    users,
		Accounts: stubAccounts{},
		Notes:    notes,
		NoteRepo: noteRepo,
		Blogs:    stubBlogWorkflow{},
		BlogRepo: stubBlogReader{},
		Courses:  courses,
		Exams:    stubExams{},
		Payments: payments,
		Mailer:   mailer,
		Stats:    stubStats{},
		DB:       stubDB{},
		Redis:    stubRedis{},
	})

	return &testEnv{srv: srv, jwt: jwtMgr, notes: notes, noteRepo: noteRepo, mailer: mailer}
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken(uuid.NewString(), role)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func multipartNote(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if withFile {
		fw, err := mw.CreateFormFile("file", "algebra.pdf")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("%PDF-1.4")); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func collegeNoteFields() map[string]string {
	return map[string]string{
		"title":       "Signals and Systems",
		"description": "Unit 3 summary",
		"category":    note.CategoryCollege,
		"branch":      "ECE",
		"year":        "2nd Year",
		"subject":     "Signals",
		"tags":        `["signals","ece"]`,
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *ErrorBody) {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *ErrorBody      `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return envelope.Data, envelope.Error
}

func TestCreateNoteRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartNote(t, collegeNoteFields(), true)
	req := httptest.NewRequest(http.MethodPost, "/notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	_, errBody := decodeEnvelope(t, rec)
	if errBody == nil || errBody.Code != "AUTH" {
		t.Fatalf("error = %+v", errBody)
	}
}

func TestCreateNote(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartNote(t, collegeNoteFields(), true)
	req := httptest.NewRequest(http.MethodPost, "/notes", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleAdmin))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var created note.Note
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if created.Title != "Signals and Systems" {
		t.Fatalf("title = %q", created.Title)
	}
}

func TestCreateNoteValidation(t *testing.T) {
	env := newTestEnv(t)

	fields := collegeNoteFields()
	delete(fields, "branch")
	body, contentType := multipartNote(t, fields, true)
	req := httptest.NewRequest(http.MethodPost, "/notes", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleAdmin))
	rec := httptest.NewRecorder()

	// The stub workflow accepts everything, so run the draft through the
	// real coordinator validation path instead.
	env.notes.err = note.NewDraft(note.Draft{
		OwnerID:     uuid.New(),
		Title:       fields["title"],
		Description: fields["description"],
		Category:    fields["category"],
	}).Validate()

	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	_, errBody := decodeEnvelope(t, rec)
	if errBody == nil || errBody.Code != "VALIDATION" {
		t.Fatalf("error = %+v", errBody)
	}
}

func TestCreateNoteStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", upload.ErrDuplicateSubmission, http.StatusConflict, "DUPLICATE"},
		{"store down", storage.ErrUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"upload failed", &upload.UploadError{Err: context.DeadlineExceeded}, http.StatusBadGateway, "UPLOAD_FAILED"},
		{"persist failed", &upload.PersistError{Err: context.DeadlineExceeded}, http.StatusInternalServerError, "PERSISTENCE"},
	}

	for _, tc := range cases {
		env := newTestEnv(t)
		env.notes.err = tc.err

		body, contentType := multipartNote(t, collegeNoteFields(), true)
		req := httptest.NewRequest(http.MethodPost, "/notes", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleAdmin))
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
			continue
		}
		_, errBody := decodeEnvelope(t, rec)
		if errBody == nil || errBody.Code != tc.code {
			t.Errorf("%s: error = %+v, want code %s", tc.name, errBody, tc.code)
		}
	}
}

func TestGetNoteNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/notes/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadNoteCounts(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.noteRepo.notes[id] = note.Note{
		ID:   id,
		Blob: upload.Blob{ExternalID: "x", URL: "https://files.test/x", Name: "a.pdf"},
	}

	// Anonymous downloads are rejected.
	req := httptest.NewRequest(http.MethodPost, "/notes/"+id.String()+"/download", nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous download: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/notes/"+id.String()+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleUser))
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := decodeEnvelope(t, rec)
	var payload struct {
		URL       string `json:"url"`
		Downloads int    `json:"downloads"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.URL != "https://files.test/x" || payload.Downloads != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestNoteWritesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()
	env.noteRepo.notes[id] = note.Note{ID: id, OwnerID: uuid.New()}
	userToken := env.token(t, auth.RoleUser)

	// A regular account is turned away before the workflow runs.
	body, contentType := multipartNote(t, collegeNoteFields(), true)
	req := httptest.NewRequest(http.MethodPost, "/notes", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user create: status = %d, want 403", rec.Code)
	}
	if env.notes.calls != 0 {
		t.Fatal("rejected create must not reach the workflow")
	}

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/notes/"+id.String(), nil)
		req.Header.Set("Authorization", "Bearer "+userToken)
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("user %s: status = %d, want 403", method, rec.Code)
		}
	}

	// An admin deletes fine.
	req = httptest.NewRequest(http.MethodDelete, "/notes/"+id.String(), nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleAdmin))
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)

	payload := strings.NewReader(`{"name":"GATE 2027","description":"National exam"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/exams", payload)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleUser))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: status = %d, want 403", rec.Code)
	}

	payload = strings.NewReader(`{"name":"GATE 2027","description":"National exam"}`)
	req = httptest.NewRequest(http.MethodPost, "/admin/exams", payload)
	req.Header.Set("Authorization", "Bearer "+env.token(t, auth.RoleAdmin))
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create exam: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestContactForm(t *testing.T) {
	env := newTestEnv(t)

	payload := strings.NewReader(`{"name":"Asha","email":"asha@example.com","message":"Hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/contact", payload)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("sent = %d messages", len(env.mailer.sent))
	}

	payload = strings.NewReader(`{"name":"","email":"bad","message":""}`)
	req = httptest.NewRequest(http.MethodPost, "/contact", payload)
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid message: status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}
}
