package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/blog"
	"github.com/collegecompass/api/internal/upload"
)

func (h *Handler) blogDraftFromForm(r *http.Request, owner uuid.UUID) (blog.Draft, error) {
	tags, err := upload.ParseTags(r.MultipartForm.Value["tags"])
	if err != nil {
		return blog.Draft{}, err
	}

	return blog.NewDraft(blog.Draft{
		OwnerID:     owner,
		Title:       r.FormValue("title"),
		Summary:     r.FormValue("summary"),
		Content:     r.FormValue("content"),
		Author:      r.FormValue("author"),
		Category:    r.FormValue("category"),
		Tags:        tags,
		PublishDate: r.FormValue("publish_date"),
	}), nil
}

func (h *Handler) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	owner, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	file, err := parseUploadForm(r, h.cfg.MaxUploadBytes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	draft, err := h.blogDraftFromForm(r, owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.blogs.Create(r.Context(), draft, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid blog id", nil)
		return
	}

	existing, err := h.blogRepo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	file, err := parseUploadForm(r, h.cfg.MaxUploadBytes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	draft, err := h.blogDraftFromForm(r, existing.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.blogs.Update(r.Context(), id, draft, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid blog id", nil)
		return
	}

	if err := h.blogs.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := blog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	blogs, err := h.blogRepo.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if blogs == nil {
		blogs = []blog.Blog{}
	}
	WriteJSON(w, http.StatusOK, blogs)
}

// handleGetBlog counts the view and returns the refreshed post.
func (h *Handler) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid blog id", nil)
		return
	}

	b, err := h.blogRepo.IncrementViews(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleLikeBlog(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid blog id", nil)
		return
	}

	likes, liked, err := h.blogRepo.ToggleLike(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"likes": likes, "liked": liked})
}

type commentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

func (h *Handler) handleCommentBlog(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid blog id", nil)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "comment body is required", map[string]string{"field": "body"})
		return
	}

	b, err := h.blogRepo.AddComment(r.Context(), id, blog.Comment{
		UserID: userID,
		Author: strings.TrimSpace(req.Author),
		Body:   strings.TrimSpace(req.Body),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, b)
}
