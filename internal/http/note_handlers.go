package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/collegecompass/api/internal/note"
	"github.com/collegecompass/api/internal/upload"
)

func (h *Handler) noteDraftFromForm(r *http.Request, owner uuid.UUID) (note.Draft, error) {
	tags, err := upload.ParseTags(r.MultipartForm.Value["tags"])
	if err != nil {
		return note.Draft{}, err
	}

	return note.NewDraft(note.Draft{
		OwnerID:     owner,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Branch:      r.FormValue("branch"),
		Year:        r.FormValue("year"),
		Subject:     r.FormValue("subject"),
		ExamName:    r.FormValue("exam_name"),
		Tags:        tags,
	}), nil
}

func (h *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request) {
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

	draft, err := h.noteDraftFromForm(r, owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.notes.Create(r.Context(), draft, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	if _, ok := subjectID(r); !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	// The original uploader stays on record across edits.
	existing, err := h.noteRepo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	file, err := parseUploadForm(r, h.cfg.MaxUploadBytes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	draft, err := h.noteDraftFromForm(r, existing.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.notes.Update(r.Context(), id, draft, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if _, ok := subjectID(r); !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	if err := h.notes.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := note.Filter{
		Category: q.Get("category"),
		Branch:   q.Get("branch"),
		Year:     q.Get("year"),
		Subject:  q.Get("subject"),
		ExamName: q.Get("exam_name"),
		Search:   q.Get("q"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	if ownerStr := q.Get("owner"); ownerStr != "" {
		owner, err := uuid.Parse(ownerStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid owner id", nil)
			return
		}
		filter.OwnerID = &owner
	}

	notes, err := h.noteRepo.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if notes == nil {
		notes = []note.Note{}
	}
	WriteJSON(w, http.StatusOK, notes)
}

func (h *Handler) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	n, err := h.noteRepo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, n)
}

// handleDownloadNote counts the download and hands back the blob URL. The
// client fetches the file straight from the store.
func (h *Handler) handleDownloadNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	n, err := h.noteRepo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	downloads, err := h.noteRepo.IncrementDownloads(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"url":       n.Blob.URL,
		"file_name": n.Blob.Name,
		"downloads": downloads,
	})
}

func (h *Handler) handleLikeNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	likes, liked, err := h.noteRepo.ToggleLike(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"likes": likes, "liked": liked})
}

func (h *Handler) handleBookmarkNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid note id", nil)
		return
	}

	// Make sure the note exists before touching the user's list.
	if _, err := h.noteRepo.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	bookmarked, err := h.accounts.ToggleBookmark(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}
