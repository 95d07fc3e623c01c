package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/collegecompass/api/internal/course"
)

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := course.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	courses, err := h.courses.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}
	WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid course id", nil)
		return
	}

	c, err := h.courses.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleLikeCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid course id", nil)
		return
	}

	likes, liked, err := h.courses.ToggleLike(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"likes": likes, "liked": liked})
}

func (h *Handler) decodeCourseInput(w http.ResponseWriter, r *http.Request) (course.Input, bool) {
	var in course.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return course.Input{}, false
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		writeDomainError(w, err)
		return course.Input{}, false
	}
	return in, true
}

func (h *Handler) handleAdminCreateCourse(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCourseInput(w, r)
	if !ok {
		return
	}

	c, err := h.courses.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleAdminUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid course id", nil)
		return
	}
	in, ok := h.decodeCourseInput(w, r)
	if !ok {
		return
	}

	c, err := h.courses.Update(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAdminDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid course id", nil)
		return
	}

	if err := h.courses.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
