package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/collegecompass/api/internal/exam"
)

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := exam.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	exams, err := h.exams.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	WriteJSON(w, http.StatusOK, exams)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid exam id", nil)
		return
	}

	e, err := h.exams.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) decodeExamInput(w http.ResponseWriter, r *http.Request) (exam.Input, bool) {
	var in exam.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return exam.Input{}, false
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		writeDomainError(w, err)
		return exam.Input{}, false
	}
	return in, true
}

func (h *Handler) handleAdminCreateExam(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeExamInput(w, r)
	if !ok {
		return
	}

	e, err := h.exams.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleAdminUpdateExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid exam id", nil)
		return
	}
	in, ok := h.decodeExamInput(w, r)
	if !ok {
		return
	}

	e, err := h.exams.Update(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleAdminDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid exam id", nil)
		return
	}

	if err := h.exams.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
