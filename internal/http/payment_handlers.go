package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type orderRequest struct {
	CourseID uuid.UUID `json:"course_id"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourseID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "course_id is required", nil)
		return
	}

	order, err := h.payments.CreateOrder(r.Context(), userID, req.CourseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, order)
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "order_id, payment_id and signature are required", nil)
		return
	}

	if err := h.payments.Verify(r.Context(), userID, req.OrderID, req.PaymentID, req.Signature); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"enrolled": true})
}

func (h *Handler) handleEnrollFree(w http.ResponseWriter, r *http.Request) {
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

	if err := h.payments.EnrollFree(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"enrolled": true})
}
