package http

import (
	"encoding/json"
	"net/http"

	"github.com/collegecompass/api/internal/contact"
)

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	var msg contact.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	if err := h.mailer.Send(r.Context(), msg); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}
