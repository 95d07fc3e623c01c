package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/collegecompass/api/internal/payment"
	"github.com/collegecompass/api/internal/storage"
	"github.com/collegecompass/api/internal/upload"
	"github.com/collegecompass/api/internal/user"
)

// SuccessEnvelope standardizes responses carrying data.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope standardizes error responses.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody describes normalized failures.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError writes an error envelope and keeps the format consistent.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeDomainError maps domain failures onto the shared status and code
// taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", verr.Reason, map[string]string{"field": verr.Field})
		return
	}

	switch {
	case errors.Is(err, upload.ErrDuplicateSubmission):
		WriteError(w, http.StatusConflict, "DUPLICATE", "an identical submission was made moments ago", nil)
		return
	case errors.Is(err, upload.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "record not found", nil)
		return
	case errors.Is(err, storage.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "file storage is not available", nil)
		return
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrRefreshInvalid):
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid credentials", nil)
		return
	case errors.Is(err, user.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "account disabled", nil)
		return
	case errors.Is(err, user.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "DUPLICATE", "email already registered", nil)
		return
	case errors.Is(err, payment.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "order not found or expired", nil)
		return
	case errors.Is(err, payment.ErrSignatureMismatch), errors.Is(err, payment.ErrOrderMismatch):
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payment could not be verified", nil)
		return
	case errors.Is(err, payment.ErrAlreadyEnrolled):
		WriteError(w, http.StatusConflict, "DUPLICATE", "course already purchased", nil)
		return
	case errors.Is(err, payment.ErrCourseFree), errors.Is(err, payment.ErrCourseNotFree):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	var uerr *upload.UploadError
	if errors.As(err, &uerr) {
		log.Error().Err(err).Msg("blob upload failed")
		WriteError(w, http.StatusBadGateway, "UPLOAD_FAILED", "file could not be uploaded", nil)
		return
	}

	var perr *upload.PersistError
	if errors.As(err, &perr) {
		log.Error().Err(err).Bool("orphaned_blob", perr.CleanupFailed).Msg("record write failed")
		WriteError(w, http.StatusInternalServerError, "PERSISTENCE", "record could not be saved", nil)
		return
	}

	log.Error().Err(err).Msg("unhandled error")
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
