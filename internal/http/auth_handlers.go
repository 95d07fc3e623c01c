package http

import (
	"encoding/json"
	"net/http"

	"github.com/collegecompass/api/internal/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    string       `json:"refresh_expires_at"`
	Profile      user.Profile `json:"profile"`
}

func sessionPayload(res *user.LoginResult) sessionResponse {
	return sessionResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.RefreshExpiry.Format("2006-01-02T15:04:05Z07:00"),
		Profile:      res.Profile,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	res, err := h.users.Register(r.Context(), user.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sessionPayload(res))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionPayload(res))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	res, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionPayload(res))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	if err := h.users.Logout(r.Context(), req.RefreshToken); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	profile, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

type profileUpdateRequest struct {
	Name    string `json:"name"`
	College string `json:"college"`
	Branch  string `json:"branch"`
	Year    string `json:"year"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), id, user.ProfileUpdate{
		Name:    req.Name,
		College: req.College,
		Branch:  req.Branch,
		Year:    req.Year,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return
	}

	if err := h.users.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	if err := h.users.Deactivate(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deactivated": true})
}
