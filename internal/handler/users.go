package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/service"
)

// UserHandler exposes the authenticated user's own profile and push-token
// registration (spec §6).
type UserHandler struct {
	Repo service.UserRepository
}

func NewUserHandler(repo service.UserRepository) *UserHandler {
	return &UserHandler{Repo: repo}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	user, err := h.Repo.GetByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}

type updatePushTokenRequest struct {
	Token string `json:"token"`
}

// UpdatePushToken handles PUT /api/v1/users/push-token.
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var req updatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "token is required"})
		return
	}

	if err := h.Repo.UpdatePushToken(r.Context(), userID, req.Token); err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true})
}

type updateProfileRequest struct {
	Timezone  *string  `json:"timezone,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UpdateProfile handles PATCH /api/v1/users/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.Repo.UpdateProfile(r.Context(), userID, req.Timezone, req.Latitude, req.Longitude); err != nil {
		writeAPIError(w, err)
		return
	}

	user, err := h.Repo.GetByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: user})
}
