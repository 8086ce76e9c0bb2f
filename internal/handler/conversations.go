package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// ConversationHandler exposes conversation CRUD (spec §6), shaped after
// DocumentHandler's envelope/ownership idiom.
type ConversationHandler struct {
	Repo         service.ConversationRepository
	Messages     service.MessageRepository
	Orchestrator *service.ConversationOrchestrator
}

func NewConversationHandler(repo service.ConversationRepository, messages service.MessageRepository, orchestrator *service.ConversationOrchestrator) *ConversationHandler {
	return &ConversationHandler{Repo: repo, Messages: messages, Orchestrator: orchestrator}
}

// conversationWithMessages is the §6 "GET /{id} with messages" response
// shape: the conversation row plus its full ordered message history.
type conversationWithMessages struct {
	*model.Conversation
	Messages []model.Message `json:"messages"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}
	if req.Title == "" {
		req.Title = "Neuer Fall"
	}

	conv := &model.Conversation{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        req.Title,
		Status:       model.ConversationActive,
		CurrentAgent: h.Orchestrator.DetermineInitialAgent(),
	}
	if err := h.Repo.Create(r.Context(), conv); err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{Success: true, Data: conv})
}

// Get handles GET /api/v1/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversation id"})
		return
	}

	conv, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conv.UserID != userID {
		forbidden(w, "conversation belongs to another user")
		return
	}

	messages, err := h.Messages.ListByConversation(r.Context(), conv.ID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: conversationWithMessages{Conversation: conv, Messages: messages}})
}

// List handles GET /api/v1/conversations?limit=&offset=.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	limit, offset := parsePagination(r)
	convs, err := h.Repo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: convs})
}

type updateConversationRequest struct {
	Title  *string                   `json:"title,omitempty"`
	Status *model.ConversationStatus `json:"status,omitempty"`
}

// Update handles PATCH /api/v1/conversations/{id} (title rename, archive).
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversation id"})
		return
	}

	conv, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conv.UserID != userID {
		forbidden(w, "conversation belongs to another user")
		return
	}

	var req updateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.Repo.UpdatePatch(r.Context(), id, req.Title, req.Status); err != nil {
		writeAPIError(w, err)
		return
	}

	updated, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
}

// Delete handles DELETE /api/v1/conversations/{id}.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversation id"})
		return
	}

	conv, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conv.UserID != userID {
		forbidden(w, "conversation belongs to another user")
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true})
}

// parsePagination reads limit/offset query params with the spec's
// defaults (limit 20); a limit outside 1..100 or a negative offset is
// ignored and the default is used.
func parsePagination(r *http.Request) (int, int) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
