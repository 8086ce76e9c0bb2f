package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// SummaryHandler exposes the artifact pipeline over REST (spec §4.5/§6):
// fetch, list, manual generate/regenerate.
type SummaryHandler struct {
	Summaries     *service.SummaryService
	Repo          service.SummaryRepository
	Conversations service.ConversationRepository
}

func NewSummaryHandler(summaries *service.SummaryService, repo service.SummaryRepository, conversations service.ConversationRepository) *SummaryHandler {
	return &SummaryHandler{Summaries: summaries, Repo: repo, Conversations: conversations}
}

// Get handles GET /api/v1/summaries/{id}.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid summary id"})
		return
	}

	summary, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if summary.UserID != userID {
		forbidden(w, "summary belongs to another user")
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: summary})
}

// List handles GET /api/v1/summaries?limit=&offset=.
func (h *SummaryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	limit, offset := parsePagination(r)
	summaries, err := h.Repo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: summaries})
}

type generateSummaryRequest struct {
	ConversationID string `json:"conversationId"`
}

// Generate handles POST /api/v1/summaries — manual trigger for the
// artifact pipeline (§4.5), idempotent.
func (h *SummaryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var req generateSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}
	if !validateUUID(req.ConversationID) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversationId"})
		return
	}

	conv, err := h.Conversations.GetByID(r.Context(), req.ConversationID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conv.UserID != userID {
		forbidden(w, "conversation belongs to another user")
		return
	}

	summary, err := h.Summaries.Generate(r.Context(), conv, nil)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{Success: true, Data: summary})
}

// Regenerate handles POST /api/v1/summaries/{id}/regenerate (§4.5
// "Regeneration").
func (h *SummaryHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid summary id"})
		return
	}

	summary, ok := h.ownedSummary(w, r, id)
	if !ok {
		return
	}

	conv, err := h.Conversations.GetByID(r.Context(), summary.ConversationID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	updated, err := h.Summaries.Regenerate(r.Context(), conv, nil)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
}

func (h *SummaryHandler) ownedSummary(w http.ResponseWriter, r *http.Request, id string) (*model.Summary, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return nil, false
	}
	summary, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return nil, false
	}
	if summary.UserID != userID {
		forbidden(w, "summary belongs to another user")
		return nil, false
	}
	return summary, true
}

// PDF handles GET /api/v1/summaries/{id}/pdf, returning the signed download
// URL spec §6 names (`{pdf_url}`).
func (h *SummaryHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid summary id"})
		return
	}
	summary, ok := h.ownedSummary(w, r, id)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"pdf_url": summary.PDFURL}})
}

// ByConversation handles GET /api/v1/summaries/conversation/{id}.
func (h *SummaryHandler) ByConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}
	convID := chi.URLParam(r, "id")
	if !validateUUID(convID) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid conversation id"})
		return
	}
	summary, err := h.Repo.GetByConversationID(r.Context(), convID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if summary.UserID != userID {
		forbidden(w, "summary belongs to another user")
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: summary})
}

type summaryPatchRequest struct {
	LegalArea    *model.LegalArea    `json:"legalArea,omitempty"`
	CaseStrength *model.CaseStrength `json:"caseStrength,omitempty"`
	Urgency      *model.Urgency      `json:"urgency,omitempty"`
}

// Patch handles PATCH /api/v1/summaries/{id}, updating the classification
// fields a client may correct after generation (spec §6; metadata fields
// named in original_source's SummaryUpdate schema).
func (h *SummaryHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid summary id"})
		return
	}
	if _, ok := h.ownedSummary(w, r, id); !ok {
		return
	}

	var req summaryPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}
	if err := h.Repo.UpdateMetadata(r.Context(), id, req.LegalArea, req.CaseStrength, req.Urgency); err != nil {
		writeAPIError(w, err)
		return
	}

	summary, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: summary})
}

// Delete handles DELETE /api/v1/summaries/{id} (GDPR-style removal, spec §6).
func (h *SummaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid summary id"})
		return
	}
	summary, ok := h.ownedSummary(w, r, id)
	if !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}
	_ = summary // ownership already verified; blob cleanup is best-effort and out of scope here
	w.WriteHeader(http.StatusNoContent)
}
