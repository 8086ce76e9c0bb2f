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

// AnwaltHandler exposes the lawyer directory bridge (spec §4.3/§6): search,
// connect (handoff), and the user's connection list.
type AnwaltHandler struct {
	Anwalt            *service.AnwaltService
	LawyerConnections service.LawyerConnectionRepository
	Conversations      service.ConversationRepository
	Summaries          service.SummaryRepository
}

func NewAnwaltHandler(anwalt *service.AnwaltService, connections service.LawyerConnectionRepository, conversations service.ConversationRepository, summaries service.SummaryRepository) *AnwaltHandler {
	return &AnwaltHandler{Anwalt: anwalt, LawyerConnections: connections, Conversations: conversations, Summaries: summaries}
}

// Search handles GET /api/v1/anwalt/search?legalArea=&lat=&lon=.
func (h *AnwaltHandler) Search(w http.ResponseWriter, r *http.Request) {
	if middleware.UserIDFromContext(r.Context()) == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	legalArea := r.URL.Query().Get("legalArea")
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid lat"})
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid lon"})
		return
	}

	results, err := h.Anwalt.SearchLawyers(r.Context(), legalArea, lat, lon)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: results})
}

type connectLawyerRequest struct {
	ConversationID string `json:"conversationId"`
	LawyerID       int64  `json:"lawyerId"`
	LawyerName     string `json:"lawyerName"`
	UserMessage    string `json:"userMessage,omitempty"`
}

// Connect handles POST /api/v1/anwalt/connect — creates the
// LawyerConnection row and forwards the case to the directory (§4.3 steps 1-4).
func (h *AnwaltHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var req connectLawyerRequest
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

	var summaryID *string
	summaryURL := ""
	if summary, err := h.Summaries.GetByConversationID(r.Context(), conv.ID); err == nil {
		summaryID = &summary.ID
		summaryURL = summary.PDFURL
	}

	conn := &model.LawyerConnection{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: conv.ID,
		SummaryID:      summaryID,
		LawyerID:       req.LawyerID,
		LawyerName:     req.LawyerName,
		Status:         model.ConnectionPending,
	}
	if req.UserMessage != "" {
		conn.UserMessage = &req.UserMessage
	}
	if err := h.LawyerConnections.Create(r.Context(), conn); err != nil {
		writeAPIError(w, err)
		return
	}

	// A handoff failure leaves the connection pending for later retry
	// (spec §7); it does not fail this request. The directory's own
	// eventual response arrives through the lawyer-response webhook.
	_, _ = h.Anwalt.Handoff(r.Context(), req.LawyerID, conv.ID, summaryURL, req.UserMessage)

	respondJSON(w, http.StatusCreated, envelope{Success: true, Data: conn})
}

// List handles GET /api/v1/anwalt/connections.
func (h *AnwaltHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	connections, err := h.LawyerConnections.ListByUser(r.Context(), userID)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: connections})
}

type updateConnectionRequest struct {
	Status          model.ConnectionStatus `json:"status"`
	RejectionReason *string                `json:"rejectionReason,omitempty"`
}

// UpdateStatus handles PATCH /api/v1/anwalt/connections/{id} — lets the
// client cancel or reject a pending connection.
func (h *AnwaltHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	id := chi.URLParam(r, "id")
	if !validateUUID(id) {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid connection id"})
		return
	}

	conn, err := h.LawyerConnections.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conn.UserID != userID {
		forbidden(w, "connection belongs to another user")
		return
	}

	var req updateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.LawyerConnections.UpdateStatus(r.Context(), id, req.Status, req.RejectionReason); err != nil {
		writeAPIError(w, err)
		return
	}

	updated, err := h.LawyerConnections.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
}
