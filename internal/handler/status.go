package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// StatusHandler reports service health and a conversation's fact-collection
// progress (spec §4.7 state machine / §6), so the client can render a
// progress indicator without parsing the full transcript. Grounded on
// original_source/app/api/v1/status.py's health/agents/conversation-progress
// trio, generalised since this core's agent roster is config-driven (an
// initial agent id plus a wrap-up label) rather than a fixed four-agent set.
type StatusHandler struct {
	Conversations          service.ConversationRepository
	InitialAgentID         string
	WrapupLabel            string
	RemoteAgentConfigured  bool
	Version                string
	Now                    func() time.Time
}

func NewStatusHandler(conversations service.ConversationRepository, initialAgentID, wrapupLabel, version string, remoteAgentConfigured bool) *StatusHandler {
	return &StatusHandler{
		Conversations:         conversations,
		InitialAgentID:        initialAgentID,
		WrapupLabel:           wrapupLabel,
		RemoteAgentConfigured: remoteAgentConfigured,
		Version:               version,
		Now:                   time.Now,
	}
}

// Health handles GET /api/v1/status — a domain-level health probe distinct
// from the infra-level /api/health (teacher's own liveness check).
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "sumii-core",
		"version":   h.Version,
		"timestamp": h.now(),
	})
}

// Agents handles GET /api/v1/status/agents, reporting whether the remote
// agent boundary is configured and which roles are in play.
func (h *StatusHandler) Agents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"remote_agent_configured": h.RemoteAgentConfigured,
		"initial_agent":           h.InitialAgentID,
		"wrapup_label":            h.WrapupLabel,
		"timestamp":               h.now(),
	})
}

func (h *StatusHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type factStatus struct {
	Who   bool `json:"who"`
	What  bool `json:"what"`
	When  bool `json:"when"`
	Where bool `json:"where"`
	Why   bool `json:"why"`
}

type conversationProgress struct {
	ConversationID   string                    `json:"conversationId"`
	Status           model.ConversationStatus  `json:"status"`
	CurrentAgent     string                    `json:"currentAgent"`
	Facts            factStatus                `json:"facts"`
	FactsComplete    bool                      `json:"factsComplete"`
	AnalysisDone     bool                      `json:"analysisDone"`
	SummaryGenerated bool                      `json:"summaryGenerated"`
	WrapupConfirmed  bool                      `json:"wrapupConfirmed"`
}

// ConversationStatus handles GET /api/v1/status/conversations/{id}.
func (h *StatusHandler) ConversationStatus(w http.ResponseWriter, r *http.Request) {
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

	conv, err := h.Conversations.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if conv.UserID != userID {
		forbidden(w, "conversation belongs to another user")
		return
	}

	progress := conversationProgress{
		ConversationID: conv.ID,
		Status:         conv.Status,
		CurrentAgent:   conv.CurrentAgent,
		Facts: factStatus{
			Who:   conv.Who.Collected,
			What:  conv.What.Collected,
			When:  conv.When.Collected,
			Where: conv.Where.Collected,
			Why:   conv.Why.Collected,
		},
		FactsComplete:    conv.FactsComplete(),
		AnalysisDone:     conv.AnalysisDone,
		SummaryGenerated: conv.SummaryGenerated,
		WrapupConfirmed:  conv.WrapupConfirmed,
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: progress})
}
