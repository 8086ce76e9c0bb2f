package handler

import (
	"net/http"
	"time"

	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/service"
)

// SyncHandler is a thin HTTP wrapper over service.SyncService (spec §4.4/§6).
type SyncHandler struct {
	Sync *service.SyncService
}

func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{Sync: sync}
}

// Delta handles GET /api/v1/sync?last_synced_at=<RFC3339>. Omitting the
// parameter (or an empty value) requests a full sync, per §4.4 and §8
// scenario 6.
func (h *SyncHandler) Delta(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
		return
	}

	var watermark time.Time
	if since := r.URL.Query().Get("last_synced_at"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid last_synced_at parameter"})
			return
		}
		watermark = parsed
	}

	result, err := h.Sync.Delta(r.Context(), userID, watermark)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}
