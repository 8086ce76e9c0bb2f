package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// EventsHandler implements the one-way notification push channel (spec
// §4.2), grounded on original_source/app/api/v1/events.py's poll-and-yield
// generator and the teacher's chat.go SSE flush discipline.
type EventsHandler struct {
	Notifications service.NotificationRepository
	Auth          *service.AuthService
	PollInterval  time.Duration
}

func NewEventsHandler(notifications service.NotificationRepository, auth *service.AuthService) *EventsHandler {
	return &EventsHandler{Notifications: notifications, Auth: auth, PollInterval: time.Second}
}

// Subscribe handles GET /api/v1/events/subscribe?token=... . The token travels as a
// query parameter for the same reason as the chat websocket: an EventSource
// client cannot set an Authorization header.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.Auth.VerifyToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			unread, err := h.Notifications.ListUnread(ctx, userID)
			if err != nil {
				sendSSEEvent(w, "error", map[string]string{"error": "internal error"})
				flusher.Flush()
				return
			}
			for _, n := range unread {
				sendSSEEvent(w, string(n.Type), notificationEventPayload{
					Type: n.Type, Title: n.Title, Message: n.Message, Data: n.Data,
				})
				flusher.Flush()
				// Marked read after the flush so a client that disconnects
				// mid-delivery sees the notification again on reconnect
				// (original_source/app/api/v1/events.py's at-least-once rule).
				if err := h.Notifications.MarkRead(ctx, n.ID); err != nil {
					sendSSEEvent(w, "error", map[string]string{"error": "internal error"})
					flusher.Flush()
					return
				}
			}
		}
	}
}

// notificationEventPayload is the exact `data:` shape spec §4.2 names:
// {type, title, message, data} — never the full Notification row (no id,
// read state, or timestamps leak into the wire event).
type notificationEventPayload struct {
	Type    model.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data,omitempty"`
}

func sendSSEEvent(w http.ResponseWriter, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
