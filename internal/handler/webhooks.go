package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

// WebhookDeps bundles the repositories and services the lawyer-response
// webhook needs, grounded on the teacher's internal/handler/vonage.go
// VonageDeps shape.
type WebhookDeps struct {
	Users             service.UserRepository
	Conversations     service.ConversationRepository
	LawyerConnections service.LawyerConnectionRepository
	Notifications     service.NotificationRepository
	Email             service.EmailSender
	FrontendBaseURL   string
	SharedSecret      string
}

// lawyerResponseWebhook mirrors the wire shape spec §4.3 step 1 names
// exactly (snake_case, directory-facing). case_id is accepted as either a
// JSON number or string since external systems are inconsistent about it.
type lawyerResponseWebhook struct {
	CaseID            json.RawMessage `json:"case_id"`
	ConversationID    string          `json:"conversation_id"`
	UserID            string          `json:"user_id"`
	LawyerID          int64           `json:"lawyer_id"`
	LawyerName        string          `json:"lawyer_name"`
	ResponseText      string          `json:"response_text"`
	ResponseTimestamp time.Time       `json:"response_timestamp"`
}

func (p *lawyerResponseWebhook) caseIDString() string {
	if len(p.CaseID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.CaseID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(p.CaseID, &n); err == nil {
		return n.String()
	}
	return ""
}

// LawyerResponse handles POST /api/v1/webhooks/lawyer-response (spec §4.3),
// transliterated from original_source/app/api/v1/webhooks.py's
// lawyer_response_webhook.
func LawyerResponse(deps WebhookDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !verifyWebhookSharedSecret(r, deps.SharedSecret) {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "error": "unauthorized"})
			return
		}

		var payload lawyerResponseWebhook
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "invalid request body"})
			return
		}

		ctx := r.Context()

		user, err := deps.Users.GetByID(ctx, payload.UserID)
		if err != nil {
			writeAPIError(w, apierr.New(apierr.KindNotFound, "user not found"))
			return
		}

		conv, err := deps.Conversations.GetByID(ctx, payload.ConversationID)
		if err != nil {
			writeAPIError(w, apierr.New(apierr.KindNotFound, "conversation not found"))
			return
		}
		if conv.UserID != user.ID {
			writeAPIError(w, apierr.New(apierr.KindAuthorization, "conversation does not belong to user"))
			return
		}

		caseID := payload.caseIDString()
		responseAt := payload.ResponseTimestamp
		if responseAt.IsZero() {
			responseAt = time.Now()
		}

		if conn, err := deps.LawyerConnections.GetByConversationAndLawyer(ctx, conv.ID, payload.LawyerID); err == nil {
			if err := deps.LawyerConnections.AcceptFromWebhook(ctx, conn.ID, payload.LawyerName, responseAt, caseID); err != nil {
				writeAPIError(w, err)
				return
			}
		}

		notification := &model.Notification{
			ID:      uuid.NewString(),
			UserID:  user.ID,
			Type:    model.NotificationLawyerResponse,
			Title:   "Antwort von Ihrem Anwalt",
			Message: fmt.Sprintf("%s hat auf Ihre Anfrage geantwortet.", payload.LawyerName),
		}
		data, _ := json.Marshal(map[string]interface{}{
			"case_id":            json.RawMessage(payload.CaseID),
			"conversation_id":    conv.ID,
			"lawyer_id":          payload.LawyerID,
			"lawyer_name":        payload.LawyerName,
			"response_text":      payload.ResponseText,
			"response_timestamp": responseAt,
		})
		notification.Data = data
		if err := deps.Notifications.Create(ctx, notification); err != nil {
			writeAPIError(w, err)
			return
		}

		emailSent := true
		caseSummaryURL := fmt.Sprintf("%s/conversations/%s", deps.FrontendBaseURL, conv.ID)
		emailCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := deps.Email.SendLawyerResponseEmail(emailCtx, user.Email, payload.LawyerName, caseSummaryURL); err != nil {
			emailSent = false
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":          "success",
			"notification_id": notification.ID,
			"email_sent":      emailSent,
		})
	}
}

// verifyWebhookSharedSecret implements spec §4.3's authentication rule: an
// empty configured secret (development) accepts any presented value;
// otherwise the comparison is constant-time.
func verifyWebhookSharedSecret(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	got := r.Header.Get("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
