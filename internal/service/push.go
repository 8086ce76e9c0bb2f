package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PushService delivers best-effort push notifications via Expo's HTTP push
// API. original_source/app/services/push_service.py shows the source
// system uses Expo, not Firebase Cloud Messaging — grounding the decision
// to drop firebase.google.com/go/v4 entirely (DESIGN.md) rather than
// repurpose it here.
type PushService struct {
	httpClient *http.Client
	endpoint   string
}

func NewPushService() *PushService {
	return &PushService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://exp.host/--/api/v2/push/send",
	}
}

type expoPushMessage struct {
	To    string      `json:"to"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Sound string      `json:"sound"`
	Data  interface{} `json:"data,omitempty"`
}

// Send posts one push message. A token without the ExponentPushToken[
// prefix is rejected before any request is made, and a 4xx/5xx reply from
// Expo is returned as an error. No code in this core calls Send; creating a
// Notification does not send a push message.
func (s *PushService) Send(ctx context.Context, token, title, body string, data interface{}) error {
	if !strings.HasPrefix(token, "ExponentPushToken[") {
		return fmt.Errorf("service.PushService.Send: malformed push token")
	}

	payload, err := json.Marshal(expoPushMessage{To: token, Title: title, Body: body, Sound: "default", Data: data})
	if err != nil {
		return fmt.Errorf("service.PushService.Send: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("service.PushService.Send: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("service.PushService.Send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("service.PushService.Send: expo responded %d", resp.StatusCode)
	}
	return nil
}
