package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newStatusTestHandler(convs ...*testConvStub) *StatusHandler {
	repo := newFakeConvRepo()
	for _, c := range convs {
		repo.byID[c.id] = newTestConversation(c.id, c.userID)
	}
	h := NewStatusHandler(repo, "intake-agent", "wrapup", "0.1.0", true)
	h.Now = func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	return h
}

type testConvStub struct{ id, userID string }

func TestStatusHandler_Health(t *testing.T) {
	h := newStatusTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("expected status healthy, got %+v", body)
	}
	if body["version"] != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %+v", body)
	}
}

func TestStatusHandler_Agents(t *testing.T) {
	h := newStatusTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/agents", nil)
	rec := httptest.NewRecorder()
	h.Agents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["remote_agent_configured"] != true {
		t.Fatalf("expected remote_agent_configured true, got %+v", body)
	}
	if body["initial_agent"] != "intake-agent" {
		t.Fatalf("expected initial_agent intake-agent, got %+v", body)
	}
	if body["wrapup_label"] != "wrapup" {
		t.Fatalf("expected wrapup_label wrapup, got %+v", body)
	}
}

func TestStatusHandler_ConversationStatus(t *testing.T) {
	convID := "11111111-1111-1111-1111-111111111111"
	userID := "33333333-3333-3333-3333-333333333333"
	h := newStatusTestHandler(&testConvStub{id: convID, userID: userID})

	req := withChiParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/status/conversations/"+convID, nil), userID), "id", convID)
	rec := httptest.NewRecorder()
	h.ConversationStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data := resp.Data.(map[string]interface{})
	if data["conversationId"] != convID {
		t.Fatalf("unexpected conversationId: %+v", data)
	}
}

func TestStatusHandler_ConversationStatus_ForeignUserForbidden(t *testing.T) {
	convID := "11111111-1111-1111-1111-111111111111"
	h := newStatusTestHandler(&testConvStub{id: convID, userID: "33333333-3333-3333-3333-333333333333"})

	req := withChiParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/status/conversations/"+convID, nil), "44444444-4444-4444-4444-444444444444"), "id", convID)
	rec := httptest.NewRecorder()
	h.ConversationStatus(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d", rec.Code)
	}
}
