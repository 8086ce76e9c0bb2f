package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
	"github.com/sumii/sumii-core/internal/service"
)

type anwaltFakeConnRepo struct {
	byID   map[string]*model.LawyerConnection
	status map[string]model.ConnectionStatus
}

func newAnwaltFakeConnRepo() *anwaltFakeConnRepo {
	return &anwaltFakeConnRepo{byID: map[string]*model.LawyerConnection{}, status: map[string]model.ConnectionStatus{}}
}
func (f *anwaltFakeConnRepo) Create(ctx context.Context, c *model.LawyerConnection) error {
	f.byID[c.ID] = c
	return nil
}
func (f *anwaltFakeConnRepo) GetByID(ctx context.Context, id string) (*model.LawyerConnection, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, "lawyer connection not found")
	}
	return c, nil
}
func (f *anwaltFakeConnRepo) GetByConversationAndLawyer(ctx context.Context, conversationID string, lawyerID int64) (*model.LawyerConnection, error) {
	return nil, apierr.New(apierr.KindNotFound, "lawyer connection not found")
}
func (f *anwaltFakeConnRepo) ListByUser(ctx context.Context, userID string) ([]model.LawyerConnection, error) {
	var out []model.LawyerConnection
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}
func (f *anwaltFakeConnRepo) AcceptFromWebhook(ctx context.Context, id, lawyerName string, responseAt time.Time, caseID string) error {
	return nil
}
func (f *anwaltFakeConnRepo) UpdateStatus(ctx context.Context, id string, status model.ConnectionStatus, rejectionReason *string) error {
	f.status[id] = status
	if c, ok := f.byID[id]; ok {
		c.Status = status
	}
	return nil
}
func (f *anwaltFakeConnRepo) ClearSummaryReference(ctx context.Context, summaryID string) error {
	return nil
}
func (f *anwaltFakeConnRepo) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.LawyerConnection, error) {
	return nil, nil
}

func newTestAnwaltHandler(directoryURL string, convs []*model.Conversation, conns *anwaltFakeConnRepo) *AnwaltHandler {
	convRepo := newFakeConvRepo(convs...)
	anwalt := service.NewAnwaltService(directoryURL, "secret")
	return NewAnwaltHandler(anwalt, conns, convRepo, newFakeSummaryRepo())
}

func TestAnwaltHandler_Search_InvalidLat(t *testing.T) {
	h := newTestAnwaltHandler("http://directory.invalid", nil, newAnwaltFakeConnRepo())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/anwalt/search?lat=notanumber&lon=13.4", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid lat, got %d", rec.Code)
	}
}

func TestAnwaltHandler_Search_Success(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "name": "Dr. Müller", "specialty": "Mietrecht", "distanceKm": 2.5, "rating": 4.8},
		})
	}))
	defer directory.Close()

	h := newTestAnwaltHandler(directory.URL, nil, newAnwaltFakeConnRepo())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/anwalt/search?legalArea=Mietrecht&lat=52.5&lon=13.4", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnwaltHandler_Connect_OwnershipForbidden(t *testing.T) {
	convID := "11111111-1111-1111-1111-111111111111"
	conv := newTestConversation(convID, "owner")
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer directory.Close()
	h := newTestAnwaltHandler(directory.URL, []*model.Conversation{conv}, newAnwaltFakeConnRepo())

	body, _ := json.Marshal(map[string]interface{}{"conversationId": convID, "lawyerId": 1, "lawyerName": "Dr. Müller"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/anwalt/connect", bytes.NewReader(body)), "not-the-owner")
	rec := httptest.NewRecorder()
	h.Connect(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}
}

func TestAnwaltHandler_Connect_CreatesConnectionDespiteHandoffFailure(t *testing.T) {
	convID := "22222222-2222-2222-2222-222222222222"
	conv := newTestConversation(convID, "owner")
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer directory.Close()
	conns := newAnwaltFakeConnRepo()
	h := newTestAnwaltHandler(directory.URL, []*model.Conversation{conv}, conns)

	body, _ := json.Marshal(map[string]interface{}{"conversationId": convID, "lawyerId": 1, "lawyerName": "Dr. Müller"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/anwalt/connect", bytes.NewReader(body)), "owner")
	rec := httptest.NewRecorder()
	h.Connect(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 even though the directory handoff failed, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(conns.byID) != 1 {
		t.Fatalf("expected the connection row to persist regardless of handoff outcome, got %d", len(conns.byID))
	}
}

func TestAnwaltHandler_UpdateStatus_OwnershipForbidden(t *testing.T) {
	connID := "33333333-3333-3333-3333-333333333333"
	conns := newAnwaltFakeConnRepo()
	conns.byID[connID] = &model.LawyerConnection{ID: connID, UserID: "owner", Status: model.ConnectionPending}
	h := newTestAnwaltHandler("http://directory.invalid", nil, conns)

	body, _ := json.Marshal(map[string]string{"status": "cancelled"})
	req := withChiParam(withUser(httptest.NewRequest(http.MethodPatch, "/api/v1/anwalt/connections/"+connID, bytes.NewReader(body)), "not-the-owner"), "id", connID)
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}
}
