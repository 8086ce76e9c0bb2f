package service

import (
	"context"
	"testing"
	"time"

	"github.com/sumii/sumii-core/internal/model"
)

type syncFakeRepos struct {
	conv    []model.Conversation
	msg     []model.Message
	doc     []model.Document
	summary []model.Summary
	lawyer  []model.LawyerConnection
	notif   []model.Notification
}

func (f *syncFakeRepos) Create(ctx context.Context, c *model.Conversation) error { return nil }
func (f *syncFakeRepos) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	return nil, nil
}
func (f *syncFakeRepos) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	return nil, nil
}
func (f *syncFakeRepos) SetRemoteConversationID(ctx context.Context, id, remoteID string) error {
	return nil
}
func (f *syncFakeRepos) UpdateAfterTurn(ctx context.Context, id, currentAgent string) error {
	return nil
}
func (f *syncFakeRepos) UpdateFacts(ctx context.Context, id, slot string, collected bool, fields []byte) error {
	return nil
}
func (f *syncFakeRepos) MarkSummaryGenerated(ctx context.Context, id string) error { return nil }
func (f *syncFakeRepos) UpdatePatch(ctx context.Context, id string, title *string, status *model.ConversationStatus) error {
	return nil
}
func (f *syncFakeRepos) Delete(ctx context.Context, id string) error { return nil }
func (f *syncFakeRepos) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Conversation, error) {
	if watermark.IsZero() {
		return f.conv, nil
	}
	return nil, nil
}

type syncFakeMsgRepo struct{ *syncFakeRepos }

func (f syncFakeMsgRepo) Create(ctx context.Context, m *model.Message) error { return nil }
func (f syncFakeMsgRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	return nil, nil
}
func (f syncFakeMsgRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Message, error) {
	if watermark.IsZero() {
		return f.msg, nil
	}
	return nil, nil
}

type syncFakeDocRepo struct{ *syncFakeRepos }

func (f syncFakeDocRepo) Create(ctx context.Context, d *model.Document) error      { return nil }
func (f syncFakeDocRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	return nil, nil
}
func (f syncFakeDocRepo) GetManyByID(ctx context.Context, ids []string) ([]model.Document, error) {
	return nil, nil
}
func (f syncFakeDocRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Document, error) {
	return nil, nil
}
func (f syncFakeDocRepo) UpdateUploadCompleted(ctx context.Context, id, blobKey, downloadURL string) error {
	return nil
}
func (f syncFakeDocRepo) UpdateUploadFailed(ctx context.Context, id string) error { return nil }
func (f syncFakeDocRepo) UpdateOCR(ctx context.Context, id string, status model.OCRStatus, text *string) error {
	return nil
}
func (f syncFakeDocRepo) UpdateFilename(ctx context.Context, id, filename string) error { return nil }
func (f syncFakeDocRepo) Delete(ctx context.Context, id string) error { return nil }
func (f syncFakeDocRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Document, error) {
	if watermark.IsZero() {
		return f.doc, nil
	}
	return nil, nil
}

type syncFakeSummaryRepo struct{ *syncFakeRepos }

func (f syncFakeSummaryRepo) Create(ctx context.Context, s *model.Summary) error { return nil }
func (f syncFakeSummaryRepo) GetByID(ctx context.Context, id string) (*model.Summary, error) {
	return nil, nil
}
func (f syncFakeSummaryRepo) GetByConversationID(ctx context.Context, conversationID string) (*model.Summary, error) {
	return nil, nil
}
func (f syncFakeSummaryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Summary, error) {
	return nil, nil
}
func (f syncFakeSummaryRepo) Replace(ctx context.Context, s *model.Summary) error { return nil }
func (f syncFakeSummaryRepo) UpdateMetadata(ctx context.Context, id string, legalArea *model.LegalArea, caseStrength *model.CaseStrength, urgency *model.Urgency) error {
	return nil
}
func (f syncFakeSummaryRepo) Delete(ctx context.Context, id string) error        { return nil }
func (f syncFakeSummaryRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Summary, error) {
	if watermark.IsZero() {
		return f.summary, nil
	}
	return nil, nil
}

type syncFakeLawyerRepo struct{ *syncFakeRepos }

func (f syncFakeLawyerRepo) Create(ctx context.Context, c *model.LawyerConnection) error {
	return nil
}
func (f syncFakeLawyerRepo) GetByID(ctx context.Context, id string) (*model.LawyerConnection, error) {
	return nil, nil
}
func (f syncFakeLawyerRepo) GetByConversationAndLawyer(ctx context.Context, conversationID string, lawyerID int64) (*model.LawyerConnection, error) {
	return nil, nil
}
func (f syncFakeLawyerRepo) ListByUser(ctx context.Context, userID string) ([]model.LawyerConnection, error) {
	return nil, nil
}
func (f syncFakeLawyerRepo) AcceptFromWebhook(ctx context.Context, id string, lawyerName string, responseAt time.Time, caseID string) error {
	return nil
}
func (f syncFakeLawyerRepo) UpdateStatus(ctx context.Context, id string, status model.ConnectionStatus, rejectionReason *string) error {
	return nil
}
func (f syncFakeLawyerRepo) ClearSummaryReference(ctx context.Context, summaryID string) error {
	return nil
}
func (f syncFakeLawyerRepo) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.LawyerConnection, error) {
	if watermark.IsZero() {
		return f.lawyer, nil
	}
	return nil, nil
}

type syncFakeNotifRepo struct{ *syncFakeRepos }

func (f syncFakeNotifRepo) Create(ctx context.Context, n *model.Notification) error { return nil }
func (f syncFakeNotifRepo) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	return nil, nil
}
func (f syncFakeNotifRepo) MarkRead(ctx context.Context, id string) error { return nil }
func (f syncFakeNotifRepo) DeltaSince(ctx context.Context, userID string, watermark time.Time) ([]model.Notification, error) {
	if watermark.IsZero() {
		return f.notif, nil
	}
	return nil, nil
}

func newSyncService(backing *syncFakeRepos, now time.Time) *SyncService {
	svc := NewSyncService(
		backing,
		syncFakeMsgRepo{backing},
		syncFakeDocRepo{backing},
		syncFakeSummaryRepo{backing},
		syncFakeLawyerRepo{backing},
		syncFakeNotifRepo{backing},
	)
	svc.Now = func() time.Time { return now }
	return svc
}

// Scenario 6 (spec §8): a full sync with an absent watermark returns every
// row plus is_full_sync=true; an immediate second call using the first
// call's server_time as watermark returns empty lists and is_full_sync=false.
func TestSyncService_FullThenDeltaIsEmpty(t *testing.T) {
	backing := &syncFakeRepos{
		conv:    []model.Conversation{{ID: "c1"}},
		msg:     []model.Message{{ID: "m1"}},
		doc:     []model.Document{{ID: "d1"}},
		summary: []model.Summary{{ID: "s1"}},
		lawyer:  []model.LawyerConnection{{ID: "l1"}},
		notif:   []model.Notification{{ID: "n1"}},
	}
	t1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newSyncService(backing, t1)

	full, err := svc.Delta(context.Background(), "user-1", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if !full.IsFullSync {
		t.Fatal("expected is_full_sync=true for an absent watermark")
	}
	if len(full.Conversations) != 1 || len(full.Messages) != 1 || len(full.Documents) != 1 ||
		len(full.Summaries) != 1 || len(full.LawyerConnections) != 1 || len(full.Notifications) != 1 {
		t.Fatalf("expected every entity populated on full sync, got %+v", full)
	}
	if !full.ServerTime.Equal(t1) {
		t.Fatalf("expected server_time %v, got %v", t1, full.ServerTime)
	}

	t2 := t1.Add(time.Minute)
	svc2 := newSyncService(backing, t2)
	delta, err := svc2.Delta(context.Background(), "user-1", full.ServerTime)
	if err != nil {
		t.Fatal(err)
	}
	if delta.IsFullSync {
		t.Fatal("expected is_full_sync=false for a present watermark")
	}
	if len(delta.Conversations) != 0 || len(delta.Messages) != 0 || len(delta.Documents) != 0 ||
		len(delta.Summaries) != 0 || len(delta.LawyerConnections) != 0 || len(delta.Notifications) != 0 {
		t.Fatalf("expected every entity empty on the immediate follow-up delta, got %+v", delta)
	}
}
