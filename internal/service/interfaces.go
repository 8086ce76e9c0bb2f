package service

import (
	"context"
	"time"

	"github.com/sumii/sumii-core/internal/model"
)

// Repository interfaces are declared here, on the consumer side, so
// handlers and services depend on behaviour rather than on
// internal/repository's concrete pgx types — the teacher's own
// DocumentRepository/StorageClient split (internal/service/document.go).

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdatePushToken(ctx context.Context, id, token string) error
	UpdateProfile(ctx context.Context, id string, timezone *string, lat, lon *float64) error
}

type ConversationRepository interface {
	Create(ctx context.Context, c *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error)
	SetRemoteConversationID(ctx context.Context, id, remoteID string) error
	UpdateAfterTurn(ctx context.Context, id, currentAgent string) error
	UpdateFacts(ctx context.Context, id, slot string, collected bool, fields []byte) error
	MarkSummaryGenerated(ctx context.Context, id string) error
	UpdatePatch(ctx context.Context, id string, title *string, status *model.ConversationStatus) error
	Delete(ctx context.Context, id string) error
	UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Conversation, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Message, error)
}

// ListOpts holds limit/offset paging parameters. No repository method in
// this package takes it; DocumentRepository.ListByConversation is unpaged.
type ListOpts struct {
	Limit  int
	Offset int
}

type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	GetManyByID(ctx context.Context, ids []string) ([]model.Document, error)
	ListByConversation(ctx context.Context, conversationID string) ([]model.Document, error)
	UpdateUploadCompleted(ctx context.Context, id, blobKey, downloadURL string) error
	UpdateUploadFailed(ctx context.Context, id string) error
	UpdateOCR(ctx context.Context, id string, status model.OCRStatus, text *string) error
	UpdateFilename(ctx context.Context, id, filename string) error
	Delete(ctx context.Context, id string) error
	CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Document, error)
}

type SummaryRepository interface {
	Create(ctx context.Context, s *model.Summary) error
	GetByID(ctx context.Context, id string) (*model.Summary, error)
	GetByConversationID(ctx context.Context, conversationID string) (*model.Summary, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Summary, error)
	Replace(ctx context.Context, s *model.Summary) error
	UpdateMetadata(ctx context.Context, id string, legalArea *model.LegalArea, caseStrength *model.CaseStrength, urgency *model.Urgency) error
	Delete(ctx context.Context, id string) error
	CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Summary, error)
}

type LawyerConnectionRepository interface {
	Create(ctx context.Context, c *model.LawyerConnection) error
	GetByID(ctx context.Context, id string) (*model.LawyerConnection, error)
	GetByConversationAndLawyer(ctx context.Context, conversationID string, lawyerID int64) (*model.LawyerConnection, error)
	ListByUser(ctx context.Context, userID string) ([]model.LawyerConnection, error)
	AcceptFromWebhook(ctx context.Context, id string, lawyerName string, responseAt time.Time, caseID string) error
	UpdateStatus(ctx context.Context, id string, status model.ConnectionStatus, rejectionReason *string) error
	ClearSummaryReference(ctx context.Context, summaryID string) error
	UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.LawyerConnection, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListUnread(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	DeltaSince(ctx context.Context, userID string, watermark time.Time) ([]model.Notification, error)
}

// StorageClient is the blob-store adapter boundary (spec §2 "Blob store
// adapter"), implemented by internal/gcpclient.StorageAdapter.
type StorageClient interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}

// OCRClient is the OCR adapter boundary (spec §2 "OCR adapter"), implemented
// by internal/gcpclient.DocAIAdapter.
type OCRClient interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}
