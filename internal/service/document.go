package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
)

// DocumentService implements the document pipeline (spec §4.6), kept close
// to the teacher's internal/service/document.go shape (upload-then-persist,
// ownership via the repository, a Storage boundary) with OCR wired in,
// which the teacher left unused by any handler.
type DocumentService struct {
	Repo          DocumentRepository
	Conversations ConversationRepository
	Storage       StorageClient
	OCR           OCRClient
	Bucket        string
	MaxBytes      int64
	URLExpiry     time.Duration
}

func NewDocumentService(repo DocumentRepository, conversations ConversationRepository, storage StorageClient, ocr OCRClient, bucket string, maxBytes int64, urlExpiry time.Duration) *DocumentService {
	return &DocumentService{Repo: repo, Conversations: conversations, Storage: storage, OCR: ocr, Bucket: bucket, MaxBytes: maxBytes, URLExpiry: urlExpiry}
}

// Upload validates and stores one document (§4.6 procedure). ocrRequested
// mirrors the source's "OCR skipped" branch: when false, ocr_status starts
// completed and extraction never runs. The conversation must exist and
// belong to the requester (§4.6) — checked here since every caller of
// Upload goes through this one path.
func (s *DocumentService) Upload(ctx context.Context, userID, conversationID, filename, mimeType string, data []byte, ocrRequested bool) (*model.Document, error) {
	if !model.AllowedMimeTypes[mimeType] {
		return nil, apierr.New(apierr.KindInputValidation, "unsupported content type")
	}
	if int64(len(data)) > s.MaxBytes {
		return nil, apierr.New(apierr.KindInputValidation, "file exceeds maximum upload size")
	}

	conv, err := s.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, apierr.New(apierr.KindAuthorization, "conversation belongs to another user")
	}

	doc := &model.Document{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Filename:       filename,
		FileType:       mimeType,
		FileSize:       int64(len(data)),
		UploadStatus:   model.UploadUploading,
		OCRStatus:      model.OCRCompleted,
	}
	if ocrRequested {
		doc.OCRStatus = model.OCRPending
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("users/%s/conversations/%s/documents/%s/%s", userID, conversationID, doc.ID, filename)
	if err := s.Storage.Upload(ctx, s.Bucket, key, data, mimeType); err != nil {
		_ = s.Repo.UpdateUploadFailed(ctx, doc.ID)
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "document upload failed", err)
	}

	url, err := s.Storage.SignedURL(ctx, s.Bucket, key, s.URLExpiry)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindRemoteDependency, "failed to mint download URL", err)
	}
	if err := s.Repo.UpdateUploadCompleted(ctx, doc.ID, key, url); err != nil {
		return nil, err
	}
	doc.BlobKey = key
	doc.DownloadURL = &url
	doc.UploadStatus = model.UploadCompleted

	if ocrRequested {
		go s.runOCR(context.WithoutCancel(ctx), doc.ID, data, mimeType)
	}

	return doc, nil
}

// runOCR performs extraction asynchronously per §4.6 ("OCR is invoked
// asynchronously ... "); failure leaves ocr_status=failed but never blocks
// chat (spec §7 remote-dependency row).
func (s *DocumentService) runOCR(ctx context.Context, documentID string, data []byte, mimeType string) {
	text, err := s.OCR.ExtractText(ctx, data, mimeType)
	if err != nil {
		slog.Warn("document OCR failed", "document_id", documentID, "error", err)
		_ = s.Repo.UpdateOCR(ctx, documentID, model.OCRFailed, nil)
		return
	}
	_ = s.Repo.UpdateOCR(ctx, documentID, model.OCRCompleted, &text)
}

// EnsureOCR triggers extraction on first reference if it hasn't run yet
// (§4.6 "...or on first chat turn that references the document").
func (s *DocumentService) EnsureOCR(ctx context.Context, doc *model.Document) {
	if doc.OCRStatus != model.OCRPending {
		return
	}
	data, err := s.Storage.Download(ctx, s.Bucket, doc.BlobKey)
	if err != nil {
		slog.Warn("document OCR fetch failed", "document_id", doc.ID, "error", err)
		_ = s.Repo.UpdateOCR(ctx, doc.ID, model.OCRFailed, nil)
		return
	}
	s.runOCR(ctx, doc.ID, data, doc.FileType)
}
