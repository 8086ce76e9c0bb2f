package service

import (
	"context"
	"time"

	"github.com/sumii/sumii-core/internal/model"
)

// DeletedIDs is the soft-delete ledger named in spec §4.4. Soft-delete is
// not implemented by this core so every slice is always empty, but the
// field stays on the wire since the protocol names it explicitly.
type DeletedIDs struct {
	Conversations []string `json:"conversations"`
	Messages      []string `json:"messages"`
	Documents     []string `json:"documents"`
	Summaries     []string `json:"summaries"`
	Notifications []string `json:"notifications"`
}

// SyncResult is the delta-sync payload (spec §4.4, §6, §8 scenario 6): one
// slice per entity plus the watermark the client must echo on its next
// request. Field names are the literal snake_case names spec §4.4 and §8
// use (last_synced_at, server_time, is_full_sync, deleted_ids), not the
// domain model's usual camelCase convention, since this wire contract is
// spelled out verbatim in the spec text.
type SyncResult struct {
	Conversations     []model.Conversation     `json:"conversations"`
	Messages          []model.Message          `json:"messages"`
	Documents         []model.Document         `json:"documents"`
	Summaries         []model.Summary          `json:"summaries"`
	LawyerConnections []model.LawyerConnection `json:"lawyer_connections"`
	Notifications     []model.Notification     `json:"notifications"`
	DeletedIDs        DeletedIDs               `json:"deleted_ids"`
	ServerTime        time.Time                `json:"server_time"`
	IsFullSync        bool                     `json:"is_full_sync"`
}

// SyncService aggregates per-entity watermark queries (§4.4). server_time is
// captured once, before the first query, and returned as the new watermark
// regardless of how long the six queries take to run. The queries run one
// after another and do not share a transaction.
type SyncService struct {
	Conversations     ConversationRepository
	Messages          MessageRepository
	Documents         DocumentRepository
	Summaries         SummaryRepository
	LawyerConnections LawyerConnectionRepository
	Notifications     NotificationRepository
	Now               func() time.Time
}

func NewSyncService(
	conversations ConversationRepository,
	messages MessageRepository,
	documents DocumentRepository,
	summaries SummaryRepository,
	lawyerConnections LawyerConnectionRepository,
	notifications NotificationRepository,
) *SyncService {
	return &SyncService{
		Conversations:     conversations,
		Messages:          messages,
		Documents:         documents,
		Summaries:         summaries,
		LawyerConnections: lawyerConnections,
		Notifications:     notifications,
		Now:               time.Now,
	}
}

// Delta returns everything that changed since watermark. A zero watermark
// means a full sync (§4.4 "is_full_sync is true exactly when the client
// sends no watermark").
func (s *SyncService) Delta(ctx context.Context, userID string, watermark time.Time) (*SyncResult, error) {
	serverTime := s.Now()

	conversations, err := s.Conversations.UpdatedSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}
	messages, err := s.Messages.CreatedSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}
	documents, err := s.Documents.CreatedSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}
	summaries, err := s.Summaries.CreatedSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}
	lawyerConnections, err := s.LawyerConnections.UpdatedSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}
	notifications, err := s.Notifications.DeltaSince(ctx, userID, watermark)
	if err != nil {
		return nil, err
	}

	return &SyncResult{
		Conversations:     conversations,
		Messages:          messages,
		Documents:         documents,
		Summaries:         summaries,
		LawyerConnections: lawyerConnections,
		Notifications:     notifications,
		DeletedIDs:        DeletedIDs{},
		ServerTime:        serverTime,
		IsFullSync:        watermark.IsZero(),
	}, nil
}
