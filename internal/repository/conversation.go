package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
)

// ConversationRepo is the pgx-backed implementation of
// service.ConversationRepository.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `
	id, user_id, title, status, legal_area, case_strength, urgency, current_agent,
	remote_conversation_id, who, what, when_facts, where_facts, why, analysis_done,
	summary_generated, wrapup_confirmed, created_at, updated_at`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(
		&c.ID, &c.UserID, &c.Title, &c.Status, &c.LegalArea, &c.CaseStrength, &c.Urgency, &c.CurrentAgent,
		&c.RemoteConversationID, &c.Who.Fields, &c.What.Fields, &c.When.Fields, &c.Where.Fields, &c.Why.Fields,
		&c.AnalysisDone, &c.SummaryGenerated, &c.WrapupConfirmed, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "conversation not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo: scan", err)
	}
	c.Who.Collected = len(c.Who.Fields) > 0
	c.What.Collected = len(c.What.Fields) > 0
	c.When.Collected = len(c.When.Fields) > 0
	c.Where.Collected = len(c.Where.Fields) > 0
	c.Why.Collected = len(c.Why.Fields) > 0
	return &c, nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *model.Conversation) error {
	const q = `
		INSERT INTO conversations (id, user_id, title, status, current_agent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.ID, c.UserID, c.Title, c.Status, c.CurrentAgent).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	q := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(r.pool.QueryRow(ctx, q, id))
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	const q = `
		SELECT ` + conversationColumns + `
		FROM conversations WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.ListByUser", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetRemoteConversationID persists the opaque remote-agent handle the first
// time a conversation starts a remote turn. Immutable thereafter per §3.
func (r *ConversationRepo) SetRemoteConversationID(ctx context.Context, id, remoteID string) error {
	const q = `
		UPDATE conversations SET remote_conversation_id = $2, updated_at = now()
		WHERE id = $1 AND remote_conversation_id IS NULL`
	_, err := r.pool.Exec(ctx, q, id, remoteID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.SetRemoteConversationID", err)
	}
	return nil
}

// UpdateAfterTurn persists the new current-agent label once a turn completes.
func (r *ConversationRepo) UpdateAfterTurn(ctx context.Context, id, currentAgent string) error {
	const q = `UPDATE conversations SET current_agent = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, currentAgent)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.UpdateAfterTurn", err)
	}
	return nil
}

// UpdateFacts persists one of the five structured-fact slots.
func (r *ConversationRepo) UpdateFacts(ctx context.Context, id, slot string, collected bool, fields []byte) error {
	column := map[string]string{
		"who": "who", "what": "what", "when": "when_facts", "where": "where_facts", "why": "why",
	}[slot]
	if column == "" {
		return apierr.New(apierr.KindInternal, "repository.ConversationRepo.UpdateFacts: unknown slot "+slot)
	}
	q := `UPDATE conversations SET ` + column + ` = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, fields)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.UpdateFacts", err)
	}
	return nil
}

// MarkSummaryGenerated flips summary_generated and transitions active→completed (§4.5 step 8).
func (r *ConversationRepo) MarkSummaryGenerated(ctx context.Context, id string) error {
	const q = `
		UPDATE conversations SET
			summary_generated = true,
			status = CASE WHEN status = 'active' THEN 'completed' ELSE status END,
			updated_at = now()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.MarkSummaryGenerated", err)
	}
	return nil
}

// UpdatePatch applies the mutable PATCH fields (title, status — archive action).
func (r *ConversationRepo) UpdatePatch(ctx context.Context, id string, title *string, status *model.ConversationStatus) error {
	const q = `
		UPDATE conversations SET
			title = COALESCE($2, title),
			status = COALESCE($3, status),
			updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, title, status)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.UpdatePatch", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "conversation not found")
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "conversation not found")
	}
	return nil
}

// UpdatedSince returns conversations mutated after watermark, for delta sync (§4.4).
func (r *ConversationRepo) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Conversation, error) {
	const q = `
		SELECT ` + conversationColumns + `
		FROM conversations WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.ConversationRepo.UpdatedSince", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
