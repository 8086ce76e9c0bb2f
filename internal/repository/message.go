package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
)

// MessageRepo is the pgx-backed implementation of service.MessageRepository.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, conversation_id, role, content, agent_name, function_call, document_ids, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	var fc []byte
	err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AgentName, &fc, &m.DocumentIDs, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(fc) > 0 {
		var call model.FunctionCall
		if err := json.Unmarshal(fc, &call); err == nil {
			m.FunctionCall = &call
		}
	}
	return &m, nil
}

// Create persists an immutable Message row. Messages are never updated
// after insert (§3).
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	var fc []byte
	if m.FunctionCall != nil {
		var err error
		fc, err = json.Marshal(m.FunctionCall)
		if err != nil {
			return apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.Create: marshal function call", err)
		}
	}
	const q = `
		INSERT INTO messages (id, conversation_id, role, content, agent_name, function_call, document_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, m.ID, m.ConversationID, m.Role, m.Content, m.AgentName, fc, m.DocumentIDs).Scan(&m.CreatedAt)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.Create", err)
	}
	return nil
}

// ListByConversation returns a conversation's transcript ordered by turn,
// tie-broken by id per §3.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	const q = `
		SELECT ` + messageColumns + `
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.ListByConversation", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.ListByConversation: scan", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CreatedSince returns messages created after watermark across all of a
// user's conversations, joined for ownership per §4.4.
func (r *MessageRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Message, error) {
	const q = `
		SELECT m.id, m.conversation_id, m.role, m.content, m.agent_name, m.function_call, m.document_ids, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $1 AND m.created_at > $2
		ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.CreatedSince", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindInternal, "repository.MessageRepo.CreatedSince: scan", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
