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

// LawyerConnectionRepo is the pgx-backed implementation of
// service.LawyerConnectionRepository.
type LawyerConnectionRepo struct {
	pool *pgxpool.Pool
}

func NewLawyerConnectionRepo(pool *pgxpool.Pool) *LawyerConnectionRepo {
	return &LawyerConnectionRepo{pool: pool}
}

const lawyerConnectionColumns = `
	id, user_id, conversation_id, summary_id, lawyer_id, lawyer_name, user_message,
	rejection_reason, status, status_changed_at, case_id, lawyer_response_at, created_at, updated_at`

func scanLawyerConnection(row pgx.Row) (*model.LawyerConnection, error) {
	var c model.LawyerConnection
	err := row.Scan(
		&c.ID, &c.UserID, &c.ConversationID, &c.SummaryID, &c.LawyerID, &c.LawyerName, &c.UserMessage,
		&c.RejectionReason, &c.Status, &c.StatusChangedAt, &c.CaseID, &c.LawyerResponseAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "lawyer connection not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo: scan", err)
	}
	return &c, nil
}

func (r *LawyerConnectionRepo) Create(ctx context.Context, c *model.LawyerConnection) error {
	const q = `
		INSERT INTO lawyer_connections (id, user_id, conversation_id, summary_id, lawyer_id, lawyer_name,
			user_message, status, status_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), now())
		RETURNING status_changed_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		c.ID, c.UserID, c.ConversationID, c.SummaryID, c.LawyerID, c.LawyerName, c.UserMessage, c.Status,
	).Scan(&c.StatusChangedAt, &c.CreatedAt, &c.UpdatedAt)
}

func (r *LawyerConnectionRepo) GetByID(ctx context.Context, id string) (*model.LawyerConnection, error) {
	q := `SELECT ` + lawyerConnectionColumns + ` FROM lawyer_connections WHERE id = $1`
	return scanLawyerConnection(r.pool.QueryRow(ctx, q, id))
}

// GetByConversationAndLawyer supports the webhook's lookup of an existing
// connection to update (§4.3 step 5).
func (r *LawyerConnectionRepo) GetByConversationAndLawyer(ctx context.Context, conversationID string, lawyerID int64) (*model.LawyerConnection, error) {
	q := `SELECT ` + lawyerConnectionColumns + ` FROM lawyer_connections WHERE conversation_id = $1 AND lawyer_id = $2`
	return scanLawyerConnection(r.pool.QueryRow(ctx, q, conversationID, lawyerID))
}

func (r *LawyerConnectionRepo) ListByUser(ctx context.Context, userID string) ([]model.LawyerConnection, error) {
	q := `SELECT ` + lawyerConnectionColumns + ` FROM lawyer_connections WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo.ListByUser", err)
	}
	defer rows.Close()

	var out []model.LawyerConnection
	for rows.Next() {
		c, err := scanLawyerConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// AcceptFromWebhook applies the webhook's lawyer-response mutation (§4.3
// step 5): status→accepted, lawyer_response_at set, lawyer_name refreshed,
// case_id bound only if not already set. Status only ever moves forward.
func (r *LawyerConnectionRepo) AcceptFromWebhook(ctx context.Context, id string, lawyerName string, responseAt time.Time, caseID string) error {
	const q = `
		UPDATE lawyer_connections SET
			status = 'accepted',
			status_changed_at = now(),
			lawyer_response_at = $2,
			lawyer_name = $3,
			case_id = COALESCE(case_id, $4),
			updated_at = now()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, responseAt, lawyerName, caseID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo.AcceptFromWebhook", err)
	}
	return nil
}

func (r *LawyerConnectionRepo) UpdateStatus(ctx context.Context, id string, status model.ConnectionStatus, rejectionReason *string) error {
	const q = `
		UPDATE lawyer_connections SET status = $2, rejection_reason = $3, status_changed_at = now(), updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status, rejectionReason)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo.UpdateStatus", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "lawyer connection not found")
	}
	return nil
}

// ClearSummaryReference handles Summary deletion's ON DELETE SET NULL
// behaviour at the application layer where the driver doesn't enforce it.
func (r *LawyerConnectionRepo) ClearSummaryReference(ctx context.Context, summaryID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE lawyer_connections SET summary_id = NULL WHERE summary_id = $1`, summaryID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo.ClearSummaryReference", err)
	}
	return nil
}

func (r *LawyerConnectionRepo) UpdatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.LawyerConnection, error) {
	q := `SELECT ` + lawyerConnectionColumns + ` FROM lawyer_connections WHERE user_id = $1 AND updated_at > $2 ORDER BY updated_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.LawyerConnectionRepo.UpdatedSince", err)
	}
	defer rows.Close()

	var out []model.LawyerConnection
	for rows.Next() {
		c, err := scanLawyerConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
