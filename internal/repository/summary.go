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

// SummaryRepo is the pgx-backed implementation of service.SummaryRepository.
type SummaryRepo struct {
	pool *pgxpool.Pool
}

func NewSummaryRepo(pool *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{pool: pool}
}

const summaryColumns = `
	id, conversation_id, user_id, markdown_content, reference_number, markdown_blob_key,
	pdf_blob_key, pdf_url, legal_area, case_strength, urgency, created_at`

func scanSummary(row pgx.Row) (*model.Summary, error) {
	var s model.Summary
	err := row.Scan(
		&s.ID, &s.ConversationID, &s.UserID, &s.MarkdownContent, &s.ReferenceNumber, &s.MarkdownBlobKey,
		&s.PDFBlobKey, &s.PDFURL, &s.LegalArea, &s.CaseStrength, &s.Urgency, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "summary not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo: scan", err)
	}
	return &s, nil
}

// Create inserts a Summary. The unique constraint on conversation_id is the
// DB-level backstop for the "at-most-once-per-fingerprint" invariant (§5);
// a concurrent duplicate insert surfaces as a conflict Kind the pipeline
// maps to "return existing" (§5).
func (r *SummaryRepo) Create(ctx context.Context, s *model.Summary) error {
	const q = `
		INSERT INTO summaries (id, conversation_id, user_id, markdown_content, reference_number,
			markdown_blob_key, pdf_blob_key, pdf_url, legal_area, case_strength, urgency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q,
		s.ID, s.ConversationID, s.UserID, s.MarkdownContent, s.ReferenceNumber,
		s.MarkdownBlobKey, s.PDFBlobKey, s.PDFURL, s.LegalArea, s.CaseStrength, s.Urgency,
	).Scan(&s.CreatedAt)
	if isUniqueViolation(err) {
		return apierr.New(apierr.KindConflict, "summary already exists for conversation")
	}
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.Create", err)
	}
	return nil
}

func (r *SummaryRepo) GetByID(ctx context.Context, id string) (*model.Summary, error) {
	q := `SELECT ` + summaryColumns + ` FROM summaries WHERE id = $1`
	return scanSummary(r.pool.QueryRow(ctx, q, id))
}

// GetByConversationID supports the artifact pipeline's idempotency check
// (§4.5 step 1): if present, the pipeline returns it instead of regenerating.
func (r *SummaryRepo) GetByConversationID(ctx context.Context, conversationID string) (*model.Summary, error) {
	q := `SELECT ` + summaryColumns + ` FROM summaries WHERE conversation_id = $1`
	return scanSummary(r.pool.QueryRow(ctx, q, conversationID))
}

func (r *SummaryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Summary, error) {
	q := `SELECT ` + summaryColumns + ` FROM summaries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.ListByUser", err)
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Replace overwrites an existing Summary's content for regeneration (§4.5
// "Regeneration"), reusing the id and reference number.
func (r *SummaryRepo) Replace(ctx context.Context, s *model.Summary) error {
	const q = `
		UPDATE summaries SET markdown_content = $2, markdown_blob_key = $3, pdf_blob_key = $4, pdf_url = $5
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, s.ID, s.MarkdownContent, s.MarkdownBlobKey, s.PDFBlobKey, s.PDFURL)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.Replace", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "summary not found")
	}
	return nil
}

// UpdateMetadata updates the three classification fields a client may
// correct after generation (spec §4.5, original_source's SummaryUpdate
// schema: legal_area, case_strength, urgency). A nil pointer leaves the
// column unchanged.
func (r *SummaryRepo) UpdateMetadata(ctx context.Context, id string, legalArea *model.LegalArea, caseStrength *model.CaseStrength, urgency *model.Urgency) error {
	const q = `
		UPDATE summaries SET
			legal_area = COALESCE($2, legal_area),
			case_strength = COALESCE($3, case_strength),
			urgency = COALESCE($4, urgency)
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, legalArea, caseStrength, urgency)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.UpdateMetadata", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "summary not found")
	}
	return nil
}

func (r *SummaryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "summary not found")
	}
	return nil
}

func (r *SummaryRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Summary, error) {
	q := `SELECT ` + summaryColumns + ` FROM summaries WHERE user_id = $1 AND created_at > $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.SummaryRepo.CreatedSince", err)
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), used to map a racing duplicate Summary insert to the
// "return existing" conflict behaviour spec §5 requires.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
