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

// DocumentRepo is the pgx-backed implementation of service.DocumentRepository.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `
	id, conversation_id, user_id, filename, file_type, file_size, blob_key,
	download_url, upload_status, ocr_status, ocr_text, created_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	err := row.Scan(
		&d.ID, &d.ConversationID, &d.UserID, &d.Filename, &d.FileType, &d.FileSize, &d.BlobKey,
		&d.DownloadURL, &d.UploadStatus, &d.OCRStatus, &d.OCRText, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "document not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo: scan", err)
	}
	return &d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	const q = `
		INSERT INTO documents (id, conversation_id, user_id, filename, file_type, file_size, blob_key, upload_status, ocr_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q,
		d.ID, d.ConversationID, d.UserID, d.Filename, d.FileType, d.FileSize, d.BlobKey, d.UploadStatus, d.OCRStatus,
	).Scan(&d.CreatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.pool.QueryRow(ctx, q, id))
}

func (r *DocumentRepo) GetManyByID(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.GetManyByID", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DocumentRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE conversation_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.ListByConversation", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateUploadCompleted sets blob key, URL and upload_status=completed once
// the blob store upload has succeeded (§4.6 procedure (c)).
func (r *DocumentRepo) UpdateUploadCompleted(ctx context.Context, id, blobKey, downloadURL string) error {
	const q = `
		UPDATE documents SET blob_key = $2, download_url = $3, upload_status = 'completed'
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, blobKey, downloadURL)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.UpdateUploadCompleted", err)
	}
	return nil
}

func (r *DocumentRepo) UpdateUploadFailed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET upload_status = 'failed' WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.UpdateUploadFailed", err)
	}
	return nil
}

// UpdateOCR persists extracted text and the terminal ocr_status (completed
// or failed — OCR failure never blocks chat per spec §7 remote-dependency row).
func (r *DocumentRepo) UpdateOCR(ctx context.Context, id string, status model.OCRStatus, text *string) error {
	const q = `UPDATE documents SET ocr_status = $2, ocr_text = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, status, text)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.UpdateOCR", err)
	}
	return nil
}

// UpdateFilename renames the on-file document (PATCH /api/v1/documents/{id}).
func (r *DocumentRepo) UpdateFilename(ctx context.Context, id, filename string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET filename = $2 WHERE id = $1`, id, filename)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.UpdateFilename", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "document not found")
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "document not found")
	}
	return nil
}

// CreatedSince returns documents created after watermark, for delta sync.
func (r *DocumentRepo) CreatedSince(ctx context.Context, userID string, watermark time.Time) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 AND created_at > $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.DocumentRepo.CreatedSince", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
