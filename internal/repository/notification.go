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

// NotificationRepo is the pgx-backed implementation of
// service.NotificationRepository.
type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

const notificationColumns = `id, user_id, type, title, message, data, read, read_at, created_at, actioned_at`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.Read, &n.ReadAt, &n.CreatedAt, &n.ActionedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "notification not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.NotificationRepo: scan", err)
	}
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data).Scan(&n.CreatedAt)
}

// ListUnread returns a user's unread notifications newest-first, as §4.2's
// poll loop requires.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 AND read = false ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.NotificationRepo.ListUnread", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkRead flips read=true and sets read_at; the monotonic invariant (§3)
// means this is safe to call more than once for the same row.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	const q = `UPDATE notifications SET read = true, read_at = now() WHERE id = $1 AND read = false`
	_, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.NotificationRepo.MarkRead", err)
	}
	return nil
}

// DeltaSince returns notifications visible as a delta for sync: either
// newly created or transitioned to read since watermark (§4.4).
func (r *NotificationRepo) DeltaSince(ctx context.Context, userID string, watermark time.Time) ([]model.Notification, error) {
	q := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND (created_at > $2 OR read_at > $2)
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID, watermark)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.NotificationRepo.DeltaSince", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}
