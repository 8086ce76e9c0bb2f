package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sumii/sumii-core/internal/apierr"
	"github.com/sumii/sumii-core/internal/model"
)

// UserRepo is the pgx-backed implementation of service.UserRepository.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT id, email, locale, push_token, timezone, latitude, longitude, created_at, updated_at
		FROM users WHERE id = $1`

	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.Locale, &u.PushToken, &u.Timezone, &u.Latitude, &u.Longitude, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.New(apierr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "repository.UserRepo.GetByID", err)
	}
	return &u, nil
}

func (r *UserRepo) UpdatePushToken(ctx context.Context, id, token string) error {
	const q = `UPDATE users SET push_token = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, token)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.UserRepo.UpdatePushToken", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "user not found")
	}
	return nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, timezone *string, lat, lon *float64) error {
	const q = `
		UPDATE users SET
			timezone = COALESCE($2, timezone),
			latitude = COALESCE($3, latitude),
			longitude = COALESCE($4, longitude),
			updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, timezone, lat, lon)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "repository.UserRepo.UpdateProfile", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.New(apierr.KindNotFound, "user not found")
	}
	return nil
}
