package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/models/subscriber"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	subscriberColumns = `id, email, verified, verification_token, last_notified, created_at`
	uniqueViolation   = "23505"
)

type SubscriberRepo struct {
	pool *pgxpool.Pool
}

func (r *SubscriberRepo) Create(ctx context.Context, sub *subscriber.Subscriber) error {
	start := time.Now()
	defer warnIfSlow("subscriber.create", start)

	query := `INSERT INTO subscribers (id, email, verified, verification_token)
				VALUES ($1, $2, $3, $4)
				RETURNING created_at`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query, sub.ID, sub.Email, sub.Verified, sub.VerificationToken).Scan(&sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: failed to insert subscriber", err)
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = $1`
	return r.queryOne(ctx, "subscriber.get", query, email)
}

func (r *SubscriberRepo) UpdateToken(ctx context.Context, id uuid.UUID, token string) (*subscriber.Subscriber, error) {
	query := `UPDATE subscribers SET verification_token = $1
				WHERE id = $2
				RETURNING ` + subscriberColumns
	return r.queryOne(ctx, "subscriber.update_token", query, token, id)
}

// VerifyByToken marks the owner of token verified and clears the token in one statement.
func (r *SubscriberRepo) VerifyByToken(ctx context.Context, token string) (*subscriber.Subscriber, error) {
	query := `UPDATE subscribers SET verified = TRUE, verification_token = NULL
				WHERE verification_token = $1
				RETURNING ` + subscriberColumns
	return r.queryOne(ctx, "subscriber.verify", query, token)
}

func (r *SubscriberRepo) ListVerified(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE verified = TRUE ORDER BY created_at ASC`
	return r.queryMany(ctx, "subscriber.list_verified", query)
}

func (r *SubscriberRepo) List(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers ORDER BY created_at ASC`
	return r.queryMany(ctx, "subscriber.list", query)
}

func (r *SubscriberRepo) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	start := time.Now()
	defer warnIfSlow("subscriber.mark_notified", start)

	tag, err := r.pool.Exec(ctx, `UPDATE subscribers SET last_notified = $1 WHERE id = $2`, at, id)
	if err != nil {
		logger.Error("Repository: failed to stamp subscriber", err, zap.String("subscriber_id", id.String()))
		return fmt.Errorf("updating last_notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) queryOne(ctx context.Context, op, query string, args ...any) (*subscriber.Subscriber, error) {
	start := time.Now()
	defer warnIfSlow(op, start)

	sub, err := scanSubscriber(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: subscriber query failed", err, zap.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (r *SubscriberRepo) queryMany(ctx context.Context, op, query string, args ...any) ([]*subscriber.Subscriber, error) {
	start := time.Now()
	defer warnIfSlow(op, start)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: subscriber query failed", err, zap.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	subs := []*subscriber.Subscriber{}
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			logger.Warn("Repository: failed to scan subscriber", zap.Error(err))
			continue
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

func scanSubscriber(row pgx.Row) (*subscriber.Subscriber, error) {
	sub := &subscriber.Subscriber{}
	err := row.Scan(
		&sub.ID,
		&sub.Email,
		&sub.Verified,
		&sub.VerificationToken,
		&sub.LastNotified,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
