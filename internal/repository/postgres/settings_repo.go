package postgres

import (
	"context"
	"errors"
	"fmt"

	"taskReminder/internal/logger"
	repo "taskReminder/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepo reads and writes the single settings row (id = 1).
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func (r *SettingsRepo) GetPin(ctx context.Context) (string, error) {
	var pin string
	err := r.pool.QueryRow(ctx, `SELECT pin FROM settings WHERE id = 1`).Scan(&pin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repo.ErrNotFound
		}
		logger.Error("Repository: failed to read pin", err)
		return "", fmt.Errorf("reading pin: %w", err)
	}
	return pin, nil
}

func (r *SettingsRepo) SetPin(ctx context.Context, pin string) error {
	query := `INSERT INTO settings (id, pin) VALUES (1, $1)
				ON CONFLICT (id) DO UPDATE SET pin = EXCLUDED.pin`

	if _, err := r.pool.Exec(ctx, query, pin); err != nil {
		logger.Error("Repository: failed to write pin", err)
		return fmt.Errorf("writing pin: %w", err)
	}
	return nil
}
