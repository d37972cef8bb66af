package sqlite

import (
	"context"
	"errors"
	"fmt"

	repo "taskReminder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsRowID = 1

type SettingsRepo struct {
	db *gorm.DB
}

func (r *SettingsRepo) GetPin(ctx context.Context) (string, error) {
	var rec settingsRecord
	if err := r.db.WithContext(ctx).First(&rec, settingsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", repo.ErrNotFound
		}
		return "", fmt.Errorf("reading pin: %w", err)
	}
	return rec.Pin, nil
}

func (r *SettingsRepo) SetPin(ctx context.Context, pin string) error {
	rec := settingsRecord{ID: settingsRowID, Pin: pin}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pin"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("writing pin: %w", err)
	}
	return nil
}
