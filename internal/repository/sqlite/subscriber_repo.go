package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/models/subscriber"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriberRepo struct {
	db *gorm.DB
}

func (r *SubscriberRepo) Create(ctx context.Context, sub *subscriber.Subscriber) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	rec := toSubscriberRecord(sub)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: failed to insert subscriber", err)
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	sub.CreatedAt = rec.CreatedAt
	return nil
}

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *SubscriberRepo) UpdateToken(ctx context.Context, id uuid.UUID, token string) (*subscriber.Subscriber, error) {
	res := r.db.WithContext(ctx).Model(&subscriberRecord{}).Where("id = ?", id.String()).Update("verification_token", token)
	if res.Error != nil {
		logger.Error("Repository: failed to update token", res.Error)
		return nil, fmt.Errorf("updating token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, repo.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("id = ?", id.String()))
}

func (r *SubscriberRepo) VerifyByToken(ctx context.Context, token string) (*subscriber.Subscriber, error) {
	var verified *subscriber.Subscriber
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec subscriberRecord
		if err := tx.Where("verification_token = ?", token).First(&rec).Error; err != nil {
			return err
		}
		err := tx.Model(&rec).Updates(map[string]any{
			"verified":           true,
			"verification_token": nil,
		}).Error
		if err != nil {
			return err
		}
		rec.Verified = true
		rec.VerificationToken = nil
		verified = rec.toModel()
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to verify subscriber", err)
		return nil, fmt.Errorf("verifying subscriber: %w", err)
	}
	return verified, nil
}

func (r *SubscriberRepo) ListVerified(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.find(r.db.WithContext(ctx).Where("verified = ?", true))
}

func (r *SubscriberRepo) List(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *SubscriberRepo) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&subscriberRecord{}).Where("id = ?", id.String()).Update("last_notified", at.UTC())
	if res.Error != nil {
		logger.Error("Repository: failed to stamp subscriber", res.Error)
		return fmt.Errorf("updating last_notified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) first(query *gorm.DB) (*subscriber.Subscriber, error) {
	var rec subscriberRecord
	if err := query.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get subscriber", err)
		return nil, fmt.Errorf("getting subscriber: %w", err)
	}
	return rec.toModel(), nil
}

func (r *SubscriberRepo) find(query *gorm.DB) ([]*subscriber.Subscriber, error) {
	var recs []subscriberRecord
	if err := query.Order("created_at ASC").Find(&recs).Error; err != nil {
		logger.Error("Repository: failed to list subscribers", err)
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	subs := make([]*subscriber.Subscriber, 0, len(recs))
	for i := range recs {
		subs = append(subs, recs[i].toModel())
	}
	return subs, nil
}
