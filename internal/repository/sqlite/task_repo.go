package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/models/task"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskRepo struct {
	*Storage
}

func (r *TaskRepo) Create(ctx context.Context, taskToCreate *task.Task) error {
	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	rec := toTaskRecord(taskToCreate)
	if err := r.db.WithContext(ctx).Omit("Images").Create(rec).Error; err != nil {
		logger.Error("Repository: failed to insert task", err)
		return fmt.Errorf("inserting task: %w", err)
	}
	taskToCreate.CreatedAt = rec.CreatedAt
	taskToCreate.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *TaskRepo) AddImages(ctx context.Context, taskID uuid.UUID, urls []string) ([]task.Image, error) {
	if len(urls) == 0 {
		return []task.Image{}, nil
	}
	recs := make([]imageRecord, len(urls))
	for i, url := range urls {
		recs[i] = imageRecord{ID: uuid.NewString(), TaskID: taskID.String(), ImageURL: url}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&taskRecord{}).Where("id = ?", taskID.String()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repo.ErrNotFound
		}
		return tx.Create(&recs).Error
	})
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Error("Repository: failed to insert task images", err)
		}
		return nil, fmt.Errorf("inserting task images: %w", err)
	}

	images := make([]task.Image, len(recs))
	for i, rec := range recs {
		images[i] = rec.toModel()
	}
	return images, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	var rec taskRecord
	err := r.db.WithContext(ctx).Preload("Images", orderImages).Where("id = ?", id.String()).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err)
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return rec.toModel(), nil
}

func (r *TaskRepo) List(ctx context.Context) ([]*task.Task, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *TaskRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("due_date >= ? AND due_date < ?", from.UTC(), to.UTC()))
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&taskRecord{})
	if res.Error != nil {
		logger.Error("Repository: failed to delete task", res.Error)
		return fmt.Errorf("deleting task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ImageCount counts image rows for taskID, including orphans.
func (r *TaskRepo) ImageCount(ctx context.Context, taskID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&imageRecord{}).Where("task_id = ?", taskID.String()).Count(&count).Error
	return count, err
}

func (r *TaskRepo) find(query *gorm.DB) ([]*task.Task, error) {
	var recs []taskRecord
	if err := query.Preload("Images", orderImages).Order("due_date ASC, created_at ASC").Find(&recs).Error; err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toModel())
	}
	return tasks, nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
