package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/models/task"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const taskColumns = `id, title, subject, description, due_date, submission_link, created_at, updated_at, created_by`

type TaskRepo struct {
	*Storage
}

func (r *TaskRepo) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("task.create", start)

	query := `INSERT INTO tasks
				(id, title, subject, description, due_date, submission_link, created_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at, updated_at`

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Subject,
		taskToCreate.Description,
		taskToCreate.DueDate,
		taskToCreate.SubmissionLink,
		taskToCreate.CreatedBy,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.UpdatedAt)
	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// AddImages inserts all urls in one batch.
func (r *TaskRepo) AddImages(ctx context.Context, taskID uuid.UUID, urls []string) ([]task.Image, error) {
	if len(urls) == 0 {
		return []task.Image{}, nil
	}
	start := time.Now()
	defer warnIfSlow("task.add_images", start)

	query := `INSERT INTO task_images (id, task_id, image_url)
				VALUES ($1, $2, $3)
				RETURNING created_at`

	images := make([]task.Image, len(urls))
	batch := &pgx.Batch{}
	for i, url := range urls {
		images[i] = task.Image{ID: uuid.New(), TaskID: taskID, URL: url}
		batch.Queue(query, images[i].ID, taskID, url)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range images {
		if err := results.QueryRow().Scan(&images[i].CreatedAt); err != nil {
			logger.Error("Repository: failed to insert task image", err, zap.String("task_id", taskID.String()))
			return nil, fmt.Errorf("inserting task image: %w", err)
		}
	}
	return images, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("task.get", start)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	found, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if err := r.attachImages(ctx, []*task.Task{found}); err != nil {
		return nil, err
	}
	return found, nil
}

func (r *TaskRepo) List(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("task.list", start)

	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY due_date ASC, created_at ASC`
	return r.queryTasks(ctx, query)
}

func (r *TaskRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("task.list_due", start)

	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE due_date >= $1 AND due_date < $2
				ORDER BY due_date ASC, created_at ASC`
	return r.queryTasks(ctx, query, from, to)
}

// Delete relies on ON DELETE CASCADE to drop the images.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer warnIfSlow("task.delete", start)

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to query tasks", err)
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: failed to scan task", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	if err := r.attachImages(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) attachImages(ctx context.Context, tasks []*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tasks))
	byID := make(map[uuid.UUID]*task.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		t.Images = []task.Image{}
		byID[t.ID] = t
	}

	query := `SELECT id, task_id, image_url, created_at
				FROM task_images
				WHERE task_id = ANY($1)
				ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		logger.Error("Repository: failed to query task images", err)
		return fmt.Errorf("querying task images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img task.Image
		if err := rows.Scan(&img.ID, &img.TaskID, &img.URL, &img.CreatedAt); err != nil {
			logger.Warn("Repository: failed to scan task image", zap.Error(err))
			continue
		}
		if owner, ok := byID[img.TaskID]; ok {
			owner.Images = append(owner.Images, img)
		}
	}
	return rows.Err()
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{Images: []task.Image{}}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Subject,
		&t.Description,
		&t.DueDate,
		&t.SubmissionLink,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
