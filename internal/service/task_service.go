package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/logger"
	"taskReminder/internal/models/task"
	rep "taskReminder/internal/repository"
	"taskReminder/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateTaskInput struct {
	Title          string
	Subject        string
	Description    string
	DueDate        time.Time
	SubmissionLink string
	Images         []string
	CreatedBy      uuid.UUID
}

type TaskService struct {
	repo     TaskRepository
	settings SettingsRepository
	queue    JobQueue
	notifier NewTaskNotifier
	clock    clock.Clock
}

func NewTaskService(repo TaskRepository, settings SettingsRepository, options ...TaskServiceOption) *TaskService {
	s := &TaskService{
		repo:     repo,
		settings: settings,
		clock:    clock.New(time.Local),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) Now() time.Time {
	return s.clock.Now()
}

// ListTasks never fails: a read error is logged and yields an empty list.
func (s *TaskService) ListTasks(ctx context.Context) []*task.Task {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		logger.Error("Service: failed to list tasks", err)
		return []*task.Task{}
	}
	return tasks
}

// FetchTasks is ListTasks that reports read errors.
func (s *TaskService) FetchTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*task.Task, error) {
	title := strings.TrimSpace(in.Title)
	subject := strings.TrimSpace(in.Subject)
	switch {
	case title == "":
		return nil, NewValidationError("title", "required")
	case subject == "":
		return nil, NewValidationError("subject", "required")
	case in.DueDate.IsZero():
		return nil, NewValidationError("due_date", "required")
	}

	newTask := task.New(title, subject, in.DueDate,
		task.WithDescription(strings.TrimSpace(in.Description)),
		task.WithSubmissionLink(strings.TrimSpace(in.SubmissionLink)),
		task.WithCreatedBy(in.CreatedBy),
	)

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if len(in.Images) > 0 {
		images, err := s.repo.AddImages(ctx, newTask.ID, in.Images)
		if err != nil {
			logger.Error("Service: failed to attach images, task kept", err,
				zap.String("task_id", newTask.ID.String()),
				zap.Int("images", len(in.Images)))
		} else {
			newTask.Images = images
		}
	}

	logger.Info("Service: task created",
		zap.String("task_id", newTask.ID.String()),
		zap.String("subject", newTask.Subject),
		zap.Time("due_date", newTask.DueDate))

	s.enqueueFanOut(newTask)
	return newTask, nil
}

func (s *TaskService) enqueueFanOut(created *task.Task) {
	if s.queue == nil {
		return
	}
	notifier := s.notifier
	job := worker.JobFunc{
		JobName: "new_task_notification",
		Fn: func(ctx context.Context) error {
			return notifier.SendNewTaskNotificationToAll(ctx, created)
		},
	}
	if !s.queue.Enqueue(job) {
		logger.Warn("Service: new task notification not queued", zap.String("task_id", created.ID.String()))
	}
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id.String()))
			return NewNotFound("task", id.String())
		}
		return fmt.Errorf("deleting task: %w", err)
	}
	logger.Info("Service: task deleted", zap.String("task_id", id.String()))
	return nil
}

// VerifyPin reports whether candidate equals the stored PIN. Every failure reads as false.
func (s *TaskService) VerifyPin(ctx context.Context, candidate string) bool {
	if candidate == "" {
		return false
	}
	pin, err := s.settings.GetPin(ctx)
	if err != nil {
		if !errors.Is(err, rep.ErrNotFound) {
			logger.Error("Service: failed to read PIN", err)
		}
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(candidate)) == 1
}

func (s *TaskService) SetPin(ctx context.Context, pin string) error {
	if pin == "" {
		return NewValidationError("pin", "required")
	}
	if err := s.settings.SetPin(ctx, pin); err != nil {
		return fmt.Errorf("storing pin: %w", err)
	}
	return nil
}
