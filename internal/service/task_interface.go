package service

import (
	"context"
	"time"

	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"
	"taskReminder/internal/worker"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	AddImages(ctx context.Context, taskID uuid.UUID, urls []string) ([]task.Image, error)
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	// List returns every task ordered by due date ascending, images attached.
	List(ctx context.Context) ([]*task.Task, error)
	// ListDueBetween returns tasks with from <= due_date < to.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SettingsRepository interface {
	GetPin(ctx context.Context) (string, error)
	SetPin(ctx context.Context, pin string) error
}

type SubscriberRepository interface {
	Create(ctx context.Context, sub *subscriber.Subscriber) error
	GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error)
	UpdateToken(ctx context.Context, id uuid.UUID, token string) (*subscriber.Subscriber, error)
	VerifyByToken(ctx context.Context, token string) (*subscriber.Subscriber, error)
	ListVerified(ctx context.Context) ([]*subscriber.Subscriber, error)
	List(ctx context.Context) ([]*subscriber.Subscriber, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type EmailDispatcher interface {
	SendVerification(ctx context.Context, to, token string) error
	SendNewTask(ctx context.Context, to string, t *task.Task) error
	SendReminder(ctx context.Context, to string, tasks []*task.Task) error
	SendTest(ctx context.Context, to string) error
}

type JobQueue interface {
	Enqueue(job worker.Job) bool
}

// NewTaskNotifier fans a freshly created task out to subscribers.
type NewTaskNotifier interface {
	SendNewTaskNotificationToAll(ctx context.Context, t *task.Task) error
}
