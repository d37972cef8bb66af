package handlers

import (
	"context"
	"time"

	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"
	"taskReminder/internal/notify"
	"taskReminder/internal/reminder"
	"taskReminder/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	Now() time.Time
	ListTasks(ctx context.Context) []*task.Task
	CreateTask(ctx context.Context, in service.CreateTaskInput) (*task.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	VerifyPin(ctx context.Context, candidate string) bool
}

type SubscriberService interface {
	AddSubscriber(ctx context.Context, email string) (*subscriber.Subscriber, error)
	SendVerificationEmail(ctx context.Context, sub *subscriber.Subscriber) error
	VerifySubscriber(ctx context.Context, token string) (*subscriber.Subscriber, error)
	SendTestEmail(ctx context.Context, email string) error
}

// ReminderTrigger asks the background runner for a pass without waiting for it.
type ReminderTrigger interface {
	Trigger()
}

type ReminderJob interface {
	Run(ctx context.Context) (reminder.Result, error)
}

type NotificationFeed interface {
	Subscribe() (<-chan *notify.Request, func())
}

type NotificationInbox interface {
	Drain() []notify.Notification
}
