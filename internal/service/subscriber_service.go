package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/logger"
	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"
	rep "taskReminder/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubscriberService struct {
	repo   SubscriberRepository
	tasks  TaskRepository
	mailer EmailDispatcher
	clock  clock.Clock
}

func NewSubscriberService(repo SubscriberRepository, tasks TaskRepository, mailer EmailDispatcher, clk clock.Clock) *SubscriberService {
	if clk == nil {
		clk = clock.New(time.Local)
	}
	return &SubscriberService{
		repo:   repo,
		tasks:  tasks,
		mailer: mailer,
		clock:  clk,
	}
}

// AddSubscriber registers email. An unverified address gets a fresh token; a verified one is returned as is.
func (s *SubscriberService) AddSubscriber(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.refreshToken(ctx, existing)
	case !errors.Is(err, rep.ErrNotFound):
		return nil, fmt.Errorf("looking up subscriber: %w", err)
	}

	sub := subscriber.New(email, uuid.NewString())
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, rep.ErrAlreadyExists) {
			// registered concurrently
			existing, getErr := s.repo.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, fmt.Errorf("looking up subscriber: %w", getErr)
			}
			return s.refreshToken(ctx, existing)
		}
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}

	logger.Info("Service: subscriber added", zap.String("subscriber_id", sub.ID.String()))
	return sub, nil
}

func (s *SubscriberService) refreshToken(ctx context.Context, existing *subscriber.Subscriber) (*subscriber.Subscriber, error) {
	if existing.Verified {
		return existing, nil
	}
	updated, err := s.repo.UpdateToken(ctx, existing.ID, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	logger.Info("Service: verification token refreshed", zap.String("subscriber_id", existing.ID.String()))
	return updated, nil
}

func (s *SubscriberService) SendVerificationEmail(ctx context.Context, sub *subscriber.Subscriber) error {
	token := sub.Token()
	if token == "" {
		return NewBusinessError(CodeInvalidToken, "Token verifikasi tidak ditemukan",
			ToDetail("subscriber_id", sub.ID.String()))
	}
	if err := s.mailer.SendVerification(ctx, sub.Email, token); err != nil {
		return NewEmailFailed(err)
	}
	return nil
}

// VerifySubscriber consumes token. Unknown or empty tokens change nothing.
func (s *SubscriberService) VerifySubscriber(ctx context.Context, token string) (*subscriber.Subscriber, error) {
	if token == "" {
		return nil, NewInvalidToken()
	}
	sub, err := s.repo.VerifyByToken(ctx, token)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewInvalidToken()
		}
		return nil, fmt.Errorf("verifying subscriber: %w", err)
	}
	logger.Info("Service: subscriber verified", zap.String("subscriber_id", sub.ID.String()))
	return sub, nil
}

// GetVerifiedSubscribers never fails: a read error is logged and yields an empty list.
func (s *SubscriberService) GetVerifiedSubscribers(ctx context.Context) []*subscriber.Subscriber {
	subs, err := s.repo.ListVerified(ctx)
	if err != nil {
		logger.Error("Service: failed to list verified subscribers", err)
		return []*subscriber.Subscriber{}
	}
	return subs
}

// SendNewTaskNotificationToAll mails every verified subscriber. Only a failure to read the list is returned.
func (s *SubscriberService) SendNewTaskNotificationToAll(ctx context.Context, t *task.Task) error {
	subs, err := s.repo.ListVerified(ctx)
	if err != nil {
		return fmt.Errorf("listing verified subscribers: %w", err)
	}

	sent := s.deliver(ctx, subs, "new_task", func(to string) error {
		return s.mailer.SendNewTask(ctx, to, t)
	})
	logger.Info("Service: new task notifications sent",
		zap.String("task_id", t.ID.String()),
		zap.Int("sent", sent),
		zap.Int("subscribers", len(subs)))
	return nil
}

// SendTaskReminders mails one combined reminder for the tasks due tomorrow.
func (s *SubscriberService) SendTaskReminders(ctx context.Context) error {
	from := clock.Tomorrow(s.clock.Now())
	to := from.AddDate(0, 0, 1)

	tasks, err := s.tasks.ListDueBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("listing tasks due tomorrow: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	subs, err := s.repo.ListVerified(ctx)
	if err != nil {
		return fmt.Errorf("listing verified subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	sent := s.deliver(ctx, subs, "reminder", func(to string) error {
		return s.mailer.SendReminder(ctx, to, tasks)
	})
	logger.Info("Service: task reminders sent",
		zap.Int("tasks", len(tasks)),
		zap.Int("sent", sent),
		zap.Int("subscribers", len(subs)))
	return nil
}

func (s *SubscriberService) SendTestEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewValidationError("email", "required")
	}
	if err := s.mailer.SendTest(ctx, email); err != nil {
		return NewEmailFailed(err)
	}
	return nil
}

// deliver sends to each subscriber in turn and stamps last-notified after each success.
func (s *SubscriberService) deliver(ctx context.Context, subs []*subscriber.Subscriber, kind string, send func(to string) error) int {
	sent := 0
	for _, sub := range subs {
		if err := send(sub.Email); err != nil {
			logger.Error("Service: email to subscriber failed", err,
				zap.String("kind", kind),
				zap.String("subscriber_id", sub.ID.String()))
			continue
		}
		sent++
		if err := s.repo.MarkNotified(ctx, sub.ID, s.clock.Now()); err != nil {
			logger.Warn("Service: failed to stamp last_notified",
				zap.String("subscriber_id", sub.ID.String()),
				zap.Error(err))
		}
	}
	return sent
}
