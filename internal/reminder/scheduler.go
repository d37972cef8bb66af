// Package reminder schedules the day-before notifications and the daily reminder email.
package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/kvstore"
	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"
	"taskReminder/internal/models/task"
	"taskReminder/internal/notify"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	KeyScheduled      = "scheduledNotifications"
	KeyLastEmailCheck = "lastEmailReminderCheck"

	// same shape as JavaScript's Date.toDateString
	dateLayout = "Mon Jan 02 2006"

	notificationTitle = "Pengingat Tugas"
)

var tracer = otel.Tracer("taskReminder/reminder")

// ScheduledNotification is one pending reminder. Field names match the stored JSON.
type ScheduledNotification struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	ScheduledTime int64  `json:"scheduledTime"` // unix ms
}

type Result struct {
	DueTomorrow     int  `json:"due_tomorrow"`
	Scheduled       int  `json:"scheduled"`
	Fired           int  `json:"fired"`
	Pending         int  `json:"pending"`
	EmailDispatched bool `json:"email_dispatched"`
}

type TaskSource interface {
	FetchTasks(ctx context.Context) ([]*task.Task, error)
}

type ReminderSender interface {
	SendTaskReminders(ctx context.Context) error
}

type Options struct {
	FireHour   int
	FireMinute int
	Location   *time.Location
}

type Scheduler struct {
	tasks  TaskSource
	sender ReminderSender
	sink   notify.Sink
	store  kvstore.Store
	clock  clock.Clock
	opts   Options

	mtx sync.Mutex
}

func NewScheduler(tasks TaskSource, sender ReminderSender, sink notify.Sink, store kvstore.Store, clk clock.Clock, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		tasks:  tasks,
		sender: sender,
		sink:   sink,
		store:  store,
		clock:  clk,
		opts:   opts,
	}
}

func reminderID(t *task.Task) string {
	return "reminder-" + t.ID.String()
}

// Run performs one pass: schedule reminders for tasks due tomorrow, show those whose time has come,
// and send the reminder email at most once per day. Concurrent calls run one after another.
func (s *Scheduler) Run(ctx context.Context) (res Result, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ctx, span := tracer.Start(ctx, "reminder.Run", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		span.SetAttributes(
			attribute.Int("due_tomorrow", res.DueTomorrow),
			attribute.Int("scheduled", res.Scheduled),
			attribute.Int("fired", res.Fired),
		)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		metrics.TrackReminderRun(err)
	}()

	now := s.clock.Now().In(s.opts.Location)

	tasks, err := s.tasks.FetchTasks(ctx)
	if err != nil {
		logger.Error("Reminder: failed to fetch tasks", err)
		return res, fmt.Errorf("fetching tasks: %w", err)
	}

	due := dueTomorrow(tasks, now, s.opts.Location)
	res.DueTomorrow = len(due)

	scheduled := s.loadScheduled(ctx)

	existing := make(map[string]struct{}, len(scheduled))
	for _, n := range scheduled {
		existing[n.ID] = struct{}{}
	}

	fireAt := time.Date(now.Year(), now.Month(), now.Day(), s.opts.FireHour, s.opts.FireMinute, 0, 0, s.opts.Location)
	for _, t := range due {
		id := reminderID(t)
		if _, ok := existing[id]; ok {
			continue
		}
		existing[id] = struct{}{}
		scheduled = append(scheduled, ScheduledNotification{
			ID:            id,
			Title:         notificationTitle,
			Body:          fmt.Sprintf("Tugas \"%s\" (%s) jatuh tempo besok!", t.Title, t.Subject),
			ScheduledTime: fireAt.UnixMilli(),
		})
		res.Scheduled++
	}

	if res.Scheduled > 0 {
		if err := s.saveScheduled(ctx, scheduled); err != nil {
			return res, err
		}
		metrics.RemindersScheduledTotal.Add(float64(res.Scheduled))
		logger.Info("Reminder: notifications scheduled", zap.Int("count", res.Scheduled), zap.Time("fire_at", fireAt))
	}

	fired, err := s.fireDue(ctx, scheduled, now)
	if err != nil {
		return res, err
	}
	res.Fired = fired
	res.Pending = len(scheduled) - fired

	if len(due) > 0 {
		res.EmailDispatched = s.sendDailyEmail(ctx, now)
	}
	return res, nil
}

func dueTomorrow(tasks []*task.Task, now time.Time, loc *time.Location) []*task.Task {
	tomorrow := clock.Tomorrow(now)
	due := []*task.Task{}
	for _, t := range tasks {
		if clock.StartOfDay(t.DueDate.In(loc)).Equal(tomorrow) {
			due = append(due, t)
		}
	}
	return due
}

// fireDue persists the entries still in the future, then shows the rest.
func (s *Scheduler) fireDue(ctx context.Context, scheduled []ScheduledNotification, now time.Time) (int, error) {
	nowMs := now.UnixMilli()
	var ready, remaining []ScheduledNotification
	for _, n := range scheduled {
		if n.ScheduledTime <= nowMs {
			ready = append(ready, n)
		} else {
			remaining = append(remaining, n)
		}
	}
	if len(ready) == 0 {
		return 0, nil
	}

	if err := s.saveScheduled(ctx, remaining); err != nil {
		return 0, err
	}

	for _, n := range ready {
		if err := s.sink.Show(ctx, notify.New(n.Title, n.Body, notify.DefaultURL)); err != nil {
			logger.Error("Reminder: failed to show notification", err, zap.String("id", n.ID))
		}
	}
	logger.Info("Reminder: notifications fired", zap.Int("count", len(ready)), zap.Int("pending", len(remaining)))
	return len(ready), nil
}

func (s *Scheduler) sendDailyEmail(ctx context.Context, now time.Time) bool {
	today := now.Format(dateLayout)

	last, err := s.store.Get(ctx, KeyLastEmailCheck)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		logger.Warn("Reminder: failed to read last email check", zap.Error(err))
	}
	if last == today {
		return false
	}

	if err := s.sender.SendTaskReminders(ctx); err != nil {
		logger.Error("Reminder: reminder email failed, will retry next run", err)
		return false
	}
	if err := s.store.Set(ctx, KeyLastEmailCheck, today); err != nil {
		logger.Warn("Reminder: failed to record email check", zap.Error(err))
	}
	return true
}

// loadScheduled treats a missing or unreadable value as empty.
func (s *Scheduler) loadScheduled(ctx context.Context) []ScheduledNotification {
	raw, err := s.store.Get(ctx, KeyScheduled)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Warn("Reminder: failed to read schedule", zap.Error(err))
		}
		return []ScheduledNotification{}
	}

	var scheduled []ScheduledNotification
	if err := json.Unmarshal([]byte(raw), &scheduled); err != nil {
		logger.Warn("Reminder: schedule is corrupt, starting empty", zap.Error(err))
		return []ScheduledNotification{}
	}
	return scheduled
}

func (s *Scheduler) saveScheduled(ctx context.Context, scheduled []ScheduledNotification) error {
	if scheduled == nil {
		scheduled = []ScheduledNotification{}
	}
	raw, err := json.Marshal(scheduled)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}
	if err := s.store.Set(ctx, KeyScheduled, string(raw)); err != nil {
		logger.Error("Reminder: failed to persist schedule", err)
		return fmt.Errorf("persisting schedule: %w", err)
	}
	return nil
}

// Pending returns the stored schedule.
func (s *Scheduler) Pending(ctx context.Context) []ScheduledNotification {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.loadScheduled(ctx)
}
