package reminder

import (
	"context"
	"fmt"
	"time"

	"taskReminder/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one reminder pass.
type Job interface {
	Run(ctx context.Context) (Result, error)
}

// Runner drives a Job periodically and on demand. Triggers that arrive while a pass is running collapse into one.
type Runner struct {
	job      Job
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
	trigger  chan struct{}
}

func NewRunner(job Job, interval, timeout time.Duration, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		job:      job,
		cron:     cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{})),
		interval: interval,
		timeout:  timeout,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a pass without blocking.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Start runs one pass immediately and then serves ticks and triggers until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	schedule := fmt.Sprintf("@every %ds", int(r.interval.Seconds()))
	if _, err := r.cron.AddFunc(schedule, r.Trigger); err != nil {
		return fmt.Errorf("scheduling reminder run: %w", err)
	}
	r.cron.Start()
	logger.Info("Reminder: runner started", zap.Duration("interval", r.interval))

	r.Trigger()
	for {
		select {
		case <-ctx.Done():
			r.stop()
			logger.Info("Reminder: runner stopped")
			return nil
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) runOnce(ctx context.Context) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.job.Run(runCtx)
	if err != nil {
		logger.Error("Reminder: run failed", err)
		return
	}
	logger.Debug("Reminder: run finished",
		zap.Int("due_tomorrow", res.DueTomorrow),
		zap.Int("scheduled", res.Scheduled),
		zap.Int("fired", res.Fired),
		zap.Bool("email", res.EmailDispatched),
	)
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Logger.Sugar().Debugw("Reminder: cron "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Logger.Sugar().Errorw("Reminder: cron "+msg, append(keysAndValues, "error", err)...)
}
