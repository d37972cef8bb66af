package worker

import (
	"context"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Job is a unit of fire-and-forget work, retried with backoff when Run fails.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

type Options struct {
	QueueSize       int
	MaxRetries      uint64
	InitialInterval time.Duration
	JobTimeout      time.Duration
}

type NotificationWorker struct {
	queue chan Job
	opts  Options
}

func NewNotificationWorker(opts Options) *NotificationWorker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 2 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	return &NotificationWorker{
		queue: make(chan Job, opts.QueueSize),
		opts:  opts,
	}
}

// Enqueue never blocks; it reports false when the queue is full.
func (w *NotificationWorker) Enqueue(job Job) bool {
	select {
	case w.queue <- job:
		metrics.WorkerQueueDepth.Set(float64(len(w.queue)))
		logger.Debug("Worker: job queued", zap.String("job", job.Name()))
		return true
	default:
		metrics.TrackJob(job.Name(), "dropped")
		logger.Warn("Worker: queue full, job dropped", zap.String("job", job.Name()))
		return false
	}
}

// Start consumes the queue until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	logger.Info("Worker: notification worker started", zap.Int("queue_size", cap(w.queue)))
	for {
		select {
		case job := <-w.queue:
			metrics.WorkerQueueDepth.Set(float64(len(w.queue)))
			w.Process(ctx, job)
		case <-ctx.Done():
			logger.Info("Worker: notification worker stopping", zap.Int("pending", len(w.queue)))
			return
		}
	}
}

// Process runs one job with retries and reports the final outcome.
func (w *NotificationWorker) Process(ctx context.Context, job Job) error {
	start := time.Now()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.opts.InitialInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, w.opts.MaxRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		jobCtx, cancel := context.WithTimeout(ctx, w.opts.JobTimeout)
		defer cancel()

		if err := job.Run(jobCtx); err != nil {
			logger.Warn("Worker: job attempt failed",
				zap.String("job", job.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return nil
	}, retry)

	if err != nil {
		metrics.TrackJob(job.Name(), "failure")
		logger.Error("Worker: job failed", err,
			zap.String("job", job.Name()),
			zap.Int("attempts", attempt),
			zap.Duration("ms", time.Since(start)))
		return err
	}

	metrics.TrackJob(job.Name(), "success")
	logger.Info("Worker: job finished",
		zap.String("job", job.Name()),
		zap.Int("attempts", attempt),
		zap.Duration("ms", time.Since(start)))
	return nil
}
