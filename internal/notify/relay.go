package notify

import (
	"context"
	"sync/atomic"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"

	"go.uber.org/zap"
)

// Request is one show request handed to a listener. The listener calls Ack once the
// notification has been delivered.
type Request struct {
	Notification Notification
	ack          chan struct{}
}

func (r *Request) Ack() {
	select {
	case r.ack <- struct{}{}:
	default:
	}
}

// Relay passes notifications to a connected listener and waits for its acknowledgement.
// With no listener, or when the handshake does not finish in time, the fallback sink shows it.
type Relay struct {
	requests  chan *Request
	fallback  Sink
	timeout   time.Duration
	listeners atomic.Int32
}

func NewRelay(fallback Sink, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Relay{
		requests: make(chan *Request),
		fallback: fallback,
		timeout:  timeout,
	}
}

// Subscribe registers a listener. The returned func must be called when the listener goes away.
func (r *Relay) Subscribe() (<-chan *Request, func()) {
	r.listeners.Add(1)
	var once atomic.Bool
	return r.requests, func() {
		if once.CompareAndSwap(false, true) {
			r.listeners.Add(-1)
		}
	}
}

func (r *Relay) Listeners() int {
	return int(r.listeners.Load())
}

func (r *Relay) Show(ctx context.Context, n Notification) error {
	if r.listeners.Load() == 0 {
		return r.fallback.Show(ctx, n)
	}

	req := &Request{Notification: n, ack: make(chan struct{}, 1)}
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case r.requests <- req:
	case <-timer.C:
		logger.Warn("Notify: no listener picked up the notification, using fallback", zap.String("title", n.Title))
		return r.fallback.Show(ctx, n)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.ack:
		metrics.TrackNotification("relay")
		return nil
	case <-timer.C:
		logger.Warn("Notify: listener did not acknowledge in time, using fallback", zap.String("title", n.Title))
		return r.fallback.Show(ctx, n)
	case <-ctx.Done():
		return ctx.Err()
	}
}
