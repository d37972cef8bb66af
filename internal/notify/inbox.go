package notify

import (
	"context"
	"sync"

	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"

	"go.uber.org/zap"
)

// Inbox is the direct sink: notifications wait here until the page drains them.
// When full the oldest entry is dropped.
type Inbox struct {
	mtx     sync.Mutex
	items   []Notification
	maxSize int
}

func NewInbox(maxSize int) *Inbox {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Inbox{maxSize: maxSize}
}

func (i *Inbox) Show(ctx context.Context, n Notification) error {
	i.mtx.Lock()
	defer i.mtx.Unlock()

	if len(i.items) >= i.maxSize {
		logger.Warn("Notify: inbox full, dropping oldest", zap.String("title", i.items[0].Title))
		i.items = i.items[1:]
	}
	i.items = append(i.items, n)
	metrics.TrackNotification("inbox")
	return nil
}

// Drain returns and clears every pending notification.
func (i *Inbox) Drain() []Notification {
	i.mtx.Lock()
	defer i.mtx.Unlock()

	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (i *Inbox) Len() int {
	i.mtx.Lock()
	defer i.mtx.Unlock()
	return len(i.items)
}
