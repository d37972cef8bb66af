package service

import "taskReminder/internal/clock"

type TaskServiceOption func(*TaskService)

// WithNewTaskFanOut queues a subscriber notification after every successful create.
func WithNewTaskFanOut(queue JobQueue, notifier NewTaskNotifier) TaskServiceOption {
	if queue == nil || notifier == nil {
		return nil
	}
	return func(s *TaskService) {
		s.queue = queue
		s.notifier = notifier
	}
}

func WithClock(clk clock.Clock) TaskServiceOption {
	if clk == nil {
		return nil
	}
	return func(s *TaskService) {
		s.clock = clk
	}
}
