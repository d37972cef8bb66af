package task

import (
	"github.com/google/uuid"
)

type TaskOption func(*Task)

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = &description
	}
}

func WithSubmissionLink(link string) TaskOption {
	if link == "" {
		return nil
	}
	return func(task *Task) {
		task.SubmissionLink = &link
	}
}

func WithCreatedBy(id uuid.UUID) TaskOption {
	if id == uuid.Nil {
		return nil
	}
	return func(task *Task) {
		task.CreatedBy = &id
	}
}
