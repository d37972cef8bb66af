package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Subject        string     `json:"subject" db:"subject"`
	Description    *string    `json:"description,omitempty" db:"description"`
	DueDate        time.Time  `json:"due_date" db:"due_date"`
	SubmissionLink *string    `json:"submission_link,omitempty" db:"submission_link"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	CreatedBy      *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	Images         []Image    `json:"images"`
}

type Image struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"task_id" db:"task_id"`
	URL       string    `json:"image_url" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// New builds a task with a fresh id. Title, subject and due date are mandatory and checked by the caller.
func New(title, subject string, dueDate time.Time, options ...TaskOption) *Task {
	t := &Task{
		ID:      uuid.New(),
		Title:   title,
		Subject: subject,
		DueDate: dueDate,
		Images:  []Image{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Task) DescriptionOr(fallback string) string {
	if t.Description == nil || *t.Description == "" {
		return fallback
	}
	return *t.Description
}

func (t *Task) SubmissionLinkOr(fallback string) string {
	if t.SubmissionLink == nil || *t.SubmissionLink == "" {
		return fallback
	}
	return *t.SubmissionLink
}
