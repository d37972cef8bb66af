package dto

import (
	"time"

	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Pin            string   `json:"pin"`
	Title          string   `json:"title" validate:"required,max=200"`
	Subject        string   `json:"subject" validate:"required,max=100"`
	Description    string   `json:"description" validate:"max=5000"`
	DueDate        string   `json:"due_date" validate:"required"`
	SubmissionLink string   `json:"submission_link" validate:"omitempty,url"`
	Images         []string `json:"images" validate:"max=10,dive,required"`
}

type PinRequest struct {
	Pin string `json:"pin"`
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,loose_email"`
}

type NotificationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=1000"`
	URL   string `json:"url"`
}

type ImageResponse struct {
	ID  uuid.UUID `json:"id"`
	URL string    `json:"image_url"`
}

type TaskResponse struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Subject        string          `json:"subject"`
	Description    *string         `json:"description,omitempty"`
	DueDate        time.Time       `json:"due_date"`
	SubmissionLink *string         `json:"submission_link,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Images         []ImageResponse `json:"images"`
	Urgency        task.Urgency    `json:"urgency"`
	DaysRemaining  int             `json:"days_remaining"`
}

// FromTask renders t with its urgency as of now.
func FromTask(t *task.Task, now time.Time) TaskResponse {
	images := make([]ImageResponse, len(t.Images))
	for i, img := range t.Images {
		images[i] = ImageResponse{ID: img.ID, URL: img.URL}
	}
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Subject:        t.Subject,
		Description:    t.Description,
		DueDate:        t.DueDate,
		SubmissionLink: t.SubmissionLink,
		CreatedAt:      t.CreatedAt,
		Images:         images,
		Urgency:        t.UrgencyAt(now),
		DaysRemaining:  t.DaysRemaining(now),
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type SubscriberResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Verified bool      `json:"verified"`
}

func FromSubscriber(s *subscriber.Subscriber) SubscriberResponse {
	return SubscriberResponse{
		ID:       s.ID,
		Email:    s.Email,
		Verified: s.Verified,
	}
}
