package sqlite

import (
	"time"

	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"

	"github.com/google/uuid"
)

// Times are stored in UTC so the text columns sort chronologically.

type taskRecord struct {
	ID             string `gorm:"primaryKey"`
	Title          string `gorm:"not null"`
	Subject        string `gorm:"not null"`
	Description    *string
	DueDate        time.Time `gorm:"not null;index"`
	SubmissionLink *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      *string
	Images         []imageRecord `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (taskRecord) TableName() string { return "tasks" }

type imageRecord struct {
	ID        string    `gorm:"primaryKey"`
	TaskID    string    `gorm:"not null;index"`
	ImageURL  string    `gorm:"not null"`
	CreatedAt time.Time
}

func (imageRecord) TableName() string { return "task_images" }

type subscriberRecord struct {
	ID                string  `gorm:"primaryKey"`
	Email             string  `gorm:"not null;uniqueIndex"`
	Verified          bool    `gorm:"not null;default:false;index"`
	VerificationToken *string `gorm:"index"`
	LastNotified      *time.Time
	CreatedAt         time.Time
}

func (subscriberRecord) TableName() string { return "subscribers" }

type settingsRecord struct {
	ID  uint   `gorm:"primaryKey"`
	Pin string `gorm:"not null"`
}

func (settingsRecord) TableName() string { return "settings" }

func toTaskRecord(t *task.Task) *taskRecord {
	rec := &taskRecord{
		ID:             t.ID.String(),
		Title:          t.Title,
		Subject:        t.Subject,
		Description:    t.Description,
		DueDate:        t.DueDate.UTC(),
		SubmissionLink: t.SubmissionLink,
	}
	if t.CreatedBy != nil {
		id := t.CreatedBy.String()
		rec.CreatedBy = &id
	}
	return rec
}

func (r *taskRecord) toModel() *task.Task {
	t := &task.Task{
		ID:             uuid.MustParse(r.ID),
		Title:          r.Title,
		Subject:        r.Subject,
		Description:    r.Description,
		DueDate:        r.DueDate,
		SubmissionLink: r.SubmissionLink,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Images:         make([]task.Image, 0, len(r.Images)),
	}
	if r.CreatedBy != nil {
		if id, err := uuid.Parse(*r.CreatedBy); err == nil {
			t.CreatedBy = &id
		}
	}
	for _, img := range r.Images {
		t.Images = append(t.Images, img.toModel())
	}
	return t
}

func (r imageRecord) toModel() task.Image {
	return task.Image{
		ID:        uuid.MustParse(r.ID),
		TaskID:    uuid.MustParse(r.TaskID),
		URL:       r.ImageURL,
		CreatedAt: r.CreatedAt,
	}
}

func toSubscriberRecord(s *subscriber.Subscriber) *subscriberRecord {
	return &subscriberRecord{
		ID:                s.ID.String(),
		Email:             s.Email,
		Verified:          s.Verified,
		VerificationToken: s.VerificationToken,
		LastNotified:      s.LastNotified,
	}
}

func (r *subscriberRecord) toModel() *subscriber.Subscriber {
	return &subscriber.Subscriber{
		ID:                uuid.MustParse(r.ID),
		Email:             r.Email,
		Verified:          r.Verified,
		VerificationToken: r.VerificationToken,
		LastNotified:      r.LastNotified,
		CreatedAt:         r.CreatedAt,
	}
}
