package subscriber

import (
	"time"

	"github.com/google/uuid"
)

type Subscriber struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	Verified          bool       `json:"verified" db:"verified"`
	VerificationToken *string    `json:"-" db:"verification_token"`
	LastNotified      *time.Time `json:"last_notified,omitempty" db:"last_notified"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

func New(email, token string) *Subscriber {
	return &Subscriber{
		ID:                uuid.New(),
		Email:             email,
		VerificationToken: &token,
	}
}

func (s *Subscriber) Token() string {
	if s.VerificationToken == nil {
		return ""
	}
	return *s.VerificationToken
}
