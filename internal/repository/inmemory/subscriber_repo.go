package inmemory

import (
	"context"
	"sync"
	"time"

	"taskReminder/internal/models/subscriber"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
)

type SubscriberStorage struct {
	storage map[uuid.UUID]*subscriber.Subscriber
	mtx     *sync.RWMutex
}

func NewSubscriberStorage() *SubscriberStorage {
	return &SubscriberStorage{
		storage: make(map[uuid.UUID]*subscriber.Subscriber),
		mtx:     &sync.RWMutex{},
	}
}

func (s *SubscriberStorage) Create(ctx context.Context, sub *subscriber.Subscriber) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, existing := range s.storage {
		if existing.Email == sub.Email {
			return repo.ErrAlreadyExists
		}
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	s.storage[sub.ID] = cloneSubscriber(sub)
	return nil
}

func (s *SubscriberStorage) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, existing := range s.storage {
		if existing.Email == email {
			return cloneSubscriber(existing), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *SubscriberStorage) UpdateToken(ctx context.Context, id uuid.UUID, token string) (*subscriber.Subscriber, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	existing.VerificationToken = &token
	return cloneSubscriber(existing), nil
}

func (s *SubscriberStorage) VerifyByToken(ctx context.Context, token string) (*subscriber.Subscriber, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, existing := range s.storage {
		if existing.VerificationToken != nil && *existing.VerificationToken == token {
			existing.Verified = true
			existing.VerificationToken = nil
			return cloneSubscriber(existing), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *SubscriberStorage) ListVerified(ctx context.Context) ([]*subscriber.Subscriber, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*subscriber.Subscriber{}
	for _, existing := range s.storage {
		if existing.Verified {
			res = append(res, cloneSubscriber(existing))
		}
	}
	return res, nil
}

func (s *SubscriberStorage) List(ctx context.Context) ([]*subscriber.Subscriber, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*subscriber.Subscriber, 0, len(s.storage))
	for _, existing := range s.storage {
		res = append(res, cloneSubscriber(existing))
	}
	return res, nil
}

func (s *SubscriberStorage) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}
	existing.LastNotified = &at
	return nil
}

func cloneSubscriber(sub *subscriber.Subscriber) *subscriber.Subscriber {
	cp := *sub
	if sub.VerificationToken != nil {
		token := *sub.VerificationToken
		cp.VerificationToken = &token
	}
	if sub.LastNotified != nil {
		at := *sub.LastNotified
		cp.LastNotified = &at
	}
	return &cp
}
