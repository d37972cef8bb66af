package inmemory

import (
	"context"
	"sync"

	repo "taskReminder/internal/repository"
)

type SettingsStorage struct {
	pin string
	mtx sync.RWMutex
}

func NewSettingsStorage() *SettingsStorage {
	return &SettingsStorage{}
}

func (s *SettingsStorage) GetPin(ctx context.Context) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.pin == "" {
		return "", repo.ErrNotFound
	}
	return s.pin, nil
}

func (s *SettingsStorage) SetPin(ctx context.Context, pin string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.pin = pin
	return nil
}
