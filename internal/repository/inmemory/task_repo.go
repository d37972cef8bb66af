package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskReminder/internal/logger"
	"taskReminder/internal/models/task"
	repo "taskReminder/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	images  map[uuid.UUID][]task.Image
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		images:  make(map[uuid.UUID][]task.Image),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory storage is healthy")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	now := time.Now()
	taskToCreate.CreatedAt = now
	taskToCreate.UpdatedAt = now

	stored := *taskToCreate
	stored.Images = nil
	s.storage[stored.ID] = &stored
	return nil
}

func (s *TaskStorage) AddImages(ctx context.Context, taskID uuid.UUID, urls []string) ([]task.Image, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskID]; !ok {
		return nil, repo.ErrNotFound
	}

	added := make([]task.Image, 0, len(urls))
	for _, url := range urls {
		img := task.Image{
			ID:        uuid.New(),
			TaskID:    taskID,
			URL:       url,
			CreatedAt: time.Now(),
		}
		added = append(added, img)
	}
	s.images[taskID] = append(s.images[taskID], added...)
	return added, nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	stored, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.withImages(stored), nil
}

func (s *TaskStorage) List(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.Task, 0, len(s.storage))
	for _, stored := range s.storage {
		res = append(res, s.withImages(stored))
	}
	sortByDueDate(res)
	return res, nil
}

// ListDueBetween returns tasks with from <= due_date < to.
func (s *TaskStorage) ListDueBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, stored := range s.storage {
		if stored.DueDate.Before(from) || !stored.DueDate.Before(to) {
			continue
		}
		res = append(res, s.withImages(stored))
	}
	sortByDueDate(res)
	return res, nil
}

// Delete removes the task and, like the SQL cascade, its images.
func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	delete(s.images, id)
	return nil
}

// ImageCount reports the number of stored image rows for a task.
func (s *TaskStorage) ImageCount(taskID uuid.UUID) int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.images[taskID])
}

func (s *TaskStorage) withImages(stored *task.Task) *task.Task {
	cp := *stored
	cp.Images = append([]task.Image{}, s.images[stored.ID]...)
	return &cp
}

func sortByDueDate(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}
