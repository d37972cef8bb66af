package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"
	"taskReminder/internal/repository"
	"taskReminder/internal/repository/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskStorage_HealthCheck tests the health check
func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestTaskStorage_Create tests task creation
func TestTaskStorage_Create(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := task.New("Essay", "Bahasa", time.Now().Add(24*time.Hour), task.WithDescription("two pages"))
	require.NoError(t, storage.Create(ctx, taskToCreate))
	assert.False(t, taskToCreate.CreatedAt.IsZero())

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Essay", retrieved.Title)
	assert.Equal(t, "two pages", retrieved.DescriptionOr(""))
	assert.Empty(t, retrieved.Images)
}

// TestTaskStorage_GetByID_NotFound tests lookup of a missing task
func TestTaskStorage_GetByID_NotFound(t *testing.T) {
	storage := inmemory.NewTaskStorage()

	_, err := storage.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_List tests ordering by due date
func TestTaskStorage_List(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	base := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	for _, offset := range []int{3, 1, 2} {
		tk := task.New(fmt.Sprintf("task %d", offset), "Math", base.AddDate(0, 0, offset))
		require.NoError(t, storage.Create(ctx, tk))
	}

	tasks, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "task 1", tasks[0].Title)
	assert.Equal(t, "task 2", tasks[1].Title)
	assert.Equal(t, "task 3", tasks[2].Title)
}

// TestTaskStorage_ListDueBetween tests the half-open due date window
func TestTaskStorage_ListDueBetween(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	from := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	inside := task.New("inside", "Math", from.Add(10*time.Hour))
	atStart := task.New("at start", "Math", from)
	atEnd := task.New("at end", "Math", to)
	for _, tk := range []*task.Task{inside, atStart, atEnd} {
		require.NoError(t, storage.Create(ctx, tk))
	}

	tasks, err := storage.ListDueBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "at start", tasks[0].Title)
	assert.Equal(t, "inside", tasks[1].Title)
}

// TestTaskStorage_AddImages tests attaching images to a task
func TestTaskStorage_AddImages(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	tk := task.New("Poster", "Art", time.Now())
	require.NoError(t, storage.Create(ctx, tk))

	images, err := storage.AddImages(ctx, tk.ID, []string{"https://img/1.png", "https://img/2.png"})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, tk.ID, images[0].TaskID)

	retrieved, err := storage.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, retrieved.Images, 2)

	_, err = storage.AddImages(ctx, uuid.New(), []string{"https://img/3.png"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_Delete tests deletion and image cascade
func TestTaskStorage_Delete(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	tk := task.New("Poster", "Art", time.Now())
	require.NoError(t, storage.Create(ctx, tk))
	_, err := storage.AddImages(ctx, tk.ID, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, storage.Delete(ctx, tk.ID))
	assert.Equal(t, 0, storage.ImageCount(tk.ID))

	_, err = storage.GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = storage.Delete(ctx, tk.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_ConcurrentAccess tests concurrent writers
func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk := task.New(fmt.Sprintf("task %d", i), "Math", time.Now())
			assert.NoError(t, storage.Create(ctx, tk))
		}(i)
	}
	wg.Wait()

	tasks, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 50)
}

// TestSubscriberStorage tests the subscriber lifecycle
func TestSubscriberStorage(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewSubscriberStorage()

	sub := subscriber.New("a@b.co", "tok-1")
	require.NoError(t, storage.Create(ctx, sub))
	assert.ErrorIs(t, storage.Create(ctx, subscriber.New("a@b.co", "tok-2")), repository.ErrAlreadyExists)

	found, err := storage.GetByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.False(t, found.Verified)
	assert.Equal(t, "tok-1", found.Token())

	updated, err := storage.UpdateToken(ctx, sub.ID, "tok-3")
	require.NoError(t, err)
	assert.Equal(t, "tok-3", updated.Token())

	_, err = storage.VerifyByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	verified, err := storage.VerifyByToken(ctx, "tok-3")
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Nil(t, verified.VerificationToken)

	list, err := storage.ListVerified(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	at := time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)
	require.NoError(t, storage.MarkNotified(ctx, sub.ID, at))
	found, err = storage.GetByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	require.NotNil(t, found.LastNotified)
	assert.True(t, at.Equal(*found.LastNotified))

	_, err = storage.GetByEmail(ctx, "missing@b.co")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestSettingsStorage tests the PIN row
func TestSettingsStorage(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewSettingsStorage()

	_, err := storage.GetPin(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, storage.SetPin(ctx, "1234"))
	pin, err := storage.GetPin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
}
