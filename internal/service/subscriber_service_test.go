package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/models/subscriber"
	"taskReminder/internal/models/task"
	"taskReminder/internal/repository"
	"taskReminder/internal/repository/inmemory"
	"taskReminder/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

func verifiedSub(email string) *subscriber.Subscriber {
	return &subscriber.Subscriber{ID: uuid.New(), Email: email, Verified: true}
}

// TestSubscriberService_AddSubscriber tests registration against the in-memory store
func TestSubscriberService_AddSubscriber(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewSubscriberStorage()
	svc := service.NewSubscriberService(repo, inmemory.NewTaskStorage(), new(MockEmailDispatcher), clock.NewFake(time.Now()))

	first, err := svc.AddSubscriber(ctx, "a@b.co")
	require.NoError(t, err)
	assert.False(t, first.Verified)
	require.NotEmpty(t, first.Token())

	second, err := svc.AddSubscriber(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token(), second.Token())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.VerifySubscriber(ctx, second.Token())
	require.NoError(t, err)

	third, err := svc.AddSubscriber(ctx, "a@b.co")
	require.NoError(t, err)
	assert.True(t, third.Verified)
	assert.Empty(t, third.Token())
}

// TestSubscriberService_AddSubscriber_Errors tests failure paths
func TestSubscriberService_AddSubscriber_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		email     string
		setupMock func(*MockSubscriberRepository)
		errorCode string
	}{
		{
			name:      "empty email",
			email:     "  ",
			setupMock: func(m *MockSubscriberRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:  "lookup fails",
			email: "a@b.co",
			setupMock: func(m *MockSubscriberRepository) {
				m.On("GetByEmail", mock.Anything, "a@b.co").Return(nil, errors.New("db down"))
			},
		},
		{
			name:  "insert fails",
			email: "a@b.co",
			setupMock: func(m *MockSubscriberRepository) {
				m.On("GetByEmail", mock.Anything, "a@b.co").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockSubscriberRepository)
			tt.setupMock(repo)

			svc := service.NewSubscriberService(repo, new(MockTaskRepository), new(MockEmailDispatcher), nil)
			_, err := svc.AddSubscriber(ctx, tt.email)

			assert.Error(t, err)
			if tt.errorCode != "" {
				assert.True(t, service.IsCode(err, tt.errorCode))
			}
			repo.AssertExpectations(t)
		})
	}
}

// TestSubscriberService_VerifySubscriber tests token consumption
func TestSubscriberService_VerifySubscriber(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewSubscriberStorage()
	svc := service.NewSubscriberService(repo, inmemory.NewTaskStorage(), new(MockEmailDispatcher), nil)

	sub, err := svc.AddSubscriber(ctx, "a@b.co")
	require.NoError(t, err)

	_, err = svc.VerifySubscriber(ctx, "")
	assert.True(t, service.IsCode(err, service.CodeInvalidToken))

	_, err = svc.VerifySubscriber(ctx, "unknown")
	assert.True(t, service.IsCode(err, service.CodeInvalidToken))

	unchanged, err := repo.GetByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.False(t, unchanged.Verified)
	assert.Equal(t, sub.Token(), unchanged.Token())

	verified, err := svc.VerifySubscriber(ctx, sub.Token())
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	_, err = svc.VerifySubscriber(ctx, sub.Token())
	assert.True(t, service.IsCode(err, service.CodeInvalidToken))
}

// TestSubscriberService_SendVerificationEmail tests the verification mail
func TestSubscriberService_SendVerificationEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("sends link token", func(t *testing.T) {
		mailer := new(MockEmailDispatcher)
		mailer.On("SendVerification", mock.Anything, "a@b.co", "tok").Return(nil)
		svc := service.NewSubscriberService(new(MockSubscriberRepository), new(MockTaskRepository), mailer, nil)

		assert.NoError(t, svc.SendVerificationEmail(ctx, subscriber.New("a@b.co", "tok")))
		mailer.AssertExpectations(t)
	})

	t.Run("no token", func(t *testing.T) {
		svc := service.NewSubscriberService(new(MockSubscriberRepository), new(MockTaskRepository), new(MockEmailDispatcher), nil)
		err := svc.SendVerificationEmail(ctx, verifiedSub("a@b.co"))
		assert.True(t, service.IsCode(err, service.CodeInvalidToken))
	})

	t.Run("mail fails", func(t *testing.T) {
		mailer := new(MockEmailDispatcher)
		mailer.On("SendVerification", mock.Anything, "a@b.co", "tok").Return(errors.New("status 400"))
		svc := service.NewSubscriberService(new(MockSubscriberRepository), new(MockTaskRepository), mailer, nil)

		err := svc.SendVerificationEmail(ctx, subscriber.New("a@b.co", "tok"))
		assert.True(t, service.IsCode(err, service.CodeEmailFailed))
	})
}

// TestSubscriberService_GetVerifiedSubscribers tests the soft failure
func TestSubscriberService_GetVerifiedSubscribers(t *testing.T) {
	repo := new(MockSubscriberRepository)
	repo.On("ListVerified", mock.Anything).Return(nil, errors.New("db down"))
	svc := service.NewSubscriberService(repo, new(MockTaskRepository), new(MockEmailDispatcher), nil)

	subs := svc.GetVerifiedSubscribers(context.Background())
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

// TestSubscriberService_SendNewTaskNotificationToAll tests fan-out and stamping
func TestSubscriberService_SendNewTaskNotificationToAll(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 9, 8, 0, 0, 0, wib)
	tk := task.New("Essay", "Bahasa", now.Add(24*time.Hour))
	ok := verifiedSub("ok@b.co")
	bad := verifiedSub("bad@b.co")

	t.Run("failure for one recipient does not stop the rest", func(t *testing.T) {
		repo := new(MockSubscriberRepository)
		repo.On("ListVerified", mock.Anything).Return([]*subscriber.Subscriber{bad, ok}, nil)
		repo.On("MarkNotified", mock.Anything, ok.ID, now).Return(nil).Once()

		mailer := new(MockEmailDispatcher)
		mailer.On("SendNewTask", mock.Anything, "bad@b.co", tk).Return(errors.New("status 500"))
		mailer.On("SendNewTask", mock.Anything, "ok@b.co", tk).Return(nil)

		svc := service.NewSubscriberService(repo, new(MockTaskRepository), mailer, clock.NewFake(now))
		assert.NoError(t, svc.SendNewTaskNotificationToAll(ctx, tk))

		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "MarkNotified", mock.Anything, bad.ID, mock.Anything)
		mailer.AssertExpectations(t)
	})

	t.Run("list failure is returned for retry", func(t *testing.T) {
		repo := new(MockSubscriberRepository)
		repo.On("ListVerified", mock.Anything).Return(nil, errors.New("db down"))

		svc := service.NewSubscriberService(repo, new(MockTaskRepository), new(MockEmailDispatcher), clock.NewFake(now))
		assert.Error(t, svc.SendNewTaskNotificationToAll(ctx, tk))
	})
}

// TestSubscriberService_SendTaskReminders tests the tomorrow window and dispatch
func TestSubscriberService_SendTaskReminders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 9, 8, 0, 0, 0, wib)
	from := time.Date(2024, 6, 10, 0, 0, 0, 0, wib)
	to := time.Date(2024, 6, 11, 0, 0, 0, 0, wib)
	dueTasks := []*task.Task{task.New("Essay", "Bahasa", from.Add(23*time.Hour))}
	sub := verifiedSub("a@b.co")

	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository, *MockSubscriberRepository, *MockEmailDispatcher)
		expectError bool
	}{
		{
			name: "one reminder per subscriber",
			setupMock: func(tr *MockTaskRepository, sr *MockSubscriberRepository, em *MockEmailDispatcher) {
				tr.On("ListDueBetween", mock.Anything, from, to).Return(dueTasks, nil)
				sr.On("ListVerified", mock.Anything).Return([]*subscriber.Subscriber{sub}, nil)
				em.On("SendReminder", mock.Anything, "a@b.co", dueTasks).Return(nil).Once()
				sr.On("MarkNotified", mock.Anything, sub.ID, now).Return(nil).Once()
			},
		},
		{
			name: "no tasks due",
			setupMock: func(tr *MockTaskRepository, sr *MockSubscriberRepository, em *MockEmailDispatcher) {
				tr.On("ListDueBetween", mock.Anything, from, to).Return([]*task.Task{}, nil)
			},
		},
		{
			name: "no verified subscribers",
			setupMock: func(tr *MockTaskRepository, sr *MockSubscriberRepository, em *MockEmailDispatcher) {
				tr.On("ListDueBetween", mock.Anything, from, to).Return(dueTasks, nil)
				sr.On("ListVerified", mock.Anything).Return([]*subscriber.Subscriber{}, nil)
			},
		},
		{
			name: "task read failure",
			setupMock: func(tr *MockTaskRepository, sr *MockSubscriberRepository, em *MockEmailDispatcher) {
				tr.On("ListDueBetween", mock.Anything, from, to).Return(nil, errors.New("db down"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := new(MockTaskRepository)
			subs := new(MockSubscriberRepository)
			mailer := new(MockEmailDispatcher)
			tt.setupMock(tasks, subs, mailer)

			svc := service.NewSubscriberService(subs, tasks, mailer, clock.NewFake(now))
			err := svc.SendTaskReminders(ctx)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			tasks.AssertExpectations(t)
			subs.AssertExpectations(t)
			mailer.AssertExpectations(t)
		})
	}
}

// TestSubscriberService_SendTestEmail tests the test email
func TestSubscriberService_SendTestEmail(t *testing.T) {
	mailer := new(MockEmailDispatcher)
	mailer.On("SendTest", mock.Anything, "a@b.co").Return(nil)
	svc := service.NewSubscriberService(new(MockSubscriberRepository), new(MockTaskRepository), mailer, nil)

	assert.NoError(t, svc.SendTestEmail(context.Background(), " a@b.co "))
	assert.True(t, service.IsCode(svc.SendTestEmail(context.Background(), ""), service.CodeValidation))
	mailer.AssertExpectations(t)
}
