package reminder_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/kvstore"
	"taskReminder/internal/models/task"
	"taskReminder/internal/notify"
	"taskReminder/internal/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskSource struct {
	mock.Mock
}

func (m *MockTaskSource) FetchTasks(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

type MockReminderSender struct {
	mock.Mock
}

func (m *MockReminderSender) SendTaskReminders(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var (
	_ reminder.TaskSource     = (*MockTaskSource)(nil)
	_ reminder.ReminderSender = (*MockReminderSender)(nil)
)

var wib = time.FixedZone("WIB", 7*60*60)

type fixture struct {
	source *MockTaskSource
	sender *MockReminderSender
	inbox  *notify.Inbox
	store  *kvstore.Memory
	clock  *clock.Fake
	sched  *reminder.Scheduler
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		source: new(MockTaskSource),
		sender: new(MockReminderSender),
		inbox:  notify.NewInbox(10),
		store:  kvstore.NewMemory(),
		clock:  clock.NewFake(now),
	}
	f.sched = reminder.NewScheduler(f.source, f.sender, f.inbox, f.store, f.clock, reminder.Options{
		FireHour: 7,
		Location: wib,
	})
	return f
}

func (f *fixture) pending(t *testing.T) []reminder.ScheduledNotification {
	t.Helper()
	raw, err := f.store.Get(context.Background(), reminder.KeyScheduled)
	require.NoError(t, err)
	var out []reminder.ScheduledNotification
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

// TestScheduler_DueTomorrowFiresSameRun checks a task due tomorrow night is scheduled at 07:00 today and shown at 08:00
func TestScheduler_DueTomorrowFiresSameRun(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	tk := task.New("Laporan", "Fisika", time.Date(2024, 6, 10, 23, 0, 0, 0, wib))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{tk}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil).Once()

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.DueTomorrow)
	assert.Equal(t, 1, res.Scheduled)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, 0, res.Pending)
	assert.True(t, res.EmailDispatched)

	shown := f.inbox.Drain()
	require.Len(t, shown, 1)
	assert.Equal(t, "Pengingat Tugas", shown[0].Title)
	assert.Equal(t, `Tugas "Laporan" (Fisika) jatuh tempo besok!`, shown[0].Body)
	assert.Equal(t, "/", shown[0].URL)

	assert.Empty(t, f.pending(t))

	flag, err := f.store.Get(context.Background(), reminder.KeyLastEmailCheck)
	require.NoError(t, err)
	assert.Equal(t, "Sun Jun 09 2024", flag)
	f.sender.AssertExpectations(t)
}

// TestScheduler_BeforeFireTime checks entries wait until the fire time and are not duplicated
func TestScheduler_BeforeFireTime(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 6, 0, 0, 0, wib))
	tk := task.New("Esai", "Sejarah", time.Date(2024, 6, 10, 9, 0, 0, 0, wib))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{tk}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil).Once()

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
	assert.Equal(t, 0, res.Fired)

	pending := f.pending(t)
	require.Len(t, pending, 1)
	assert.Equal(t, "reminder-"+tk.ID.String(), pending[0].ID)
	assert.Equal(t, time.Date(2024, 6, 9, 7, 0, 0, 0, wib).UnixMilli(), pending[0].ScheduledTime)

	f.clock.Add(30 * time.Minute)
	res, err = f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scheduled)
	assert.False(t, res.EmailDispatched)
	assert.Len(t, f.pending(t), 1)
	assert.Equal(t, 0, f.inbox.Len())

	f.clock.Add(time.Hour)
	res, err = f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, 1, f.inbox.Len())
	assert.Empty(t, f.pending(t))

	f.sender.AssertNumberOfCalls(t, "SendTaskReminders", 1)
}

// TestScheduler_BodyKeepsTitleVerbatim checks quotes and backslashes in a title reach the body unescaped
func TestScheduler_BodyKeepsTitleVerbatim(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	tk := task.New(`Esai "Final" \ revisi`, "Bahasa", time.Date(2024, 6, 10, 12, 0, 0, 0, wib))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{tk}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil)

	_, err := f.sched.Run(context.Background())
	require.NoError(t, err)

	shown := f.inbox.Drain()
	require.Len(t, shown, 1)
	assert.Equal(t, `Tugas "Esai "Final" \ revisi" (Bahasa) jatuh tempo besok!`, shown[0].Body)
}

// TestScheduler_OnlyTomorrow checks tasks due today or later than tomorrow are ignored
func TestScheduler_OnlyTomorrow(t *testing.T) {
	now := time.Date(2024, 6, 9, 8, 0, 0, 0, wib)
	f := newFixture(now)

	tasks := []*task.Task{
		task.New("Hari ini", "A", time.Date(2024, 6, 9, 23, 59, 0, 0, wib)),
		task.New("Lusa", "B", time.Date(2024, 6, 11, 0, 0, 0, 0, wib)),
		// 2024-06-10 01:00 WIB, given in UTC
		task.New("Besok", "C", time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC)),
	}
	f.source.On("FetchTasks", mock.Anything).Return(tasks, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil)

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DueTomorrow)

	shown := f.inbox.Drain()
	require.Len(t, shown, 1)
	assert.Contains(t, shown[0].Body, `"Besok"`)
}

// TestScheduler_NothingDue checks no email is sent and nothing is stored when no task is due tomorrow
func TestScheduler_NothingDue(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{}, nil)

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reminder.Result{}, res)

	_, err = f.store.Get(context.Background(), reminder.KeyScheduled)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	f.sender.AssertNotCalled(t, "SendTaskReminders", mock.Anything)
}

// TestScheduler_EmailOncePerDay checks the reminder email goes out once a day and again the next day
func TestScheduler_EmailOncePerDay(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	first := task.New("A", "X", time.Date(2024, 6, 10, 12, 0, 0, 0, wib))
	second := task.New("B", "Y", time.Date(2024, 6, 11, 12, 0, 0, 0, wib))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{first, second}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil)

	for i := 0; i < 3; i++ {
		_, err := f.sched.Run(context.Background())
		require.NoError(t, err)
	}
	f.sender.AssertNumberOfCalls(t, "SendTaskReminders", 1)

	f.clock.Add(24 * time.Hour)
	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.EmailDispatched)
	f.sender.AssertNumberOfCalls(t, "SendTaskReminders", 2)
}

// TestScheduler_EmailFailureRetries checks a failed dispatch leaves the daily flag unset
func TestScheduler_EmailFailureRetries(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	tk := task.New("A", "X", time.Date(2024, 6, 10, 12, 0, 0, 0, wib))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{tk}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(errors.New("smtp down")).Once()
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil).Once()

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.EmailDispatched)

	_, err = f.store.Get(context.Background(), reminder.KeyLastEmailCheck)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	res, err = f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.EmailDispatched)
	f.sender.AssertExpectations(t)
}

// TestScheduler_CorruptSchedule checks unreadable stored JSON is replaced
func TestScheduler_CorruptSchedule(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 6, 0, 0, 0, wib))
	require.NoError(t, f.store.Set(context.Background(), reminder.KeyScheduled, "{not json"))

	tk := task.New("A", "X", time.Date(2024, 6, 10, 12, 0, 0, 0, wib))
	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{tk}, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil)

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
	assert.Len(t, f.pending(t), 1)
}

// TestScheduler_KeepsForeignEntries checks previously stored entries survive and fire on time
func TestScheduler_KeepsForeignEntries(t *testing.T) {
	now := time.Date(2024, 6, 9, 8, 0, 0, 0, wib)
	f := newFixture(now)

	stored := []reminder.ScheduledNotification{
		{ID: "reminder-old", Title: "Pengingat Tugas", Body: "lama", ScheduledTime: now.Add(-time.Hour).UnixMilli()},
		{ID: "reminder-later", Title: "Pengingat Tugas", Body: "nanti", ScheduledTime: now.Add(time.Hour).UnixMilli()},
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), reminder.KeyScheduled, string(raw)))

	f.source.On("FetchTasks", mock.Anything).Return([]*task.Task{}, nil)

	res, err := f.sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, 1, res.Pending)

	pending := f.pending(t)
	require.Len(t, pending, 1)
	assert.Equal(t, "reminder-later", pending[0].ID)
	assert.Equal(t, "lama", f.inbox.Drain()[0].Body)
}

// TestScheduler_FetchError checks a task read failure aborts the run without touching storage
func TestScheduler_FetchError(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 8, 0, 0, 0, wib))
	f.source.On("FetchTasks", mock.Anything).Return(nil, errors.New("db down"))

	_, err := f.sched.Run(context.Background())
	require.Error(t, err)

	keys, err := f.store.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
	f.sender.AssertNotCalled(t, "SendTaskReminders", mock.Anything)
}

// TestScheduler_ConcurrentRuns checks parallel runs never duplicate an entry
func TestScheduler_ConcurrentRuns(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 9, 6, 0, 0, 0, wib))
	var tasks []*task.Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, task.New(fmt.Sprintf("T%d", i), "X", time.Date(2024, 6, 10, 10, 0, 0, 0, wib)))
	}
	f.source.On("FetchTasks", mock.Anything).Return(tasks, nil)
	f.sender.On("SendTaskReminders", mock.Anything).Return(nil)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = f.sched.Run(context.Background())
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Len(t, f.pending(t), 5)
	f.sender.AssertNumberOfCalls(t, "SendTaskReminders", 1)
}
