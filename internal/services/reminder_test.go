package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"anitrack/internal/logger"
	"anitrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderService_CreateDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(2 * time.Hour)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: onePiece.MalID, AlertTime: &at})
	require.NoError(t, err)
	assert.Equal(t, models.AlertInApp, rm.AlertType)
	assert.Equal(t, models.PriorityMedium, rm.Priority)
	assert.Equal(t, 1, rm.MaxSends)
	assert.True(t, rm.IsActive)
	assert.Equal(t, 1101, rm.NextEpisode.Number, "copied from the airing show")
	assert.Equal(t, onePiece.Title, rm.ShowTitle)

	active, err := env.reminders.List(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReminderService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Hour)
	long := make([]byte, models.MaxReminderMessage+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		in   ReminderInput
	}{
		{"missing time", ReminderInput{MalID: frieren.MalID}},
		{"past time", ReminderInput{MalID: frieren.MalID, AlertTime: &past}},
		{"bad alert type", ReminderInput{MalID: frieren.MalID, AlertTime: &future, AlertType: "sms"}},
		{"bad priority", ReminderInput{MalID: frieren.MalID, AlertTime: &future, Priority: "urgent"}},
		{"message too long", ReminderInput{MalID: frieren.MalID, AlertTime: &future, Message: string(long)}},
		{"too many sends", ReminderInput{MalID: frieren.MalID, AlertTime: &future, MaxSends: maxReminderSends + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reminders.Create(ctx, alice.ID, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestReminderService_UpdateToggleDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	at := testNow.Add(time.Hour)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
	require.NoError(t, err)

	_, err = env.reminders.Update(ctx, bob.ID, rm.ID, UpdateReminderInput{Message: ptr("mine now")})
	assert.ErrorIs(t, err, ErrForbidden)

	rm, err = env.reminders.Update(ctx, alice.ID, rm.ID, UpdateReminderInput{
		Message:   ptr("  new episode tonight  "),
		AlertType: ptr(models.AlertBoth),
		MaxSends:  ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "new episode tonight", rm.Message)
	assert.Equal(t, models.AlertBoth, rm.AlertType)
	assert.Equal(t, 3, rm.MaxSends)
	assert.Equal(t, frieren.Title, rm.ShowTitle)

	rm, err = env.reminders.Toggle(ctx, alice.ID, rm.ID)
	require.NoError(t, err)
	assert.False(t, rm.IsActive)

	active, err := env.reminders.List(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, env.reminders.Delete(ctx, alice.ID, rm.ID))
	all, err := env.reminders.List(ctx, alice.ID, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func newTestWorker(env *testEnv, notifier Notifier, now time.Time) *ReminderWorker {
	w := NewReminderWorker(env.repos, notifier, nil, logger.Discard(), time.Minute, 10)
	w.now = func() time.Time { return now }
	return w
}

func TestReminderWorker_DeliversDueReminders(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	soon := testNow.Add(time.Minute)
	later := testNow.Add(48 * time.Hour)
	due, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &soon})
	require.NoError(t, err)
	_, err = env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: onePiece.MalID, AlertTime: &later})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	worker := newTestWorker(env, notifier, testNow.Add(time.Hour))

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{due.ID}, notifier.delivered)

	stored, err := env.repos.Reminders.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SentCount)
	assert.False(t, stored.IsActive, "exhausted after its only send")
	assert.NotNil(t, stored.LastSent)

	sent, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stats := worker.Stats()
	assert.Equal(t, 1, stats.NotificationsSent)
	assert.Equal(t, 1, stats.RemindersProcessed)
	assert.Zero(t, stats.Errors)
}

func TestReminderWorker_RecurringAdvancesAWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: onePiece.MalID, AlertTime: &at, IsRecurring: true, MaxSends: 4})
	require.NoError(t, err)

	worker := newTestWorker(env, &fakeNotifier{}, testNow.Add(time.Hour))
	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	stored, err := env.repos.Reminders.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, 1, stored.SentCount)
	assert.Equal(t, at.Add(7*24*time.Hour), stored.AlertTime)
	assert.Equal(t, 1102, stored.NextEpisode.Number)
}

func TestReminderWorker_FailedDeliveryIsRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
	require.NoError(t, err)

	notifier := &fakeNotifier{fail: errors.New("smtp down")}
	worker := newTestWorker(env, notifier, testNow.Add(time.Hour))

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, worker.Stats().Errors)

	stored, err := env.repos.Reminders.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.SentCount)
	assert.True(t, stored.IsActive)

	assert.Equal(t, 1, stored.FailedAttempts)
	require.NotNil(t, stored.RetryAt)
	assert.Equal(t, testNow.Add(time.Hour+time.Minute), *stored.RetryAt)

	notifier.fail = nil
	sent, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "backing off")

	worker.now = func() time.Time { return testNow.Add(time.Hour + time.Minute) }
	sent, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	stored, err = env.repos.Reminders.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedAttempts)
	assert.Nil(t, stored.RetryAt)
}

func TestReminderWorker_FailingReminderDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	older := testNow.Add(time.Minute)
	newer := testNow.Add(2 * time.Minute)
	_, err := env.reminders.Create(ctx, bob.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &older})
	require.NoError(t, err)
	valid, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &newer})
	require.NoError(t, err)

	notifier := &fakeNotifier{failFor: map[string]error{bob.ID: errors.New("mailbox unavailable")}}
	worker := newTestWorker(env, notifier, testNow.Add(time.Hour))
	worker.batchSize = 1

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{valid.ID}, notifier.delivered)
	assert.Equal(t, 1, worker.Stats().Errors)
}

func TestReminderWorker_DrainsBacklogInOneTick(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	for i := range 5 {
		at := testNow.Add(time.Duration(i+1) * time.Minute)
		_, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{}
	worker := newTestWorker(env, notifier, testNow.Add(time.Hour))
	worker.batchSize = 2

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, sent)
	assert.Len(t, notifier.delivered, 5)
}

func TestReminderRepository_ClaimDueLeasesRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
	require.NoError(t, err)

	now := testNow.Add(time.Hour)
	claimed, err := env.repos.Reminders.ClaimDue(ctx, now, 5*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, rm.ID, claimed[0].ID)

	again, err := env.repos.Reminders.ClaimDue(ctx, now, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "held by the first claim")

	expired, err := env.repos.Reminders.ClaimDue(ctx, now.Add(5*time.Minute), 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Len(t, expired, 1)
}

func TestReminderWorker_RepeatsAreSpacedOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at, MaxSends: 2})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	sendAt := testNow.Add(10 * time.Minute)
	worker := newTestWorker(env, notifier, sendAt)

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	worker.now = func() time.Time { return sendAt.Add(time.Minute) }
	sent, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := env.repos.Reminders.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, sendAt.Add(time.Hour), stored.AlertTime)
	assert.True(t, stored.IsActive)
}

func TestReminderWorker_DeactivatedOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
	require.NoError(t, err)

	alice.IsActive = false
	require.NoError(t, env.repos.Users.Update(ctx, alice))

	notifier := &fakeNotifier{}
	worker := newTestWorker(env, notifier, testNow.Add(time.Hour))

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, notifier.delivered)
	assert.Zero(t, worker.Stats().Errors)

	stored, err := env.repos.Reminders.GetByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Zero(t, stored.SentCount)
}

func TestReminderWorker_ExhaustedCannotBeReactivated(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.user(t, "alice")

	at := testNow.Add(time.Minute)
	rm, err := env.reminders.Create(ctx, alice.ID, ReminderInput{MalID: frieren.MalID, AlertTime: &at})
	require.NoError(t, err)

	_, err = newTestWorker(env, &fakeNotifier{}, testNow.Add(time.Hour)).ProcessDue(ctx)
	require.NoError(t, err)

	_, err = env.reminders.Toggle(ctx, alice.ID, rm.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.reminders.Update(ctx, alice.ID, rm.ID, UpdateReminderInput{MaxSends: ptr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	rm, err = env.reminders.Update(ctx, alice.ID, rm.ID, UpdateReminderInput{MaxSends: ptr(2)})
	require.NoError(t, err)
	rm, err = env.reminders.Toggle(ctx, alice.ID, rm.ID)
	require.NoError(t, err)
	assert.True(t, rm.IsActive)
}

func TestReminderWorker_RunStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	worker := newTestWorker(env, &fakeNotifier{}, testNow)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return worker.Stats().IsRunning }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, worker.Stats().IsRunning)
}
