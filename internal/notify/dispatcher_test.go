package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"anitrack/internal/logger"
	"anitrack/internal/models"
	"anitrack/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	sent []*models.Notification
}

func (p *recordingPusher) Send(n *models.Notification) int {
	p.sent = append(p.sent, n)
	return 1
}

type recordingEmail struct {
	to, subject, body string
	err               error
}

func (e *recordingEmail) Send(_ context.Context, to, subject, body string) error {
	if e.err != nil {
		return e.err
	}
	e.to, e.subject, e.body = to, subject, body
	return nil
}

var alertAt = time.Date(2025, 4, 5, 15, 0, 0, 0, time.UTC)

func testReminder(alert models.AlertType) *models.Reminder {
	return &models.Reminder{
		ID:          "rem-1",
		UserID:      "user-1",
		ShowTitle:   "Frieren",
		NextEpisode: models.EpisodeSnapshot{Number: 12},
		AlertTime:   alertAt,
		AlertType:   alert,
		Message:     "Snacks ready",
	}
}

func TestCompose(t *testing.T) {
	title, body := Compose(testReminder(models.AlertInApp))
	assert.Equal(t, "Frieren: episode 12", title)
	assert.True(t, strings.HasPrefix(body, "Snacks ready\n\n"))
	assert.Contains(t, body, "April 5, 2025 15:00 UTC")

	title, _ = Compose(&models.Reminder{AlertTime: alertAt})
	assert.Equal(t, "Your show", title)
}

func TestDispatcher_InApp(t *testing.T) {
	repos := repotest.New().Repositories()
	pusher := &recordingPusher{}
	email := &recordingEmail{}
	d := NewDispatcher(repos.Notifications, pusher, email, logger.Discard())

	user := &models.User{ID: "user-1", Email: "a@example.com"}
	require.NoError(t, d.Deliver(t.Context(), user, testReminder(models.AlertInApp)))

	require.Len(t, pusher.sent, 1)
	assert.Equal(t, "Frieren: episode 12", pusher.sent[0].Title)
	require.NotNil(t, pusher.sent[0].ReminderID)
	assert.Equal(t, "rem-1", *pusher.sent[0].ReminderID)
	assert.Empty(t, email.to)

	stored, err := repos.Notifications.ListByUser(t.Context(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsRead)
}

func TestDispatcher_Both(t *testing.T) {
	repos := repotest.New().Repositories()
	pusher := &recordingPusher{}
	email := &recordingEmail{}
	d := NewDispatcher(repos.Notifications, pusher, email, logger.Discard())

	user := &models.User{ID: "user-1", Email: "a@example.com"}
	require.NoError(t, d.Deliver(t.Context(), user, testReminder(models.AlertBoth)))

	assert.Len(t, pusher.sent, 1)
	assert.Equal(t, "a@example.com", email.to)
	assert.Equal(t, "Frieren: episode 12", email.subject)
}

func TestDispatcher_EmailFailure(t *testing.T) {
	repos := repotest.New().Repositories()
	pusher := &recordingPusher{}
	email := &recordingEmail{err: errors.New("relay refused")}
	d := NewDispatcher(repos.Notifications, pusher, email, logger.Discard())

	user := &models.User{ID: "user-1", Email: "a@example.com"}
	err := d.Deliver(t.Context(), user, testReminder(models.AlertEmail))
	require.Error(t, err)
	assert.Empty(t, pusher.sent)
}

func TestSMTPSender_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := &SMTPSender{
		config: SMTPConfig{Host: "mail.test", Port: "2525", From: "anitrack@mail.test"},
		logger: logger.Discard(),
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		},
	}

	require.NoError(t, s.Send(t.Context(), "a@example.com", "Episode 12\r\nBcc: evil@example.com", "line one\nline two"))
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, "anitrack@mail.test", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: Episode 12  Bcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Contains(t, msg, "line one\r\nline two")
}

func TestNewEmailSender_WithoutHostLogsOnly(t *testing.T) {
	sender := NewEmailSender(SMTPConfig{}, logger.Discard())
	_, ok := sender.(LogSender)
	assert.True(t, ok)
	assert.NoError(t, sender.Send(t.Context(), "a@example.com", "s", "b"))
}
