package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anitrack/internal/metrics"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pusher delivers a notification to live connections.
type Pusher interface {
	Send(n *models.Notification) int
}

// Dispatcher delivers reminders over the channels named by their alert type.
type Dispatcher struct {
	notifications repository.NotificationRepository
	pusher        Pusher
	email         EmailSender
	logger        *logrus.Logger
}

func NewDispatcher(notifications repository.NotificationRepository, pusher Pusher, email EmailSender, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		pusher:        pusher,
		email:         email,
		logger:        logger,
	}
}

// Deliver succeeds only if every channel the alert type names succeeds.
func (d *Dispatcher) Deliver(ctx context.Context, user *models.User, rm *models.Reminder) error {
	title, body := Compose(rm)

	if rm.AlertType.InApp() {
		reminderID := rm.ID
		n := &models.Notification{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			ReminderID: &reminderID,
			Title:      title,
			Body:       body,
		}
		if err := d.notifications.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to store notification: %w", err)
		}

		live := 0
		if d.pusher != nil {
			live = d.pusher.Send(n)
		}
		metrics.Get().RemindersSentTotal.WithLabelValues(string(models.AlertInApp)).Inc()
		d.logger.WithFields(logrus.Fields{
			"user_id":     user.ID,
			"reminder_id": rm.ID,
			"live":        live,
		}).Debug("In-app notification delivered")
	}

	if rm.AlertType.Email() {
		if err := d.email.Send(ctx, user.Email, title, body); err != nil {
			return err
		}
		metrics.Get().RemindersSentTotal.WithLabelValues(string(models.AlertEmail)).Inc()
	}

	return nil
}

// Compose renders the notification title and body for a reminder.
func Compose(rm *models.Reminder) (string, string) {
	show := rm.ShowTitle
	if show == "" {
		show = "Your show"
	}

	title := show
	if rm.NextEpisode.Number > 0 {
		title = fmt.Sprintf("%s: episode %d", show, rm.NextEpisode.Number)
	}

	var body strings.Builder
	if rm.Message != "" {
		body.WriteString(rm.Message)
		body.WriteString("\n\n")
	}
	if rm.NextEpisode.Title != "" {
		fmt.Fprintf(&body, "Episode title: %s\n", rm.NextEpisode.Title)
	}
	if rm.NextEpisode.AirDate != nil {
		fmt.Fprintf(&body, "Airs: %s\n", rm.NextEpisode.AirDate.UTC().Format(time.RFC1123))
	}
	fmt.Fprintf(&body, "You set this reminder for %s", rm.AlertTime.UTC().Format("January 2, 2006 15:04 MST"))

	return title, body.String()
}
