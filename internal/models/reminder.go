package models

import (
	"encoding/json"
	"time"
)

type AlertType string

const (
	AlertEmail AlertType = "email"
	AlertInApp AlertType = "inApp"
	AlertBoth  AlertType = "both"
)

func (a AlertType) Valid() bool {
	return a == AlertEmail || a == AlertInApp || a == AlertBoth
}

func (a AlertType) Email() bool { return a == AlertEmail || a == AlertBoth }
func (a AlertType) InApp() bool { return a == AlertInApp || a == AlertBoth }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type AlertStatus string

const (
	AlertStatusInactive  AlertStatus = "inactive"
	AlertStatusExhausted AlertStatus = "exhausted"
	AlertStatusOverdue   AlertStatus = "overdue"
	AlertStatusImminent  AlertStatus = "imminent"
	AlertStatusScheduled AlertStatus = "scheduled"
)

const (
	MaxReminderMessage = 200
	imminentWindow     = time.Hour
	recurringInterval  = 7 * 24 * time.Hour
	resendInterval     = time.Hour
	retryBase          = time.Minute
	retryMax           = time.Hour
)

type Reminder struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	ShowID      string          `json:"showId" db:"show_id"`
	NextEpisode EpisodeSnapshot `json:"nextEpisode" db:"-"`
	AlertTime   time.Time       `json:"alertTime" db:"alert_time"`
	AlertType   AlertType       `json:"alertType" db:"alert_type"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	IsRecurring bool            `json:"isRecurring" db:"is_recurring"`
	Message     string          `json:"message" db:"message"`
	Priority    Priority        `json:"priority" db:"priority"`
	LastSent    *time.Time      `json:"lastSent,omitempty" db:"last_sent"`
	SentCount   int             `json:"sentCount" db:"sent_count"`
	MaxSends    int             `json:"maxSends" db:"max_sends"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
	ShowTitle   string          `json:"showTitle,omitempty" db:"-"`

	// RetryAt overrides AlertTime as the next delivery attempt while a
	// worker holds the reminder or after a failed delivery.
	RetryAt        *time.Time `json:"-" db:"retry_at"`
	FailedAttempts int        `json:"-" db:"failed_attempts"`
}

// TimeUntilAlert is negative once the alert time has passed.
func (r *Reminder) TimeUntilAlert(now time.Time) time.Duration {
	return r.AlertTime.Sub(now)
}

func (r *Reminder) AlertStatus(now time.Time) AlertStatus {
	switch {
	case !r.IsActive:
		return AlertStatusInactive
	case r.SentCount >= r.MaxSends:
		return AlertStatusExhausted
	case !r.AlertTime.After(now):
		return AlertStatusOverdue
	case r.AlertTime.Sub(now) <= imminentWindow:
		return AlertStatusImminent
	default:
		return AlertStatusScheduled
	}
}

// NextAttempt is when the worker may next try to deliver the reminder.
func (r *Reminder) NextAttempt() time.Time {
	if r.RetryAt != nil {
		return *r.RetryAt
	}
	return r.AlertTime
}

// IsDue reports whether the worker should deliver the reminder at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return r.IsActive && r.SentCount < r.MaxSends && !r.NextAttempt().After(now)
}

// MarkFailed schedules the next attempt with exponential backoff capped at
// one hour.
func (r *Reminder) MarkFailed(now time.Time) {
	r.FailedAttempts++
	backoff := retryMax
	if r.FailedAttempts <= 6 {
		backoff = min(retryBase<<(r.FailedAttempts-1), retryMax)
	}
	next := now.Add(backoff)
	r.RetryAt = &next
}

// ResetRetry drops any pending retry so AlertTime decides the next attempt.
func (r *Reminder) ResetRetry() {
	r.RetryAt = nil
	r.FailedAttempts = 0
}

// MarkSent records one delivery. sent_count never passes max_sends: an
// exhausted reminder is deactivated, a recurring one moves to next week's
// episode and any other repeats an hour after the send.
func (r *Reminder) MarkSent(now time.Time) {
	r.ResetRetry()
	if r.SentCount >= r.MaxSends {
		r.IsActive = false
		return
	}

	t := now
	r.LastSent = &t
	r.SentCount++
	r.UpdatedAt = now

	if r.SentCount >= r.MaxSends {
		r.IsActive = false
		return
	}

	if r.IsRecurring {
		r.AlertTime = r.AlertTime.Add(recurringInterval)
		r.NextEpisode.Number++
		r.NextEpisode.Title = ""
		if r.NextEpisode.AirDate != nil {
			next := r.NextEpisode.AirDate.Add(recurringInterval)
			r.NextEpisode.AirDate = &next
		}
		return
	}

	r.AlertTime = now.Add(resendInterval)
}

type reminderJSON Reminder

// MarshalJSON adds the read-time fields timeUntilAlert (milliseconds) and
// alertStatus.
func (r Reminder) MarshalJSON() ([]byte, error) {
	now := time.Now()
	return json.Marshal(struct {
		reminderJSON
		TimeUntilAlert int64       `json:"timeUntilAlert"`
		AlertStatus    AlertStatus `json:"alertStatus"`
	}{
		reminderJSON:   reminderJSON(r),
		TimeUntilAlert: r.TimeUntilAlert(now).Milliseconds(),
		AlertStatus:    r.AlertStatus(now),
	})
}
