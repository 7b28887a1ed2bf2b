package models

import "time"

type Notification struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	ReminderID *string   `json:"reminderId,omitempty" db:"reminder_id"`
	Title      string    `json:"title" db:"title"`
	Body       string    `json:"body" db:"body"`
	IsRead     bool      `json:"isRead" db:"is_read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
