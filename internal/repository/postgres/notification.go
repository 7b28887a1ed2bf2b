package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, reminder_id, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	n.CreatedAt = time.Now()

	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, n.ReminderID, n.Title, n.Body, n.IsRead, n.CreatedAt)
	return wrap("create notification", err)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, reminder_id::text, title, body, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.ReminderID, &n.Title, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, wrap("scan notification", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, wrap("list notifications", rows.Err())
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return wrap("mark notification read", err)
	}
	return mustAffect("mark notification read", tag)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, wrap("mark all notifications read", err)
	}
	return int(tag.RowsAffected()), nil
}
