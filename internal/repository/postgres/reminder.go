package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reminderSelect = `
	SELECT r.id, r.user_id, r.show_id, r.next_episode_number, r.next_episode_title, r.next_episode_air_date,
		r.alert_time, r.alert_type, r.is_active, r.is_recurring, r.message, r.priority, r.last_sent,
		r.sent_count, r.max_sends, r.created_at, r.updated_at, r.retry_at, r.failed_attempts, s.title
	FROM reminders r
	JOIN shows s ON s.id = r.show_id`

// claimDueQuery leases due rows by moving retry_at past the lease. SKIP
// LOCKED keeps two workers from claiming the same row.
const claimDueQuery = `
	WITH due AS (
		SELECT id FROM reminders
		WHERE is_active AND sent_count < max_sends AND COALESCE(retry_at, alert_time) <= $1
		ORDER BY COALESCE(retry_at, alert_time)
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	), claimed AS (
		UPDATE reminders rm SET retry_at = $3
		FROM due
		WHERE rm.id = due.id
		RETURNING rm.*
	)
	SELECT r.id, r.user_id, r.show_id, r.next_episode_number, r.next_episode_title, r.next_episode_air_date,
		r.alert_time, r.alert_type, r.is_active, r.is_recurring, r.message, r.priority, r.last_sent,
		r.sent_count, r.max_sends, r.created_at, r.updated_at, r.retry_at, r.failed_attempts, s.title
	FROM claimed r
	JOIN shows s ON s.id = r.show_id
	ORDER BY r.alert_time`

type reminderRepository struct {
	db *pgxpool.Pool
}

func NewReminderRepository(db *pgxpool.Pool) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	rm := &models.Reminder{}
	err := row.Scan(
		&rm.ID, &rm.UserID, &rm.ShowID, &rm.NextEpisode.Number, &rm.NextEpisode.Title, &rm.NextEpisode.AirDate,
		&rm.AlertTime, &rm.AlertType, &rm.IsActive, &rm.IsRecurring, &rm.Message, &rm.Priority, &rm.LastSent,
		&rm.SentCount, &rm.MaxSends, &rm.CreatedAt, &rm.UpdatedAt, &rm.RetryAt, &rm.FailedAttempts, &rm.ShowTitle,
	)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (r *reminderRepository) Create(ctx context.Context, rm *models.Reminder) error {
	query := `
		INSERT INTO reminders (id, user_id, show_id, next_episode_number, next_episode_title, next_episode_air_date,
			alert_time, alert_type, is_active, is_recurring, message, priority, last_sent, sent_count, max_sends,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`

	now := time.Now()
	rm.CreatedAt = now
	rm.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		rm.ID, rm.UserID, rm.ShowID, rm.NextEpisode.Number, rm.NextEpisode.Title, rm.NextEpisode.AirDate,
		rm.AlertTime, rm.AlertType, rm.IsActive, rm.IsRecurring, rm.Message, rm.Priority, rm.LastSent,
		rm.SentCount, rm.MaxSends, now,
	)
	return wrap("create reminder", err)
}

func (r *reminderRepository) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	rm, err := scanReminder(r.db.QueryRow(ctx, reminderSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, wrap("get reminder", err)
	}
	return rm, nil
}

func (r *reminderRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*models.Reminder, error) {
	query := reminderSelect + `
		WHERE r.user_id = $1 AND (NOT $2 OR r.is_active)
		ORDER BY r.alert_time`
	return r.list(ctx, "list reminders", query, userID, activeOnly)
}

func (r *reminderRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Reminder, error) {
	return r.list(ctx, "claim due reminders", claimDueQuery, now, limit, now.Add(lease))
}

func (r *reminderRepository) list(ctx context.Context, op, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rm, err := scanReminder(rows)
		if err != nil {
			return nil, wrap("scan reminder", err)
		}
		reminders = append(reminders, rm)
	}

	return reminders, wrap(op, rows.Err())
}

func (r *reminderRepository) Update(ctx context.Context, rm *models.Reminder) error {
	query := `
		UPDATE reminders
		SET next_episode_number = $2, next_episode_title = $3, next_episode_air_date = $4, alert_time = $5,
			alert_type = $6, is_active = $7, is_recurring = $8, message = $9, priority = $10, last_sent = $11,
			sent_count = $12, max_sends = $13, retry_at = $14, failed_attempts = $15, updated_at = $16
		WHERE id = $1`

	rm.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		rm.ID, rm.NextEpisode.Number, rm.NextEpisode.Title, rm.NextEpisode.AirDate, rm.AlertTime,
		rm.AlertType, rm.IsActive, rm.IsRecurring, rm.Message, rm.Priority, rm.LastSent,
		rm.SentCount, rm.MaxSends, rm.RetryAt, rm.FailedAttempts, rm.UpdatedAt,
	)
	if err != nil {
		return wrap("update reminder", err)
	}
	return mustAffect("update reminder", tag)
}

func (r *reminderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return wrap("delete reminder", err)
	}
	return mustAffect("delete reminder", tag)
}
