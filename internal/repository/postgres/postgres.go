package postgres

import (
	"errors"
	"fmt"

	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation           = "23505"
	foreignKeyViolation       = "23503"
	invalidTextRepresentation = "22P02"
)

// New builds every PostgreSQL-backed repository on a shared pool.
func New(db *pgxpool.Pool) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(db),
		Shows:         NewShowRepository(db),
		Watchlist:     NewWatchlistRepository(db),
		Reviews:       NewReviewRepository(db),
		Clubs:         NewClubRepository(db),
		Posts:         NewPostRepository(db),
		Polls:         NewPollRepository(db),
		Reminders:     NewReminderRepository(db),
		Notifications: NewNotificationRepository(db),
		Stats:         NewStatsRepository(db),
	}
}

// wrap converts driver errors into repository sentinels and adds context.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		case foreignKeyViolation, invalidTextRepresentation:
			// 22P02 is a malformed uuid in a lookup, which cannot match a row.
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

// mustAffect reports ErrNotFound when an update or delete touched no rows.
func mustAffect(op string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
