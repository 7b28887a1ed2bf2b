package postgres

import (
	"context"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type statsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) repository.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active),
			(SELECT COUNT(*) FROM shows),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM clubs),
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM polls),
			(SELECT COUNT(*) FROM reminders WHERE is_active)`

	s := &models.AdminStats{}
	err := r.db.QueryRow(ctx, query).Scan(
		&s.Users, &s.ActiveUsers, &s.Shows, &s.Reviews, &s.Clubs, &s.Posts, &s.Polls, &s.Reminders,
	)
	if err != nil {
		return nil, wrap("load admin stats", err)
	}
	return s, nil
}
