package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pollColumns = `id, club_id, author_id, question, allow_multiple, ends_at, created_at`

type pollRepository struct {
	db *pgxpool.Pool
}

func NewPollRepository(db *pgxpool.Pool) repository.PollRepository {
	return &pollRepository{db: db}
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	p := &models.Poll{}
	err := row.Scan(&p.ID, &p.ClubID, &p.AuthorID, &p.Question, &p.AllowMultiple, &p.EndsAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Options = []models.PollOption{}
	return p, nil
}

func (r *pollRepository) Create(ctx context.Context, poll *models.Poll) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrap("begin poll transaction", err)
	}
	defer tx.Rollback(ctx)

	poll.CreatedAt = time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO polls (`+pollColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		poll.ID, poll.ClubID, poll.AuthorID, poll.Question, poll.AllowMultiple, poll.EndsAt, poll.CreatedAt,
	)
	if err != nil {
		return wrap("create poll", err)
	}

	for i, o := range poll.Options {
		_, err = tx.Exec(ctx,
			`INSERT INTO poll_options (id, poll_id, position, text) VALUES ($1, $2, $3, $4)`,
			o.ID, poll.ID, i, o.Text,
		)
		if err != nil {
			return wrap("create poll option", err)
		}
		if poll.Options[i].Votes == nil {
			poll.Options[i].Votes = []models.PollVote{}
		}
	}

	return wrap("commit poll", tx.Commit(ctx))
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := scanPoll(r.db.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get poll", err)
	}

	if err := r.attachOptions(ctx, []*models.Poll{poll}); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) ListByClub(ctx context.Context, clubID string) ([]*models.Poll, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pollColumns+` FROM polls WHERE club_id = $1 ORDER BY created_at DESC`, clubID)
	if err != nil {
		return nil, wrap("list polls", err)
	}
	defer rows.Close()

	var polls []*models.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, wrap("scan poll", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list polls", err)
	}

	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// attachOptions loads options in position order with their votes.
func (r *pollRepository) attachOptions(ctx context.Context, polls []*models.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	ids := make([]string, len(polls))
	byID := make(map[string]*models.Poll, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query := `
		SELECT o.id, o.poll_id, o.text,
			COALESCE(ARRAY_AGG(v.user_id::text ORDER BY v.voted_at) FILTER (WHERE v.user_id IS NOT NULL), '{}'),
			COALESCE(ARRAY_AGG(v.voted_at ORDER BY v.voted_at) FILTER (WHERE v.user_id IS NOT NULL), '{}')
		FROM poll_options o
		LEFT JOIN poll_votes v ON v.option_id = o.id
		WHERE o.poll_id::text = ANY($1::text[])
		GROUP BY o.id, o.poll_id, o.text, o.position
		ORDER BY o.poll_id, o.position`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return wrap("list poll options", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o       models.PollOption
			pollID  string
			voters  []string
			votedAt []time.Time
		)
		if err := rows.Scan(&o.ID, &pollID, &o.Text, &voters, &votedAt); err != nil {
			return wrap("scan poll option", err)
		}

		o.Votes = make([]models.PollVote, 0, len(voters))
		for i, userID := range voters {
			o.Votes = append(o.Votes, models.PollVote{UserID: userID, VotedAt: votedAt[i]})
		}

		if p, ok := byID[pollID]; ok {
			p.Options = append(p.Options, o)
		}
	}

	return wrap("list poll options", rows.Err())
}

func (r *pollRepository) SetVotes(ctx context.Context, pollID, userID string, optionIDs []string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrap("begin vote transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM poll_votes WHERE poll_id = $1 AND user_id = $2`, pollID, userID); err != nil {
		return wrap("clear votes", err)
	}

	for _, optionID := range optionIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO poll_votes (option_id, poll_id, user_id, voted_at) VALUES ($1, $2, $3, $4)`,
			optionID, pollID, userID, at,
		)
		if err != nil {
			return wrap("cast vote", err)
		}
	}

	return wrap("commit votes", tx.Commit(ctx))
}
