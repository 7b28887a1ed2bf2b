package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const showColumns = `id, mal_id, title, synopsis, type, status, episodes, score, year, genres, image_url,
	next_episode_number, next_episode_title, next_episode_air_date, created_at, updated_at`

type showRepository struct {
	db *pgxpool.Pool
}

func NewShowRepository(db *pgxpool.Pool) repository.ShowRepository {
	return &showRepository{db: db}
}

func scanShow(row pgx.Row, extra ...any) (*models.Show, error) {
	s := &models.Show{}
	var (
		epNumber pgtype.Int4
		epTitle  pgtype.Text
		epAir    pgtype.Timestamptz
	)

	dest := []any{
		&s.ID, &s.MalID, &s.Title, &s.Synopsis, &s.Type, &s.Status, &s.Episodes,
		&s.Score, &s.Year, &s.Genres, &s.ImageURL, &epNumber, &epTitle, &epAir,
		&s.CreatedAt, &s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if epNumber.Valid {
		s.NextEpisode = &models.EpisodeSnapshot{Number: int(epNumber.Int32)}
		if epTitle.Valid {
			s.NextEpisode.Title = epTitle.String
		}
		if epAir.Valid {
			t := epAir.Time
			s.NextEpisode.AirDate = &t
		}
	}
	if s.Genres == nil {
		s.Genres = []string{}
	}
	return s, nil
}

func (r *showRepository) Upsert(ctx context.Context, show *models.Show) error {
	query := `
		INSERT INTO shows (` + showColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (mal_id) DO UPDATE SET
			title = EXCLUDED.title,
			synopsis = EXCLUDED.synopsis,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			episodes = EXCLUDED.episodes,
			score = EXCLUDED.score,
			year = EXCLUDED.year,
			genres = EXCLUDED.genres,
			image_url = EXCLUDED.image_url,
			next_episode_number = COALESCE(EXCLUDED.next_episode_number, shows.next_episode_number),
			next_episode_title = COALESCE(EXCLUDED.next_episode_title, shows.next_episode_title),
			next_episode_air_date = COALESCE(EXCLUDED.next_episode_air_date, shows.next_episode_air_date),
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	var (
		epNumber *int
		epTitle  *string
		epAir    *time.Time
	)
	if show.NextEpisode != nil {
		epNumber = &show.NextEpisode.Number
		epTitle = &show.NextEpisode.Title
		epAir = show.NextEpisode.AirDate
	}

	genres := show.Genres
	if genres == nil {
		genres = []string{}
	}

	err := r.db.QueryRow(ctx, query,
		show.ID, show.MalID, show.Title, show.Synopsis, show.Type, show.Status,
		show.Episodes, show.Score, show.Year, genres, show.ImageURL,
		epNumber, epTitle, epAir, time.Now(),
	).Scan(&show.ID, &show.CreatedAt, &show.UpdatedAt)

	return wrap("upsert show", err)
}

func (r *showRepository) GetByID(ctx context.Context, id string) (*models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE id = $1`

	s, err := scanShow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("get show", err)
	}
	return s, nil
}

func (r *showRepository) GetByMalID(ctx context.Context, malID int) (*models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE mal_id = $1`

	s, err := scanShow(r.db.QueryRow(ctx, query, malID))
	if err != nil {
		return nil, wrap("get show by mal id", err)
	}
	return s, nil
}

func (r *showRepository) Search(ctx context.Context, query string, page models.Page) ([]*models.Show, error) {
	page = page.Normalize(20, 100)
	sql := `
		SELECT ` + showColumns + `
		FROM shows
		WHERE $1 = '' OR title ILIKE '%' || $1 || '%'
		ORDER BY score DESC, title ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, sql, query, page.Limit, page.Offset)
	if err != nil {
		return nil, wrap("search shows", err)
	}
	defer rows.Close()

	var shows []*models.Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, wrap("scan show", err)
		}
		shows = append(shows, s)
	}

	return shows, wrap("iterate shows", rows.Err())
}

func (r *showRepository) Details(ctx context.Context, id string) (*models.ShowDetails, error) {
	query := `
		SELECT ` + showColumns + `,
			COALESCE((SELECT AVG(rating) FROM reviews WHERE show_id = shows.id), 0),
			(SELECT COUNT(*) FROM reviews WHERE show_id = shows.id),
			(SELECT COUNT(*) FROM watchlist_items WHERE show_id = shows.id)
		FROM shows
		WHERE id = $1`

	var (
		avg      float64
		reviews  int
		watchers int
	)
	s, err := scanShow(r.db.QueryRow(ctx, query, id), &avg, &reviews, &watchers)
	if err != nil {
		return nil, wrap("get show details", err)
	}

	return &models.ShowDetails{
		Show:          *s,
		AverageRating: avg,
		ReviewCount:   reviews,
		WatcherCount:  watchers,
	}, nil
}
