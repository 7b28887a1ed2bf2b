package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const watchlistSelect = `
	SELECT w.id, w.user_id, w.show_id, w.status, w.current_episode, w.total_episodes, w.rating, w.notes,
		w.started_at, w.completed_at, w.created_at, w.updated_at,
		s.id, s.mal_id, s.title, s.synopsis, s.type, s.status, s.episodes, s.score, s.year, s.genres, s.image_url,
		s.next_episode_number, s.next_episode_title, s.next_episode_air_date, s.created_at, s.updated_at
	FROM watchlist_items w
	JOIN shows s ON s.id = w.show_id`

type watchlistRepository struct {
	db *pgxpool.Pool
}

func NewWatchlistRepository(db *pgxpool.Pool) repository.WatchlistRepository {
	return &watchlistRepository{db: db}
}

// scanWatchlistItem scans the item columns, then hands the row's remaining
// show columns to scanShow through a prefix-capturing row.
func scanWatchlistItem(row pgx.Row) (*models.WatchlistItem, error) {
	w := &models.WatchlistItem{}
	prefix := []any{
		&w.ID, &w.UserID, &w.ShowID, &w.Status, &w.CurrentEpisode, &w.TotalEpisodes,
		&w.Rating, &w.Notes, &w.StartedAt, &w.CompletedAt, &w.CreatedAt, &w.UpdatedAt,
	}

	show, err := scanShow(prefixedRow{row: row, prefix: prefix})
	if err != nil {
		return nil, err
	}
	w.Show = show
	return w, nil
}

// prefixedRow lets a scanner for a joined entity fill its own columns while
// the leading columns go to prefix.
type prefixedRow struct {
	row    pgx.Row
	prefix []any
}

func (p prefixedRow) Scan(dest ...any) error {
	return p.row.Scan(append(append([]any{}, p.prefix...), dest...)...)
}

func (r *watchlistRepository) Create(ctx context.Context, item *models.WatchlistItem) error {
	query := `
		INSERT INTO watchlist_items (id, user_id, show_id, status, current_episode, total_episodes, rating, notes,
			started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		item.ID, item.UserID, item.ShowID, item.Status, item.CurrentEpisode, item.TotalEpisodes,
		item.Rating, item.Notes, item.StartedAt, item.CompletedAt, now,
	)
	return wrap("create watchlist item", err)
}

func (r *watchlistRepository) GetByID(ctx context.Context, id string) (*models.WatchlistItem, error) {
	w, err := scanWatchlistItem(r.db.QueryRow(ctx, watchlistSelect+` WHERE w.id = $1`, id))
	if err != nil {
		return nil, wrap("get watchlist item", err)
	}
	return w, nil
}

func (r *watchlistRepository) ListByUser(ctx context.Context, userID string, status *models.WatchStatus) ([]*models.WatchlistItem, error) {
	query := watchlistSelect + ` WHERE w.user_id = $1`
	args := []any{userID}
	if status != nil {
		query += ` AND w.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY w.updated_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list watchlist", err)
	}
	defer rows.Close()

	var items []*models.WatchlistItem
	for rows.Next() {
		w, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, wrap("scan watchlist item", err)
		}
		items = append(items, w)
	}

	return items, wrap("iterate watchlist", rows.Err())
}

func (r *watchlistRepository) Update(ctx context.Context, item *models.WatchlistItem) error {
	query := `
		UPDATE watchlist_items
		SET status = $2, current_episode = $3, total_episodes = $4, rating = $5, notes = $6,
			started_at = $7, completed_at = $8, updated_at = $9
		WHERE id = $1`

	item.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		item.ID, item.Status, item.CurrentEpisode, item.TotalEpisodes, item.Rating, item.Notes,
		item.StartedAt, item.CompletedAt, item.UpdatedAt,
	)
	if err != nil {
		return wrap("update watchlist item", err)
	}
	return mustAffect("update watchlist item", tag)
}

func (r *watchlistRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM watchlist_items WHERE id = $1`, id)
	if err != nil {
		return wrap("delete watchlist item", err)
	}
	return mustAffect("delete watchlist item", tag)
}
