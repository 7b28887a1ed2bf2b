package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewSelect = `
	SELECT r.id, r.user_id, r.show_id, r.rating, r.title, r.content, r.contains_spoilers, r.created_at, r.updated_at,
		ARRAY(SELECT l.user_id::text FROM review_likes l WHERE l.review_id = r.id),
		u.username, s.title
	FROM reviews r
	JOIN users u ON u.id = r.user_id
	JOIN shows s ON s.id = r.show_id`

type reviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func scanReview(row pgx.Row) (*models.Review, error) {
	rv := &models.Review{}
	err := row.Scan(
		&rv.ID, &rv.UserID, &rv.ShowID, &rv.Rating, &rv.Title, &rv.Content, &rv.ContainsSpoilers,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.Likes, &rv.Username, &rv.ShowTitle,
	)
	if err != nil {
		return nil, err
	}
	if rv.Likes == nil {
		rv.Likes = []string{}
	}
	return rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, show_id, rating, title, content, contains_spoilers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now
	if review.Likes == nil {
		review.Likes = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		review.ID, review.UserID, review.ShowID, review.Rating, review.Title, review.Content,
		review.ContainsSpoilers, now,
	)
	return wrap("create review", err)
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, wrap("get review", err)
	}
	return rv, nil
}

func (r *reviewRepository) ListByShow(ctx context.Context, showID string, page models.Page) ([]*models.Review, error) {
	page = page.Normalize(20, 100)
	query := reviewSelect + `
		WHERE r.show_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, "list reviews by show", query, showID, page.Limit, page.Offset)
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID string) ([]*models.Review, error) {
	query := reviewSelect + ` WHERE r.user_id = $1 ORDER BY r.created_at DESC`
	return r.list(ctx, "list reviews by user", query, userID)
}

func (r *reviewRepository) list(ctx context.Context, op, query string, args ...any) ([]*models.Review, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, wrap("scan review", err)
		}
		reviews = append(reviews, rv)
	}

	return reviews, wrap(op, rows.Err())
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, title = $3, content = $4, contains_spoilers = $5, updated_at = $6
		WHERE id = $1`

	review.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		review.ID, review.Rating, review.Title, review.Content, review.ContainsSpoilers, review.UpdatedAt,
	)
	if err != nil {
		return wrap("update review", err)
	}
	return mustAffect("update review", tag)
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return wrap("delete review", err)
	}
	return mustAffect("delete review", tag)
}

func (r *reviewRepository) ToggleLike(ctx context.Context, reviewID, userID string) (bool, error) {
	return toggleLike(ctx, r.db, "review_likes", "review_id", reviewID, userID)
}

// toggleLike deletes the like if present, otherwise inserts it, inside one
// transaction.
func toggleLike(ctx context.Context, db *pgxpool.Pool, table, column, targetID, userID string) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, wrap("begin like transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1 AND user_id = $2`, targetID, userID)
	if err != nil {
		return false, wrap("remove like", err)
	}

	liked := false
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `INSERT INTO `+table+` (`+column+`, user_id) VALUES ($1, $2)`, targetID, userID); err != nil {
			return false, wrap("add like", err)
		}
		liked = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, wrap("commit like", err)
	}
	return liked, nil
}
