package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postSelect = `
	SELECT p.id, p.club_id, p.author_id, u.username, p.title, p.content, p.created_at, p.updated_at,
		ARRAY(SELECT l.user_id::text FROM post_likes l WHERE l.post_id = p.id)
	FROM posts p
	JOIN users u ON u.id = p.author_id`

type postRepository struct {
	db *pgxpool.Pool
}

func NewPostRepository(db *pgxpool.Pool) repository.PostRepository {
	return &postRepository{db: db}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	p := &models.Post{}
	err := row.Scan(
		&p.ID, &p.ClubID, &p.AuthorID, &p.Username, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt, &p.Likes,
	)
	if err != nil {
		return nil, err
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	p.Comments = []models.Comment{}
	return p, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, club_id, author_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}

	_, err := r.db.Exec(ctx, query, post.ID, post.ClubID, post.AuthorID, post.Title, post.Content, now)
	return wrap("create post", err)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, wrap("get post", err)
	}

	if err := r.attachComments(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByClub(ctx context.Context, clubID string, page models.Page) ([]*models.Post, error) {
	page = page.Normalize(20, 100)
	query := postSelect + `
		WHERE p.club_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, clubID, page.Limit, page.Offset)
	if err != nil {
		return nil, wrap("list posts", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, wrap("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list posts", err)
	}

	if err := r.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachComments loads the comments of every post in one query, oldest first.
func (r *postRepository) attachComments(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query := `
		SELECT c.id, c.post_id, c.author_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id::text = ANY($1::text[])
		ORDER BY c.created_at`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return wrap("list comments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return wrap("scan comment", err)
		}
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}

	return wrap("list comments", rows.Err())
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return wrap("delete post", err)
	}
	return mustAffect("delete post", tag)
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	return toggleLike(ctx, r.db, "post_likes", "post_id", postID, userID)
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	comment.CreatedAt = time.Now()
	_, err := r.db.Exec(ctx,
		`INSERT INTO comments (id, post_id, author_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt,
	)
	return wrap("add comment", err)
}
