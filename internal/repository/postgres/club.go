package postgres

import (
	"context"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clubColumns = `id, name, slug, description, is_private, created_by, show_ids, created_at, updated_at`

type clubRepository struct {
	db *pgxpool.Pool
}

func NewClubRepository(db *pgxpool.Pool) repository.ClubRepository {
	return &clubRepository{db: db}
}

func scanClub(row pgx.Row) (*models.Club, error) {
	c := &models.Club{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsPrivate, &c.CreatedBy, &c.ShowIDs,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.ShowIDs == nil {
		c.ShowIDs = []string{}
	}
	return c, nil
}

func (r *clubRepository) Create(ctx context.Context, club *models.Club) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrap("begin club transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	club.CreatedAt = now
	club.UpdatedAt = now
	if club.ShowIDs == nil {
		club.ShowIDs = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO clubs (`+clubColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		club.ID, club.Name, club.Slug, club.Description, club.IsPrivate, club.CreatedBy, club.ShowIDs, now,
	)
	if err != nil {
		return wrap("create club", err)
	}

	for i := range club.Members {
		m := &club.Members[i]
		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO club_members (club_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			club.ID, m.UserID, m.Role, m.JoinedAt,
		)
		if err != nil {
			return wrap("add club member", err)
		}
	}

	return wrap("commit club", tx.Commit(ctx))
}

func (r *clubRepository) GetByID(ctx context.Context, id string) (*models.Club, error) {
	club, err := scanClub(r.db.QueryRow(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get club", err)
	}

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	club.Members = members
	return club, nil
}

func (r *clubRepository) members(ctx context.Context, clubID string) ([]models.ClubMember, error) {
	query := `
		SELECT m.user_id, u.username, m.role, m.joined_at
		FROM club_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.club_id = $1
		ORDER BY m.joined_at`

	rows, err := r.db.Query(ctx, query, clubID)
	if err != nil {
		return nil, wrap("list club members", err)
	}
	defer rows.Close()

	members := []models.ClubMember{}
	for rows.Next() {
		var m models.ClubMember
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, wrap("scan club member", err)
		}
		members = append(members, m)
	}

	return members, wrap("list club members", rows.Err())
}

// List returns clubs without their member lists.
func (r *clubRepository) List(ctx context.Context, filters repository.ClubFilters) ([]*models.Club, error) {
	page := filters.Page.Normalize(20, 100)
	query := `
		SELECT ` + clubColumns + `
		FROM clubs
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, filters.Query, page.Limit, page.Offset)
	if err != nil {
		return nil, wrap("list clubs", err)
	}
	defer rows.Close()

	var clubs []*models.Club
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, wrap("scan club", err)
		}
		c.Members = []models.ClubMember{}
		clubs = append(clubs, c)
	}

	return clubs, wrap("list clubs", rows.Err())
}

func (r *clubRepository) Update(ctx context.Context, club *models.Club) error {
	query := `
		UPDATE clubs
		SET name = $2, slug = $3, description = $4, is_private = $5, show_ids = $6, updated_at = $7
		WHERE id = $1`

	club.UpdatedAt = time.Now()
	if club.ShowIDs == nil {
		club.ShowIDs = []string{}
	}

	tag, err := r.db.Exec(ctx, query,
		club.ID, club.Name, club.Slug, club.Description, club.IsPrivate, club.ShowIDs, club.UpdatedAt,
	)
	if err != nil {
		return wrap("update club", err)
	}
	return mustAffect("update club", tag)
}

func (r *clubRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clubs WHERE id = $1`, id)
	if err != nil {
		return wrap("delete club", err)
	}
	return mustAffect("delete club", tag)
}

func (r *clubRepository) AddMember(ctx context.Context, clubID string, member models.ClubMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO club_members (club_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		clubID, member.UserID, member.Role, member.JoinedAt,
	)
	return wrap("add club member", err)
}

func (r *clubRepository) RemoveMember(ctx context.Context, clubID, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM club_members WHERE club_id = $1 AND user_id = $2`, clubID, userID)
	if err != nil {
		return wrap("remove club member", err)
	}
	return mustAffect("remove club member", tag)
}

func (r *clubRepository) SetMemberRole(ctx context.Context, clubID, userID string, role models.ClubRole) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE club_members SET role = $3 WHERE club_id = $1 AND user_id = $2`,
		clubID, userID, role,
	)
	if err != nil {
		return wrap("set club member role", err)
	}
	return mustAffect("set club member role", tag)
}

func (r *clubRepository) CountByMember(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM club_members WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, wrap("count clubs by member", err)
	}
	return n, nil
}
