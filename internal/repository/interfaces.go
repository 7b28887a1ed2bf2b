package repository

import (
	"context"
	"errors"
	"time"

	"anitrack/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filters UserFilters) ([]*models.User, error)
}

// ShowRepository defines the interface for the local show catalogue
type ShowRepository interface {
	// Upsert inserts the show or refreshes the existing row with the same
	// mal_id, and sets show.ID to the stored id.
	Upsert(ctx context.Context, show *models.Show) error
	GetByID(ctx context.Context, id string) (*models.Show, error)
	GetByMalID(ctx context.Context, malID int) (*models.Show, error)
	Search(ctx context.Context, query string, page models.Page) ([]*models.Show, error)
	Details(ctx context.Context, id string) (*models.ShowDetails, error)
}

// WatchlistRepository defines the interface for watchlist operations
type WatchlistRepository interface {
	Create(ctx context.Context, item *models.WatchlistItem) error
	GetByID(ctx context.Context, id string) (*models.WatchlistItem, error)
	ListByUser(ctx context.Context, userID string, status *models.WatchStatus) ([]*models.WatchlistItem, error)
	Update(ctx context.Context, item *models.WatchlistItem) error
	Delete(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review operations
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByShow(ctx context.Context, showID string, page models.Page) ([]*models.Review, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	// ToggleLike flips userID's like and reports whether it is now liked.
	ToggleLike(ctx context.Context, reviewID, userID string) (bool, error)
}

// ClubRepository defines the interface for clubs and their memberships
type ClubRepository interface {
	// Create stores the club and its initial members in one transaction.
	Create(ctx context.Context, club *models.Club) error
	GetByID(ctx context.Context, id string) (*models.Club, error)
	List(ctx context.Context, filters ClubFilters) ([]*models.Club, error)
	Update(ctx context.Context, club *models.Club) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, clubID string, member models.ClubMember) error
	RemoveMember(ctx context.Context, clubID, userID string) error
	SetMemberRole(ctx context.Context, clubID, userID string, role models.ClubRole) error
	CountByMember(ctx context.Context, userID string) (int, error)
}

// PostRepository defines the interface for club posts
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByClub(ctx context.Context, clubID string, page models.Page) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	AddComment(ctx context.Context, comment *models.Comment) error
}

// PollRepository defines the interface for club polls
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	ListByClub(ctx context.Context, clubID string) ([]*models.Poll, error)
	// SetVotes replaces userID's votes on the poll with optionIDs in a
	// single transaction.
	SetVotes(ctx context.Context, pollID, userID string, optionIDs []string, at time.Time) error
}

// ReminderRepository defines the interface for reminder operations
type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*models.Reminder, error)
	// ClaimDue returns up to limit active reminders whose next attempt is at
	// or before now and whose sent_count < max_sends, oldest first. Claimed
	// reminders get retry_at = now + lease so concurrent workers skip them.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Reminder, error)
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, id string) error
}

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// StatsRepository aggregates site-wide counts for the admin dashboard
type StatsRepository interface {
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}

// UserFilters represents filters for listing users
type UserFilters struct {
	Query string
	Page  models.Page
}

// ClubFilters represents filters for listing clubs
type ClubFilters struct {
	Query string
	Page  models.Page
}

// Repositories bundles every repository the services need.
type Repositories struct {
	Users         UserRepository
	Shows         ShowRepository
	Watchlist     WatchlistRepository
	Reviews       ReviewRepository
	Clubs         ClubRepository
	Posts         PostRepository
	Polls         PollRepository
	Reminders     ReminderRepository
	Notifications NotificationRepository
	Stats         StatsRepository
}
