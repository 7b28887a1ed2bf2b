// Package repotest provides an in-memory implementation of every repository
// interface for service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
)

// Store keeps all records in maps guarded by one mutex. It enforces the same
// uniqueness and foreign key rules as the PostgreSQL schema.
type Store struct {
	mu sync.Mutex

	users         map[string]*models.User
	shows         map[string]*models.Show
	watchlist     map[string]*models.WatchlistItem
	reviews       map[string]*models.Review
	clubs         map[string]*models.Club
	posts         map[string]*models.Post
	polls         map[string]*models.Poll
	reminders     map[string]*models.Reminder
	notifications map[string]*models.Notification
}

func New() *Store {
	return &Store{
		users:         map[string]*models.User{},
		shows:         map[string]*models.Show{},
		watchlist:     map[string]*models.WatchlistItem{},
		reviews:       map[string]*models.Review{},
		clubs:         map[string]*models.Club{},
		posts:         map[string]*models.Post{},
		polls:         map[string]*models.Poll{},
		reminders:     map[string]*models.Reminder{},
		notifications: map[string]*models.Notification{},
	}
}

// Repositories returns the store behind every repository interface.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:         userRepo{s},
		Shows:         showRepo{s},
		Watchlist:     watchlistRepo{s},
		Reviews:       reviewRepo{s},
		Clubs:         clubRepo{s},
		Posts:         postRepo{s},
		Polls:         pollRepo{s},
		Reminders:     reminderRepo{s},
		Notifications: notificationRepo{s},
		Stats:         statsRepo{s},
	}
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
}

func conflict(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrConflict)
}

func contains(haystack, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, page models.Page) []T {
	page = page.Normalize(20, 100)
	if page.Offset >= len(items) {
		return nil
	}
	end := min(page.Offset+page.Limit, len(items))
	return items[page.Offset:end]
}

// ---- users ----

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return conflict("create user")
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("get user by email")
}

func (r userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return notFound("update user")
	}
	for _, u := range r.s.users {
		if u.ID != user.ID && u.Username == user.Username {
			return conflict("update user")
		}
	}
	user.UpdatedAt = time.Now()
	cp := *user
	cp.Email = existing.Email
	cp.CreatedAt = existing.CreatedAt
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) List(_ context.Context, filters repository.UserFilters) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var users []*models.User
	for _, u := range r.s.users {
		if contains(u.Username, filters.Query) || contains(u.Email, filters.Query) {
			cp := *u
			users = append(users, &cp)
		}
	}
	slices.SortFunc(users, func(a, b *models.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(users, filters.Page), nil
}

// ---- shows ----

type showRepo struct{ s *Store }

func copyShow(s *models.Show) *models.Show {
	cp := *s
	cp.Genres = slices.Clone(s.Genres)
	if cp.Genres == nil {
		cp.Genres = []string{}
	}
	if s.NextEpisode != nil {
		ep := *s.NextEpisode
		cp.NextEpisode = &ep
	}
	return &cp
}

func (r showRepo) Upsert(_ context.Context, show *models.Show) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for _, existing := range r.s.shows {
		if existing.MalID == show.MalID {
			show.ID = existing.ID
			show.CreatedAt = existing.CreatedAt
			if show.NextEpisode == nil && existing.NextEpisode != nil {
				ep := *existing.NextEpisode
				show.NextEpisode = &ep
			}
			show.UpdatedAt = now
			r.s.shows[show.ID] = copyShow(show)
			return nil
		}
	}
	if show.ID == "" {
		show.ID = uuid.NewString()
	}
	show.CreatedAt, show.UpdatedAt = now, now
	r.s.shows[show.ID] = copyShow(show)
	return nil
}

func (r showRepo) GetByID(_ context.Context, id string) (*models.Show, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	show, ok := r.s.shows[id]
	if !ok {
		return nil, notFound("get show")
	}
	return copyShow(show), nil
}

func (r showRepo) GetByMalID(_ context.Context, malID int) (*models.Show, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, show := range r.s.shows {
		if show.MalID == malID {
			return copyShow(show), nil
		}
	}
	return nil, notFound("get show by mal id")
}

func (r showRepo) Search(_ context.Context, query string, page models.Page) ([]*models.Show, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var shows []*models.Show
	for _, show := range r.s.shows {
		if contains(show.Title, query) {
			shows = append(shows, copyShow(show))
		}
	}
	slices.SortFunc(shows, func(a, b *models.Show) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Title, b.Title)
	})
	return paginate(shows, page), nil
}

func (r showRepo) Details(_ context.Context, id string) (*models.ShowDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	show, ok := r.s.shows[id]
	if !ok {
		return nil, notFound("get show details")
	}

	d := &models.ShowDetails{Show: *copyShow(show)}
	sum := 0
	for _, rv := range r.s.reviews {
		if rv.ShowID == id {
			d.ReviewCount++
			sum += rv.Rating
		}
	}
	if d.ReviewCount > 0 {
		d.AverageRating = float64(sum) / float64(d.ReviewCount)
	}
	for _, w := range r.s.watchlist {
		if w.ShowID == id {
			d.WatcherCount++
		}
	}
	return d, nil
}

// ---- watchlist ----

type watchlistRepo struct{ s *Store }

func (r watchlistRepo) load(w *models.WatchlistItem) *models.WatchlistItem {
	cp := *w
	if show, ok := r.s.shows[w.ShowID]; ok {
		cp.Show = copyShow(show)
	}
	return &cp
}

func (r watchlistRepo) Create(_ context.Context, item *models.WatchlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shows[item.ShowID]; !ok {
		return notFound("create watchlist item")
	}
	if _, ok := r.s.users[item.UserID]; !ok {
		return notFound("create watchlist item")
	}
	for _, w := range r.s.watchlist {
		if w.UserID == item.UserID && w.ShowID == item.ShowID {
			return conflict("create watchlist item")
		}
	}
	now := time.Now()
	item.CreatedAt, item.UpdatedAt = now, now
	cp := *item
	cp.Show = nil
	r.s.watchlist[item.ID] = &cp
	return nil
}

func (r watchlistRepo) GetByID(_ context.Context, id string) (*models.WatchlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.watchlist[id]
	if !ok {
		return nil, notFound("get watchlist item")
	}
	return r.load(w), nil
}

func (r watchlistRepo) ListByUser(_ context.Context, userID string, status *models.WatchStatus) ([]*models.WatchlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var items []*models.WatchlistItem
	for _, w := range r.s.watchlist {
		if w.UserID != userID || (status != nil && w.Status != *status) {
			continue
		}
		items = append(items, r.load(w))
	}
	slices.SortFunc(items, func(a, b *models.WatchlistItem) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return items, nil
}

func (r watchlistRepo) Update(_ context.Context, item *models.WatchlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.watchlist[item.ID]; !ok {
		return notFound("update watchlist item")
	}
	item.UpdatedAt = time.Now()
	cp := *item
	cp.Show = nil
	r.s.watchlist[item.ID] = &cp
	return nil
}

func (r watchlistRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.watchlist[id]; !ok {
		return notFound("delete watchlist item")
	}
	delete(r.s.watchlist, id)
	return nil
}

// ---- reviews ----

type reviewRepo struct{ s *Store }

func (r reviewRepo) load(rv *models.Review) *models.Review {
	cp := *rv
	cp.Likes = slices.Clone(rv.Likes)
	if cp.Likes == nil {
		cp.Likes = []string{}
	}
	if u, ok := r.s.users[rv.UserID]; ok {
		cp.Username = u.Username
	}
	if show, ok := r.s.shows[rv.ShowID]; ok {
		cp.ShowTitle = show.Title
	}
	return &cp
}

func (r reviewRepo) Create(_ context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shows[review.ShowID]; !ok {
		return notFound("create review")
	}
	for _, rv := range r.s.reviews {
		if rv.UserID == review.UserID && rv.ShowID == review.ShowID {
			return conflict("create review")
		}
	}
	now := time.Now()
	review.CreatedAt, review.UpdatedAt = now, now
	if review.Likes == nil {
		review.Likes = []string{}
	}
	cp := *review
	cp.Likes = []string{}
	r.s.reviews[review.ID] = &cp
	return nil
}

func (r reviewRepo) GetByID(_ context.Context, id string) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, notFound("get review")
	}
	return r.load(rv), nil
}

func (r reviewRepo) list(match func(*models.Review) bool) []*models.Review {
	var reviews []*models.Review
	for _, rv := range r.s.reviews {
		if match(rv) {
			reviews = append(reviews, r.load(rv))
		}
	}
	slices.SortFunc(reviews, func(a, b *models.Review) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return reviews
}

func (r reviewRepo) ListByShow(_ context.Context, showID string, page models.Page) ([]*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return paginate(r.list(func(rv *models.Review) bool { return rv.ShowID == showID }), page), nil
}

func (r reviewRepo) ListByUser(_ context.Context, userID string) ([]*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.list(func(rv *models.Review) bool { return rv.UserID == userID }), nil
}

func (r reviewRepo) Update(_ context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.reviews[review.ID]
	if !ok {
		return notFound("update review")
	}
	review.UpdatedAt = time.Now()
	existing.Rating = review.Rating
	existing.Title = review.Title
	existing.Content = review.Content
	existing.ContainsSpoilers = review.ContainsSpoilers
	existing.UpdatedAt = review.UpdatedAt
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return notFound("delete review")
	}
	delete(r.s.reviews, id)
	return nil
}

func (r reviewRepo) ToggleLike(_ context.Context, reviewID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[reviewID]
	if !ok {
		return false, notFound("toggle review like")
	}
	var liked bool
	rv.Likes, liked = toggle(rv.Likes, userID)
	return liked, nil
}

func toggle(set []string, id string) ([]string, bool) {
	if i := slices.Index(set, id); i >= 0 {
		return slices.Delete(set, i, i+1), false
	}
	return append(set, id), true
}

// ---- clubs ----

type clubRepo struct{ s *Store }

func (r clubRepo) load(c *models.Club, withMembers bool) *models.Club {
	cp := *c
	cp.ShowIDs = slices.Clone(c.ShowIDs)
	if cp.ShowIDs == nil {
		cp.ShowIDs = []string{}
	}
	cp.Members = []models.ClubMember{}
	if withMembers {
		for _, m := range c.Members {
			if u, ok := r.s.users[m.UserID]; ok {
				m.Username = u.Username
			}
			cp.Members = append(cp.Members, m)
		}
	}
	return &cp
}

func (r clubRepo) Create(_ context.Context, club *models.Club) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.clubs {
		if c.Name == club.Name || c.Slug == club.Slug {
			return conflict("create club")
		}
	}
	now := time.Now()
	club.CreatedAt, club.UpdatedAt = now, now
	for i := range club.Members {
		if club.Members[i].JoinedAt.IsZero() {
			club.Members[i].JoinedAt = now
		}
	}
	cp := *club
	cp.ShowIDs = slices.Clone(club.ShowIDs)
	cp.Members = slices.Clone(club.Members)
	r.s.clubs[club.ID] = &cp
	return nil
}

func (r clubRepo) GetByID(_ context.Context, id string) (*models.Club, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clubs[id]
	if !ok {
		return nil, notFound("get club")
	}
	return r.load(c, true), nil
}

func (r clubRepo) List(_ context.Context, filters repository.ClubFilters) ([]*models.Club, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var clubs []*models.Club
	for _, c := range r.s.clubs {
		if contains(c.Name, filters.Query) || contains(c.Description, filters.Query) {
			clubs = append(clubs, r.load(c, false))
		}
	}
	slices.SortFunc(clubs, func(a, b *models.Club) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(clubs, filters.Page), nil
}

func (r clubRepo) Update(_ context.Context, club *models.Club) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.clubs[club.ID]
	if !ok {
		return notFound("update club")
	}
	for _, c := range r.s.clubs {
		if c.ID != club.ID && (c.Name == club.Name || c.Slug == club.Slug) {
			return conflict("update club")
		}
	}
	club.UpdatedAt = time.Now()
	existing.Name = club.Name
	existing.Slug = club.Slug
	existing.Description = club.Description
	existing.IsPrivate = club.IsPrivate
	existing.ShowIDs = slices.Clone(club.ShowIDs)
	existing.UpdatedAt = club.UpdatedAt
	return nil
}

func (r clubRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clubs[id]; !ok {
		return notFound("delete club")
	}
	delete(r.s.clubs, id)
	for pid, p := range r.s.posts {
		if p.ClubID == id {
			delete(r.s.posts, pid)
		}
	}
	for pid, p := range r.s.polls {
		if p.ClubID == id {
			delete(r.s.polls, pid)
		}
	}
	return nil
}

func (r clubRepo) AddMember(_ context.Context, clubID string, member models.ClubMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clubs[clubID]
	if !ok {
		return notFound("add club member")
	}
	if _, ok := c.Member(member.UserID); ok {
		return conflict("add club member")
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	member.Username = ""
	c.Members = append(c.Members, member)
	return nil
}

func (r clubRepo) RemoveMember(_ context.Context, clubID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clubs[clubID]
	if !ok {
		return notFound("remove club member")
	}
	i := slices.IndexFunc(c.Members, func(m models.ClubMember) bool { return m.UserID == userID })
	if i < 0 {
		return notFound("remove club member")
	}
	c.Members = slices.Delete(c.Members, i, i+1)
	return nil
}

func (r clubRepo) SetMemberRole(_ context.Context, clubID, userID string, role models.ClubRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clubs[clubID]
	if !ok {
		return notFound("set club member role")
	}
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			c.Members[i].Role = role
			return nil
		}
	}
	return notFound("set club member role")
}

func (r clubRepo) CountByMember(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, c := range r.s.clubs {
		if _, ok := c.Member(userID); ok {
			n++
		}
	}
	return n, nil
}

// ---- posts ----

type postRepo struct{ s *Store }

func (r postRepo) load(p *models.Post) *models.Post {
	cp := *p
	cp.Likes = slices.Clone(p.Likes)
	if cp.Likes == nil {
		cp.Likes = []string{}
	}
	cp.Comments = make([]models.Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if u, ok := r.s.users[c.AuthorID]; ok {
			c.Username = u.Username
		}
		cp.Comments = append(cp.Comments, c)
	}
	if u, ok := r.s.users[p.AuthorID]; ok {
		cp.Username = u.Username
	}
	return &cp
}

func (r postRepo) Create(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clubs[post.ClubID]; !ok {
		return notFound("create post")
	}
	now := time.Now()
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	cp := *post
	cp.Likes = []string{}
	cp.Comments = nil
	r.s.posts[post.ID] = &cp
	return nil
}

func (r postRepo) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, notFound("get post")
	}
	return r.load(p), nil
}

func (r postRepo) ListByClub(_ context.Context, clubID string, page models.Page) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var posts []*models.Post
	for _, p := range r.s.posts {
		if p.ClubID == clubID {
			posts = append(posts, r.load(p))
		}
	}
	slices.SortFunc(posts, func(a, b *models.Post) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(posts, page), nil
}

func (r postRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return notFound("delete post")
	}
	delete(r.s.posts, id)
	return nil
}

func (r postRepo) ToggleLike(_ context.Context, postID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[postID]
	if !ok {
		return false, notFound("toggle post like")
	}
	var liked bool
	p.Likes, liked = toggle(p.Likes, userID)
	return liked, nil
}

func (r postRepo) AddComment(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[comment.PostID]
	if !ok {
		return notFound("add comment")
	}
	comment.CreatedAt = time.Now()
	c := *comment
	c.Username = ""
	p.Comments = append(p.Comments, c)
	return nil
}

// ---- polls ----

type pollRepo struct{ s *Store }

func copyPoll(p *models.Poll) *models.Poll {
	cp := *p
	if p.EndsAt != nil {
		t := *p.EndsAt
		cp.EndsAt = &t
	}
	cp.Options = make([]models.PollOption, len(p.Options))
	for i, o := range p.Options {
		o.Votes = slices.Clone(o.Votes)
		if o.Votes == nil {
			o.Votes = []models.PollVote{}
		}
		cp.Options[i] = o
	}
	return &cp
}

func (r pollRepo) Create(_ context.Context, poll *models.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clubs[poll.ClubID]; !ok {
		return notFound("create poll")
	}
	poll.CreatedAt = time.Now()
	for i := range poll.Options {
		if poll.Options[i].Votes == nil {
			poll.Options[i].Votes = []models.PollVote{}
		}
	}
	r.s.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (r pollRepo) GetByID(_ context.Context, id string) (*models.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.polls[id]
	if !ok {
		return nil, notFound("get poll")
	}
	return copyPoll(p), nil
}

func (r pollRepo) ListByClub(_ context.Context, clubID string) ([]*models.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var polls []*models.Poll
	for _, p := range r.s.polls {
		if p.ClubID == clubID {
			polls = append(polls, copyPoll(p))
		}
	}
	slices.SortFunc(polls, func(a, b *models.Poll) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return polls, nil
}

func (r pollRepo) SetVotes(_ context.Context, pollID, userID string, optionIDs []string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.polls[pollID]
	if !ok {
		return notFound("set votes")
	}
	for _, id := range optionIDs {
		if _, ok := p.Option(id); !ok {
			return notFound("cast vote")
		}
	}
	for i := range p.Options {
		o := &p.Options[i]
		o.Votes = slices.DeleteFunc(o.Votes, func(v models.PollVote) bool { return v.UserID == userID })
		if slices.Contains(optionIDs, o.ID) {
			o.Votes = append(o.Votes, models.PollVote{UserID: userID, VotedAt: at})
		}
	}
	return nil
}

// ---- reminders ----

type reminderRepo struct{ s *Store }

func (r reminderRepo) load(rm *models.Reminder) *models.Reminder {
	cp := *rm
	if show, ok := r.s.shows[rm.ShowID]; ok {
		cp.ShowTitle = show.Title
	}
	return &cp
}

func (r reminderRepo) Create(_ context.Context, rm *models.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shows[rm.ShowID]; !ok {
		return notFound("create reminder")
	}
	if rm.SentCount > rm.MaxSends {
		return fmt.Errorf("create reminder: sent_count exceeds max_sends")
	}
	now := time.Now()
	rm.CreatedAt, rm.UpdatedAt = now, now
	cp := *rm
	cp.ShowTitle = ""
	r.s.reminders[rm.ID] = &cp
	return nil
}

func (r reminderRepo) GetByID(_ context.Context, id string) (*models.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rm, ok := r.s.reminders[id]
	if !ok {
		return nil, notFound("get reminder")
	}
	return r.load(rm), nil
}

func (r reminderRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]*models.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var reminders []*models.Reminder
	for _, rm := range r.s.reminders {
		if rm.UserID == userID && (!activeOnly || rm.IsActive) {
			reminders = append(reminders, r.load(rm))
		}
	}
	slices.SortFunc(reminders, func(a, b *models.Reminder) int { return a.AlertTime.Compare(b.AlertTime) })
	return reminders, nil
}

func (r reminderRepo) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var due []*models.Reminder
	for _, rm := range r.s.reminders {
		if rm.IsDue(now) {
			due = append(due, rm)
		}
	}
	slices.SortFunc(due, func(a, b *models.Reminder) int { return a.NextAttempt().Compare(b.NextAttempt()) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	until := now.Add(lease)
	reminders := make([]*models.Reminder, 0, len(due))
	for _, rm := range due {
		rm.RetryAt = &until
		reminders = append(reminders, r.load(rm))
	}
	return reminders, nil
}

func (r reminderRepo) Update(_ context.Context, rm *models.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.reminders[rm.ID]
	if !ok {
		return notFound("update reminder")
	}
	if rm.SentCount > rm.MaxSends {
		return fmt.Errorf("update reminder: sent_count exceeds max_sends")
	}
	rm.UpdatedAt = time.Now()
	cp := *rm
	cp.UserID = existing.UserID
	cp.ShowID = existing.ShowID
	cp.CreatedAt = existing.CreatedAt
	cp.ShowTitle = ""
	r.s.reminders[rm.ID] = &cp
	return nil
}

func (r reminderRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reminders[id]; !ok {
		return notFound("delete reminder")
	}
	delete(r.s.reminders, id)
	return nil
}

// ---- notifications ----

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n.CreatedAt = time.Now()
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			cp := *n
			list = append(list, &cp)
		}
	}
	slices.SortFunc(list, func(a, b *models.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return notFound("mark notification read")
	}
	n.IsRead = true
	return nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// ---- stats ----

type statsRepo struct{ s *Store }

func (r statsRepo) AdminStats(_ context.Context) (*models.AdminStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &models.AdminStats{
		Users:   len(r.s.users),
		Shows:   len(r.s.shows),
		Reviews: len(r.s.reviews),
		Clubs:   len(r.s.clubs),
		Posts:   len(r.s.posts),
		Polls:   len(r.s.polls),
	}
	for _, u := range r.s.users {
		if u.IsActive {
			st.ActiveUsers++
		}
	}
	for _, rm := range r.s.reminders {
		if rm.IsActive {
			st.Reminders++
		}
	}
	return st, nil
}
