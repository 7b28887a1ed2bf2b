package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"anitrack/internal/cache"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

const (
	minClubName        = 3
	maxClubName        = 80
	maxClubDescription = 1000
)

type ClubInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsPrivate   bool     `json:"isPrivate"`
	ShowIDs     []string `json:"showIds"`
}

// ClubService owns clubs and everything inside them: memberships, posts and
// polls.
type ClubService struct {
	clubs  repository.ClubRepository
	posts  repository.PostRepository
	polls  repository.PollRepository
	cache  *cache.Cache
	logger *logrus.Logger
	now    func() time.Time
}

func NewClubService(repos repository.Repositories, cache *cache.Cache, logger *logrus.Logger) *ClubService {
	return &ClubService{
		clubs:  repos.Clubs,
		posts:  repos.Posts,
		polls:  repos.Polls,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ClubService) List(ctx context.Context, filters repository.ClubFilters) ([]*models.Club, error) {
	clubs, err := s.clubs.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if clubs == nil {
		clubs = []*models.Club{}
	}
	return clubs, nil
}

// Create stores the club with the creator as its first admin.
func (s *ClubService) Create(ctx context.Context, userID string, in ClubInput) (*models.Club, error) {
	if err := validateClub(&in); err != nil {
		return nil, err
	}

	club := &models.Club{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Slug:        slug.Make(in.Name),
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
		CreatedBy:   userID,
		ShowIDs:     in.ShowIDs,
		Members: []models.ClubMember{
			{UserID: userID, Role: models.ClubRoleAdmin, JoinedAt: s.now()},
		},
	}

	if err := s.clubs.Create(ctx, club); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("a club with this name already exists: %w", ErrConflict)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"club_id": club.ID,
		"slug":    club.Slug,
		"user_id": userID,
	}).Info("Club created")

	return s.clubs.GetByID(ctx, club.ID)
}

func (s *ClubService) Get(ctx context.Context, id string) (*models.Club, error) {
	return s.clubs.GetByID(ctx, id)
}

// Update requires a club admin or moderator.
func (s *ClubService) Update(ctx context.Context, userID, id string, in ClubInput) (*models.Club, error) {
	club, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m, ok := club.Member(userID); !ok || !m.Role.CanModerate() {
		return nil, forbidden("only club admins and moderators can edit the club")
	}
	if err := validateClub(&in); err != nil {
		return nil, err
	}

	club.Name = in.Name
	club.Slug = slug.Make(in.Name)
	club.Description = in.Description
	club.IsPrivate = in.IsPrivate
	club.ShowIDs = in.ShowIDs

	if err := s.clubs.Update(ctx, club); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("a club with this name already exists: %w", ErrConflict)
		}
		return nil, err
	}
	return club, nil
}

// Delete removes the club; asAdmin skips the club-admin check.
func (s *ClubService) Delete(ctx context.Context, userID, id string, asAdmin bool) error {
	club, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !asAdmin {
		if m, ok := club.Member(userID); !ok || m.Role != models.ClubRoleAdmin {
			return forbidden("only club admins can delete the club")
		}
	}
	if err := s.clubs.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateMembers(ctx, club)
	return nil
}

// Join adds the caller as a member. Private clubs are invite-only.
func (s *ClubService) Join(ctx context.Context, userID, id string) (*models.Club, error) {
	club, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := club.Member(userID); ok {
		return nil, fmt.Errorf("already a member of this club: %w", ErrConflict)
	}
	if club.IsPrivate {
		return nil, forbidden("this club is private")
	}

	member := models.ClubMember{UserID: userID, Role: models.ClubRoleMember, JoinedAt: s.now()}
	if err := s.clubs.AddMember(ctx, id, member); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("already a member of this club: %w", ErrConflict)
		}
		return nil, err
	}

	s.cache.Delete(ctx, analyticsCachePrefix+userID)
	return s.clubs.GetByID(ctx, id)
}

// Leave removes the caller. The last admin cannot leave.
func (s *ClubService) Leave(ctx context.Context, userID, id string) error {
	club, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m, ok := club.Member(userID)
	if !ok {
		return fmt.Errorf("not a member of this club: %w", ErrNotFound)
	}
	if m.Role == models.ClubRoleAdmin && club.AdminCount() <= 1 {
		return fmt.Errorf("the last admin cannot leave the club: %w", ErrConflict)
	}

	if err := s.clubs.RemoveMember(ctx, id, userID); err != nil {
		return err
	}
	s.cache.Delete(ctx, analyticsCachePrefix+userID)
	return nil
}

// SetMemberRole requires a club admin. Demoting the last admin is rejected.
func (s *ClubService) SetMemberRole(ctx context.Context, actorID, clubID, userID string, role models.ClubRole) (*models.Club, error) {
	if !role.Valid() {
		return nil, invalid("unknown club role %q", role)
	}

	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if actor, ok := club.Member(actorID); !ok || actor.Role != models.ClubRoleAdmin {
		return nil, forbidden("only club admins can change roles")
	}
	target, ok := club.Member(userID)
	if !ok {
		return nil, fmt.Errorf("not a member of this club: %w", ErrNotFound)
	}
	if target.Role == models.ClubRoleAdmin && role != models.ClubRoleAdmin && club.AdminCount() <= 1 {
		return nil, fmt.Errorf("the club needs at least one admin: %w", ErrConflict)
	}

	if err := s.clubs.SetMemberRole(ctx, clubID, userID, role); err != nil {
		return nil, err
	}
	return s.clubs.GetByID(ctx, clubID)
}

// membership loads the club and checks that userID belongs to it.
func (s *ClubService) membership(ctx context.Context, userID, clubID string) (*models.Club, models.ClubMember, error) {
	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, models.ClubMember{}, err
	}
	m, ok := club.Member(userID)
	if !ok {
		return nil, models.ClubMember{}, forbidden("only club members can do this")
	}
	return club, m, nil
}

// visible loads the club, requiring membership only for private clubs.
func (s *ClubService) visible(ctx context.Context, userID, clubID string) (*models.Club, error) {
	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if _, ok := club.Member(userID); club.IsPrivate && !ok {
		return nil, forbidden("this club is private")
	}
	return club, nil
}

func (s *ClubService) invalidateMembers(ctx context.Context, club *models.Club) {
	keys := make([]string, 0, len(club.Members))
	for _, m := range club.Members {
		keys = append(keys, analyticsCachePrefix+m.UserID)
	}
	s.cache.Delete(ctx, keys...)
}

func validateClub(in *ClubInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	n := utf8.RuneCountInString(in.Name)
	switch {
	case n < minClubName || n > maxClubName:
		return invalid("name must be between %d and %d characters", minClubName, maxClubName)
	case slug.Make(in.Name) == "":
		return invalid("name must contain letters or digits")
	case utf8.RuneCountInString(in.Description) > maxClubDescription:
		return invalid("description must be at most %d characters", maxClubDescription)
	}

	if in.ShowIDs == nil {
		in.ShowIDs = []string{}
	}
	return nil
}
