package services

import (
	"context"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/sirupsen/logrus"
)

// AdminService backs the site-admin dashboard and moderation actions.
type AdminService struct {
	users   repository.UserRepository
	stats   repository.StatsRepository
	reviews *ReviewService
	clubs   *ClubService
	logger  *logrus.Logger
}

func NewAdminService(repos repository.Repositories, reviews *ReviewService, clubs *ClubService, logger *logrus.Logger) *AdminService {
	return &AdminService{
		users:   repos.Users,
		stats:   repos.Stats,
		reviews: reviews,
		clubs:   clubs,
		logger:  logger,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	return s.stats.AdminStats(ctx)
}

func (s *AdminService) Users(ctx context.Context, filters repository.UserFilters) ([]*models.User, error) {
	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// SetRole changes a user's site role. Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	if actorID == userID && role != models.RoleAdmin {
		return nil, invalid("you cannot remove your own admin role")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id": actorID,
		"user_id":  userID,
		"role":     role,
	}).Info("User role changed")
	return user, nil
}

// ToggleActive flips is_active. Admins cannot deactivate themselves.
func (s *AdminService) ToggleActive(ctx context.Context, actorID, userID string) (*models.User, error) {
	if actorID == userID {
		return nil, invalid("you cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":  actorID,
		"user_id":   userID,
		"is_active": user.IsActive,
	}).Info("User active flag toggled")
	return user, nil
}

func (s *AdminService) DeleteReview(ctx context.Context, actorID, id string) error {
	return s.reviews.Delete(ctx, actorID, id, true)
}

func (s *AdminService) DeletePost(ctx context.Context, id string) error {
	return s.clubs.DeletePostByID(ctx, id)
}

func (s *AdminService) DeleteClub(ctx context.Context, actorID, id string) error {
	return s.clubs.Delete(ctx, actorID, id, true)
}
