package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"anitrack/internal/cache"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxReviewTitle   = 120
	maxReviewContent = 5000
)

type ReviewInput struct {
	ShowID           string `json:"showId"`
	MalID            int    `json:"malId"`
	Rating           int    `json:"rating"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	ContainsSpoilers bool   `json:"containsSpoilers"`
}

type ReviewService struct {
	reviews repository.ReviewRepository
	shows   *ShowService
	cache   *cache.Cache
	logger  *logrus.Logger
}

func NewReviewService(repos repository.Repositories, shows *ShowService, cache *cache.Cache, logger *logrus.Logger) *ReviewService {
	return &ReviewService{
		reviews: repos.Reviews,
		shows:   shows,
		cache:   cache,
		logger:  logger,
	}
}

func (s *ReviewService) Create(ctx context.Context, userID string, in ReviewInput) (*models.Review, error) {
	if err := validateReview(&in); err != nil {
		return nil, err
	}

	show, err := s.shows.Ensure(ctx, in.ShowID, in.MalID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		ID:               uuid.NewString(),
		UserID:           userID,
		ShowID:           show.ID,
		Rating:           in.Rating,
		Title:            in.Title,
		Content:          in.Content,
		ContainsSpoilers: in.ContainsSpoilers,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("you have already reviewed this show: %w", ErrConflict)
		}
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.WithFields(logrus.Fields{
		"review_id": review.ID,
		"user_id":   userID,
		"show_id":   show.ID,
	}).Info("Review created")

	return s.reviews.GetByID(ctx, review.ID)
}

func (s *ReviewService) Mine(ctx context.Context, userID string) ([]*models.Review, error) {
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}

func (s *ReviewService) Update(ctx context.Context, userID, id string, in ReviewInput) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, forbidden("only the author can edit a review")
	}
	if err := validateReview(&in); err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Title = in.Title
	review.Content = in.Content
	review.ContainsSpoilers = in.ContainsSpoilers

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes a review; asAdmin skips the ownership check.
func (s *ReviewService) Delete(ctx context.Context, userID, id string, asAdmin bool) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !asAdmin && review.UserID != userID {
		return forbidden("only the author can delete a review")
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, review.UserID)
	return nil
}

// ToggleLike flips the caller's like and returns the updated review.
func (s *ReviewService) ToggleLike(ctx context.Context, userID, id string) (*models.Review, error) {
	if _, err := s.reviews.ToggleLike(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.reviews.GetByID(ctx, id)
}

func (s *ReviewService) invalidate(ctx context.Context, userID string) {
	s.cache.Delete(ctx, analyticsCachePrefix+userID)
}

func validateReview(in *ReviewInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	switch {
	case in.Rating < 1 || in.Rating > 10:
		return invalid("rating must be between 1 and 10")
	case in.Title == "":
		return invalid("title is required")
	case utf8.RuneCountInString(in.Title) > maxReviewTitle:
		return invalid("title must be at most %d characters", maxReviewTitle)
	case in.Content == "":
		return invalid("content is required")
	case utf8.RuneCountInString(in.Content) > maxReviewContent:
		return invalid("content must be at most %d characters", maxReviewContent)
	}
	return nil
}
