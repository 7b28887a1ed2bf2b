package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"anitrack/internal/cache"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	watchlistCachePrefix = "watchlist:user:"
	watchlistCacheTTL    = 10 * time.Minute
	maxNotesLength       = 1000
)

type AddWatchlistInput struct {
	ShowID         string             `json:"showId"`
	MalID          int                `json:"malId"`
	Status         models.WatchStatus `json:"status"`
	CurrentEpisode int                `json:"currentEpisode"`
	Rating         *int               `json:"rating"`
	Notes          string             `json:"notes"`
}

// UpdateWatchlistInput carries only the fields the client sent.
type UpdateWatchlistInput struct {
	Status         *models.WatchStatus `json:"status"`
	CurrentEpisode *int                `json:"currentEpisode"`
	TotalEpisodes  *int                `json:"totalEpisodes"`
	Rating         *int                `json:"rating"`
	Notes          *string             `json:"notes"`
}

type WatchlistService struct {
	items  repository.WatchlistRepository
	shows  *ShowService
	cache  *cache.Cache
	logger *logrus.Logger
	now    func() time.Time
}

func NewWatchlistService(repos repository.Repositories, shows *ShowService, cache *cache.Cache, logger *logrus.Logger) *WatchlistService {
	return &WatchlistService{
		items:  repos.Watchlist,
		shows:  shows,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *WatchlistService) List(ctx context.Context, userID string, status string) ([]*models.WatchlistItem, error) {
	var filter *models.WatchStatus
	if status != "" {
		st := models.WatchStatus(status)
		if !st.Valid() {
			return nil, invalid("unknown status %q", status)
		}
		filter = &st
	}

	cacheKey := watchlistCachePrefix + userID + ":" + status
	var cached []*models.WatchlistItem
	if s.cache.GetJSON(ctx, "watchlist", cacheKey, &cached) {
		return cached, nil
	}

	items, err := s.items.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.WatchlistItem{}
	}

	s.cache.SetJSON(ctx, cacheKey, items, watchlistCacheTTL)
	return items, nil
}

func (s *WatchlistService) Add(ctx context.Context, userID string, in AddWatchlistInput) (*models.WatchlistItem, error) {
	show, err := s.shows.Ensure(ctx, in.ShowID, in.MalID)
	if err != nil {
		return nil, err
	}

	item := &models.WatchlistItem{
		ID:            uuid.NewString(),
		UserID:        userID,
		ShowID:        show.ID,
		TotalEpisodes: show.Episodes,
		Status:        models.StatusPlanToWatch,
		Notes:         in.Notes,
	}

	if err := s.setProgress(item, in.CurrentEpisode); err != nil {
		return nil, err
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesLength {
		return nil, invalid("notes must be at most %d characters", maxNotesLength)
	}
	if in.Rating != nil && *in.Rating > 0 {
		item.Rating = in.Rating
	}

	status := models.StatusForProgress(item.CurrentEpisode, item.TotalEpisodes)
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, invalid("unknown status %q", in.Status)
		}
		status = in.Status
	}
	item.ApplyStatus(status, s.now())

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("show is already on your watchlist: %w", ErrConflict)
		}
		return nil, err
	}
	item.Show = show

	s.invalidate(ctx, userID)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"show_id": show.ID,
		"status":  item.Status,
	}).Info("Added show to watchlist")

	return item, nil
}

// Update applies the sent fields. When progress changes without an explicit
// status, the status follows StatusForProgress; an explicit status wins.
func (s *WatchlistService) Update(ctx context.Context, userID, id string, in UpdateWatchlistInput) (*models.WatchlistItem, error) {
	item, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.TotalEpisodes != nil {
		if *in.TotalEpisodes < 0 {
			return nil, invalid("totalEpisodes cannot be negative")
		}
		item.TotalEpisodes = *in.TotalEpisodes
	}

	progressChanged := in.CurrentEpisode != nil || in.TotalEpisodes != nil
	current := item.CurrentEpisode
	if in.CurrentEpisode != nil {
		current = *in.CurrentEpisode
	}
	if err := s.setProgress(item, current); err != nil {
		return nil, err
	}

	if in.Rating != nil {
		if err := validateRating(in.Rating); err != nil {
			return nil, err
		}
		if *in.Rating == 0 {
			item.Rating = nil
		} else {
			item.Rating = in.Rating
		}
	}
	if in.Notes != nil {
		if utf8.RuneCountInString(*in.Notes) > maxNotesLength {
			return nil, invalid("notes must be at most %d characters", maxNotesLength)
		}
		item.Notes = *in.Notes
	}

	switch {
	case in.Status != nil:
		if !in.Status.Valid() {
			return nil, invalid("unknown status %q", *in.Status)
		}
		item.ApplyStatus(*in.Status, s.now())
	case progressChanged:
		item.ApplyStatus(models.StatusForProgress(item.CurrentEpisode, item.TotalEpisodes), s.now())
	}

	return s.save(ctx, item)
}

// Increment advances progress by one episode under the same status policy.
func (s *WatchlistService) Increment(ctx context.Context, userID, id string) (*models.WatchlistItem, error) {
	item, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.setProgress(item, item.CurrentEpisode+1); err != nil {
		return nil, err
	}
	item.ApplyStatus(models.StatusForProgress(item.CurrentEpisode, item.TotalEpisodes), s.now())

	return s.save(ctx, item)
}

func (s *WatchlistService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *WatchlistService) save(ctx context.Context, item *models.WatchlistItem) (*models.WatchlistItem, error) {
	show := item.Show
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	item.Show = show
	s.invalidate(ctx, item.UserID)
	return item, nil
}

func (s *WatchlistService) owned(ctx context.Context, userID, id string) (*models.WatchlistItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, forbidden("watchlist item belongs to another user")
	}
	return item, nil
}

// setProgress rejects progress beyond a known episode total.
func (s *WatchlistService) setProgress(item *models.WatchlistItem, current int) error {
	if current < 0 {
		return invalid("currentEpisode cannot be negative")
	}
	if item.TotalEpisodes > 0 && current > item.TotalEpisodes {
		return invalid("currentEpisode %d exceeds total episodes %d", current, item.TotalEpisodes)
	}
	item.CurrentEpisode = current
	return nil
}

func (s *WatchlistService) invalidate(ctx context.Context, userID string) {
	s.cache.DeletePattern(ctx, watchlistCachePrefix+userID+":*")
	s.cache.Delete(ctx, analyticsCachePrefix+userID)
}

// validateRating accepts nil, 0 (clear) or 1-10.
func validateRating(r *int) error {
	if r != nil && (*r < 0 || *r > 10) {
		return invalid("rating must be between 1 and 10")
	}
	return nil
}
