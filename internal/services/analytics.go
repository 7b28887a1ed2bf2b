package services

import (
	"context"
	"sort"
	"time"

	"anitrack/internal/cache"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	analyticsCachePrefix = "analytics:user:"
	analyticsCacheTTL    = 5 * time.Minute
	topGenreCount        = 5
)

type AnalyticsService struct {
	repos  repository.Repositories
	clubs  *ClubService
	cache  *cache.Cache
	logger *logrus.Logger
}

func NewAnalyticsService(repos repository.Repositories, clubs *ClubService, cache *cache.Cache, logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		repos:  repos,
		clubs:  clubs,
		cache:  cache,
		logger: logger,
	}
}

// UserStats summarises a user's watchlist, reviews, clubs and reminders.
func (s *AnalyticsService) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	cacheKey := analyticsCachePrefix + userID
	var cached models.UserStats
	if s.cache.GetJSON(ctx, "analytics", cacheKey, &cached) {
		return &cached, nil
	}

	items, err := s.repos.Watchlist.ListByUser(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	stats := ComputeUserStats(items)

	reviews, err := s.repos.Reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.ReviewCount = len(reviews)

	if stats.ClubCount, err = s.repos.Clubs.CountByMember(ctx, userID); err != nil {
		return nil, err
	}

	reminders, err := s.repos.Reminders.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	stats.ActiveReminders = len(reminders)

	s.cache.SetJSON(ctx, cacheKey, stats, analyticsCacheTTL)
	return stats, nil
}

// ComputeUserStats derives the watchlist part of the stats.
func ComputeUserStats(items []*models.WatchlistItem) *models.UserStats {
	stats := &models.UserStats{
		StatusBreakdown: make(map[models.WatchStatus]int, len(models.WatchStatuses)),
		TopGenres:       []models.GenreCount{},
	}
	for _, st := range models.WatchStatuses {
		stats.StatusBreakdown[st] = 0
	}

	genres := map[string]int{}
	ratingSum := 0
	for _, it := range items {
		stats.TotalShows++
		stats.StatusBreakdown[it.Status]++
		stats.EpisodesWatched += it.CurrentEpisode
		if it.Rating != nil {
			stats.RatedShows++
			ratingSum += *it.Rating
		}
		if it.Show != nil {
			for _, g := range it.Show.Genres {
				genres[g]++
			}
		}
	}
	if stats.RatedShows > 0 {
		stats.MeanRating = float64(ratingSum) / float64(stats.RatedShows)
	}

	for g, n := range genres {
		stats.TopGenres = append(stats.TopGenres, models.GenreCount{Genre: g, Count: n})
	}
	sort.Slice(stats.TopGenres, func(i, j int) bool {
		a, b := stats.TopGenres[i], stats.TopGenres[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Genre < b.Genre
	})
	if len(stats.TopGenres) > topGenreCount {
		stats.TopGenres = stats.TopGenres[:topGenreCount]
	}

	return stats
}

func (s *AnalyticsService) ClubPolls(ctx context.Context, userID, clubID string) ([]models.PollTally, error) {
	return s.clubs.Tallies(ctx, userID, clubID)
}
