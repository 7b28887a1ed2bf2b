package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"anitrack/internal/cache"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	searchCachePrefix  = "shows:search:"
	topCacheKey        = "shows:top"
	detailsCachePrefix = "anime:details:"
	searchCacheTTL     = 4 * time.Hour
	topCacheTTL        = 6 * time.Hour
	detailsCacheTTL    = 24 * time.Hour
)

// AnimeSource is the upstream catalogue shows are imported from.
type AnimeSource interface {
	SearchAnime(ctx context.Context, query string, limit int) ([]models.AnimeData, error)
	TopAnime(ctx context.Context, limit int) ([]models.AnimeData, error)
	GetAnime(ctx context.Context, malID int) (*models.AnimeData, error)
	LatestEpisode(ctx context.Context, malID int) (int, error)
}

type ShowService struct {
	shows   repository.ShowRepository
	reviews repository.ReviewRepository
	source  AnimeSource
	cache   *cache.Cache
	logger  *logrus.Logger
}

func NewShowService(repos repository.Repositories, source AnimeSource, cache *cache.Cache, logger *logrus.Logger) *ShowService {
	return &ShowService{
		shows:   repos.Shows,
		reviews: repos.Reviews,
		source:  source,
		cache:   cache,
		logger:  logger,
	}
}

// Search queries Jikan and stores every hit locally so the results carry
// local ids. When Jikan is unavailable the local catalogue is searched
// instead.
func (s *ShowService) Search(ctx context.Context, query string, limit int) ([]*models.Show, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("search query cannot be empty")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	cacheKey := fmt.Sprintf("%s%s:%d", searchCachePrefix, strings.ToLower(query), limit)
	var cached []*models.Show
	if s.cache.GetJSON(ctx, "search", cacheKey, &cached) {
		s.logger.WithField("query", query).Debug("Retrieved search results from cache")
		return cached, nil
	}

	animes, err := s.source.SearchAnime(ctx, query, limit)
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Warn("Jikan search failed, falling back to local catalogue")
		return s.shows.Search(ctx, query, models.Page{Limit: limit})
	}

	shows, err := s.store(ctx, animes)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cacheKey, shows, searchCacheTTL)
	return shows, nil
}

func (s *ShowService) Top(ctx context.Context, limit int) ([]*models.Show, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	cacheKey := fmt.Sprintf("%s:%d", topCacheKey, limit)
	var cached []*models.Show
	if s.cache.GetJSON(ctx, "top", cacheKey, &cached) {
		return cached, nil
	}

	animes, err := s.source.TopAnime(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Warn("Jikan top anime failed, falling back to local catalogue")
		return s.shows.Search(ctx, "", models.Page{Limit: limit})
	}

	shows, err := s.store(ctx, animes)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, cacheKey, shows, topCacheTTL)
	return shows, nil
}

func (s *ShowService) store(ctx context.Context, animes []models.AnimeData) ([]*models.Show, error) {
	shows := make([]*models.Show, 0, len(animes))
	for _, a := range animes {
		show := a.ToShow()
		show.ID = uuid.NewString()
		if err := s.shows.Upsert(ctx, &show); err != nil {
			return nil, fmt.Errorf("failed to store show %d: %w", a.MalID, err)
		}
		shows = append(shows, &show)
	}
	return shows, nil
}

// Get resolves ref as a local id or a MyAnimeList id, importing the show
// from Jikan on first access.
func (s *ShowService) Get(ctx context.Context, ref string) (*models.ShowDetails, error) {
	show, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.shows.Details(ctx, show.ID)
}

func (s *ShowService) Resolve(ctx context.Context, ref string) (*models.Show, error) {
	ref = strings.TrimSpace(ref)
	if _, err := uuid.Parse(ref); err == nil {
		return s.shows.GetByID(ctx, ref)
	}

	malID, err := strconv.Atoi(ref)
	if err != nil || malID <= 0 {
		return nil, invalid("invalid show id %q", ref)
	}
	return s.Import(ctx, malID)
}

// Ensure returns the local show for showID, or for malID when showID is
// empty.
func (s *ShowService) Ensure(ctx context.Context, showID string, malID int) (*models.Show, error) {
	switch {
	case showID != "":
		return s.Resolve(ctx, showID)
	case malID > 0:
		return s.Import(ctx, malID)
	default:
		return nil, invalid("showId or malId is required")
	}
}

// Import returns the stored show for malID, fetching it from Jikan when it
// is not stored yet. Airing shows get a next-episode snapshot.
func (s *ShowService) Import(ctx context.Context, malID int) (*models.Show, error) {
	show, err := s.shows.GetByMalID(ctx, malID)
	if err == nil {
		return show, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	cacheKey := detailsCachePrefix + strconv.Itoa(malID)
	var anime models.AnimeData
	if !s.cache.GetJSON(ctx, "details", cacheKey, &anime) {
		fetched, err := s.source.GetAnime(ctx, malID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch anime %d: %w", malID, err)
		}
		anime = *fetched
		s.cache.SetJSON(ctx, cacheKey, anime, detailsCacheTTL)
	}

	imported := anime.ToShow()
	imported.ID = uuid.NewString()

	if anime.Airing {
		latest, err := s.source.LatestEpisode(ctx, malID)
		if err != nil {
			s.logger.WithError(err).WithField("mal_id", malID).Warn("Failed to fetch episode list")
		} else {
			imported.NextEpisode = &models.EpisodeSnapshot{Number: latest + 1}
		}
	}

	if err := s.shows.Upsert(ctx, &imported); err != nil {
		return nil, fmt.Errorf("failed to store show %d: %w", malID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"mal_id":  malID,
		"show_id": imported.ID,
		"title":   imported.Title,
	}).Info("Imported show")

	return &imported, nil
}

func (s *ShowService) Reviews(ctx context.Context, ref string, page models.Page) ([]*models.Review, error) {
	show, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByShow(ctx, show.ID, page)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}
