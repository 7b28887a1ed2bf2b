package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"anitrack/internal/logger"
	"anitrack/internal/models"
	"anitrack/internal/repository"
	"anitrack/internal/repository/repotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeSource serves anime from a map and counts upstream calls.
type fakeSource struct {
	mu       sync.Mutex
	anime    map[int]models.AnimeData
	latest   map[int]int
	fail     error
	searches int
	gets     int
}

func newFakeSource(anime ...models.AnimeData) *fakeSource {
	f := &fakeSource{anime: map[int]models.AnimeData{}, latest: map[int]int{}}
	for _, a := range anime {
		f.anime[a.MalID] = a
	}
	return f
}

func (f *fakeSource) SearchAnime(_ context.Context, query string, limit int) ([]models.AnimeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []models.AnimeData
	for _, a := range f.anime {
		if len(out) < limit && strings.Contains(strings.ToLower(a.Title), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) TopAnime(_ context.Context, limit int) ([]models.AnimeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	var out []models.AnimeData
	for _, a := range f.anime {
		if len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) GetAnime(_ context.Context, malID int) (*models.AnimeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fail != nil {
		return nil, f.fail
	}
	a, ok := f.anime[malID]
	if !ok {
		return nil, fmt.Errorf("anime: %w", ErrNotFound)
	}
	return &a, nil
}

func (f *fakeSource) LatestEpisode(_ context.Context, malID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[malID], nil
}

// fakeNotifier records deliveries. It fails every delivery while fail is
// set, and deliveries to the users in failFor.
type fakeNotifier struct {
	mu        sync.Mutex
	delivered []string
	fail      error
	failFor   map[string]error
}

func (n *fakeNotifier) Deliver(_ context.Context, user *models.User, rm *models.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	if err := n.failFor[user.ID]; err != nil {
		return err
	}
	n.delivered = append(n.delivered, rm.ID)
	return nil
}

var (
	frieren = models.AnimeData{
		MalID:    52991,
		Title:    "Sousou no Frieren",
		Episodes: 28,
		Status:   "Finished Airing",
		Genres:   []models.Genre{{Name: "Adventure"}, {Name: "Drama"}, {Name: "Fantasy"}},
		Year:     2023,
		Type:     "TV",
	}
	onePiece = models.AnimeData{
		MalID:  21,
		Title:  "One Piece",
		Status: "Currently Airing",
		Airing: true,
		Genres: []models.Genre{{Name: "Action"}, {Name: "Adventure"}},
		Type:   "TV",
	}
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	repos     repository.Repositories
	source    *fakeSource
	shows     *ShowService
	watchlist *WatchlistService
	reviews   *ReviewService
	clubs     *ClubService
	reminders *ReminderService
	analytics *AnalyticsService
	admin     *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.Discard()
	repos := repotest.New().Repositories()
	source := newFakeSource(frieren, onePiece)
	source.latest[onePiece.MalID] = 1100

	shows := NewShowService(repos, source, nil, log)
	reviews := NewReviewService(repos, shows, nil, log)
	clubs := NewClubService(repos, nil, log)
	clubs.now = func() time.Time { return testNow }

	watchlist := NewWatchlistService(repos, shows, nil, log)
	watchlist.now = func() time.Time { return testNow }

	reminders := NewReminderService(repos, shows, nil, log)
	reminders.now = func() time.Time { return testNow }

	return &testEnv{
		repos:     repos,
		source:    source,
		shows:     shows,
		watchlist: watchlist,
		reviews:   reviews,
		clubs:     clubs,
		reminders: reminders,
		analytics: NewAnalyticsService(repos, clubs, nil, log),
		admin:     NewAdminService(repos, reviews, clubs, log),
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()

	u := &models.User{
		ID:       uuid.NewString(),
		Email:    name + "@example.com",
		Username: name,
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(t, e.repos.Users.Create(t.Context(), u))
	return u
}

func (e *testEnv) show(t *testing.T, malID int) *models.Show {
	t.Helper()

	show, err := e.shows.Import(t.Context(), malID)
	require.NoError(t, err)
	return show
}

func ptr[T any](v T) *T {
	return &v
}
