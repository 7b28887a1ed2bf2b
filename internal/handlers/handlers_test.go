package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anitrack/internal/logger"
	"anitrack/internal/models"
	"anitrack/internal/repository"
	"anitrack/internal/repository/repotest"
	"anitrack/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{}

func (stubSource) SearchAnime(context.Context, string, int) ([]models.AnimeData, error) {
	return []models.AnimeData{{MalID: 52991, Title: "Sousou no Frieren", Episodes: 28}}, nil
}

func (stubSource) TopAnime(context.Context, int) ([]models.AnimeData, error) {
	return nil, errors.New("unavailable")
}

func (stubSource) GetAnime(_ context.Context, malID int) (*models.AnimeData, error) {
	if malID != 52991 {
		return nil, fmt.Errorf("anime: %w", services.ErrNotFound)
	}
	return &models.AnimeData{MalID: 52991, Title: "Sousou no Frieren", Episodes: 28}, nil
}

func (stubSource) LatestEpisode(context.Context, int) (int, error) {
	return 0, nil
}

type testServer struct {
	echo  *echo.Echo
	repos repository.Repositories
}

func newTestServer(t *testing.T, overrides ...func(*repository.Repositories)) *testServer {
	t.Helper()

	log := logger.Discard()
	repos := repotest.New().Repositories()
	for _, override := range overrides {
		override(&repos)
	}
	shows := services.NewShowService(repos, stubSource{}, nil, log)
	reviews := services.NewReviewService(repos, shows, nil, log)
	clubs := services.NewClubService(repos, nil, log)

	h := New(Services{
		Users:         services.NewUserService(repos.Users, "0123456789abcdef0123", time.Hour, "anitrack", log),
		Shows:         shows,
		Watchlist:     services.NewWatchlistService(repos, shows, nil, log),
		Reviews:       reviews,
		Clubs:         clubs,
		Reminders:     services.NewReminderService(repos, shows, nil, log),
		Notifications: services.NewNotificationService(repos),
		Analytics:     services.NewAnalyticsService(repos, clubs, nil, log),
		Admin:         services.NewAdminService(repos, reviews, clubs, log),
	}, nil, log)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(log)
	h.Routes(e)
	return &testServer{echo: e, repos: repos}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) register(t *testing.T, name string) (string, *models.User) {
	t.Helper()

	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    name + "@example.com",
		"username": name,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var result services.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result.Token, result.User
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestAuth_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)

	code, _ = s.do(t, http.MethodGet, "/api/watchlist", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register(t, "alice")

	code, env := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, user.ID, me.ID)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice2", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register(t, "alice")

	code, env := s.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	user.Role = models.RoleAdmin
	require.NoError(t, s.repos.Users.Update(t.Context(), user))

	code, env = s.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, code)
	var stats models.AdminStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Users)
}

func TestWatchlist_Flow(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "alice")

	code, env := s.do(t, http.MethodPost, "/api/watchlist", token, map[string]any{"malId": 52991, "currentEpisode": 27})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var item models.WatchlistItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, models.StatusWatching, item.Status)

	code, env = s.do(t, http.MethodPatch, "/api/watchlist/"+item.ID+"/increment", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, models.StatusCompleted, item.Status)

	code, env = s.do(t, http.MethodPut, "/api/watchlist/"+item.ID, token, map[string]any{"currentEpisode": 40})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "exceeds")

	other, _ := s.register(t, "bob")
	code, _ = s.do(t, http.MethodDelete, "/api/watchlist/"+item.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/watchlist?status=Completed", token, nil)
	require.Equal(t, http.StatusOK, code)
	var items []models.WatchlistItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
}

func TestShows_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/shows/search?q=frieren", "", nil)
	require.Equal(t, http.StatusOK, code)
	var shows []models.Show
	require.NoError(t, json.Unmarshal(env.Data, &shows))
	require.Len(t, shows, 1)

	code, _ = s.do(t, http.MethodGet, "/api/shows/"+shows[0].ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/shows/12345", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not found", env.Message)

	code, _ = s.do(t, http.MethodGet, "/api/shows/search?q=frieren&limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/shows/top", "", nil)
	require.Equal(t, http.StatusOK, code, "falls back to the local catalogue")
	require.NoError(t, json.Unmarshal(env.Data, &shows))
	assert.Len(t, shows, 1)
}

func TestClubs_PollFlow(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "alice")

	code, env := s.do(t, http.MethodPost, "/api/clubs", token, map[string]any{"name": "Weekly Watch"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var club models.Club
	require.NoError(t, json.Unmarshal(env.Data, &club))

	code, env = s.do(t, http.MethodPost, "/api/clubs/"+club.ID+"/polls", token, map[string]any{
		"question": "Next show?",
		"options":  []string{"Frieren", "Dandadan"},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var poll models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &poll))

	code, env = s.do(t, http.MethodPost, "/api/clubs/"+club.ID+"/polls/"+poll.ID+"/vote", token, map[string]string{"optionId": poll.Options[1].ID})
	require.Equal(t, http.StatusOK, code, env.Message)
	var tally models.PollTally
	require.NoError(t, json.Unmarshal(env.Data, &tally))
	assert.Equal(t, 1, tally.TotalVotes)
	assert.Equal(t, []string{poll.Options[1].ID}, tally.MyVotes)

	code, _ = s.do(t, http.MethodPost, "/api/clubs/"+club.ID+"/leave", token, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestReminders_CreateAndList(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "alice")

	at := time.Now().Add(time.Hour).UTC()
	code, env := s.do(t, http.MethodPost, "/api/reminders", token, map[string]any{"malId": 52991, "alertTime": at})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Contains(t, string(env.Data), `"alertStatus":"imminent"`)

	code, env = s.do(t, http.MethodGet, "/api/reminders?active=true", token, nil)
	require.Equal(t, http.StatusOK, code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, _ = s.do(t, http.MethodGet, "/api/reminders?active=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReviews_Flow(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")

	body := map[string]any{"malId": 52991, "rating": 9, "title": "Quiet masterpiece", "content": "Slow and kind."}
	code, env := s.do(t, http.MethodPost, "/api/reviews", alice, body)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var review models.Review
	require.NoError(t, json.Unmarshal(env.Data, &review))

	code, _ = s.do(t, http.MethodPost, "/api/reviews", alice, body)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, "/api/reviews/"+review.ID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.Len(t, review.Likes, 1)

	code, env = s.do(t, http.MethodPost, "/api/reviews/"+review.ID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.Empty(t, review.Likes)

	code, _ = s.do(t, http.MethodPut, "/api/reviews/"+review.ID, bob, map[string]any{"rating": 1, "title": "mine", "content": "mine"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodDelete, "/api/reviews/"+review.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/shows/"+review.ShowID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code)
	var reviews []models.Review
	require.NoError(t, json.Unmarshal(env.Data, &reviews))
	assert.Len(t, reviews, 1)

	code, _ = s.do(t, http.MethodDelete, "/api/reviews/"+review.ID, alice, nil)
	assert.Equal(t, http.StatusOK, code)
}

// uuidColumnClubs fails like a uuid column does when handed malformed text.
type uuidColumnClubs struct {
	repository.ClubRepository
}

func (r uuidColumnClubs) GetByID(ctx context.Context, id string) (*models.Club, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("failed to get club: invalid input syntax for type uuid: %q (SQLSTATE 22P02)", id)
	}
	return r.ClubRepository.GetByID(ctx, id)
}

func TestMalformedIDs_NotFound(t *testing.T) {
	s := newTestServer(t, func(repos *repository.Repositories) {
		repos.Clubs = uuidColumnClubs{repos.Clubs}
	})
	token, user := s.register(t, "alice")

	code, env := s.do(t, http.MethodPost, "/api/clubs", token, map[string]any{"name": "Weekly Watch"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var club models.Club
	require.NoError(t, json.Unmarshal(env.Data, &club))

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/clubs/abc"},
		{http.MethodPost, "/api/clubs/abc/join"},
		{http.MethodPut, "/api/clubs/" + club.ID + "/members/abc/role"},
		{http.MethodPost, "/api/clubs/" + club.ID + "/posts/abc/like"},
		{http.MethodPost, "/api/reviews/x/like"},
		{http.MethodPatch, "/api/watchlist/42/increment"},
		{http.MethodPut, "/api/notifications/nope/read"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			code, env := s.do(t, p.method, p.path, token, map[string]string{"role": "member"})
			assert.Equal(t, http.StatusNotFound, code)
			assert.Equal(t, "not found", env.Message)
		})
	}

	code, _ = s.do(t, http.MethodGet, "/api/clubs/"+club.ID, token, nil)
	assert.Equal(t, http.StatusOK, code)

	user.Role = models.RoleAdmin
	require.NoError(t, s.repos.Users.Update(t.Context(), user))
	code, _ = s.do(t, http.MethodPatch, "/api/admin/users/abc/role", token, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestNotificationsSocket_DisabledWithoutHub(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "alice")

	code, _ := s.do(t, http.MethodGet, "/api/ws/notifications?token="+token, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", services.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("x: %w", services.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("x: %w", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("x: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", services.ErrConflict), http.StatusConflict},
		{echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, msg)
	}

	_, msg := statusFor(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", msg)
}
