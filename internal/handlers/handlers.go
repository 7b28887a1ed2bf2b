package handlers

import (
	"net/http"

	"anitrack/internal/models"
	"anitrack/internal/notify"
	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Services groups the business services the REST handlers call.
type Services struct {
	Users         *services.UserService
	Shows         *services.ShowService
	Watchlist     *services.WatchlistService
	Reviews       *services.ReviewService
	Clubs         *services.ClubService
	Reminders     *services.ReminderService
	Notifications *services.NotificationService
	Analytics     *services.AnalyticsService
	Admin         *services.AdminService
	Worker        *services.ReminderWorker
}

type Handler struct {
	svc    Services
	hub    *notify.Hub
	logger *logrus.Logger
}

func New(svc Services, hub *notify.Hub, logger *logrus.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, logger: logger}
}

// Routes mounts every API route on e.
func (h *Handler) Routes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	auth := h.Authenticate()

	a := api.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.GET("/me", h.Me, auth)
	a.PUT("/me", h.UpdateMe, auth)
	a.POST("/change-password", h.ChangePassword, auth)

	shows := api.Group("/shows")
	shows.GET("/search", h.SearchShows)
	shows.GET("/top", h.TopShows)
	shows.GET("/:id", h.GetShow)
	shows.GET("/:id/reviews", h.ShowReviews)

	wl := api.Group("/watchlist", auth, ValidIDs)
	wl.GET("", h.ListWatchlist)
	wl.POST("", h.AddToWatchlist)
	wl.PUT("/:id", h.UpdateWatchlistItem)
	wl.PATCH("/:id/increment", h.IncrementEpisode)
	wl.DELETE("/:id", h.DeleteWatchlistItem)

	rv := api.Group("/reviews", auth, ValidIDs)
	rv.POST("", h.CreateReview)
	rv.GET("/me", h.MyReviews)
	rv.PUT("/:id", h.UpdateReview)
	rv.DELETE("/:id", h.DeleteReview)
	rv.POST("/:id/like", h.LikeReview)

	cl := api.Group("/clubs", auth, ValidIDs)
	cl.GET("", h.ListClubs)
	cl.POST("", h.CreateClub)
	cl.GET("/:id", h.GetClub)
	cl.PUT("/:id", h.UpdateClub)
	cl.DELETE("/:id", h.DeleteClub)
	cl.POST("/:id/join", h.JoinClub)
	cl.POST("/:id/leave", h.LeaveClub)
	cl.PUT("/:id/members/:userId/role", h.SetMemberRole)
	cl.GET("/:id/posts", h.ListPosts)
	cl.POST("/:id/posts", h.CreatePost)
	cl.DELETE("/:id/posts/:postId", h.DeletePost)
	cl.POST("/:id/posts/:postId/like", h.LikePost)
	cl.POST("/:id/posts/:postId/comments", h.AddComment)
	cl.GET("/:id/polls", h.ListPolls)
	cl.POST("/:id/polls", h.CreatePoll)
	cl.POST("/:id/polls/:pollId/vote", h.Vote)
	cl.GET("/:id/polls/:pollId/results", h.PollResults)

	rm := api.Group("/reminders", auth, ValidIDs)
	rm.GET("", h.ListReminders)
	rm.POST("", h.CreateReminder)
	rm.PUT("/:id", h.UpdateReminder)
	rm.DELETE("/:id", h.DeleteReminder)
	rm.PATCH("/:id/toggle", h.ToggleReminder)

	nt := api.Group("/notifications", auth, ValidIDs)
	nt.GET("", h.ListNotifications)
	nt.PUT("/read-all", h.MarkAllNotificationsRead)
	nt.PUT("/:id/read", h.MarkNotificationRead)

	an := api.Group("/analytics", auth, ValidIDs)
	an.GET("/me", h.MyStats)
	an.GET("/clubs/:id/polls", h.ClubPollStats)

	ad := api.Group("/admin", auth, RequireAdmin, ValidIDs)
	ad.GET("/stats", h.AdminStats)
	ad.GET("/users", h.AdminUsers)
	ad.PATCH("/users/:id/role", h.AdminSetRole)
	ad.PATCH("/users/:id/toggle-active", h.AdminToggleActive)
	ad.DELETE("/reviews/:id", h.AdminDeleteReview)
	ad.DELETE("/posts/:id", h.AdminDeletePost)
	ad.DELETE("/clubs/:id", h.AdminDeleteClub)

	api.GET("/ws/notifications", h.NotificationsSocket, h.authenticate(true))
}

type healthResponse struct {
	Status string                        `json:"status"`
	Worker *services.ReminderWorkerStats `json:"worker,omitempty"`
}

func (h *Handler) Health(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	if h.svc.Worker != nil {
		stats := h.svc.Worker.Stats()
		resp.Worker = &stats
	}
	return respond(c, http.StatusOK, resp, "")
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, models.Envelope{Success: true, Data: data, Message: message})
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func pageFrom(c echo.Context) (models.Page, error) {
	var p models.Page
	err := echo.QueryParamsBinder(c).
		Int("limit", &p.Limit).
		Int("offset", &p.Offset).
		BindError()
	if err != nil {
		return p, badRequest("limit and offset must be integers")
	}
	return p, nil
}
