package container

import (
	"context"
	"fmt"

	"anitrack/internal/cache"
	"anitrack/internal/config"
	"anitrack/internal/database"
	"anitrack/internal/handlers"
	"anitrack/internal/logger"
	"anitrack/internal/notify"
	"anitrack/internal/repository"
	"anitrack/internal/repository/postgres"
	"anitrack/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container owns every long-lived dependency of the process.
type Container struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Logger   *logrus.Logger
	Hub      *notify.Hub
	Services handlers.Services
}

func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.Get()

	db, err := database.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Redis only backs the cache, so the API keeps serving without it.
	redisClient, err := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		redisClient = nil
	}

	c := &Container{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
		Logger: log,
		Hub:    notify.NewHub(cfg.CORS.AllowOrigins(), log),
	}
	c.Services = build(cfg, postgres.New(db), cache.NewCache(redisClient, log), c.Hub, log)
	return c, nil
}

func build(cfg *config.Config, repos repository.Repositories, store *cache.Cache, hub *notify.Hub, log *logrus.Logger) handlers.Services {
	jikan := services.NewClientWithConfig(&services.ClientConfig{
		BaseURL:    cfg.Jikan.BaseURL,
		Timeout:    cfg.Jikan.Timeout,
		RateLimit:  cfg.Jikan.RateLimit,
		MaxRetries: cfg.Jikan.MaxRetries,
		RetryDelay: cfg.Jikan.RetryDelay,
		Logger:     log,
	})

	email := notify.NewEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	dispatcher := notify.NewDispatcher(repos.Notifications, hub, email, log)

	shows := services.NewShowService(repos, jikan, store, log)
	reviews := services.NewReviewService(repos, shows, store, log)
	clubs := services.NewClubService(repos, store, log)

	return handlers.Services{
		Users:         services.NewUserService(repos.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer, log),
		Shows:         shows,
		Watchlist:     services.NewWatchlistService(repos, shows, store, log),
		Reviews:       reviews,
		Clubs:         clubs,
		Reminders:     services.NewReminderService(repos, shows, store, log),
		Notifications: services.NewNotificationService(repos),
		Analytics:     services.NewAnalyticsService(repos, clubs, store, log),
		Admin:         services.NewAdminService(repos, reviews, clubs, log),
		Worker:        services.NewReminderWorker(repos, dispatcher, store, log, cfg.Reminder.Interval, cfg.Reminder.BatchSize),
	}
}

func (c *Container) Close() {
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
