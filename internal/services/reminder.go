package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"anitrack/internal/cache"
	"anitrack/internal/metrics"
	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	reminderCachePrefix = "reminder:user:"
	reminderCacheTTL    = 10 * time.Minute
	workerInterval      = time.Minute
	workerBatchSize     = 50
	workerMaxBatches    = 20
	workerLease         = 5 * time.Minute
	maxReminderSends    = 52
)

var errOwnerInactive = errors.New("reminder owner is deactivated")

// Notifier delivers a due reminder over the channels its alert type names.
type Notifier interface {
	Deliver(ctx context.Context, user *models.User, reminder *models.Reminder) error
}

type ReminderInput struct {
	ShowID      string                  `json:"showId"`
	MalID       int                     `json:"malId"`
	NextEpisode *models.EpisodeSnapshot `json:"nextEpisode"`
	AlertTime   *time.Time              `json:"alertTime"`
	AlertType   models.AlertType        `json:"alertType"`
	IsRecurring bool                    `json:"isRecurring"`
	Message     string                  `json:"message"`
	Priority    models.Priority         `json:"priority"`
	MaxSends    int                     `json:"maxSends"`
}

type UpdateReminderInput struct {
	NextEpisode *models.EpisodeSnapshot `json:"nextEpisode"`
	AlertTime   *time.Time              `json:"alertTime"`
	AlertType   *models.AlertType       `json:"alertType"`
	IsRecurring *bool                   `json:"isRecurring"`
	Message     *string                 `json:"message"`
	Priority    *models.Priority        `json:"priority"`
	MaxSends    *int                    `json:"maxSends"`
}

type ReminderService struct {
	reminders repository.ReminderRepository
	shows     *ShowService
	cache     *cache.Cache
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReminderService(repos repository.Repositories, shows *ShowService, cache *cache.Cache, logger *logrus.Logger) *ReminderService {
	return &ReminderService{
		reminders: repos.Reminders,
		shows:     shows,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ReminderService) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Reminder, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"active_only": activeOnly,
	}).Debug("Getting user reminders")

	cacheKey := reminderCachePrefix + userID
	if activeOnly {
		cacheKey += ":active"
	}

	var cached []*models.Reminder
	if s.cache.GetJSON(ctx, "reminders", cacheKey, &cached) {
		return cached, nil
	}

	reminders, err := s.reminders.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}

	s.cache.SetJSON(ctx, cacheKey, reminders, reminderCacheTTL)
	return reminders, nil
}

func (s *ReminderService) Create(ctx context.Context, userID string, in ReminderInput) (*models.Reminder, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"show_id":    in.ShowID,
		"mal_id":     in.MalID,
		"alert_time": in.AlertTime,
	}).Info("Creating reminder...")

	if in.AlertTime == nil {
		return nil, invalid("alertTime is required")
	}
	if !in.AlertTime.After(s.now()) {
		return nil, invalid("reminder time cannot be in the past")
	}

	show, err := s.shows.Ensure(ctx, in.ShowID, in.MalID)
	if err != nil {
		return nil, err
	}

	rm := &models.Reminder{
		ID:          uuid.NewString(),
		UserID:      userID,
		ShowID:      show.ID,
		AlertTime:   *in.AlertTime,
		AlertType:   in.AlertType,
		IsActive:    true,
		IsRecurring: in.IsRecurring,
		Message:     strings.TrimSpace(in.Message),
		Priority:    in.Priority,
		MaxSends:    in.MaxSends,
	}
	switch {
	case in.NextEpisode != nil:
		rm.NextEpisode = *in.NextEpisode
	case show.NextEpisode != nil:
		rm.NextEpisode = *show.NextEpisode
	}
	if rm.AlertType == "" {
		rm.AlertType = models.AlertInApp
	}
	if rm.Priority == "" {
		rm.Priority = models.PriorityMedium
	}
	if rm.MaxSends == 0 {
		rm.MaxSends = 1
	}

	if err := validateReminder(rm); err != nil {
		return nil, err
	}

	if err := s.reminders.Create(ctx, rm); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	rm.ShowTitle = show.Title

	s.invalidateUserReminderCache(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"reminder_id": rm.ID,
		"user_id":     userID,
		"show_id":     show.ID,
	}).Info("Reminder created successfully")

	return rm, nil
}

func (s *ReminderService) Update(ctx context.Context, userID, id string, in UpdateReminderInput) (*models.Reminder, error) {
	rm, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.AlertTime != nil {
		if !in.AlertTime.After(s.now()) {
			return nil, invalid("reminder time cannot be in the past")
		}
		rm.AlertTime = *in.AlertTime
		rm.ResetRetry()
	}
	if in.NextEpisode != nil {
		rm.NextEpisode = *in.NextEpisode
	}
	if in.AlertType != nil {
		rm.AlertType = *in.AlertType
	}
	if in.IsRecurring != nil {
		rm.IsRecurring = *in.IsRecurring
	}
	if in.Message != nil {
		rm.Message = strings.TrimSpace(*in.Message)
	}
	if in.Priority != nil {
		rm.Priority = *in.Priority
	}
	if in.MaxSends != nil {
		rm.MaxSends = *in.MaxSends
	}

	if err := validateReminder(rm); err != nil {
		return nil, err
	}

	return s.save(ctx, rm)
}

// Toggle flips is_active. An exhausted reminder cannot be reactivated
// without raising max_sends first.
func (s *ReminderService) Toggle(ctx context.Context, userID, id string) (*models.Reminder, error) {
	rm, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !rm.IsActive && rm.SentCount >= rm.MaxSends {
		return nil, invalid("reminder has already been sent %d of %d times", rm.SentCount, rm.MaxSends)
	}

	rm.IsActive = !rm.IsActive
	if rm.IsActive {
		rm.ResetRetry()
	}
	return s.save(ctx, rm)
}

func (s *ReminderService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.reminders.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateUserReminderCache(ctx, userID)
	return nil
}

func (s *ReminderService) save(ctx context.Context, rm *models.Reminder) (*models.Reminder, error) {
	title := rm.ShowTitle
	if err := s.reminders.Update(ctx, rm); err != nil {
		return nil, err
	}
	rm.ShowTitle = title
	s.invalidateUserReminderCache(ctx, rm.UserID)
	return rm, nil
}

func (s *ReminderService) owned(ctx context.Context, userID, id string) (*models.Reminder, error) {
	rm, err := s.reminders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rm.UserID != userID {
		return nil, forbidden("reminder belongs to another user")
	}
	return rm, nil
}

func (s *ReminderService) invalidateUserReminderCache(ctx context.Context, userID string) {
	s.cache.Delete(ctx, reminderCachePrefix+userID, reminderCachePrefix+userID+":active", analyticsCachePrefix+userID)
}

func validateReminder(rm *models.Reminder) error {
	switch {
	case !rm.AlertType.Valid():
		return invalid("alertType must be one of email, inApp, both")
	case !rm.Priority.Valid():
		return invalid("priority must be one of low, medium, high")
	case utf8.RuneCountInString(rm.Message) > models.MaxReminderMessage:
		return invalid("message must be at most %d characters", models.MaxReminderMessage)
	case rm.MaxSends < 1 || rm.MaxSends > maxReminderSends:
		return invalid("maxSends must be between 1 and %d", maxReminderSends)
	case rm.MaxSends < rm.SentCount:
		return invalid("maxSends cannot be lower than the %d sends already made", rm.SentCount)
	case rm.NextEpisode.Number < 0:
		return invalid("episode number cannot be negative")
	}
	return nil
}

type ReminderWorkerStats struct {
	LastRun            time.Time `json:"lastRun"`
	RemindersProcessed int       `json:"remindersProcessed"`
	NotificationsSent  int       `json:"notificationsSent"`
	Errors             int       `json:"errors"`
	IsRunning          bool      `json:"isRunning"`
}

// ReminderWorker delivers due reminders on a fixed interval.
type ReminderWorker struct {
	reminders repository.ReminderRepository
	users     repository.UserRepository
	notifier  Notifier
	cache     *cache.Cache
	logger    *logrus.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time

	mu    sync.Mutex
	stats ReminderWorkerStats
}

func NewReminderWorker(repos repository.Repositories, notifier Notifier, cache *cache.Cache, logger *logrus.Logger, interval time.Duration, batchSize int) *ReminderWorker {
	if interval <= 0 {
		interval = workerInterval
	}
	if batchSize <= 0 {
		batchSize = workerBatchSize
	}
	return &ReminderWorker{
		reminders: repos.Reminders,
		users:     repos.Users,
		notifier:  notifier,
		cache:     cache,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run processes due reminders immediately and then on every tick until ctx
// is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("Starting reminder worker...")
	w.setRunning(true)
	defer w.setRunning(false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.logger.Debug("Checking for due reminders...")
		if _, err := w.ProcessDue(ctx); err != nil {
			w.logger.WithError(err).Error("Error processing due reminders")
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue delivers due reminders batch by batch until a batch comes back
// short, and returns how many were sent. A failed delivery is retried with
// backoff so it cannot hold back newer reminders.
func (w *ReminderWorker) ProcessDue(ctx context.Context) (int, error) {
	var total int
	for range workerMaxBatches {
		claimed, sent, err := w.processBatch(ctx)
		total += sent
		if err != nil {
			return total, err
		}
		if claimed < w.batchSize || ctx.Err() != nil {
			break
		}
	}
	return total, nil
}

func (w *ReminderWorker) processBatch(ctx context.Context) (int, int, error) {
	now := w.now()
	m := metrics.Get()

	due, err := w.reminders.ClaimDue(ctx, now, workerLease, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query due reminders: %w", err)
	}

	var sent, errorCount int
	for _, rm := range due {
		if ctx.Err() != nil {
			break
		}
		m.RemindersProcessedTotal.Inc()

		err := w.deliver(ctx, rm, now)
		if errors.Is(err, errOwnerInactive) {
			continue
		}
		if err != nil {
			m.RemindersFailedTotal.Inc()
			errorCount++
			w.retryLater(ctx, rm, now, err)
			continue
		}

		sent++
		w.logger.WithFields(logrus.Fields{
			"reminder_id": rm.ID,
			"user_id":     rm.UserID,
			"sent_count":  rm.SentCount,
			"max_sends":   rm.MaxSends,
		}).Info("Reminder sent successfully")
	}

	if sent > 0 || errorCount > 0 {
		w.logger.WithFields(logrus.Fields{
			"processed": len(due),
			"sent":      sent,
			"errors":    errorCount,
		}).Info("Processed due reminders")
	}

	w.mu.Lock()
	w.stats.LastRun = now
	w.stats.RemindersProcessed += len(due)
	w.stats.NotificationsSent += sent
	w.stats.Errors += errorCount
	w.mu.Unlock()

	return len(due), sent, nil
}

// retryLater pushes a failed reminder back. If the update itself fails the
// claim lease still delays the next attempt.
func (w *ReminderWorker) retryLater(ctx context.Context, rm *models.Reminder, now time.Time, cause error) {
	rm.MarkFailed(now)
	w.logger.WithError(cause).WithFields(logrus.Fields{
		"reminder_id": rm.ID,
		"attempts":    rm.FailedAttempts,
		"retry_at":    rm.RetryAt,
	}).Error("Failed to send reminder notification")

	if err := w.reminders.Update(ctx, rm); err != nil {
		w.logger.WithError(err).WithField("reminder_id", rm.ID).Error("Failed to schedule reminder retry")
	}
}

func (w *ReminderWorker) deliver(ctx context.Context, rm *models.Reminder, now time.Time) error {
	user, err := w.users.GetByID(ctx, rm.UserID)
	if err != nil {
		return fmt.Errorf("failed to load reminder owner: %w", err)
	}

	if !user.IsActive {
		rm.IsActive = false
		rm.ResetRetry()
		w.logger.WithField("reminder_id", rm.ID).Info("Owner is deactivated, disabling reminder")
		if err := w.markReminder(ctx, rm); err != nil {
			return err
		}
		return errOwnerInactive
	}

	if err := w.notifier.Deliver(ctx, user, rm); err != nil {
		return err
	}

	rm.MarkSent(now)
	return w.markReminder(ctx, rm)
}

func (w *ReminderWorker) markReminder(ctx context.Context, rm *models.Reminder) error {
	if err := w.reminders.Update(ctx, rm); err != nil {
		return fmt.Errorf("failed to mark reminder as sent: %w", err)
	}
	w.cache.Delete(ctx, reminderCachePrefix+rm.UserID, reminderCachePrefix+rm.UserID+":active", analyticsCachePrefix+rm.UserID)
	return nil
}

func (w *ReminderWorker) Stats() ReminderWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *ReminderWorker) setRunning(running bool) {
	w.mu.Lock()
	w.stats.IsRunning = running
	w.mu.Unlock()
}
