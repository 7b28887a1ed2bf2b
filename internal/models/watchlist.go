package models

import "time"

type WatchStatus string

const (
	StatusPlanToWatch WatchStatus = "Plan to Watch"
	StatusWatching    WatchStatus = "Watching"
	StatusCompleted   WatchStatus = "Completed"
	StatusOnHold      WatchStatus = "On Hold"
	StatusDropped     WatchStatus = "Dropped"
)

var WatchStatuses = []WatchStatus{
	StatusPlanToWatch,
	StatusWatching,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
}

func (s WatchStatus) Valid() bool {
	for _, v := range WatchStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// StatusForProgress maps episode progress onto a watch status. The mapping is
// advisory; callers may still set any status explicitly.
func StatusForProgress(current, total int) WatchStatus {
	switch {
	case current <= 0:
		return StatusPlanToWatch
	case total > 0 && current >= total:
		return StatusCompleted
	default:
		return StatusWatching
	}
}

type WatchlistItem struct {
	ID             string      `json:"id" db:"id"`
	UserID         string      `json:"userId" db:"user_id"`
	ShowID         string      `json:"showId" db:"show_id"`
	Status         WatchStatus `json:"status" db:"status"`
	CurrentEpisode int         `json:"currentEpisode" db:"current_episode"`
	TotalEpisodes  int         `json:"totalEpisodes" db:"total_episodes"`
	Rating         *int        `json:"rating,omitempty" db:"rating"`
	Notes          string      `json:"notes" db:"notes"`
	StartedAt      *time.Time  `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
	Show           *Show       `json:"show,omitempty" db:"-"`
}

// Progress returns watched episodes as a percentage of the total, or 0 when
// the total is unknown.
func (w *WatchlistItem) Progress() float64 {
	if w.TotalEpisodes <= 0 {
		return 0
	}
	p := float64(w.CurrentEpisode) / float64(w.TotalEpisodes) * 100
	if p > 100 {
		return 100
	}
	return p
}

// ApplyStatus sets the status and stamps started/completed times on the
// transitions that define them.
func (w *WatchlistItem) ApplyStatus(status WatchStatus, now time.Time) {
	if status != StatusPlanToWatch && w.StartedAt == nil {
		t := now
		w.StartedAt = &t
	}
	if status == StatusCompleted {
		if w.CompletedAt == nil || w.Status != StatusCompleted {
			t := now
			w.CompletedAt = &t
		}
	} else {
		w.CompletedAt = nil
	}
	w.Status = status
}
