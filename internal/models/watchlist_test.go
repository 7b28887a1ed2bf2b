package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForProgress(t *testing.T) {
	tests := []struct {
		name           string
		current, total int
		want           WatchStatus
	}{
		{"nothing watched", 0, 12, StatusPlanToWatch},
		{"midway", 5, 12, StatusWatching},
		{"finished", 12, 12, StatusCompleted},
		{"unknown total", 30, 0, StatusWatching},
		{"unknown total nothing watched", 0, 0, StatusPlanToWatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForProgress(tt.current, tt.total))
		})
	}
}

func TestWatchlistItem_Progress(t *testing.T) {
	assert.Zero(t, (&WatchlistItem{CurrentEpisode: 3}).Progress())
	assert.InDelta(t, 25.0, (&WatchlistItem{CurrentEpisode: 3, TotalEpisodes: 12}).Progress(), 0.001)
	assert.Equal(t, 100.0, (&WatchlistItem{CurrentEpisode: 13, TotalEpisodes: 12}).Progress())
}

func TestWatchlistItem_ApplyStatus(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	item := &WatchlistItem{Status: StatusPlanToWatch}

	item.ApplyStatus(StatusWatching, now)
	require.NotNil(t, item.StartedAt)
	assert.Nil(t, item.CompletedAt)

	later := now.Add(48 * time.Hour)
	item.ApplyStatus(StatusCompleted, later)
	require.NotNil(t, item.CompletedAt)
	assert.Equal(t, later, *item.CompletedAt)
	assert.Equal(t, now, *item.StartedAt)

	item.ApplyStatus(StatusOnHold, later)
	assert.Nil(t, item.CompletedAt)
}

func TestWatchStatus_Valid(t *testing.T) {
	assert.True(t, WatchStatus("On Hold").Valid())
	assert.False(t, WatchStatus("on_hold").Valid())
}
