package models

import "time"

// EpisodeSnapshot is a denormalized copy of an upcoming episode.
type EpisodeSnapshot struct {
	Number  int        `json:"number"`
	Title   string     `json:"title,omitempty"`
	AirDate *time.Time `json:"airDate,omitempty"`
}

type Show struct {
	ID          string           `json:"id" db:"id"`
	MalID       int              `json:"malId" db:"mal_id"`
	Title       string           `json:"title" db:"title"`
	Synopsis    string           `json:"synopsis" db:"synopsis"`
	Type        string           `json:"type" db:"type"`
	Status      string           `json:"status" db:"status"`
	Episodes    int              `json:"episodes" db:"episodes"`
	Score       float64          `json:"score" db:"score"`
	Year        int              `json:"year" db:"year"`
	Genres      []string         `json:"genres" db:"genres"`
	ImageURL    string           `json:"imageUrl" db:"image_url"`
	NextEpisode *EpisodeSnapshot `json:"nextEpisode,omitempty" db:"-"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// ShowDetails is a show plus the community aggregates shown on its page.
type ShowDetails struct {
	Show
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
	WatcherCount  int     `json:"watcherCount"`
}
