package models

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type UserStats struct {
	TotalShows      int                 `json:"totalShows"`
	StatusBreakdown map[WatchStatus]int `json:"statusBreakdown"`
	EpisodesWatched int                 `json:"episodesWatched"`
	MeanRating      float64             `json:"meanRating"`
	RatedShows      int                 `json:"ratedShows"`
	TopGenres       []GenreCount        `json:"topGenres"`
	ReviewCount     int                 `json:"reviewCount"`
	ClubCount       int                 `json:"clubCount"`
	ActiveReminders int                 `json:"activeReminders"`
}

type AdminStats struct {
	Users       int `json:"users"`
	ActiveUsers int `json:"activeUsers"`
	Shows       int `json:"shows"`
	Reviews     int `json:"reviews"`
	Clubs       int `json:"clubs"`
	Posts       int `json:"posts"`
	Polls       int `json:"polls"`
	Reminders   int `json:"reminders"`
}
