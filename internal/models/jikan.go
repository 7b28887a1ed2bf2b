package models

type JikanSearchResponse struct {
	Data       []AnimeData `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type JikanAnimeResponse struct {
	Data AnimeData `json:"data"`
}

type JikanEpisodesResponse struct {
	Data       []JikanEpisode `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

type AnimeData struct {
	MalID    int     `json:"mal_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Episodes int     `json:"episodes"`
	Status   string  `json:"status"`
	Synopsis string  `json:"synopsis"`
	Images   Images  `json:"images"`
	Genres   []Genre `json:"genres"`
	Year     int     `json:"year"`
	Type     string  `json:"type"`
	Airing   bool    `json:"airing"`
}

type JikanEpisode struct {
	MalID int    `json:"mal_id"`
	Title string `json:"title"`
	Aired string `json:"aired"`
}

type Images struct {
	JPG ImageURL `json:"jpg"`
}

type ImageURL struct {
	ImageURL      string `json:"image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type Genre struct {
	Name string `json:"name"`
}

type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	Items           struct {
		Count int `json:"count"`
		Total int `json:"total"`
	} `json:"items"`
}

// ToShow maps a Jikan anime record onto the local show shape. The caller
// assigns the ID.
func (a AnimeData) ToShow() Show {
	genres := make([]string, 0, len(a.Genres))
	for _, g := range a.Genres {
		genres = append(genres, g.Name)
	}

	image := a.Images.JPG.LargeImageURL
	if image == "" {
		image = a.Images.JPG.ImageURL
	}

	return Show{
		MalID:    a.MalID,
		Title:    a.Title,
		Synopsis: a.Synopsis,
		Type:     a.Type,
		Status:   a.Status,
		Episodes: a.Episodes,
		Score:    a.Score,
		Year:     a.Year,
		Genres:   genres,
		ImageURL: image,
	}
}
