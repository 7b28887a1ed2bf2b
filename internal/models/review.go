package models

import "time"

type Review struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"userId" db:"user_id"`
	ShowID           string    `json:"showId" db:"show_id"`
	Rating           int       `json:"rating" db:"rating"`
	Title            string    `json:"title" db:"title"`
	Content          string    `json:"content" db:"content"`
	ContainsSpoilers bool      `json:"containsSpoilers" db:"contains_spoilers"`
	Likes            []string  `json:"likes" db:"-"`
	Username         string    `json:"username,omitempty" db:"-"`
	ShowTitle        string    `json:"showTitle,omitempty" db:"-"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

func (r *Review) LikeCount() int {
	return len(r.Likes)
}
