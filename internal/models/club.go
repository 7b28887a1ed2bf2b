package models

import "time"

type ClubRole string

const (
	ClubRoleAdmin     ClubRole = "admin"
	ClubRoleModerator ClubRole = "moderator"
	ClubRoleMember    ClubRole = "member"
)

func (r ClubRole) Valid() bool {
	return r == ClubRoleAdmin || r == ClubRoleModerator || r == ClubRoleMember
}

// CanModerate reports whether the role may edit the club or remove other
// members' posts.
func (r ClubRole) CanModerate() bool {
	return r == ClubRoleAdmin || r == ClubRoleModerator
}

type ClubMember struct {
	UserID   string    `json:"userId" db:"user_id"`
	Username string    `json:"username,omitempty" db:"-"`
	Role     ClubRole  `json:"role" db:"role"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

type Club struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Slug        string       `json:"slug" db:"slug"`
	Description string       `json:"description" db:"description"`
	IsPrivate   bool         `json:"isPrivate" db:"is_private"`
	CreatedBy   string       `json:"createdBy" db:"created_by"`
	ShowIDs     []string     `json:"showIds" db:"show_ids"`
	Members     []ClubMember `json:"members" db:"-"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Member returns the membership record for userID, if any.
func (c *Club) Member(userID string) (ClubMember, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return ClubMember{}, false
}

func (c *Club) AdminCount() int {
	n := 0
	for _, m := range c.Members {
		if m.Role == ClubRoleAdmin {
			n++
		}
	}
	return n
}

type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"postId" db:"post_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Username  string    `json:"username,omitempty" db:"-"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Post struct {
	ID        string    `json:"id" db:"id"`
	ClubID    string    `json:"clubId" db:"club_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Username  string    `json:"username,omitempty" db:"-"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Likes     []string  `json:"likes" db:"-"`
	Comments  []Comment `json:"comments" db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
