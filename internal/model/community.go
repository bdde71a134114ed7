package model

import "time"

type Group struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type Post struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	AuthorID  int       `json:"author_id"`
	GroupID   *int      `json:"group_id,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Author    *User     `json:"author,omitempty"`
	Group     *Group    `json:"group,omitempty"`
}

// InGroup reports whether the post is tagged with the given group.
func (p *Post) InGroup(groupID int) bool {
	return p.GroupID != nil && *p.GroupID == groupID
}

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	AuthorID  int       `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    *User     `json:"author,omitempty"`
}

// Follow subscribes UserID to the posts of AuthorID.
type Follow struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	AuthorID  int       `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
