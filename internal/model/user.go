package model

import (
	"net/url"
	"strings"
	"time"
)

// User is an account that can write posts and follow other users.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName falls back to the username when no name was given.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// ProfileURL is the path of the user's profile page.
func (u *User) ProfileURL() string {
	return "/profile/" + url.PathEscape(u.Username) + "/"
}

func (u *User) FollowURL() string {
	return "/posts" + u.ProfileURL() + "follow/"
}

func (u *User) UnfollowURL() string {
	return "/posts" + u.ProfileURL() + "unfollow/"
}
