// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents an account in Glimpse.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null;size:30" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Password       string    `gorm:"not null" json:"-"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// UserProfile is the public projection of a user together with the ids of
// its relationship sets. The password hash is never part of it.
type UserProfile struct {
	User
	Followers []uint `json:"followers"`
	Following []uint `json:"following"`
	Posts     []uint `json:"posts"`
	Bookmarks []uint `json:"bookmarks"`
}

// NewUserProfile wraps u with empty relationship sets and drops the hash.
func NewUserProfile(u User) *UserProfile {
	u.Password = ""
	return &UserProfile{
		User:      u,
		Followers: []uint{},
		Following: []uint{},
		Posts:     []uint{},
		Bookmarks: []uint{},
	}
}

// Normalize replaces nil relationship sets with empty ones so they encode as [].
func (p *UserProfile) Normalize() {
	for _, s := range []*[]uint{&p.Followers, &p.Following, &p.Posts, &p.Bookmarks} {
		if *s == nil {
			*s = []uint{}
		}
	}
}
