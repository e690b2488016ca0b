package models

import "time"

// Follow is a directed edge of the social graph. A single row stands for
// FollowerID appearing in the following set and FollowingID appearing in
// the followers set, so the two lists cannot drift apart.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
