package models

import "time"

// Post is a captioned image authored by a user.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Caption  string `gorm:"type:text" json:"caption"`
	ImageURL string `gorm:"not null" json:"image"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`

	Likes []Like `gorm:"foreignKey:PostID" json:"-"`
	// LikedBy is derived from Likes when the post is loaded.
	LikedBy  []uint    `gorm:"-" json:"likes"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FillLikedBy projects the loaded likes into the liker id list.
func (p *Post) FillLikedBy() {
	p.LikedBy = make([]uint, 0, len(p.Likes))
	for _, l := range p.Likes {
		p.LikedBy = append(p.LikedBy, l.UserID)
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}
