package repository

import (
	"context"

	"glimpse/models"

	"gorm.io/gorm"
)

// BookmarkRepository defines persistence operations for saved posts.
type BookmarkRepository interface {
	// Toggle returns models.BookmarkSaved or models.BookmarkUnsaved.
	Toggle(ctx context.Context, userID, postID uint) (string, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

func (r *bookmarkRepository) Toggle(ctx context.Context, userID, postID uint) (string, error) {
	result := models.BookmarkUnsaved
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(&models.Bookmark{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		result = models.BookmarkSaved
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.BookmarkSaved, nil
		}
		return "", models.NewInternalError(err)
	}
	return result, nil
}
