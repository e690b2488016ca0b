package repository

import (
	"context"
	"errors"
	"strings"

	"glimpse/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ListExcept(ctx context.Context, userID uint) ([]models.User, error)
	GetProfile(ctx context.Context, id uint) (*models.UserProfile, error)
	// CountByAvatar counts users whose profile picture is url.
	CountByAvatar(ctx context.Context, url string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&user).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("username", "bio", "profile_picture", "updated_at").
		Updates(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(uniqueConstraintName(err), "email") {
				return models.NewConflictError("Email already in use")
			}
			return models.NewConflictError("Username already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) CountByAvatar(ctx context.Context, url string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("profile_picture = ?", url).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) ListExcept(ctx context.Context, userID uint) ([]models.User, error) {
	users := []models.User{}
	err := r.db.WithContext(ctx).
		Where("id <> ?", userID).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetProfile loads the user and the id lists of its relationship sets.
func (r *userRepository) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := models.NewUserProfile(*user)
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Follow{}).Where("following_id = ?", id).
		Order("id ASC").Pluck("follower_id", &profile.Followers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", id).
		Order("id ASC").Pluck("following_id", &profile.Following).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Post{}).Where("author_id = ?", id).
		Order("created_at DESC, id DESC").Pluck("id", &profile.Posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Bookmark{}).Where("user_id = ?", id).
		Order("id ASC").Pluck("post_id", &profile.Bookmarks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	profile.Normalize()
	return profile, nil
}
