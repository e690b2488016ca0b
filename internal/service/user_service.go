package service

import (
	"context"
	"strings"

	"glimpse/internal/events"
	"glimpse/internal/observability"
	"glimpse/internal/repository"
	"glimpse/internal/validation"
	"glimpse/models"
)

const maxBioLen = 500

// Follow toggle outcomes.
const (
	ActionFollowed   = "followed"
	ActionUnfollowed = "unfollowed"
)

type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	media      ImageUploader
	events     events.Publisher
}

// EditProfileInput changes only the fields that are non-nil. Avatar is the
// raw upload, if one was sent.
type EditProfileInput struct {
	UserID   uint
	Username *string
	Bio      *string
	Avatar   *UploadImageInput
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	media ImageUploader,
	publisher events.Publisher,
) *UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &UserService{userRepo: userRepo, followRepo: followRepo, media: media, events: publisher}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	return s.userRepo.GetProfile(ctx, userID)
}

func (s *UserService) EditProfile(ctx context.Context, in EditProfileInput) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	var avatar *StoredImage
	if in.Avatar != nil {
		upload := *in.Avatar
		upload.UserID = in.UserID
		upload.Purpose = MediaPurposeAvatar
		avatar, err = s.media.Upload(ctx, upload)
		if err != nil {
			return nil, err
		}
		user.ProfilePicture = avatar.URL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if avatar != nil {
			releaseUpload(ctx, s.media, avatar, s.userRepo.CountByAvatar)
		}
		return nil, err
	}
	return s.userRepo.GetProfile(ctx, user.ID)
}

// SuggestedUsers lists everyone but the caller, ordered by id.
func (s *UserService) SuggestedUsers(ctx context.Context, callerID uint) ([]models.User, error) {
	return s.userRepo.ListExcept(ctx, callerID)
}

// FollowOrUnfollow toggles the caller's follow edge to targetID and
// returns ActionFollowed or ActionUnfollowed.
func (s *UserService) FollowOrUnfollow(ctx context.Context, callerID, targetID uint) (string, error) {
	if callerID == targetID {
		return "", models.NewValidationError("You cannot follow or unfollow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, callerID); err != nil {
		return "", err
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return "", err
	}

	followed, err := s.followRepo.Toggle(ctx, callerID, targetID)
	if err != nil {
		return "", err
	}

	action, eventType := ActionUnfollowed, events.UserUnfollowed
	if followed {
		action, eventType = ActionFollowed, events.UserFollowed
	}
	observability.FollowToggles.WithLabelValues(action).Inc()
	s.events.Publish(ctx, events.New(eventType, callerID, targetID))
	return action, nil
}
