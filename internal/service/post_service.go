package service

import (
	"context"
	"strings"

	"glimpse/internal/events"
	"glimpse/internal/middleware"
	"glimpse/internal/observability"
	"glimpse/internal/repository"
	"glimpse/models"
)

const maxCaptionLen = 2200

type PostService struct {
	postRepo     repository.PostRepository
	bookmarkRepo repository.BookmarkRepository
	media        ImageUploader
	events       events.Publisher
}

type CreatePostInput struct {
	AuthorID uint
	Caption  string
	// Image is nil when the form carried no image part.
	Image *UploadImageInput
}

func NewPostService(
	postRepo repository.PostRepository,
	bookmarkRepo repository.BookmarkRepository,
	media ImageUploader,
	publisher events.Publisher,
) *PostService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PostService{postRepo: postRepo, bookmarkRepo: bookmarkRepo, media: media, events: publisher}
}

func (s *PostService) AddNewPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Image == nil || len(in.Image.Content) == 0 {
		return nil, models.NewValidationError("Image Required")
	}
	caption := strings.TrimSpace(in.Caption)
	if len(caption) > maxCaptionLen {
		return nil, models.NewValidationError("Caption too long (max 2200 characters)")
	}

	upload := *in.Image
	upload.UserID = in.AuthorID
	upload.Purpose = MediaPurposePost
	stored, err := s.media.Upload(ctx, upload)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID: in.AuthorID,
		Caption:  caption,
		ImageURL: stored.URL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		releaseUpload(ctx, s.media, stored, s.postRepo.CountByImage)
		return nil, err
	}
	observability.PostsCreated.Inc()

	e := events.New(events.PostCreated, in.AuthorID, post.ID)
	e.Data = map[string]any{"image": post.ImageURL}
	s.events.Publish(ctx, e)

	return s.postRepo.GetDetailed(ctx, post.ID)
}

func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.List(ctx)
}

func (s *PostService) ListUserPosts(ctx context.Context, authorID uint) ([]*models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, authorID)
}

func (s *PostService) ListBookmarks(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListBookmarked(ctx, userID)
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetDetailed(ctx, postID)
}

func (s *PostService) DislikePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetDetailed(ctx, postID)
}

// DeletePost removes the caller's own post and everything attached to it.
func (s *PostService) DeletePost(ctx context.Context, callerID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return models.NewForbiddenError("Not allowed to delete this post")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	observability.PostsDeleted.Inc()
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", postID)
	s.events.Publish(ctx, events.New(events.PostDeleted, callerID, postID))
	return nil
}

// BookmarkPost toggles the bookmark and returns models.BookmarkSaved or
// models.BookmarkUnsaved.
func (s *PostService) BookmarkPost(ctx context.Context, userID, postID uint) (string, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	return s.bookmarkRepo.Toggle(ctx, userID, post.ID)
}
