package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"glimpse/internal/events"
	"glimpse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	existsFn     func(context.Context, string, string) (bool, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, *models.User) error
	listExceptFn func(context.Context, uint) ([]models.User, error)
	getProfileFn func(context.Context, uint) (*models.UserProfile, error)
	avatarRefs   int64
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return s.existsFn(ctx, email, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) ListExcept(ctx context.Context, id uint) ([]models.User, error) {
	return s.listExceptFn(ctx, id)
}
func (s *userRepoStub) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	return s.getProfileFn(ctx, id)
}
func (s *userRepoStub) CountByAvatar(context.Context, string) (int64, error) {
	return s.avatarRefs, nil
}

// usersByID serves GetByID and GetProfile from a fixed set of users.
func usersByID(users ...models.User) *userRepoStub {
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	get := func(_ context.Context, id uint) (*models.User, error) {
		u, ok := byID[id]
		if !ok {
			return nil, models.NewNotFoundError("User", id)
		}
		return &u, nil
	}
	return &userRepoStub{
		getByIDFn:    get,
		getByEmailFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		existsFn:     func(context.Context, string, string) (bool, error) { return false, nil },
		createFn:     func(context.Context, *models.User) error { return nil },
		updateFn:     func(context.Context, *models.User) error { return nil },
		listExceptFn: func(context.Context, uint) ([]models.User, error) { return []models.User{}, nil },
		getProfileFn: func(ctx context.Context, id uint) (*models.UserProfile, error) {
			u, err := get(ctx, id)
			if err != nil {
				return nil, err
			}
			return models.NewUserProfile(*u), nil
		},
	}
}

type followRepoStub struct {
	toggleFn func(context.Context, uint, uint) (bool, error)
}

func (s *followRepoStub) Toggle(ctx context.Context, follower, following uint) (bool, error) {
	return s.toggleFn(ctx, follower, following)
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, uint) (*models.Post, error)
	getDetailedFn func(context.Context, uint) (*models.Post, error)
	listFn        func(context.Context) ([]*models.Post, error)
	deleteFn      func(context.Context, uint) error
	likeFn        func(context.Context, uint, uint) error
	unlikeFn      func(context.Context, uint, uint) error
	imageRefs     int64
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetDetailed(ctx context.Context, id uint) (*models.Post, error) {
	return s.getDetailedFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context) ([]*models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, _ uint) ([]*models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) ListBookmarked(ctx context.Context, _ uint) ([]*models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) CountByImage(context.Context, string) (int64, error) {
	return s.imageRefs, nil
}

// postsByID serves a fixed set of posts and records writes.
func postsByID(posts ...models.Post) *postRepoStub {
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	get := func(_ context.Context, id uint) (*models.Post, error) {
		p, ok := byID[id]
		if !ok {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &p, nil
	}
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 100
			byID[p.ID] = *p
			return nil
		},
		getByIDFn:     get,
		getDetailedFn: get,
		listFn:        func(context.Context) ([]*models.Post, error) { return []*models.Post{}, nil },
		deleteFn:      func(context.Context, uint) error { return nil },
		likeFn:        func(context.Context, uint, uint) error { return nil },
		unlikeFn:      func(context.Context, uint, uint) error { return nil },
	}
}

type bookmarkRepoStub struct {
	saved map[[2]uint]bool
}

func (s *bookmarkRepoStub) Toggle(_ context.Context, userID, postID uint) (string, error) {
	if s.saved == nil {
		s.saved = make(map[[2]uint]bool)
	}
	k := [2]uint{userID, postID}
	if s.saved[k] {
		delete(s.saved, k)
		return models.BookmarkUnsaved, nil
	}
	s.saved[k] = true
	return models.BookmarkSaved, nil
}

type commentRepoStub struct {
	created []models.Comment
}

func (s *commentRepoStub) Create(_ context.Context, c *models.Comment) error {
	c.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *c)
	return nil
}
func (s *commentRepoStub) GetByID(_ context.Context, id uint) (*models.Comment, error) {
	for _, c := range s.created {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, models.NewNotFoundError("Comment", id)
}
func (s *commentRepoStub) ListByPost(_ context.Context, postID uint) ([]models.Comment, error) {
	out := []models.Comment{}
	for _, c := range s.created {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

type chatRepoStub struct {
	convs map[[2]uint]*models.Conversation
	msgs  map[uint][]models.Message
}

func newChatRepoStub() *chatRepoStub {
	return &chatRepoStub{convs: make(map[[2]uint]*models.Conversation), msgs: make(map[uint][]models.Message)}
}

func (s *chatRepoStub) FindConversation(_ context.Context, a, b uint) (*models.Conversation, error) {
	a, b = models.ConversationPair(a, b)
	return s.convs[[2]uint{a, b}], nil
}
func (s *chatRepoStub) SendMessage(_ context.Context, msg *models.Message) (*models.Conversation, error) {
	a, b := models.ConversationPair(msg.SenderID, msg.ReceiverID)
	conv, ok := s.convs[[2]uint{a, b}]
	if !ok {
		conv = &models.Conversation{ID: uint(len(s.convs) + 1), UserAID: a, UserBID: b}
		s.convs[[2]uint{a, b}] = conv
	}
	msg.ConversationID = conv.ID
	msg.ID = uint(len(s.msgs[conv.ID]) + 1)
	s.msgs[conv.ID] = append(s.msgs[conv.ID], *msg)
	conv.FillParticipants()
	return conv, nil
}
func (s *chatRepoStub) ListMessages(_ context.Context, id uint) ([]models.Message, error) {
	return append([]models.Message{}, s.msgs[id]...), nil
}

type uploaderStub struct {
	calls     []UploadImageInput
	discarded []string
	err       error
}

func (s *uploaderStub) Upload(_ context.Context, in UploadImageInput) (*StoredImage, error) {
	s.calls = append(s.calls, in)
	if s.err != nil {
		return nil, s.err
	}
	key := in.Purpose + "/x.jpg"
	return &StoredImage{URL: "/media/" + key, Key: key}, nil
}

func (s *uploaderStub) Discard(_ context.Context, img *StoredImage) error {
	s.discarded = append(s.discarded, img.Key)
	return nil
}

type tokenIssuerStub struct {
	err error
}

func (s tokenIssuerStub) Issue(userID uint, _ string) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "token-for-user", time.Now().Add(time.Hour), nil
}

type eventRecorder struct {
	got []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, e events.Event) { r.got = append(r.got, e) }
func (r *eventRecorder) Close() error { return nil }

func (r *eventRecorder) types() []string {
	out := make([]string, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.Type)
	}
	return out
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
