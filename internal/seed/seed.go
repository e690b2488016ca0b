// Package seed fills a development database with fake accounts and activity.
// It is not used on production paths.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"glimpse/internal/middleware"
	"glimpse/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// Seed makes the generated data reproducible. Zero picks a time-based seed.
	Seed int64
}

// Result counts what a run inserted.
type Result struct {
	Users         int
	Posts         int
	Follows       int
	Likes         int
	Comments      int
	Bookmarks     int
	Conversations int
	Messages      int
}

// Seeder writes fake data through a single gorm handle.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder applies defaults to opts and returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.NumPosts < 0 {
		opts.NumPosts = 0
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(seed)}
}

// Run optionally wipes the domain tables and then inserts one transaction of
// fake data.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	if s.opts.ShouldClean {
		if err := Clean(ctx, s.db); err != nil {
			return res, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return res, fmt.Errorf("hash seed password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.seedUsers(tx, string(hash))
		if err != nil {
			return err
		}
		res.Users = len(users)

		posts, err := s.seedPosts(tx, users)
		if err != nil {
			return err
		}
		res.Posts = len(posts)

		if res.Follows, err = s.seedFollows(tx, users); err != nil {
			return err
		}
		if res.Likes, res.Bookmarks, err = s.seedReactions(tx, users, posts); err != nil {
			return err
		}
		if res.Comments, err = s.seedComments(tx, users, posts); err != nil {
			return err
		}
		res.Conversations, res.Messages, err = s.seedConversations(tx, users)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
		slog.Int("follows", res.Follows),
		slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments),
		slog.Int("messages", res.Messages),
	)
	return res, nil
}

func (s *Seeder) seedUsers(tx *gorm.DB, hash string) ([]models.User, error) {
	users := make([]models.User, 0, s.opts.NumUsers)
	taken := make(map[string]bool, s.opts.NumUsers)
	for len(users) < s.opts.NumUsers {
		name := s.username()
		if taken[name] {
			continue
		}
		taken[name] = true
		users = append(users, models.User{
			Username:       name,
			Email:          name + "@example.com",
			Password:       hash,
			Bio:            s.faker.Sentence(8),
			ProfilePicture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", name),
		})
	}
	if err := tx.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return users, nil
}

// username is lowercase and fits the 3..30 [a-z0-9_] account rule.
func (s *Seeder) username() string {
	base := strings.ToLower(s.faker.FirstName() + "_" + s.faker.LastName())
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 25 {
		name = name[:25]
	}
	return fmt.Sprintf("%s%d", name, s.faker.Number(10, 9999))
}

func (s *Seeder) seedPosts(tx *gorm.DB, users []models.User) ([]models.Post, error) {
	posts := make([]models.Post, 0, s.opts.NumPosts)
	if len(users) == 0 {
		return posts, nil
	}
	now := time.Now()
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		age := time.Duration(s.faker.Number(0, 60*24*30)) * time.Minute
		posts = append(posts, models.Post{
			Caption:   s.faker.Sentence(s.faker.Number(3, 14)),
			ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID()),
			AuthorID:  author.ID,
			CreatedAt: now.Add(-age),
		})
	}
	if len(posts) == 0 {
		return posts, nil
	}
	if err := tx.Omit("Author").CreateInBatches(&posts, 100).Error; err != nil {
		return nil, fmt.Errorf("seed posts: %w", err)
	}
	return posts, nil
}

// seedFollows gives every user a few distinct followees, never themselves.
func (s *Seeder) seedFollows(tx *gorm.DB, users []models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	var follows []models.Follow
	for _, u := range users {
		want := s.faker.Number(1, min(5, len(users)-1))
		picked := map[uint]bool{u.ID: true}
		for len(picked) <= want {
			other := users[s.faker.Number(0, len(users)-1)].ID
			if picked[other] {
				continue
			}
			picked[other] = true
			follows = append(follows, models.Follow{FollowerID: u.ID, FollowingID: other})
		}
	}
	if err := tx.CreateInBatches(&follows, 200).Error; err != nil {
		return 0, fmt.Errorf("seed follows: %w", err)
	}
	return len(follows), nil
}

func (s *Seeder) seedReactions(tx *gorm.DB, users []models.User, posts []models.Post) (int, int, error) {
	var likes []models.Like
	var bookmarks []models.Bookmark
	for _, p := range posts {
		for _, u := range users {
			if s.faker.Number(0, 99) < 30 {
				likes = append(likes, models.Like{UserID: u.ID, PostID: p.ID})
			}
			if s.faker.Number(0, 99) < 5 {
				bookmarks = append(bookmarks, models.Bookmark{UserID: u.ID, PostID: p.ID})
			}
		}
	}
	if len(likes) > 0 {
		if err := tx.CreateInBatches(&likes, 500).Error; err != nil {
			return 0, 0, fmt.Errorf("seed likes: %w", err)
		}
	}
	if len(bookmarks) > 0 {
		if err := tx.CreateInBatches(&bookmarks, 500).Error; err != nil {
			return 0, 0, fmt.Errorf("seed bookmarks: %w", err)
		}
	}
	return len(likes), len(bookmarks), nil
}

func (s *Seeder) seedComments(tx *gorm.DB, users []models.User, posts []models.Post) (int, error) {
	var comments []models.Comment
	for _, p := range posts {
		n := s.faker.Number(0, 4)
		for i := 0; i < n; i++ {
			author := users[s.faker.Number(0, len(users)-1)]
			comments = append(comments, models.Comment{
				Text:      s.faker.Sentence(s.faker.Number(2, 12)),
				AuthorID:  author.ID,
				PostID:    p.ID,
				CreatedAt: p.CreatedAt.Add(time.Duration(i+1) * time.Minute),
			})
		}
	}
	if len(comments) == 0 {
		return 0, nil
	}
	if err := tx.Omit("Author").CreateInBatches(&comments, 500).Error; err != nil {
		return 0, fmt.Errorf("seed comments: %w", err)
	}
	return len(comments), nil
}

// seedConversations opens a thread between each user and the next one.
func (s *Seeder) seedConversations(tx *gorm.DB, users []models.User) (int, int, error) {
	if len(users) < 2 {
		return 0, 0, nil
	}
	convs, msgs := 0, 0
	seen := make(map[[2]uint]bool)
	for i, u := range users {
		other := users[(i+1)%len(users)]
		a, b := models.ConversationPair(u.ID, other.ID)
		if seen[[2]uint{a, b}] {
			continue
		}
		seen[[2]uint{a, b}] = true

		conv := models.Conversation{UserAID: a, UserBID: b}
		if err := tx.Create(&conv).Error; err != nil {
			return 0, 0, fmt.Errorf("seed conversation: %w", err)
		}
		convs++

		start := time.Now().Add(-time.Hour)
		n := s.faker.Number(1, 6)
		messages := make([]models.Message, 0, n)
		for j := 0; j < n; j++ {
			sender, receiver := u.ID, other.ID
			if j%2 == 1 {
				sender, receiver = receiver, sender
			}
			messages = append(messages, models.Message{
				ConversationID: conv.ID,
				SenderID:       sender,
				ReceiverID:     receiver,
				Text:           s.faker.Sentence(s.faker.Number(2, 10)),
				CreatedAt:      start.Add(time.Duration(j) * time.Minute),
			})
		}
		if err := tx.Create(&messages).Error; err != nil {
			return 0, 0, fmt.Errorf("seed messages: %w", err)
		}
		msgs += len(messages)
	}
	return convs, msgs, nil
}

// Clean deletes every domain row, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.Message{},
		&models.Conversation{},
		&models.Comment{},
		&models.Bookmark{},
		&models.Like{},
		&models.Post{},
		&models.Follow{},
		&models.User{},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
				return fmt.Errorf("clean %T: %w", t, err)
			}
		}
		return nil
	})
}
