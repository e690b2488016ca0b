package service

import (
	"context"
	"strings"
	"time"

	"glimpse/internal/observability"
	"glimpse/internal/repository"
	"glimpse/internal/validation"
	"glimpse/models"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for stored passwords.
const PasswordHashCost = 10

const msgBadCredentials = "Incorrect email or password"

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, time.Time, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	hashCost int
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the caller's profile and the signed session token.
type LoginResult struct {
	User      *models.UserProfile
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, hashCost: PasswordHashCost}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Something is missing, please check")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("User already exists with this email or username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	// Create still maps a lost race on the unique indexes to a conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Something is missing, please check")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		observability.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	if user == nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}

	profile, err := s.userRepo.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		observability.LoginAttempts.WithLabelValues("error").Inc()
		return nil, models.NewInternalError(err)
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()

	return &LoginResult{User: profile, Token: token, ExpiresAt: exp}, nil
}
