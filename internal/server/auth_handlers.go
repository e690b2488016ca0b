package server

import (
	"time"

	"glimpse/internal/middleware"
	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the body of POST /user/register.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Register godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Credentials"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /user/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if _, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account created successfully",
	})
}

// Login godoc
// @Summary Log in and receive the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err)
	}

	c.Cookie(s.sessionCookie(res.Token, res.ExpiresAt))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Welcome back " + res.User.Username,
		"user":    res.User,
		"token":   res.Token,
	})
}

// Logout godoc
// @Summary Clear the session cookie and revoke the token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if tok := middleware.TokenFromRequest(c); tok != "" {
		if claims, err := s.sessions.Parse(tok); err == nil {
			if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
			}
		}
	}

	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// sessionCookie builds the token cookie. A zero-valued token with a past
// expiry clears it.
func (s *Server) sessionCookie(token string, expires time.Time) *fiber.Cookie {
	maxAge := int(s.sessions.TTL().Seconds())
	if token == "" {
		maxAge = -1
	}
	return &fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
