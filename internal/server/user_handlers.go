package server

import (
	"strings"

	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// EditProfileRequest is the JSON form of POST /user/profile/edit. Absent
// fields are left unchanged.
type EditProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

// GetProfile godoc
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id}/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": profile})
}

// EditProfile godoc
// @Summary Edit the caller's profile
// @Description Accepts JSON or multipart with an optional avatar file.
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /user/profile/edit [post]
func (s *Server) EditProfile(c *fiber.Ctx) error {
	in := service.EditProfileInput{UserID: callerID(c)}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return badBody(c)
		}
		if v, ok := form.Value["username"]; ok && len(v) > 0 {
			in.Username = &v[0]
		}
		if v, ok := form.Value["bio"]; ok && len(v) > 0 {
			in.Bio = &v[0]
		}
		if files := form.File["avatar"]; len(files) > 0 {
			upload, err := s.readUpload(files[0])
			if err != nil {
				return s.fail(c, err)
			}
			in.Avatar = upload
		}
	} else if len(c.Body()) > 0 {
		var req EditProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		in.Username, in.Bio = req.Username, req.Bio
	}

	profile, err := s.userService.EditProfile(c.UserContext(), in)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"user":    profile,
	})
}

// GetSuggestedUsers godoc
// @Summary List every other user
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/suggested [get]
func (s *Server) GetSuggestedUsers(c *fiber.Ctx) error {
	users, err := s.userService.SuggestedUsers(c.UserContext(), callerID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}

// FollowOrUnfollow godoc
// @Summary Toggle following a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{id}/followOrUnfollow [post]
func (s *Server) FollowOrUnfollow(c *fiber.Ctx) error {
	target, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	action, err := s.userService.FollowOrUnfollow(c.UserContext(), callerID(c), target)
	if err != nil {
		return s.fail(c, err)
	}
	message := "Followed successfully"
	if action == service.ActionUnfollowed {
		message = "Unfollowed successfully"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"action":  action,
	})
}

// GetUserPosts godoc
// @Summary List a user's posts, newest first
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /user/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	posts, err := s.postService.ListUserPosts(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetBookmarks godoc
// @Summary List the caller's bookmarked posts
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /user/bookmarks [get]
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	posts, err := s.postService.ListBookmarks(c.UserContext(), callerID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}
