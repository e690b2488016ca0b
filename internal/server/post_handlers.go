package server

import (
	"glimpse/internal/service"
	"glimpse/models"

	"github.com/gofiber/fiber/v2"
)

// AddNewPost godoc
// @Summary Create a post from an uploaded image
// @Tags posts
// @Accept mpfd
// @Produce json
// @Param caption formData string false "Caption"
// @Param image formData file true "Image"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /post/new [post]
func (s *Server) AddNewPost(c *fiber.Ctx) error {
	image, err := s.formImage(c, "image")
	if err != nil {
		return s.fail(c, err)
	}

	post, err := s.postService.AddNewPost(c.UserContext(), service.CreatePostInput{
		AuthorID: callerID(c),
		Caption:  c.FormValue("caption"),
		Image:    image,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "New post added",
		"post":    post,
	})
}

// GetAllPosts godoc
// @Summary List every post, newest first
// @Tags posts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /post/all [get]
func (s *Server) GetAllPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetMyPosts godoc
// @Summary List the caller's posts, newest first
// @Tags posts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /post/mine [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListUserPosts(c.UserContext(), callerID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// LikePost godoc
// @Summary Like a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.LikePost(c.UserContext(), callerID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Post liked", "likes": post.LikedBy})
}

// DislikePost godoc
// @Summary Remove the caller's like
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/dislike [post]
func (s *Server) DislikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.DislikePost(c.UserContext(), callerID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Post disliked", "likes": post.LikedBy})
}

// DeletePost godoc
// @Summary Delete the caller's post with its comments, likes and bookmarks
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), callerID(c), id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Post deleted"})
}

// BookmarkPost godoc
// @Summary Toggle a bookmark
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/bookmark [post]
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.postService.BookmarkPost(c.UserContext(), callerID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	message := "Post bookmarked"
	if state == models.BookmarkUnsaved {
		message = "Post removed from bookmarks"
	}
	return c.JSON(fiber.Map{"success": true, "type": state, "message": message})
}
