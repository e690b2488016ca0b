package server

import (
	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CommentRequest is the body of POST /post/:id/comment.
type CommentRequest struct {
	Text string `json:"text" form:"text"`
}

// AddComment godoc
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	comment, err := s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		AuthorID: callerID(c),
		PostID:   postID,
		Text:     req.Text,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Comment added",
		"comment": comment,
	})
}

// GetCommentsOfPost godoc
// @Summary List a post's comments, newest first
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Router /post/{id}/comments [get]
func (s *Server) GetCommentsOfPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListByPost(c.UserContext(), postID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "comments": comments})
}
