package server

import (
	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendMessageRequest is the body of POST /message/:id/send.
type SendMessageRequest struct {
	Message string `json:"message" form:"message"`
}

// SendMessage godoc
// @Summary Send a direct message
// @Description Messages are stored only. Nothing is pushed to the receiver.
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "Receiver ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /message/{id}/send [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		SenderID:   callerID(c),
		ReceiverID: receiverID,
		Text:       req.Message,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// GetMessages godoc
// @Summary List the conversation with a user, oldest first
// @Tags messages
// @Produce json
// @Param id path int true "Peer ID"
// @Success 200 {object} map[string]interface{}
// @Router /message/{id} [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	peerID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	messages, err := s.chatService.GetMessages(c.UserContext(), callerID(c), peerID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "messages": messages})
}
