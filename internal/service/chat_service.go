package service

import (
	"context"
	"strings"

	"glimpse/internal/events"
	"glimpse/internal/observability"
	"glimpse/internal/repository"
	"glimpse/models"
)

const maxMessageLen = 4000

type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	events   events.Publisher
}

type SendMessageInput struct {
	SenderID   uint
	ReceiverID uint
	Text       string
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, publisher events.Publisher) *ChatService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo, events: publisher}
}

// SendMessage persists the message in the pair's conversation. Nothing is
// delivered to the receiver.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("message is required")
	}
	if len(text) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 4000 characters)")
	}
	if in.SenderID == in.ReceiverID {
		return nil, models.NewValidationError("You cannot message yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, in.ReceiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{SenderID: in.SenderID, ReceiverID: in.ReceiverID, Text: text}
	conv, err := s.chatRepo.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()

	e := events.New(events.MessageSent, in.SenderID, in.ReceiverID)
	e.Data = map[string]any{"conversation_id": conv.ID, "message_id": msg.ID}
	s.events.Publish(ctx, e)
	return msg, nil
}

// GetMessages returns the conversation with peerID oldest first, or an
// empty slice when the two users never talked.
func (s *ChatService) GetMessages(ctx context.Context, callerID, peerID uint) ([]models.Message, error) {
	conv, err := s.chatRepo.FindConversation(ctx, callerID, peerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []models.Message{}, nil
	}
	return s.chatRepo.ListMessages(ctx, conv.ID)
}
