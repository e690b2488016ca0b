package repository

import (
	"context"
	"time"

	"glimpse/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for direct message persistence
type ChatRepository interface {
	// FindConversation returns nil, nil when the pair never exchanged a message.
	FindConversation(ctx context.Context, userA, userB uint) (*models.Conversation, error)
	// SendMessage stores msg in the conversation of its sender and receiver,
	// creating that conversation first if needed. Both writes commit together.
	SendMessage(ctx context.Context, msg *models.Message) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uint) ([]models.Message, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) FindConversation(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	a, b := models.ConversationPair(userA, userB)
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Limit(1).
		Find(&conv).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if conv.ID == 0 {
		return nil, nil
	}
	conv.FillParticipants()
	return &conv, nil
}

func (r *chatRepository) SendMessage(ctx context.Context, msg *models.Message) (*models.Conversation, error) {
	a, b := models.ConversationPair(msg.SenderID, msg.ReceiverID)
	conv := models.Conversation{UserAID: a, UserBID: b}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
				DoNothing: true,
			}).
			Create(&conv).Error; err != nil {
			return err
		}
		if conv.ID == 0 {
			if err := tx.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conv).Error; err != nil {
				return err
			}
		}

		msg.ConversationID = conv.ID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	conv.FillParticipants()
	return &conv, nil
}

// ListMessages returns the conversation's messages oldest first.
func (r *chatRepository) ListMessages(ctx context.Context, conversationID uint) ([]models.Message, error) {
	messages := []models.Message{}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}
