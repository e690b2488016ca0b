package models

import "time"

// Conversation is the single thread shared by an unordered pair of users.
// UserAID is always the smaller id.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserAID   uint      `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"-"`
	UserBID   uint      `gorm:"not null;uniqueIndex:idx_conversation_pair;index" json:"-"`
	Messages  []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []uint `gorm:"-" json:"participants"`
}

// ConversationPair normalises two user ids into storage order.
func ConversationPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// FillParticipants projects the stored pair into Participants.
func (c *Conversation) FillParticipants() {
	c.Participants = []uint{c.UserAID, c.UserBID}
}

// Message is a persisted direct message. There is no delivery state.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null" json:"sender_id"`
	ReceiverID     uint      `gorm:"not null" json:"receiver_id"`
	Text           string    `gorm:"type:text;not null" json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
