package service

import (
	"context"
	"testing"

	"glimpse/internal/events"
	"glimpse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_SendAndGet(t *testing.T) {
	chats := newChatRepoStub()
	rec := &eventRecorder{}
	svc := NewChatService(chats, usersByID(models.User{ID: 1}, models.User{ID: 2}), rec)
	ctx := context.Background()

	none, err := svc.GetMessages(ctx, 1, 2)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	m1, err := svc.SendMessage(ctx, SendMessageInput{SenderID: 1, ReceiverID: 2, Text: "hi"})
	require.NoError(t, err)
	m2, err := svc.SendMessage(ctx, SendMessageInput{SenderID: 2, ReceiverID: 1, Text: "hey"})
	require.NoError(t, err)
	assert.Equal(t, m1.ConversationID, m2.ConversationID)
	assert.Len(t, chats.convs, 1)

	msgs, err := svc.GetMessages(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, []string{events.MessageSent, events.MessageSent}, rec.types())
}

func TestChatService_SendValidation(t *testing.T) {
	svc := NewChatService(newChatRepoStub(), usersByID(models.User{ID: 1}), nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, SendMessageInput{SenderID: 1, ReceiverID: 2, Text: " "})
	assertValidationError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: 1, ReceiverID: 1, Text: "me"})
	assertValidationError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageInput{SenderID: 1, ReceiverID: 2, Text: "hello"})
	assertAppError(t, err, models.CodeNotFound)
}
