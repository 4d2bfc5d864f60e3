package model

import (
	"context"
	"errors"
	"time"
)

// ErrConversationNotFound is returned when a conversation id is unknown to the store.
var ErrConversationNotFound = errors.New("conversation not found")

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Conversation groups the messages of one session.
type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one stored utterance.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Sender         Sender         `json:"sender"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type ConversationRepository interface {
	// FindOrCreateConversation returns the conversation for sessionID, creating it
	// on first use. Concurrent calls for one session yield the same conversation.
	FindOrCreateConversation(ctx context.Context, sessionID string) (*Conversation, error)

	// AppendMessage adds a message to the end of the conversation.
	AppendMessage(ctx context.Context, conversationID string, sender Sender, content string, metadata map[string]any) (*Message, error)

	// ListMessages returns the last limit messages in insertion order; limit <= 0 returns all.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
}
