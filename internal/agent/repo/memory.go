// Package repo implements model.ConversationRepository over the supported stores.
package repo

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/etkin-ai/webchat/internal/agent/model"
)

type memoryConversation struct {
	conv     *model.Conversation
	mu       sync.Mutex
	messages []*model.Message
}

// MemoryConversationRepository keeps conversations in process memory.
type MemoryConversationRepository struct {
	bySession sync.Map // session id -> *memoryConversation
	byID      sync.Map // conversation id -> *memoryConversation
	now       func() time.Time
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{now: time.Now}
}

func (r *MemoryConversationRepository) FindOrCreateConversation(ctx context.Context, sessionID string) (*model.Conversation, error) {
	if v, ok := r.bySession.Load(sessionID); ok {
		return cloneConversation(v.(*memoryConversation).conv), nil
	}
	candidate := &memoryConversation{conv: &model.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: r.now().UTC(),
	}}
	// Index by id first so the winner is resolvable as soon as it is visible by session.
	r.byID.Store(candidate.conv.ID, candidate)
	v, loaded := r.bySession.LoadOrStore(sessionID, candidate)
	if loaded {
		r.byID.Delete(candidate.conv.ID)
	}
	return cloneConversation(v.(*memoryConversation).conv), nil
}

func (r *MemoryConversationRepository) AppendMessage(ctx context.Context, conversationID string, sender model.Sender, content string, metadata map[string]any) (*model.Message, error) {
	v, ok := r.byID.Load(conversationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, conversationID)
	}
	mc := v.(*memoryConversation)

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      r.now().UTC(),
	}
	mc.mu.Lock()
	mc.messages = append(mc.messages, msg)
	mc.mu.Unlock()

	out := *msg
	return &out, nil
}

func (r *MemoryConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	v, ok := r.byID.Load(conversationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, conversationID)
	}
	mc := v.(*memoryConversation)

	mc.mu.Lock()
	msgs := tail(mc.messages, limit)
	mc.mu.Unlock()

	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	out := *c
	return &out
}

// tail returns a copy of the last limit items; limit <= 0 keeps all.
func tail[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return slices.Clone(items)
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
