package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

const defaultPersistTimeout = 3 * time.Second

// MessagesManager sits between the dialogue service and the conversation
// store. Persistence is best-effort: failures are logged, never returned.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	historyTurns     int
	persistTimeout   time.Duration
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	timeout := config.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		historyTurns:     config.HistoryTurns,
		persistTimeout:   timeout,
	}
}

// History returns the most recent turns of the session as chat messages.
// A store failure yields an empty history.
func (cm *MessagesManager) History(ctx context.Context, sessionID string) []*schema.Message {
	log := logx.Session(sessionID)

	conv, err := cm.conversationRepo.FindOrCreateConversation(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Error loading conversation, continuing without history")
		return nil
	}
	stored, err := cm.conversationRepo.ListMessages(ctx, conv.ID, cm.historyTurns*2)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Error loading history, continuing without it")
		return nil
	}
	return toChatMessages(stored)
}

// RecordTurn appends the user message and the answer to the session's
// conversation. It runs detached from ctx cancellation, bounded by the
// persist timeout, and recovers from store panics.
func (cm *MessagesManager) RecordTurn(ctx context.Context, sessionID, userMessage, answer string, metadata model.TurnMetadata) {
	log := logx.Session(sessionID)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cm.persistTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic while saving turn")
		}
	}()

	if err := cm.recordTurn(ctx, sessionID, userMessage, answer, metadata); err != nil {
		log.Error().Err(err).Msg("Error saving turn")
		return
	}
	log.Debug().Str("intent", metadata.Intent.String()).Msg("Turn saved")
}

func (cm *MessagesManager) recordTurn(ctx context.Context, sessionID, userMessage, answer string, metadata model.TurnMetadata) error {
	conv, err := cm.conversationRepo.FindOrCreateConversation(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find or create conversation: %w", err)
	}
	if _, err := cm.conversationRepo.AppendMessage(ctx, conv.ID, model.SenderUser, userMessage,
		map[string]any{"intent": metadata.Intent.String()}); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	if _, err := cm.conversationRepo.AppendMessage(ctx, conv.ID, model.SenderAssistant, answer, metadata.AsMap()); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	return nil
}

// ====================== Helper function ======================
func toChatMessages(stored []*model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(stored))
	for _, m := range stored {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Sender {
		case model.SenderUser:
			out = append(out, schema.UserMessage(m.Content))
		case model.SenderAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
