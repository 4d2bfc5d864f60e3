package conversations

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/repo"
)

type failingRepo struct {
	panicOnAppend bool
}

func (f *failingRepo) FindOrCreateConversation(context.Context, string) (*model.Conversation, error) {
	if f.panicOnAppend {
		return &model.Conversation{ID: "c1"}, nil
	}
	return nil, errors.New("store unavailable")
}

func (f *failingRepo) AppendMessage(context.Context, string, model.Sender, string, map[string]any) (*model.Message, error) {
	panic("boom")
}

func (f *failingRepo) ListMessages(context.Context, string, int) ([]*model.Message, error) {
	return nil, errors.New("store unavailable")
}

func TestRecordTurnAndHistory(t *testing.T) {
	store := repo.NewMemoryConversationRepository()
	mm := NewMessagesManager(store, model.ConversationConfig{HistoryTurns: 1})
	ctx := context.Background()

	toolName, toolResult := "check_order_status", "12345 numaralı sipariş durumu: Siparişiniz kargoya verildi."
	mm.RecordTurn(ctx, "s1", "merhaba", "selam", model.TurnMetadata{Intent: model.IntentGeneral, KBHits: []string{}})
	mm.RecordTurn(ctx, "s1", "12345", toolResult, model.TurnMetadata{
		Intent: model.IntentTool, KBHits: []string{}, ToolName: &toolName, ToolResult: &toolResult,
	})

	conv, err := store.FindOrCreateConversation(ctx, "s1")
	require.NoError(t, err)
	msgs, err := store.ListMessages(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, map[string]any{"intent": "tool"}, msgs[2].Metadata)
	assert.Equal(t, toolName, msgs[3].Metadata["tool_name"])

	history := mm.History(ctx, "s1")
	require.Len(t, history, 2)
	assert.Equal(t, schema.User, history[0].Role)
	assert.Equal(t, "12345", history[0].Content)
	assert.Equal(t, schema.Assistant, history[1].Role)
}

func TestRecordTurn_CancelledContextStillSaves(t *testing.T) {
	store := repo.NewMemoryConversationRepository()
	mm := NewMessagesManager(store, model.ConversationConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mm.RecordTurn(ctx, "s1", "a", "b", model.TurnMetadata{Intent: model.IntentGeneral})
	assert.Len(t, mm.History(context.Background(), "s1"), 2)
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	mm := NewMessagesManager(&failingRepo{}, model.ConversationConfig{HistoryTurns: 5})
	assert.Empty(t, mm.History(context.Background(), "s1"))
	assert.NotPanics(t, func() {
		mm.RecordTurn(context.Background(), "s1", "a", "b", model.TurnMetadata{Intent: model.IntentGeneral})
	})

	mm = NewMessagesManager(&failingRepo{panicOnAppend: true}, model.ConversationConfig{})
	assert.NotPanics(t, func() {
		mm.RecordTurn(context.Background(), "s1", "a", "b", model.TurnMetadata{Intent: model.IntentGeneral})
	})
}
