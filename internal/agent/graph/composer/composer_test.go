package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/model"
)

func stateWith(intent model.Intent, msg string, ctx model.TurnContext) *model.DialogueState {
	s := model.NewDialogueState("s1", msg)
	s.Intent = intent
	s.Context = ctx
	return s
}

func TestRules(t *testing.T) {
	tests := []struct {
		name  string
		state *model.DialogueState
		want  string
	}{
		{
			name:  "faq with kb",
			state: stateWith(model.IntentFAQ, "iade", model.TurnContext{KB: []string{"A", "B"}}),
			want:  "Bulduğum bilgilere göre: A",
		},
		{
			name:  "tool result verbatim",
			state: stateWith(model.IntentTool, "sipariş", model.TurnContext{ToolName: "check_order_status", ToolResult: "12345 numaralı sipariş durumu: Kargoda"}),
			want:  "12345 numaralı sipariş durumu: Kargoda",
		},
		{
			name:  "tool result ignored outside tool intent",
			state: stateWith(model.IntentGeneral, "Merhaba", model.TurnContext{ToolName: "policy_lookup", ToolResult: "Kargo politikası"}),
			want:  "'Merhaba' mesajınızı aldım. Size nasıl yardımcı olabilirim?",
		},
		{
			name:  "kb under other intent",
			state: stateWith(model.IntentGeneral, "x", model.TurnContext{KB: []string{"C"}}),
			want:  "İlgili dokümanlardan öne çıkan bilgi: C",
		},
		{
			name:  "faq without kb",
			state: stateWith(model.IntentFAQ, "faq", model.TurnContext{}),
			want:  "'faq' mesajınızı aldım. Size nasıl yardımcı olabilirim?",
		},
		{
			name:  "general",
			state: stateWith(model.IntentGeneral, "Merhaba", model.TurnContext{}),
			want:  "'Merhaba' mesajınızı aldım. Size nasıl yardımcı olabilirim?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rules(tt.state))
			assert.Equal(t, tt.want, New().Compose(context.Background(), tt.state))
		})
	}
}

type stubResponder struct {
	text    string
	err     error
	delay   time.Duration
	history []*schema.Message
	context []*schema.Message
}

func (s *stubResponder) Generate(ctx context.Context, _ string, contextMessages, history []*schema.Message) (string, error) {
	s.history = history
	s.context = contextMessages
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestCompose_UsesResponder(t *testing.T) {
	r := &stubResponder{text: "LLM cevabı"}
	c := New(WithResponder(r, time.Second), WithPrompt(model.ResponsePromptConfig{AssistantName: "Test"}, []string{"policy_lookup"}))

	s := stateWith(model.IntentFAQ, "iade nasıl", model.TurnContext{KB: []string{"A"}})
	s.History = []*schema.Message{schema.UserMessage("önce"), schema.AssistantMessage("sonra", nil)}

	assert.Equal(t, "LLM cevabı", c.Compose(context.Background(), s))
	require.Len(t, r.history, 3)
	assert.Equal(t, "iade nasıl", r.history[2].Content)
	require.Len(t, r.context, 1)
	assert.Len(t, s.History, 2)
}

func TestCompose_FallsBack(t *testing.T) {
	s := stateWith(model.IntentFAQ, "iade", model.TurnContext{KB: []string{"A"}})
	want := "Bulduğum bilgilere göre: A"

	c := New(WithResponder(&stubResponder{err: errors.New("unavailable")}, time.Second))
	assert.Equal(t, want, c.Compose(context.Background(), s))

	c = New(WithResponder(&stubResponder{text: ""}, time.Second))
	assert.Equal(t, want, c.Compose(context.Background(), s))

	c = New(WithResponder(&stubResponder{text: "late", delay: time.Second}, 20*time.Millisecond))
	assert.Equal(t, want, c.Compose(context.Background(), s))
}
