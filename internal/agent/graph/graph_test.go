package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/graph/composer"
	"github.com/etkin-ai/webchat/internal/agent/graph/intent"
	"github.com/etkin-ai/webchat/internal/agent/graph/nodes"
	"github.com/etkin-ai/webchat/internal/agent/graph/tools"
	"github.com/etkin-ai/webchat/internal/agent/knowledge"
	"github.com/etkin-ai/webchat/internal/agent/model"
)

func newTestRunner(t *testing.T) Runner {
	t.Helper()
	r, err := Build(context.Background(), &GraphConfig{
		Classifier: intent.Default(),
		Retriever:  knowledge.NewRetriever(knowledge.NewStore(knowledge.Defaults()), knowledge.DefaultTopK),
		Tools:      tools.NewRegistry(),
		Composer:   composer.New(),
	})
	require.NoError(t, err)
	return r
}

func TestBuild_RejectsIncompleteConfig(t *testing.T) {
	_, err := Build(context.Background(), nil)
	assert.Error(t, err)

	_, err = Build(context.Background(), &GraphConfig{Classifier: intent.Default()})
	assert.Error(t, err)
}

func TestInvoke_Routes(t *testing.T) {
	r := newTestRunner(t)

	tests := []struct {
		name      string
		message   string
		intent    model.Intent
		trace     []string
		response  string
		toolName  string
		wantKBHit bool
	}{
		{
			name:      "faq uses knowledge",
			message:   "iade politikası nedir?",
			intent:    model.IntentFAQ,
			trace:     []string{nodes.NodeIntentRouter, nodes.NodeRetriever, nodes.NodeResponseBuilder},
			response:  "Bulduğum bilgilere göre: İade politikası: 14 gün içinde iade hakkınız bulunmaktadır.",
			wantKBHit: true,
		},
		{
			name:     "order number uses order tool",
			message:  "12345 sipariş durumum ne?",
			intent:   model.IntentTool,
			trace:    []string{nodes.NodeIntentRouter, nodes.NodeToolCaller, nodes.NodeResponseBuilder},
			response: "12345 numaralı sipariş durumu: Siparişiniz kargoya verildi.",
			toolName: tools.ToolCheckOrderStatus,
		},
		{
			name:     "shipping price",
			message:  "Ankara ücreti ne kadar?",
			intent:   model.IntentTool,
			trace:    []string{nodes.NodeIntentRouter, nodes.NodeToolCaller, nodes.NodeResponseBuilder},
			response: "Ankara için tahmini kargo ücreti: 30 TL",
			toolName: tools.ToolCalculateShipping,
		},
		{
			name:     "general acknowledgment",
			message:  "Merhaba",
			intent:   model.IntentGeneral,
			trace:    []string{nodes.NodeIntentRouter, nodes.NodeResponseBuilder},
			response: "'Merhaba' mesajınızı aldım. Size nasıl yardımcı olabilirim?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Invoke(context.Background(), model.NewDialogueState("s1", tt.message))
			require.NoError(t, err)
			assert.Equal(t, tt.intent, out.Intent)
			assert.Equal(t, tt.trace, out.Trace)
			assert.Equal(t, tt.response, out.Answer)
			assert.Equal(t, tt.toolName, out.Context.ToolName)
			assert.Equal(t, tt.wantKBHit, len(out.Context.KB) > 0)
		})
	}
}

func TestInvoke_DigitRunEchoed(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Invoke(context.Background(), model.NewDialogueState("s1", "numaram 99999 nerede"))
	require.NoError(t, err)
	assert.Equal(t, model.IntentTool, out.Intent)
	assert.Contains(t, out.Answer, "99999")
	assert.Contains(t, out.Answer, "bulunamadı")

	out, err = r.Invoke(context.Background(), model.NewDialogueState("s1", "６７８９０ durumu nedir"))
	require.NoError(t, err)
	assert.Equal(t, model.IntentTool, out.Intent)
	assert.Equal(t, "67890 numaralı sipariş durumu: Siparişiniz hazırlanıyor.", out.Answer)
}

func TestInvoke_ReusedStateFails(t *testing.T) {
	r := newTestRunner(t)
	state := model.NewDialogueState("s1", "Merhaba")
	_, err := r.Invoke(context.Background(), state)
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), state)
	assert.Error(t, err)
}
