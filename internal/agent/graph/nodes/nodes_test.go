package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/model"
)

func TestIntentCondition(t *testing.T) {
	cond := NewIntentCondition()
	tests := map[model.Intent]string{
		model.IntentFAQ:     NodeRetriever,
		model.IntentTool:    NodeToolCaller,
		model.IntentGeneral: NodeResponseBuilder,
	}
	for in, want := range tests {
		s := model.NewDialogueState("s1", "x")
		require.NoError(t, s.Classify(in))
		got, err := cond(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := cond(context.Background(), model.NewDialogueState("s1", "x"))
	assert.Error(t, err)
}

func TestEnter_RecordsAndRejectsRevisit(t *testing.T) {
	s := model.NewDialogueState("s1", "x")
	require.NoError(t, enter(context.Background(), NodeIntentRouter, s))
	require.NoError(t, enter(context.Background(), NodeResponseBuilder, s))
	assert.Error(t, enter(context.Background(), NodeIntentRouter, s))
	assert.Equal(t, []string{NodeIntentRouter, NodeResponseBuilder}, s.Trace)

	assert.Error(t, enter(context.Background(), NodeRetriever, nil))
}
