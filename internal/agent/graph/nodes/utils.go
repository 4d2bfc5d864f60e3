package nodes

import (
	"context"
	"fmt"

	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// Graph node names. They also appear in DialogueState.Trace.
const (
	NodeIntentRouter    = "intent_router"
	NodeRetriever       = "retriever"
	NodeToolCaller      = "tool_caller"
	NodeResponseBuilder = "response_builder"
)

// enter validates the state handed to a node and records the visit.
func enter(ctx context.Context, node string, state *model.DialogueState) error {
	if state == nil {
		return fmt.Errorf("%s: nil dialogue state", node)
	}
	if err := state.Visit(node); err != nil {
		return err
	}
	log := logx.Session(state.SessionID)
	log.Debug().Str("node", node).Msg("Entering node")
	return nil
}
