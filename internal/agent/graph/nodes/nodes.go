package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"

	"github.com/etkin-ai/webchat/internal/agent/graph/composer"
	"github.com/etkin-ai/webchat/internal/agent/graph/intent"
	"github.com/etkin-ai/webchat/internal/agent/graph/tools"
	"github.com/etkin-ai/webchat/internal/agent/knowledge"
	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/text"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// NewIntentRouterNode normalizes the message once and classifies it.
func NewIntentRouterNode(classifier *intent.Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error) {
		if err := enter(ctx, NodeIntentRouter, state); err != nil {
			return nil, err
		}
		state.Normalized = text.Normalize(state.UserMessage)
		if err := state.Classify(classifier.Classify(state.Normalized)); err != nil {
			return nil, fmt.Errorf("%s: %w", NodeIntentRouter, err)
		}
		log := logx.Session(state.SessionID)
		log.Debug().Str("intent", state.Intent.String()).Msg("Intent classified")
		return state, nil
	})
}

// NewIntentCondition routes on the classified intent.
func NewIntentCondition() func(context.Context, *model.DialogueState) (string, error) {
	return func(ctx context.Context, state *model.DialogueState) (string, error) {
		switch state.Intent {
		case model.IntentFAQ:
			return NodeRetriever, nil
		case model.IntentTool:
			return NodeToolCaller, nil
		case model.IntentGeneral:
			return NodeResponseBuilder, nil
		default:
			return "", fmt.Errorf("route: intent not classified for session %q", state.SessionID)
		}
	}
}

// NewRetrieverNode fills Context.KB with the top ranked snippets.
func NewRetrieverNode(r retriever.Retriever) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error) {
		if err := enter(ctx, NodeRetriever, state); err != nil {
			return nil, err
		}

		ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
			Name:      NodeRetriever,
			Type:      "Keyword",
			Component: components.ComponentOfRetriever,
		})
		ctx = callbacks.OnStart(ctx, &retriever.CallbackInput{Query: state.UserMessage})
		docs, err := r.Retrieve(ctx, state.UserMessage)
		if err != nil {
			callbacks.OnError(ctx, err)
			return nil, fmt.Errorf("%s: %w", NodeRetriever, err)
		}
		callbacks.OnEnd(ctx, &retriever.CallbackOutput{Docs: docs})

		state.Context.KB = knowledge.Texts(docs)
		log := logx.Session(state.SessionID)
		log.Debug().Int("kb_hits", len(state.Context.KB)).Msg("Knowledge retrieved")
		return state, nil
	})
}

// NewToolCallerNode selects a business tool, invokes it and stores its output.
func NewToolCallerNode(registry *tools.Registry) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error) {
		if err := enter(ctx, NodeToolCaller, state); err != nil {
			return nil, err
		}

		call := tools.Select(state.UserMessage, state.Normalized)
		out, err := registry.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NodeToolCaller, err)
		}
		state.Context.ToolName = call.Name
		state.Context.ToolResult = out
		return state, nil
	})
}

// NewResponseBuilderNode composes the final answer.
func NewResponseBuilderNode(c *composer.Composer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error) {
		if err := enter(ctx, NodeResponseBuilder, state); err != nil {
			return nil, err
		}
		if err := state.SetAnswer(c.Compose(ctx, state)); err != nil {
			return nil, fmt.Errorf("%s: %w", NodeResponseBuilder, err)
		}
		return state, nil
	})
}
