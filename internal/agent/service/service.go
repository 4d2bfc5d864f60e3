// Package service runs one dialogue turn end to end: validation, graph
// invocation and best-effort persistence.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/etkin-ai/webchat/internal/agent/graph"
	"github.com/etkin-ai/webchat/internal/agent/graph/composer"
	"github.com/etkin-ai/webchat/internal/agent/graph/conversations"
	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/core"
	errx "github.com/etkin-ai/webchat/internal/core/error"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// Assistant answers chat turns. It is safe for concurrent use; every turn
// gets its own DialogueState.
type Assistant struct {
	runner        graph.Runner
	messages      *conversations.MessagesManager
	environment   core.Environment
	replayHistory bool
}

type Options struct {
	Environment core.Environment
	// ReplayHistory loads previous turns into the state for the LLM responder.
	ReplayHistory bool
}

func NewAssistant(runner graph.Runner, messages *conversations.MessagesManager, opts Options) *Assistant {
	env := opts.Environment
	if env == "" {
		env = core.Development
	}
	return &Assistant{
		runner:        runner,
		messages:      messages,
		environment:   env,
		replayHistory: opts.ReplayHistory,
	}
}

// RunTurn validates input, runs the dialogue graph and records the turn.
// On success the response is never empty.
func (a *Assistant) RunTurn(ctx context.Context, sessionID, message string) (*model.TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errx.ErrEmptySession
	}
	if strings.TrimSpace(message) == "" {
		return nil, errx.ErrEmptyMessage
	}
	log := logx.Session(sessionID)

	state := model.NewDialogueState(sessionID, message)
	if a.replayHistory && a.messages != nil {
		state.History = a.messages.History(ctx, sessionID)
	}

	out, err := a.invoke(ctx, state)
	var result *model.TurnResult
	if err != nil {
		if a.environment.FailLoudly() {
			log.Error().Err(err).Msg("Dialogue graph failed")
			return nil, errx.Internal(err)
		}
		log.Error().Err(err).Msg("Dialogue graph failed, answering with acknowledgment")
		result = &model.TurnResult{
			Response: composer.Acknowledge(message),
			Metadata: model.TurnMetadata{Intent: model.IntentGeneral, KBHits: []string{}},
		}
	} else {
		result = &model.TurnResult{Response: out.Answer, Metadata: out.Metadata()}
	}

	log.Info().
		Str("intent", result.Metadata.Intent.String()).
		Int("kb_hits", len(result.Metadata.KBHits)).
		Msg("Turn answered")

	if a.messages != nil {
		a.messages.RecordTurn(ctx, sessionID, message, result.Response, result.Metadata)
	}
	return result, nil
}

// invoke runs the graph and converts a panic into an error.
func (a *Assistant) invoke(ctx context.Context, state *model.DialogueState) (out *model.DialogueState, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("dialogue graph panic: %v", r)
		}
	}()
	return a.runner.Invoke(ctx, state)
}
