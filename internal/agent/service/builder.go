package service

import (
	"context"
	"fmt"

	"github.com/etkin-ai/webchat/internal/agent/graph"
	"github.com/etkin-ai/webchat/internal/agent/graph/composer"
	"github.com/etkin-ai/webchat/internal/agent/graph/conversations"
	"github.com/etkin-ai/webchat/internal/agent/graph/intent"
	"github.com/etkin-ai/webchat/internal/agent/graph/responder"
	"github.com/etkin-ai/webchat/internal/agent/graph/tools"
	"github.com/etkin-ai/webchat/internal/agent/knowledge"
	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/core"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// Config holds everything needed to assemble an Assistant end to end.
type Config struct {
	Environment      core.Environment
	Knowledge        model.KnowledgeConfig
	Intent           model.IntentConfig
	Responder        model.ResponderConfig
	ResponsePrompt   model.ResponsePromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	// KnowledgeStore overrides Knowledge.Path when set.
	KnowledgeStore *knowledge.Store
	// ChatResponder overrides the Gemini responder built from Responder.
	ChatResponder responder.Responder
}

// Build loads the knowledge base, wires the graph components and returns
// a ready Assistant. A missing API key leaves the composer rule-based.
func Build(ctx context.Context, cfg Config) (*Assistant, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	store := cfg.KnowledgeStore
	if store == nil {
		store = knowledge.Load(cfg.Knowledge.Path)
	}

	classifier, err := newClassifier(cfg.Intent)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()

	chatResponder := cfg.ChatResponder
	if chatResponder == nil && cfg.Responder.Enabled() {
		r, err := responder.NewGemini(ctx, cfg.Responder)
		if err != nil {
			return nil, err
		}
		chatResponder = r
	}

	opts := []composer.Option{composer.WithPrompt(cfg.ResponsePrompt, registry.Names())}
	if chatResponder != nil {
		opts = append(opts, composer.WithResponder(chatResponder, cfg.Responder.Timeout))
	}

	runner, err := graph.Build(ctx, &graph.GraphConfig{
		Classifier: classifier,
		Retriever:  knowledge.NewRetriever(store, cfg.Knowledge.TopK),
		Tools:      registry,
		Composer:   composer.New(opts...),
	})
	if err != nil {
		return nil, err
	}

	logx.Info().
		Str("knowledge_source", store.Source()).
		Int("knowledge_entries", store.Len()).
		Bool("llm_responder", chatResponder != nil).
		Msg("Assistant ready")

	return NewAssistant(runner, conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation), Options{
		Environment:   cfg.Environment,
		ReplayHistory: chatResponder != nil,
	}), nil
}

func newClassifier(cfg model.IntentConfig) (*intent.Classifier, error) {
	if len(cfg.FAQKeywords) == 0 && len(cfg.ToolKeywords) == 0 {
		return intent.Default(), nil
	}
	return intent.New(cfg.FAQKeywords, cfg.ToolKeywords)
}
