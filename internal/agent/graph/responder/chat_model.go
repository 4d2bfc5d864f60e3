// Package responder delegates answer generation to a chat model.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// ErrEmptyOutput is returned when the model answers with no text.
var ErrEmptyOutput = errors.New("responder returned empty output")

// Responder generates a reply from a system prompt, auxiliary context
// messages and the replayed conversation history.
type Responder interface {
	Generate(ctx context.Context, systemPrompt string, contextMessages, history []*schema.Message) (string, error)
}

// ChatModelResponder adapts an eino chat model to Responder.
type ChatModelResponder struct {
	chatModel einomodel.BaseChatModel
	modelName string
}

// NewChatModelResponder wraps an existing chat model.
func NewChatModelResponder(cm einomodel.BaseChatModel, modelName string) *ChatModelResponder {
	return &ChatModelResponder{chatModel: cm, modelName: modelName}
}

// NewGemini creates the Gemini-backed responder from configuration.
func NewGemini(ctx context.Context, config model.ResponderConfig) (*ChatModelResponder, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("gemini responder: api key not configured")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model,
		Temperature: &config.Temperature,
		MaxTokens:   &config.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	logx.Debug().Str("model", config.Model).Msg("Gemini responder ready")
	return NewChatModelResponder(chatModel, config.Model), nil
}

// Generate assembles [system, context..., history...] and calls the model.
func (r *ChatModelResponder) Generate(ctx context.Context, systemPrompt string, contextMessages, history []*schema.Message) (string, error) {
	msgs := make([]*schema.Message, 0, 1+len(contextMessages)+len(history))
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	msgs = append(msgs, contextMessages...)
	for _, m := range history {
		if m != nil && strings.TrimSpace(m.Content) != "" {
			msgs = append(msgs, m)
		}
	}

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      "responder",
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})

	out, err := r.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyOutput
	}
	r.logUsage(out)
	return strings.TrimSpace(out.Content), nil
}

func (r *ChatModelResponder) logUsage(out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(r.modelName))
	logx.Debug().
		Str("model", r.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
