// Package composer builds the final answer for a turn.
package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/etkin-ai/webchat/internal/agent/graph/prompts"
	"github.com/etkin-ai/webchat/internal/agent/graph/responder"
	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

const DefaultTimeout = 8 * time.Second

// Composer turns the accumulated dialogue state into a reply. It is immutable
// after construction and safe for concurrent use.
type Composer struct {
	responder responder.Responder
	promptCfg model.ResponsePromptConfig
	toolNames []string
	timeout   time.Duration
}

type Option func(*Composer)

// WithResponder delegates generation to r, keeping the rules as fallback.
func WithResponder(r responder.Responder, timeout time.Duration) Option {
	return func(c *Composer) {
		c.responder = r
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithPrompt(cfg model.ResponsePromptConfig, toolNames []string) Option {
	return func(c *Composer) {
		c.promptCfg = cfg
		c.toolNames = append([]string(nil), toolNames...)
	}
}

func New(opts ...Option) *Composer {
	c := &Composer{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose never returns an empty string.
func (c *Composer) Compose(ctx context.Context, state *model.DialogueState) string {
	if c.responder == nil {
		return Rules(state)
	}

	log := logx.Session(state.SessionID)
	answer, err := c.generate(ctx, state)
	if err != nil {
		log.Warn().Err(err).Str("intent", state.Intent.String()).Msg("Responder failed, using rule-based answer")
		return Rules(state)
	}
	return answer
}

func (c *Composer) generate(ctx context.Context, state *model.DialogueState) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	system, err := prompts.RenderResponseSystem(ctx, c.promptCfg, c.toolNames)
	if err != nil {
		return "", err
	}

	history := state.History
	if len(history) == 0 || history[len(history)-1].Content != state.UserMessage {
		history = append(append(history[:0:0], history...), schema.UserMessage(state.UserMessage))
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.responder.Generate(ctx, system, prompts.ContextMessages(state.Context), history)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("responder: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.text == "" {
			return "", responder.ErrEmptyOutput
		}
		return r.text, nil
	}
}

// Rules applies the fixed answer rules in order:
//  1. faq with knowledge hits
//  2. tool intent with tool output, verbatim
//  3. knowledge hits under any other intent
//  4. generic acknowledgment
func Rules(state *model.DialogueState) string {
	kb := state.Context.KB
	switch {
	case state.Intent == model.IntentFAQ && len(kb) > 0:
		return "Bulduğum bilgilere göre: " + kb[0]
	case state.Intent == model.IntentTool && state.Context.HasToolResult():
		return state.Context.ToolResult
	case len(kb) > 0:
		return "İlgili dokümanlardan öne çıkan bilgi: " + kb[0]
	default:
		return Acknowledge(state.UserMessage)
	}
}

// Acknowledge is the generic reply used when nothing more specific applies.
func Acknowledge(message string) string {
	return fmt.Sprintf("'%s' mesajınızı aldım. Size nasıl yardımcı olabilirim?", message)
}
