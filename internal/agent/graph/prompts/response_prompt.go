package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/etkin-ai/webchat/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the responder system prompt and triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, toolNames []string) (string, error) {
	name := strings.TrimSpace(config.AssistantName)
	if name == "" {
		name = "WebChat"
	}

	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName": name,
		"Tools":         strings.Join(toolNames, ", "),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// ContextMessages turns the accumulated turn context into auxiliary system messages.
func ContextMessages(c model.TurnContext) []*schema.Message {
	var msgs []*schema.Message
	if len(c.KB) > 0 {
		msgs = append(msgs, schema.SystemMessage("Bilgi bankası sonucu:\n"+strings.Join(c.KB, "\n")))
	}
	if c.HasToolResult() {
		msgs = append(msgs, schema.SystemMessage(fmt.Sprintf("Araç çıktısı (%s): %s", c.ToolName, c.ToolResult)))
	}
	return msgs
}
