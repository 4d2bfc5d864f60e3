package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Intent is the closed-set classification of a user turn. The zero value
// means the turn has not been classified yet.
type Intent int

const (
	IntentUnset Intent = iota
	IntentFAQ
	IntentTool
	IntentGeneral
)

func (i Intent) String() string {
	switch i {
	case IntentFAQ:
		return "faq"
	case IntentTool:
		return "tool"
	case IntentGeneral:
		return "general"
	default:
		return ""
	}
}

// MarshalText renders unset intents as an empty string.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Intent) UnmarshalText(b []byte) error {
	v, err := ParseIntent(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseIntent maps the text form back to an Intent. Empty input yields IntentUnset.
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return IntentUnset, nil
	case "faq":
		return IntentFAQ, nil
	case "tool":
		return IntentTool, nil
	case "general":
		return IntentGeneral, nil
	}
	return IntentUnset, fmt.Errorf("unknown intent %q", s)
}

// TurnContext holds the side data produced by non-terminal nodes.
//
//	KB         written by retriever, read by response_builder
//	ToolName   written by tool_caller, read by response_builder
//	ToolResult written by tool_caller, read by response_builder
type TurnContext struct {
	KB         []string
	ToolName   string
	ToolResult string
}

// HasToolResult reports whether the tool caller produced output.
func (c TurnContext) HasToolResult() bool {
	return c.ToolResult != ""
}

// DialogueState is threaded through every node of one graph invocation.
// It is owned by a single invocation and never shared across turns.
type DialogueState struct {
	SessionID   string
	UserMessage string
	// Normalized is UserMessage after case folding and diacritic removal,
	// filled in by the intent router.
	Normalized string
	Intent     Intent
	Context    TurnContext
	Answer     string
	// History is the replayed conversation handed to the LLM responder.
	History []*schema.Message
	// Trace lists visited nodes in execution order.
	Trace []string

	answered bool
}

// NewDialogueState creates the initial state for one turn.
func NewDialogueState(sessionID, userMessage string) *DialogueState {
	return &DialogueState{
		SessionID:   sessionID,
		UserMessage: userMessage,
	}
}

// Classify records the intent. It may be called exactly once per turn.
func (s *DialogueState) Classify(intent Intent) error {
	if intent == IntentUnset {
		return fmt.Errorf("classify: intent must not be unset")
	}
	if s.Intent != IntentUnset {
		return fmt.Errorf("classify: intent already set to %s", s.Intent)
	}
	s.Intent = intent
	return nil
}

// SetAnswer records the final response. It may be called exactly once per turn.
func (s *DialogueState) SetAnswer(text string) error {
	if s.answered {
		return fmt.Errorf("set answer: answer already set")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("set answer: answer must not be empty")
	}
	s.Answer = text
	s.answered = true
	return nil
}

// Answered reports whether the response composer has run.
func (s *DialogueState) Answered() bool {
	return s.answered
}

// Visit appends node to the trace and rejects a second visit of the same node.
func (s *DialogueState) Visit(node string) error {
	if slices.Contains(s.Trace, node) {
		return fmt.Errorf("node %q visited twice in one turn (trace: %s)", node, strings.Join(s.Trace, " -> "))
	}
	s.Trace = append(s.Trace, node)
	return nil
}

// TurnInput represents the input for processing user queries.
type TurnInput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TurnMetadata describes how a turn was answered.
type TurnMetadata struct {
	Intent     Intent   `json:"intent"`
	KBHits     []string `json:"kb_hits"`
	ToolName   *string  `json:"tool_name"`
	ToolResult *string  `json:"tool_result"`
}

// TurnResult is returned to the transport for every turn.
type TurnResult struct {
	Response string       `json:"response"`
	Metadata TurnMetadata `json:"metadata"`
}

// Metadata summarises the final state for the caller and the persistence layer.
func (s *DialogueState) Metadata() TurnMetadata {
	md := TurnMetadata{
		Intent: s.Intent,
		KBHits: slices.Clone(s.Context.KB),
	}
	if md.KBHits == nil {
		md.KBHits = []string{}
	}
	if s.Context.ToolName != "" {
		name := s.Context.ToolName
		md.ToolName = &name
	}
	if s.Context.HasToolResult() {
		result := s.Context.ToolResult
		md.ToolResult = &result
	}
	return md
}

// AsMap flattens the metadata for message storage.
func (m TurnMetadata) AsMap() map[string]any {
	out := map[string]any{
		"intent":      m.Intent.String(),
		"kb_hits":     m.KBHits,
		"tool_name":   nil,
		"tool_result": nil,
	}
	if m.ToolName != nil {
		out["tool_name"] = *m.ToolName
	}
	if m.ToolResult != nil {
		out["tool_result"] = *m.ToolResult
	}
	return out
}
