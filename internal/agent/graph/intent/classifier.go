// Package intent maps a normalized user message to one of the closed-set intents.
package intent

import (
	"fmt"
	"slices"

	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/text"
)

var (
	// DefaultFAQKeywords mark informational questions answered from the knowledge base.
	DefaultFAQKeywords = []string{"iade", "kargo", "ödeme", "policy", "faq"}
	// DefaultToolKeywords mark requests that need a business tool.
	DefaultToolKeywords = []string{"sipariş", "order", "takip", "shipping", "ücret", "hesapla"}
)

// Classifier holds the normalized keyword sets. It is immutable and safe for
// concurrent use.
type Classifier struct {
	faq  []string
	tool []string
}

// New normalizes both keyword sets and rejects keywords present in both,
// since the FAQ-first rule would silently shadow them.
func New(faqKeywords, toolKeywords []string) (*Classifier, error) {
	c := &Classifier{
		faq:  dedupe(text.NormalizeAll(faqKeywords)),
		tool: dedupe(text.NormalizeAll(toolKeywords)),
	}
	if len(c.faq) == 0 && len(c.tool) == 0 {
		return nil, fmt.Errorf("intent classifier: no keywords configured")
	}
	for _, k := range c.tool {
		if slices.Contains(c.faq, k) {
			return nil, fmt.Errorf("intent classifier: keyword %q is in both faq and tool sets", k)
		}
	}
	return c, nil
}

// Default returns a classifier over the built-in keyword sets.
func Default() *Classifier {
	c, err := New(DefaultFAQKeywords, DefaultToolKeywords)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify applies the fixed priority order: FAQ keyword, then tool keyword
// or a 4+ digit order reference, then general. FAQ wins when both match.
func (c *Classifier) Classify(normalized string) model.Intent {
	switch {
	case text.ContainsAny(normalized, c.faq...):
		return model.IntentFAQ
	case text.ContainsAny(normalized, c.tool...), hasOrderReference(normalized):
		return model.IntentTool
	default:
		return model.IntentGeneral
	}
}

// ClassifyRaw normalizes message before classifying it.
func (c *Classifier) ClassifyRaw(message string) model.Intent {
	return c.Classify(text.Normalize(message))
}

func hasOrderReference(s string) bool {
	_, ok := text.FirstDigitRun(s)
	return ok
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
