package tools

import (
	"strings"

	"github.com/etkin-ai/webchat/internal/agent/text"
)

// Call is a selected tool with its extracted arguments.
type Call struct {
	Name string
	Args map[string]any
}

var (
	orderKeywords    = text.NormalizeAll([]string{"sipariş", "order", "takip"})
	shippingKeywords = text.NormalizeAll([]string{"ücret", "shipping", "hesap"})
	policyTopics     = []struct{ keyword, topic string }{
		{text.Normalize("iade"), "iade"},
		{text.Normalize("kargo"), "kargo"},
		{text.Normalize("ödeme"), "ödeme"},
	}
)

// Select decides which tool answers a tool-intent message and extracts its
// argument. raw is the message as typed, normalized its Normalize form.
//
//  1. order keyword or a 4+ digit run: check_order_status with the first digit run
//  2. shipping keyword: calculate_shipping with the first shortlisted city
//  3. otherwise: policy_lookup by topic keyword
func Select(raw, normalized string) Call {
	orderID, hasDigits := text.FirstDigitRun(raw)
	if !hasDigits {
		// Full-width and other compatibility digits only become ASCII once normalized.
		orderID, hasDigits = text.FirstDigitRun(normalized)
	}
	if hasDigits || text.ContainsAny(normalized, orderKeywords...) {
		if !hasDigits {
			orderID = DefaultOrderID
		}
		return Call{Name: ToolCheckOrderStatus, Args: map[string]any{"order_id": orderID}}
	}

	if text.ContainsAny(normalized, shippingKeywords...) {
		return Call{Name: ToolCalculateShipping, Args: map[string]any{"city": findCity(normalized)}}
	}

	topic := DefaultPolicyTopic
	for _, p := range policyTopics {
		if strings.Contains(normalized, p.keyword) {
			topic = p.topic
			break
		}
	}
	return Call{Name: ToolPolicyLookup, Args: map[string]any{"topic": topic}}
}

// findCity returns the earliest shortlisted city mentioned in normalized.
func findCity(normalized string) string {
	best, bestAt := DefaultCity, -1
	for _, c := range Cities {
		if i := strings.Index(normalized, c); i >= 0 && (bestAt < 0 || i < bestAt) {
			best, bestAt = c, i
		}
	}
	return best
}
