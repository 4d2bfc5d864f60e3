package tools

import (
	"github.com/cloudwego/eino/schema"

	"github.com/etkin-ai/webchat/internal/agent/text"
)

const ToolPolicyLookup = "policy_lookup"

// DefaultPolicyTopic is looked up when a policy request names no topic.
const DefaultPolicyTopic = "kargo"

// PolicyNotFound is returned for topics without a stored policy.
const PolicyNotFound = "Bu konu hakkında kayıtlı politikamız bulunamadı."

// policyTexts is keyed by normalized topic.
var policyTexts = map[string]string{
	"iade":  "İade politikası: 14 gün içinde koşulsuz iade hakkı bulunur.",
	"kargo": "Kargo politikası: 2-4 iş günü içinde teslimat yapılır.",
	"odeme": "Ödeme politikası: Kredi kartı, banka kartı veya kapıda ödeme kabul edilir.",
}

// PolicyLookup returns the stored policy snippet for topic.
func PolicyLookup(topic string) string {
	if p, ok := policyTexts[text.Normalize(topic)]; ok {
		return p
	}
	return PolicyNotFound
}

func policyTool() *businessTool {
	return &businessTool{
		info: &schema.ToolInfo{
			Name: ToolPolicyLookup,
			Desc: "Politika ve prosedürleri listeler (iade, kargo, ödeme).",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"topic": {
					Type:     schema.String,
					Desc:     "Politika konusu: iade, kargo veya ödeme",
					Enum:     []string{"iade", "kargo", "ödeme"},
					Required: true,
				},
			}),
		},
		required: []string{"topic"},
		run: func(args map[string]string) string {
			return PolicyLookup(args["topic"])
		},
	}
}
