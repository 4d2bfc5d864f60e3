package tools

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/etkin-ai/webchat/internal/agent/text"
)

const ToolCalculateShipping = "calculate_shipping"

// DefaultShippingPrice applies to cities missing from the price table.
const DefaultShippingPrice = 40

// DefaultCity is used when a shipping request names no known city.
const DefaultCity = "istanbul"

// Cities is the shortlist recognised in user messages, in match priority.
var Cities = []string{"istanbul", "ankara", "izmir", "antalya"}

var shippingPrices = map[string]int{
	"istanbul": 25,
	"ankara":   30,
	"izmir":    28,
	"antalya":  35,
}

// ShippingPrice returns the price in TL for city, case-insensitively.
func ShippingPrice(city string) int {
	if p, ok := shippingPrices[text.Normalize(strings.TrimSpace(city))]; ok {
		return p
	}
	return DefaultShippingPrice
}

// CalculateShipping returns the human readable shipping quote for city.
func CalculateShipping(city string) string {
	city = strings.TrimSpace(city)
	name := cases.Title(language.Turkish).String(city)
	return fmt.Sprintf("%s için tahmini kargo ücreti: %d TL", name, ShippingPrice(city))
}

func shippingTool() *businessTool {
	return &businessTool{
		info: &schema.ToolInfo{
			Name: ToolCalculateShipping,
			Desc: "Şehre göre kargo ücretini hesaplar.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"city": {
					Type:     schema.String,
					Desc:     "Teslimat şehri (ör. istanbul, ankara)",
					Required: true,
				},
			}),
		},
		required: []string{"city"},
		run: func(args map[string]string) string {
			return CalculateShipping(args["city"])
		},
	}
}
