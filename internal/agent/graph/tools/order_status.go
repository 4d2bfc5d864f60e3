package tools

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const ToolCheckOrderStatus = "check_order_status"

// DefaultOrderID is used when an order-status request carries no order number.
const DefaultOrderID = "12345"

const orderNotFound = "Bu numaraya ait sipariş bulunamadı."

var orderStatuses = map[string]string{
	"12345": "Siparişiniz kargoya verildi.",
	"67890": "Siparişiniz hazırlanıyor.",
	"11111": "Siparişiniz teslim edildi.",
}

// CheckOrderStatus returns the mock shipping status of an order. Unknown ids
// produce a not-found phrase that still echoes the id.
func CheckOrderStatus(orderID string) string {
	orderID = strings.TrimSpace(orderID)
	status, ok := orderStatuses[orderID]
	if !ok {
		status = orderNotFound
	}
	return fmt.Sprintf("%s numaralı sipariş durumu: %s", orderID, status)
}

func orderStatusTool() *businessTool {
	return &businessTool{
		info: &schema.ToolInfo{
			Name: ToolCheckOrderStatus,
			Desc: "Sipariş durumunu sorgular. Sipariş numarası ile kargo durumunu döndürür.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_id": {
					Type:     schema.String,
					Desc:     "Sipariş numarası (ör. 12345)",
					Required: true,
				},
			}),
		},
		required: []string{"order_id"},
		run: func(args map[string]string) string {
			return CheckOrderStatus(args["order_id"])
		},
	}
}
