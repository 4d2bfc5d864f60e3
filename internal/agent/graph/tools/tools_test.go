package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/text"
)

func TestCheckOrderStatus(t *testing.T) {
	known := CheckOrderStatus("12345")
	assert.Contains(t, known, "12345")
	assert.Contains(t, known, "kargoya verildi")

	unknown := CheckOrderStatus("99999")
	assert.Contains(t, unknown, "99999")
	assert.Contains(t, unknown, "bulunamadı")
}

func TestShippingPrice(t *testing.T) {
	tests := []struct {
		city string
		want int
	}{
		{"istanbul", 25},
		{"İstanbul", 25},
		{"ANKARA", 30},
		{"izmir", 28},
		{"antalya", 35},
		{"unknown-city", DefaultShippingPrice},
		{"", DefaultShippingPrice},
	}
	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			assert.Equal(t, tt.want, ShippingPrice(tt.city))
		})
	}
	assert.Equal(t, 40, DefaultShippingPrice)
}

func TestCalculateShipping(t *testing.T) {
	assert.Equal(t, "İstanbul için tahmini kargo ücreti: 25 TL", CalculateShipping("istanbul"))
	assert.Equal(t, "Ankara için tahmini kargo ücreti: 30 TL", CalculateShipping("ankara"))
	assert.Contains(t, CalculateShipping("kars"), "40 TL")
}

func TestPolicyLookup(t *testing.T) {
	assert.Contains(t, PolicyLookup("iade"), "14 gün")
	assert.Contains(t, PolicyLookup("İADE"), "14 gün")
	assert.Contains(t, PolicyLookup("ödeme"), "Kredi kartı")
	assert.Contains(t, PolicyLookup("odeme"), "Kredi kartı")
	assert.Equal(t, PolicyNotFound, PolicyLookup("bilinmeyen"))
}

func TestRegistry_ResolveAndInvoke(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	assert.Equal(t, []string{ToolCheckOrderStatus, ToolCalculateShipping, ToolPolicyLookup}, r.Names())

	_, err := r.Resolve("launch_rocket")
	assert.ErrorIs(t, err, ErrToolNotFound)

	out, err := r.Invoke(ctx, ToolCheckOrderStatus, map[string]any{"order_id": "67890"})
	require.NoError(t, err)
	assert.Contains(t, out, "hazırlanıyor")

	out, err = r.Invoke(ctx, ToolCheckOrderStatus, map[string]any{"order_id": 11111})
	require.NoError(t, err)
	assert.Contains(t, out, "11111 numaralı")

	out, err = r.Invoke(ctx, ToolCalculateShipping, map[string]any{"city": "Ankara"})
	require.NoError(t, err)
	assert.Contains(t, out, "30 TL")

	_, err = r.Invoke(ctx, ToolPolicyLookup, map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = r.Invoke(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_InvokableRunRejectsBadJSON(t *testing.T) {
	tl, err := NewRegistry().Resolve(ToolPolicyLookup)
	require.NoError(t, err)
	_, err = tl.InvokableRun(context.Background(), "not json")
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestRegistry_Infos(t *testing.T) {
	infos, err := NewRegistry().Infos(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, ToolCheckOrderStatus, infos[0].Name)
	assert.NotNil(t, infos[0].ParamsOneOf)
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantTool string
		wantArg  string
		argKey   string
	}{
		{"order id in message", "12345 sipariş durumum ne?", ToolCheckOrderStatus, "12345", "order_id"},
		{"digits without keyword", "98765 nerede", ToolCheckOrderStatus, "98765", "order_id"},
		{"full-width digits", "６７８９０ durumu nedir", ToolCheckOrderStatus, "67890", "order_id"},
		{"order keyword without digits", "Siparişim nerede?", ToolCheckOrderStatus, DefaultOrderID, "order_id"},
		{"shipping with city", "Ankara'ya gönderim ücreti ne kadar?", ToolCalculateShipping, "ankara", "city"},
		{"shipping first city wins", "izmir veya antalya için ücret", ToolCalculateShipping, "izmir", "city"},
		{"shipping default city", "gönderim ücreti hesapla", ToolCalculateShipping, DefaultCity, "city"},
		{"policy default topic", "bana yardım et", ToolPolicyLookup, DefaultPolicyTopic, "topic"},
		{"policy by topic", "ödeme hakkında", ToolPolicyLookup, "ödeme", "topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := Select(tt.message, text.Normalize(tt.message))
			assert.Equal(t, tt.wantTool, call.Name)
			assert.Equal(t, tt.wantArg, call.Args[tt.argKey])
		})
	}
}
