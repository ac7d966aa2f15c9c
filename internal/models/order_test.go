package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLineItemsTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  int64
	}{
		{name: "empty", items: nil, want: 0},
		{
			name:  "single item",
			items: []LineItem{{Name: "Ubud", UnitAmount: 14900, Quantity: 1}},
			want:  14900,
		},
		{
			name: "quantity multiplies",
			items: []LineItem{
				{Name: "Ubud", UnitAmount: 14900, Quantity: 2},
				{Name: "Nikko", UnitAmount: 5000, Quantity: 1},
			},
			want: 34800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineItemsTotal(tt.items))
		})
	}
}

func TestNewOrderRecord_CopiesLineItems(t *testing.T) {
	p := &PendingSession{
		Reference:        "ref-1",
		GatewaySessionID: "cs_1",
		BuyerID:          "buyer-1",
		Currency:         "usd",
		LineItems:        []LineItem{{Name: "Ubud", UnitAmount: 14900, Quantity: 1}},
		Total:            14900,
	}
	now := time.Now()

	rec := NewOrderRecord("order-1", p, now)
	p.LineItems[0].Name = "changed"

	assert.Equal(t, "order-1", rec.ID)
	assert.Equal(t, "buyer-1", rec.BuyerID)
	assert.Equal(t, "ref-1", rec.SessionReference)
	assert.Equal(t, "cs_1", rec.GatewaySessionID)
	assert.Equal(t, int64(14900), rec.Total)
	assert.Equal(t, "Ubud", rec.LineItems[0].Name)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Minute)))
}
