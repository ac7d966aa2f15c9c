package models

import "time"

// LineItem представляет позицию корзины, передаваемую в платежный шлюз.
// Суммы хранятся в минимальных единицах валюты (центы).
type LineItem struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int64  `json:"quantity"`
}

// Amount возвращает стоимость позиции с учетом количества
func (li LineItem) Amount() int64 {
	return li.UnitAmount * li.Quantity
}

// LineItemsTotal считает общую сумму позиций в минимальных единицах
func LineItemsTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount()
	}
	return total
}

// PendingSession - платеж, ожидающий подтверждения от шлюза.
// Живет только в памяти координатора платежей.
type PendingSession struct {
	CreatedAt        time.Time
	Reference        string // наш идентификатор сессии (UUID)
	GatewaySessionID string // ID checkout-сессии в шлюзе, пустой до ответа шлюза
	BuyerID          string
	Email            string
	Currency         string
	LineItems        []LineItem
	Total            int64
}

// OrderRecord - запись журнала заказов.
// Одна и та же форма используется для покупок (purchase) и отмен (cancellation).
type OrderRecord struct {
	CreatedAt        time.Time  `json:"created_at"`
	ID               string     `json:"id"`
	BuyerID          string     `json:"buyer_id"`
	SessionReference string     `json:"session_reference"`
	GatewaySessionID string     `json:"gateway_session_id,omitempty"`
	Currency         string     `json:"currency"`
	LineItems        []LineItem `json:"line_items"`
	Total            int64      `json:"total"`
}

// NewOrderRecord создает запись журнала из ожидающей сессии
func NewOrderRecord(id string, p *PendingSession, createdAt time.Time) *OrderRecord {
	items := make([]LineItem, len(p.LineItems))
	copy(items, p.LineItems)

	return &OrderRecord{
		ID:               id,
		BuyerID:          p.BuyerID,
		SessionReference: p.Reference,
		GatewaySessionID: p.GatewaySessionID,
		Currency:         p.Currency,
		LineItems:        items,
		Total:            p.Total,
		CreatedAt:        createdAt,
	}
}
