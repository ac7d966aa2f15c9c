package api

import "time"

// CheckoutItem - позиция корзины в запросе checkout.
// Price задается в основных единицах валюты (149.00), сервер переводит в центы.
type CheckoutItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

// CheckoutRequest представляет запрос на создание платежной сессии
type CheckoutRequest struct {
	Email     string         `json:"email,omitempty"` // по умолчанию email аккаунта
	LineItems []CheckoutItem `json:"line_items"`
}

// CheckoutResponse представляет созданную платежную сессию
type CheckoutResponse struct {
	SessionReference string `json:"session_reference"`
	SessionID        string `json:"session_id"` // ID сессии в платежном шлюзе
	URL              string `json:"url"`        // адрес hosted checkout страницы
}

// OrderItem - позиция заказа, суммы в минимальных единицах
type OrderItem struct {
	ProductID  string `json:"product_id,omitempty"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

// Order - запись журнала заказов
type Order struct {
	CreatedAt        time.Time   `json:"created_at"`
	ID               string      `json:"id"`
	SessionReference string      `json:"session_reference"`
	Currency         string      `json:"currency"`
	Items            []OrderItem `json:"items"`
	Total            int64       `json:"total"`
}

// OrdersResponse - история заказов пользователя
type OrdersResponse struct {
	Purchases     []Order `json:"purchases"`
	Cancellations []Order `json:"cancellations"`
}

// WebhookResponse - подтверждение получения события
type WebhookResponse struct {
	Received bool `json:"received"`
}
