package payment

import (
	"context"

	"github.com/iudanet/themeshop/internal/models"
)

//go:generate moq -out gateway_mock_test.go . Gateway

// EventKind - классификация события шлюза
type EventKind int

const (
	// EventIgnored - событие не влияет на состояние заказа, просто подтверждаем получение
	EventIgnored EventKind = iota
	// EventConfirmed - платеж прошел
	EventConfirmed
	// EventDenied - платеж отклонен
	EventDenied
)

func (k EventKind) String() string {
	switch k {
	case EventConfirmed:
		return "confirmed"
	case EventDenied:
		return "denied"
	default:
		return "ignored"
	}
}

// CheckoutParams - параметры создания checkout-сессии в шлюзе
type CheckoutParams struct {
	Reference  string // передается как client_reference_id и в metadata
	Email      string
	Currency   string
	SuccessURL string
	CancelURL  string
	LineItems  []models.LineItem
}

// GatewaySession - созданная в шлюзе сессия
type GatewaySession struct {
	ID  string
	URL string
}

// Event - проверенное событие webhook, приведенное к нашему виду
type Event struct {
	ID               string
	Type             string // исходный тип события шлюза
	Reference        string // наша ссылка на сессию, если шлюз ее вернул
	GatewaySessionID string
	Kind             EventKind
}

// Gateway - внешний платежный шлюз
type Gateway interface {
	// CreateCheckoutSession создает hosted checkout сессию
	CreateCheckoutSession(ctx context.Context, params *CheckoutParams) (*GatewaySession, error)

	// ParseEvent проверяет подпись webhook и разбирает событие.
	// Ошибка проверки подписи оборачивает ErrSignature.
	ParseEvent(payload []byte, signature string) (*Event, error)
}
