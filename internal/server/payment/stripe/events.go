package stripe

import (
	"encoding/json"
	"fmt"
	"log/slog"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iudanet/themeshop/internal/server/payment"
)

const (
	eventCheckoutCompleted        = "checkout.session.completed"
	eventCheckoutAsyncSucceeded   = "checkout.session.async_payment_succeeded"
	eventCheckoutAsyncFailed      = "checkout.session.async_payment_failed"
	eventPaymentIntentSucceeded   = "payment_intent.succeeded"
	eventPaymentIntentFailed      = "payment_intent.payment_failed"
	eventPaymentIntentCreated     = "payment_intent.created"
	checkoutPaymentStatusPaid     = stripe.CheckoutSessionPaymentStatusPaid
	checkoutPaymentStatusNoCharge = stripe.CheckoutSessionPaymentStatusNoPaymentRequired
)

// ParseEvent проверяет подпись Stripe-Signature и классифицирует событие
func (g *Gateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	event, err := g.constructEvent(payload, signature)
	if err != nil {
		return nil, err
	}

	result := &payment.Event{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: payment.EventIgnored,
	}
	if event.Data == nil {
		return result, nil
	}

	switch string(event.Type) {
	case eventCheckoutCompleted, eventCheckoutAsyncSucceeded, eventCheckoutAsyncFailed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			g.logUndecodable(result, err)
			return result, nil
		}
		result.GatewaySessionID = sess.ID
		result.Reference = sess.ClientReferenceID
		if result.Reference == "" {
			result.Reference = sess.Metadata[MetadataReferenceKey]
		}
		result.Kind = checkoutEventKind(string(event.Type), sess.PaymentStatus)

	case eventPaymentIntentSucceeded, eventPaymentIntentFailed, eventPaymentIntentCreated:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			g.logUndecodable(result, err)
			return result, nil
		}
		result.Reference = intent.Metadata[MetadataReferenceKey]
		result.Kind = intentEventKind(string(event.Type))
	}

	return result, nil
}

// подпись уже проверена, поэтому событие подтверждается как игнорируемое:
// повторная доставка того же тела ничего не изменит
func (g *Gateway) logUndecodable(ev *payment.Event, err error) {
	g.logger.Warn("failed to decode webhook event object",
		slog.String("event_id", ev.ID),
		slog.String("event_type", ev.Type),
		slog.Any("error", err))
}

func (g *Gateway) constructEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.cfg.WebhookSecret == "" {
		// проверка подписи явно отключена в конфигурации
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return stripe.Event{}, fmt.Errorf("%w: %w", payment.ErrSignature, err)
		}
		return event, nil
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %w", payment.ErrSignature, err)
	}
	return event, nil
}

// checkout.session.completed без оплаты (отложенные методы) ждет async_payment_* события
func checkoutEventKind(eventType string, status stripe.CheckoutSessionPaymentStatus) payment.EventKind {
	switch eventType {
	case eventCheckoutCompleted:
		if status == checkoutPaymentStatusPaid || status == checkoutPaymentStatusNoCharge {
			return payment.EventConfirmed
		}
		return payment.EventIgnored
	case eventCheckoutAsyncSucceeded:
		return payment.EventConfirmed
	case eventCheckoutAsyncFailed:
		return payment.EventDenied
	}
	return payment.EventIgnored
}

// payment_intent.created всегда приходит в статусе requires_payment_method и ничего не решает
func intentEventKind(eventType string) payment.EventKind {
	switch eventType {
	case eventPaymentIntentSucceeded:
		return payment.EventConfirmed
	case eventPaymentIntentFailed:
		return payment.EventDenied
	}
	return payment.EventIgnored
}
