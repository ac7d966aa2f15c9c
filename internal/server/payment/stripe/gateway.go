// Package stripe реализует payment.Gateway поверх Stripe Checkout.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/iudanet/themeshop/internal/server/payment"
)

// MetadataReferenceKey - ключ metadata payment intent с нашим reference
const MetadataReferenceKey = "session_ref"

// Config - параметры подключения к Stripe
type Config struct {
	APIKey        string
	WebhookSecret string
	// APIURL переопределяет адрес Stripe API (stripe-mock, тесты)
	APIURL string
	// InsecureSkipVerification разрешает принимать webhook без проверки подписи.
	// Только для локальной разработки.
	InsecureSkipVerification bool
	HTTPTimeout              time.Duration
	MaxNetworkRetries        int64
}

// Gateway - адаптер Stripe
type Gateway struct {
	api    *client.API
	logger *slog.Logger
	cfg    Config
}

var _ payment.Gateway = (*Gateway)(nil)

// New создает адаптер
func New(cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stripe api key is required")
	}
	if cfg.WebhookSecret == "" && !cfg.InsecureSkipVerification {
		return nil, errors.New("stripe webhook secret is required unless signature verification is explicitly disabled")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		LeveledLogger:     &leveledLogger{logger: logger},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	api := client.New(cfg.APIKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &Gateway{
		api:    api,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// CreateCheckoutSession создает Stripe Checkout Session в режиме payment
func (g *Gateway) CreateCheckoutSession(ctx context.Context, p *payment.CheckoutParams) (*payment.GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(p.Reference),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetadataReferenceKey: p.Reference},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataReferenceKey, p.Reference)

	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}

	for _, item := range p.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if item.Image != "" {
			product.Images = stripe.StringSlice([]string{item.Image})
		}
		if item.ProductID != "" {
			product.Metadata = map[string]string{"product_id": item.ProductID}
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("stripe %s (%d): %s", stripeErr.Type, stripeErr.HTTPStatusCode, stripeErr.Msg)
		}
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}

	return &payment.GatewaySession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

// leveledLogger направляет логи stripe-go в slog
type leveledLogger struct {
	logger *slog.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}
