// Package payment связывает checkout-сессии платежного шлюза с журналом заказов.
//
// Coordinator регистрирует ожидающую сессию до обращения к шлюзу, а затем
// сверяет с ней асинхронные события webhook: подтвержденный платеж становится
// покупкой, отклоненный - отменой. Каждая ожидающая сессия снимается ровно один раз.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
	"github.com/iudanet/themeshop/internal/validation"
)

const (
	defaultCurrency       = "usd"
	defaultGatewayTimeout = 10 * time.Second
	defaultPendingTTL     = 24 * time.Hour
	defaultSweepInterval  = 5 * time.Minute
)

// Config - параметры координатора
type Config struct {
	Currency       string
	SuccessURL     string
	CancelURL      string
	GatewayTimeout time.Duration
	PendingTTL     time.Duration
	SweepInterval  time.Duration
}

// Recorder принимает метрики координатора
type Recorder interface {
	ObserveCheckout(result string)
	ObserveWebhook(kind, outcome string)
	SetPendingSessions(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCheckout(string)        {}
func (nopRecorder) ObserveWebhook(string, string) {}
func (nopRecorder) SetPendingSessions(int)        {}

// CheckoutRequest - запрос на создание платежной сессии
type CheckoutRequest struct {
	BuyerID   string
	Email     string
	LineItems []models.LineItem
}

// Session - созданная платежная сессия
type Session struct {
	Reference        string
	GatewaySessionID string
	URL              string
}

// History - история заказов покупателя
type History struct {
	Purchases     []*models.OrderRecord
	Cancellations []*models.OrderRecord
}

// Coordinator управляет жизненным циклом платежных сессий
type Coordinator struct {
	gateway  Gateway
	orders   storage.OrderStorage
	recorder Recorder
	logger   *slog.Logger
	pending  *pendingTable
	now      func() time.Time
	cfg      Config
}

// NewCoordinator создает координатор
func NewCoordinator(cfg Config, gateway Gateway, orders storage.OrderStorage, logger *slog.Logger) *Coordinator {
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = defaultPendingTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	return &Coordinator{
		cfg:      cfg,
		gateway:  gateway,
		orders:   orders,
		logger:   logger,
		recorder: nopRecorder{},
		pending:  newPendingTable(),
		now:      time.Now,
	}
}

// SetRecorder подключает сбор метрик
func (c *Coordinator) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetClock подменяет источник времени (для тестов)
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// CreateSession регистрирует ожидающую сессию и создает checkout-сессию в шлюзе
func (c *Coordinator) CreateSession(ctx context.Context, req *CheckoutRequest) (*Session, error) {
	if req.BuyerID == "" {
		c.recorder.ObserveCheckout("invalid")
		return nil, fmt.Errorf("%w: buyer is required", ErrValidation)
	}
	if err := validation.ValidateLineItems(req.LineItems); err != nil {
		c.recorder.ObserveCheckout("invalid")
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	items := append([]models.LineItem(nil), req.LineItems...)
	pending := &models.PendingSession{
		Reference: uuid.New().String(),
		BuyerID:   req.BuyerID,
		Email:     req.Email,
		Currency:  c.cfg.Currency,
		LineItems: items,
		Total:     models.LineItemsTotal(items),
		CreatedAt: c.now(),
	}

	// запись появляется до ответа шлюза, т.к. webhook может прийти раньше
	c.pending.stage(pending)
	c.recorder.SetPendingSessions(c.pending.len())

	gwCtx, cancel := context.WithTimeout(ctx, c.cfg.GatewayTimeout)
	defer cancel()

	gs, err := c.gateway.CreateCheckoutSession(gwCtx, &CheckoutParams{
		Reference:  pending.Reference,
		Email:      req.Email,
		Currency:   c.cfg.Currency,
		SuccessURL: c.cfg.SuccessURL,
		CancelURL:  c.cfg.CancelURL,
		LineItems:  items,
	})
	if err != nil {
		c.pending.drop(pending.Reference)
		c.recorder.SetPendingSessions(c.pending.len())
		c.recorder.ObserveCheckout("gateway_error")
		c.logger.WarnContext(ctx, "gateway failed to create checkout session",
			slog.String("reference", pending.Reference),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if !c.pending.attach(pending.Reference, gs.ID) {
		// webhook уже успел снять запись
		c.logger.InfoContext(ctx, "pending session settled before gateway response",
			slog.String("reference", pending.Reference))
	}

	c.recorder.ObserveCheckout("created")
	c.logger.InfoContext(ctx, "checkout session created",
		slog.String("reference", pending.Reference),
		slog.String("gateway_session_id", gs.ID),
		slog.String("buyer_id", req.BuyerID),
		slog.Int64("total", pending.Total))

	return &Session{
		Reference:        pending.Reference,
		GatewaySessionID: gs.ID,
		URL:              gs.URL,
	}, nil
}

// HandleEvent проверяет и применяет событие webhook.
// nil означает, что событие можно подтвердить шлюзу (в том числе повторное и неизвестное).
// Ошибка хранилища возвращается как есть, чтобы шлюз повторил доставку.
func (c *Coordinator) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := c.gateway.ParseEvent(payload, signature)
	if err != nil {
		c.recorder.ObserveWebhook("unknown", "rejected")
		if errors.Is(err, ErrSignature) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSignature, err)
	}

	evLogger := c.logger.With(
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.String("kind", event.Kind.String()))

	if event.Kind == EventIgnored {
		c.recorder.ObserveWebhook(event.Kind.String(), "ignored")
		evLogger.DebugContext(ctx, "webhook event ignored")
		return nil
	}

	pending, ok := c.pending.claim(event.Reference, event.GatewaySessionID)
	if !ok {
		c.recorder.ObserveWebhook(event.Kind.String(), "no_session")
		evLogger.InfoContext(ctx, "no pending session for event",
			slog.String("reference", event.Reference),
			slog.String("gateway_session_id", event.GatewaySessionID))
		return nil
	}

	if pending.GatewaySessionID == "" {
		pending.GatewaySessionID = event.GatewaySessionID
	}

	record := models.NewOrderRecord(uuid.New().String(), pending, c.now())
	if event.Kind == EventConfirmed {
		err = c.orders.CreatePurchase(ctx, record)
	} else {
		err = c.orders.CreateCancellation(ctx, record)
	}

	if err != nil {
		if errors.Is(err, storage.ErrOrderExists) {
			c.recorder.SetPendingSessions(c.pending.len())
			c.recorder.ObserveWebhook(event.Kind.String(), "duplicate")
			evLogger.InfoContext(ctx, "order already recorded", slog.String("reference", pending.Reference))
			return nil
		}

		// возвращаем запись, чтобы повторная доставка события смогла ее снять
		c.pending.stage(pending)
		c.recorder.ObserveWebhook(event.Kind.String(), "error")
		evLogger.ErrorContext(ctx, "failed to record order",
			slog.String("reference", pending.Reference),
			slog.Any("error", err))
		return fmt.Errorf("failed to record order: %w", err)
	}

	c.recorder.SetPendingSessions(c.pending.len())
	c.recorder.ObserveWebhook(event.Kind.String(), "recorded")
	evLogger.InfoContext(ctx, "order recorded",
		slog.String("reference", pending.Reference),
		slog.String("order_id", record.ID),
		slog.String("buyer_id", pending.BuyerID))

	return nil
}

// History возвращает покупки и отмены покупателя
func (c *Coordinator) History(ctx context.Context, buyerID string) (*History, error) {
	purchases, err := c.orders.ListPurchases(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	cancellations, err := c.orders.ListCancellations(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellations: %w", err)
	}

	return &History{
		Purchases:     purchases,
		Cancellations: cancellations,
	}, nil
}

// Lookup возвращает копию ожидающей сессии
func (c *Coordinator) Lookup(reference string) (models.PendingSession, bool) {
	return c.pending.get(reference)
}

// PendingCount - количество ожидающих сессий
func (c *Coordinator) PendingCount() int {
	return c.pending.len()
}

// Sweep удаляет ожидающие сессии старше PendingTTL
func (c *Coordinator) Sweep() int {
	removed := c.pending.sweep(c.now().Add(-c.cfg.PendingTTL))
	c.recorder.SetPendingSessions(c.pending.len())
	return removed
}

// Run периодически чистит устаревшие ожидающие сессии до отмены ctx
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.InfoContext(ctx, "stale pending sessions removed", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
