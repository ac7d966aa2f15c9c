package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/payment"
	"github.com/iudanet/themeshop/internal/server/storage"
	"github.com/iudanet/themeshop/pkg/api"
)

const (
	maxCheckoutBodyBytes = 256 << 10
	maxWebhookBodyBytes  = 1 << 20 // лимит Stripe на размер события
)

// PaymentService - координатор платежных сессий
type PaymentService interface {
	CreateSession(ctx context.Context, req *payment.CheckoutRequest) (*payment.Session, error)
	HandleEvent(ctx context.Context, payload []byte, signature string) error
	History(ctx context.Context, buyerID string) (*payment.History, error)
}

// CheckoutHandler обрабатывает checkout, webhook и историю заказов
type CheckoutHandler struct {
	logger      *slog.Logger
	payments    PaymentService
	userStorage storage.UserStorage
}

// NewCheckoutHandler создает handler платежей
func NewCheckoutHandler(logger *slog.Logger, payments PaymentService, userStorage storage.UserStorage) *CheckoutHandler {
	return &CheckoutHandler{
		logger:      logger,
		payments:    payments,
		userStorage: userStorage,
	}
}

// CreateSession обрабатывает POST /api/v1/checkout/session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}

	var req api.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckoutBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode checkout request", slog.Any("error", err))
		SendError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body")
		return
	}

	email := req.Email
	if email == "" {
		// по умолчанию email аккаунта
		user, err := h.userStorage.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "user not found")
				return
			}
			h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
			SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
			return
		}
		email = user.Email
	}

	sess, err := h.payments.CreateSession(ctx, &payment.CheckoutRequest{
		BuyerID:   userID,
		Email:     email,
		LineItems: toLineItems(req.LineItems),
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrValidation):
			SendError(w, http.StatusBadRequest, api.CodeValidation, err.Error())
		case errors.Is(err, payment.ErrGateway):
			// сообщение адаптера шлюза не содержит ключей и тела запроса
			h.logger.WarnContext(ctx, "payment gateway rejected checkout", slog.Any("error", err))
			SendError(w, http.StatusBadGateway, api.CodeGateway, err.Error())
		default:
			h.logger.ErrorContext(ctx, "failed to create checkout session", slog.Any("error", err))
			SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		}
		return
	}

	sendJSON(h.logger, w, api.CheckoutResponse{
		SessionReference: sess.Reference,
		SessionID:        sess.GatewaySessionID,
		URL:              sess.URL,
	}, http.StatusOK)
}

// Webhook обрабатывает POST /api/v1/webhook
// Тело читается целиком без разбора: подпись считается по сырым байтам.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body", slog.Any("error", err))
		SendError(w, http.StatusBadRequest, api.CodeSignature, "unreadable webhook body")
		return
	}

	// обработка не зависит от обрыва соединения шлюзом
	ctx := context.WithoutCancel(r.Context())

	if err := h.payments.HandleEvent(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, payment.ErrSignature) {
			h.logger.WarnContext(ctx, "webhook rejected", slog.Any("error", err))
			SendError(w, http.StatusBadRequest, api.CodeSignature, "webhook signature verification failed")
			return
		}
		h.logger.ErrorContext(ctx, "failed to handle webhook event", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	sendJSON(h.logger, w, api.WebhookResponse{Received: true}, http.StatusOK)
}

// Orders обрабатывает GET /api/v1/orders - покупки и отмены
func (h *CheckoutHandler) Orders(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, true, true)
}

// Purchases обрабатывает GET /api/v1/orders/purchases
func (h *CheckoutHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, true, false)
}

// Cancellations обрабатывает GET /api/v1/orders/canceled
func (h *CheckoutHandler) Cancellations(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, false, true)
}

func (h *CheckoutHandler) writeHistory(w http.ResponseWriter, r *http.Request, purchases, cancellations bool) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		SendError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}

	history, err := h.payments.History(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load order history", slog.Any("error", err))
		SendError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	resp := api.OrdersResponse{
		Purchases:     []api.Order{},
		Cancellations: []api.Order{},
	}
	if purchases {
		resp.Purchases = toOrders(history.Purchases)
	}
	if cancellations {
		resp.Cancellations = toOrders(history.Cancellations)
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// toLineItems переводит цены из основных единиц в минимальные (149.00 -> 14900)
func toLineItems(items []api.CheckoutItem) []models.LineItem {
	result := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		result = append(result, models.LineItem{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			Image:       item.Image,
			UnitAmount:  int64(math.Round(item.Price * 100)),
			Quantity:    item.Quantity,
		})
	}
	return result
}

func toOrders(records []*models.OrderRecord) []api.Order {
	result := make([]api.Order, 0, len(records))
	for _, rec := range records {
		items := make([]api.OrderItem, 0, len(rec.LineItems))
		for _, li := range rec.LineItems {
			items = append(items, api.OrderItem{
				ProductID:  li.ProductID,
				Name:       li.Name,
				UnitAmount: li.UnitAmount,
				Quantity:   li.Quantity,
			})
		}
		result = append(result, api.Order{
			ID:               rec.ID,
			SessionReference: rec.SessionReference,
			Currency:         rec.Currency,
			Items:            items,
			Total:            rec.Total,
			CreatedAt:        rec.CreatedAt,
		})
	}
	return result
}
