package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
)

// Таблицы журнала заказов. Покупки и отмены имеют одинаковую схему.
const (
	tablePurchases     = "purchases"
	tableCancellations = "cancellations"
)

// CreatePurchase appends a purchase record
func (s *Storage) CreatePurchase(ctx context.Context, order *models.OrderRecord) error {
	return s.insertOrder(ctx, tablePurchases, order)
}

// CreateCancellation appends a cancellation record
func (s *Storage) CreateCancellation(ctx context.Context, order *models.OrderRecord) error {
	return s.insertOrder(ctx, tableCancellations, order)
}

// ListPurchases returns buyer purchases, newest first
func (s *Storage) ListPurchases(ctx context.Context, buyerID string) ([]*models.OrderRecord, error) {
	return s.listOrders(ctx, tablePurchases, buyerID)
}

// ListCancellations returns buyer cancellations, newest first
func (s *Storage) ListCancellations(ctx context.Context, buyerID string) ([]*models.OrderRecord, error) {
	return s.listOrders(ctx, tableCancellations, buyerID)
}

func (s *Storage) insertOrder(ctx context.Context, table string, order *models.OrderRecord) error {
	items, err := json.Marshal(order.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	// session_reference уникален: повторная доставка события не создаст вторую запись
	query := `
		INSERT INTO ` + table + ` (id, buyer_id, session_reference, gateway_session_id, currency, line_items, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		order.ID,
		order.BuyerID,
		order.SessionReference,
		order.GatewaySessionID,
		order.Currency,
		string(items),
		order.Total,
		order.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrOrderExists
		}
		return fmt.Errorf("failed to insert %s record: %w", table, err)
	}

	return nil
}

func (s *Storage) listOrders(ctx context.Context, table string, buyerID string) ([]*models.OrderRecord, error) {
	query := `
		SELECT id, buyer_id, session_reference, gateway_session_id, currency, line_items, total, created_at
		FROM ` + table + `
		WHERE buyer_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	orders := make([]*models.OrderRecord, 0)

	for rows.Next() {
		order := &models.OrderRecord{}
		var items string

		if err := rows.Scan(
			&order.ID,
			&order.BuyerID,
			&order.SessionReference,
			&order.GatewaySessionID,
			&order.Currency,
			&items,
			&order.Total,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", table, err)
		}

		if err := json.Unmarshal([]byte(items), &order.LineItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return orders, nil
}
