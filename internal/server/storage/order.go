package storage

import (
	"context"

	"github.com/iudanet/themeshop/internal/models"
)

// OrderStorage defines the append-only order ledger
type OrderStorage interface {
	// CreatePurchase appends a purchase record
	// Returns ErrOrderExists if a record for the same session reference already exists
	CreatePurchase(ctx context.Context, order *models.OrderRecord) error

	// CreateCancellation appends a cancellation record
	// Returns ErrOrderExists if a record for the same session reference already exists
	CreateCancellation(ctx context.Context, order *models.OrderRecord) error

	// ListPurchases returns buyer purchases, newest first
	// Returns empty slice if no records found
	ListPurchases(ctx context.Context, buyerID string) ([]*models.OrderRecord, error)

	// ListCancellations returns buyer cancellations, newest first
	// Returns empty slice if no records found
	ListCancellations(ctx context.Context, buyerID string) ([]*models.OrderRecord, error)
}
