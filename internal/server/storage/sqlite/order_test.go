package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
)

func newTestOrder(buyerID string, createdAt time.Time) *models.OrderRecord {
	return &models.OrderRecord{
		ID:               uuid.New().String(),
		BuyerID:          buyerID,
		SessionReference: uuid.New().String(),
		GatewaySessionID: "cs_test_" + uuid.New().String(),
		Currency:         "usd",
		LineItems: []models.LineItem{
			{ProductID: "p1", Name: "Ubud", UnitAmount: 14900, Quantity: 1},
		},
		Total:     14900,
		CreatedAt: createdAt,
	}
}

func TestOrderStorage_PurchasesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	older := newTestOrder("buyer-1", time.Now().Add(-time.Hour))
	newer := newTestOrder("buyer-1", time.Now())
	foreign := newTestOrder("buyer-2", time.Now())

	require.NoError(t, s.CreatePurchase(ctx, older))
	require.NoError(t, s.CreatePurchase(ctx, newer))
	require.NoError(t, s.CreatePurchase(ctx, foreign))

	got, err := s.ListPurchases(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Сначала новые
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, int64(14900), got[0].Total)
	assert.Equal(t, newer.LineItems, got[0].LineItems)
	assert.Equal(t, newer.SessionReference, got[0].SessionReference)
}

func TestOrderStorage_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	order := newTestOrder("buyer-1", time.Now())
	require.NoError(t, s.CreatePurchase(ctx, order))

	dup := newTestOrder("buyer-1", time.Now())
	dup.SessionReference = order.SessionReference

	err := s.CreatePurchase(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrOrderExists)

	got, err := s.ListPurchases(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOrderStorage_Cancellations(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	order := newTestOrder("buyer-1", time.Now())
	require.NoError(t, s.CreateCancellation(ctx, order))

	canceled, err := s.ListCancellations(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, canceled, 1)
	assert.Equal(t, order.ID, canceled[0].ID)

	// Отмена не попадает в покупки
	purchases, err := s.ListPurchases(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, purchases)
	assert.NotNil(t, purchases)
}
