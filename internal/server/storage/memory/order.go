package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iudanet/themeshop/internal/models"
	"github.com/iudanet/themeshop/internal/server/storage"
)

// OrderStorage - журнал заказов в памяти
type OrderStorage struct {
	purchaseRefs     map[string]struct{} // session reference уже записанных покупок
	cancellationRefs map[string]struct{}
	purchases        []models.OrderRecord
	cancellations    []models.OrderRecord
	mu               sync.RWMutex
}

var _ storage.OrderStorage = (*OrderStorage)(nil)

// NewOrderStorage создает пустой журнал
func NewOrderStorage() *OrderStorage {
	return &OrderStorage{
		purchaseRefs:     make(map[string]struct{}),
		cancellationRefs: make(map[string]struct{}),
	}
}

// CreatePurchase appends a purchase record
func (s *OrderStorage) CreatePurchase(_ context.Context, order *models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := reserve(s.purchaseRefs, order.SessionReference); err != nil {
		return err
	}
	s.purchases = append(s.purchases, copyOrder(order))
	return nil
}

// CreateCancellation appends a cancellation record
func (s *OrderStorage) CreateCancellation(_ context.Context, order *models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := reserve(s.cancellationRefs, order.SessionReference); err != nil {
		return err
	}
	s.cancellations = append(s.cancellations, copyOrder(order))
	return nil
}

// ListPurchases returns buyer purchases, newest first
func (s *OrderStorage) ListPurchases(_ context.Context, buyerID string) ([]*models.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterByBuyer(s.purchases, buyerID), nil
}

// ListCancellations returns buyer cancellations, newest first
func (s *OrderStorage) ListCancellations(_ context.Context, buyerID string) ([]*models.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterByBuyer(s.cancellations, buyerID), nil
}

// одна запись на session reference в журнале
func reserve(refs map[string]struct{}, reference string) error {
	if _, ok := refs[reference]; ok {
		return storage.ErrOrderExists
	}
	refs[reference] = struct{}{}
	return nil
}

func copyOrder(order *models.OrderRecord) models.OrderRecord {
	cp := *order
	cp.LineItems = append([]models.LineItem(nil), order.LineItems...)
	return cp
}

func filterByBuyer(records []models.OrderRecord, buyerID string) []*models.OrderRecord {
	result := make([]*models.OrderRecord, 0)
	for i := range records {
		if records[i].BuyerID == buyerID {
			cp := copyOrder(&records[i])
			result = append(result, &cp)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
