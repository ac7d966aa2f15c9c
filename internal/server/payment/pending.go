package payment

import (
	"sync"
	"time"

	"github.com/iudanet/themeshop/internal/models"
)

// pendingTable - ожидающие подтверждения сессии.
// Основной ключ - наш reference, дополнительный индекс - ID сессии в шлюзе.
type pendingTable struct {
	byRef     map[string]*models.PendingSession
	byGateway map[string]string // gateway session id -> reference
	mu        sync.Mutex
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		byRef:     make(map[string]*models.PendingSession),
		byGateway: make(map[string]string),
	}
}

func (t *pendingTable) stage(p *models.PendingSession) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byRef[p.Reference] = p
	if p.GatewaySessionID != "" {
		t.byGateway[p.GatewaySessionID] = p.Reference
	}
}

// attach привязывает ID сессии шлюза. false если запись уже снята.
func (t *pendingTable) attach(reference, gatewaySessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byRef[reference]
	if !ok {
		return false
	}
	p.GatewaySessionID = gatewaySessionID
	t.byGateway[gatewaySessionID] = reference
	return true
}

func (t *pendingTable) drop(reference string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(reference)
}

// claim атомарно снимает запись: по reference, иначе по ID сессии шлюза.
// Из нескольких конкурентных claim одной записи успешен ровно один.
func (t *pendingTable) claim(reference, gatewaySessionID string) (*models.PendingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reference == "" || t.byRef[reference] == nil {
		reference = t.byGateway[gatewaySessionID]
	}

	p, ok := t.byRef[reference]
	if !ok {
		return nil, false
	}
	t.removeLocked(reference)
	return p, true
}

// get возвращает копию записи
func (t *pendingTable) get(reference string) (models.PendingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byRef[reference]
	if !ok {
		return models.PendingSession{}, false
	}
	cp := *p
	cp.LineItems = append([]models.LineItem(nil), p.LineItems...)
	return cp, true
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.byRef)
}

// sweep удаляет записи, созданные раньше before
func (t *pendingTable) sweep(before time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for ref, p := range t.byRef {
		if p.CreatedAt.Before(before) {
			t.removeLocked(ref)
			removed++
		}
	}
	return removed
}

func (t *pendingTable) removeLocked(reference string) {
	p, ok := t.byRef[reference]
	if !ok {
		return
	}
	delete(t.byRef, reference)
	if p.GatewaySessionID != "" && t.byGateway[p.GatewaySessionID] == reference {
		delete(t.byGateway, p.GatewaySessionID)
	}
}
