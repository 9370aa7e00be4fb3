package store

import (
	"sync"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

// OrderStore is a thread-safe in-memory store for every order accepted at
// intake, with a primary index by order_id and a secondary index by owning
// account. Unlike the book, it retains filled, expired, and evicted orders
// so their final state stays queryable.
type OrderStore struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	accountOrders map[string][]*domain.Order // account → orders (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[string]*domain.Order),
		accountOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order to the store and appends it to the account's
// secondary index.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderID] = o
	s.accountOrders[o.Account] = append(s.accountOrders[o.Account], o)
}

// Get retrieves an order by ID. It returns domain.ErrOrderNotFound if the
// order does not exist.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByAccount returns the account's orders in reverse chronological
// order (newest first).
func (s *OrderStore) ListByAccount(account string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.accountOrders[account]
	out := make([]*domain.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out
}
