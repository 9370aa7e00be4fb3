package engine

import (
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

// Entry represents a single order resting on the book. Arrival is a
// book-assigned counter giving time priority within a price level.
type Entry struct {
	Price   int64
	Arrival uint64
	Order   *domain.Order
}

// Level is an aggregated price level: total remaining quantity across all
// live orders at that price.
type Level struct {
	Price    int64
	Quantity int64
	Orders   int
}

// bidLess defines ordering for the bid side: price descending, then arrival
// ascending. Min() returns the best bid (highest price, earliest arrival).
func bidLess(a, b Entry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.Arrival < b.Arrival
}

// askLess defines ordering for the ask side: price ascending, then arrival
// ascending. Min() returns the best ask (lowest price, earliest arrival).
func askLess(a, b Entry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Arrival < b.Arrival
}

// Book maintains the bid and ask ladders for the traded pair using B-trees
// with a secondary index for O(log n) removal by order ID. Every live order
// appears in exactly one ladder and exactly once in the index.
type Book struct {
	mu      sync.RWMutex
	bids    *btree.BTreeG[Entry]
	asks    *btree.BTreeG[Entry]
	index   map[string]Entry // order_id → entry
	arrival uint64
}

// NewBook creates an empty order book.
func NewBook() *Book {
	const degree = 32
	return &Book{
		bids:  btree.NewG[Entry](degree, bidLess),
		asks:  btree.NewG[Entry](degree, askLess),
		index: make(map[string]Entry),
	}
}

// Add inserts an order into its side's ladder and the id index. It rejects
// orders with an unknown side and orders whose id is already on the book.
func (b *Book) Add(o *domain.Order) error {
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		return domain.ErrInvalidSide
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index[o.OrderID]; ok {
		return domain.ErrDuplicateOrder
	}

	b.arrival++
	entry := Entry{Price: o.Price, Arrival: b.arrival, Order: o}
	b.tree(o.Side).ReplaceOrInsert(entry)
	b.index[o.OrderID] = entry
	return nil
}

// Remove deletes an order from its ladder and the id index. Removing an
// order that is not on the book is a programming error and returns
// domain.ErrOrderNotFound.
func (b *Book) Remove(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(orderID)
}

func (b *Book) removeLocked(orderID string) error {
	entry, ok := b.index[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	delete(b.index, orderID)
	b.tree(entry.Order.Side).Delete(entry)
	return nil
}

// Expire removes every order with expiry <= now from the ladders and the id
// index, marks them expired, and returns the count removed. It runs before
// every clearing round; reads additionally filter lazily so a skipped pass
// never leaks stale entries.
func (b *Book) Expire(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []Entry
	for _, entry := range b.index {
		if !entry.Order.Expiry.After(now) {
			expired = append(expired, entry)
		}
	}
	for _, entry := range expired {
		delete(b.index, entry.Order.OrderID)
		b.tree(entry.Order.Side).Delete(entry)
		entry.Order.SetStatus(domain.OrderStatusExpired)
	}
	return len(expired)
}

// Depth returns the aggregated per-price-level view of both sides: bids by
// price descending, asks ascending, excluding expired and emptied orders.
// This is a pure read.
func (b *Book) Depth(now time.Time) (bids, asks []Level) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return levels(b.bids, now), levels(b.asks, now)
}

func levels(tree *btree.BTreeG[Entry], now time.Time) []Level {
	var out []Level
	tree.Ascend(func(entry Entry) bool {
		_, remaining := entry.Order.State()
		if remaining <= 0 || !entry.Order.Expiry.After(now) {
			return true
		}
		if len(out) > 0 && out[len(out)-1].Price == entry.Price {
			out[len(out)-1].Quantity += remaining
			out[len(out)-1].Orders++
			return true
		}
		out = append(out, Level{Price: entry.Price, Quantity: remaining, Orders: 1})
		return true
	})
	return out
}

// Snapshot returns the matchable orders of both sides in book priority
// order (best price first, earliest arrival within a level). Orders that
// are expired, emptied, or pending revalidation are excluded. The batch
// operates on this snapshot; orders arriving afterwards are visible only
// to the next round.
func (b *Book) Snapshot(now time.Time) (bids, asks []*domain.Order) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	collect := func(tree *btree.BTreeG[Entry]) []*domain.Order {
		var out []*domain.Order
		tree.Ascend(func(entry Entry) bool {
			if entry.Order.Live(now) {
				out = append(out, entry.Order)
			}
			return true
		})
		return out
	}
	return collect(b.bids), collect(b.asks)
}

// Apply commits a settled allocation: each fill reduces its order's
// remaining quantity, and orders reduced to zero are removed from the book.
// Every fill's order is verified present before any is mutated, so Apply
// commits the whole allocation or none of it.
func (b *Book) Apply(alloc domain.Allocation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, fills := range [][]domain.Fill{alloc.Bids, alloc.Asks} {
		for _, f := range fills {
			if _, ok := b.index[f.Order.OrderID]; !ok {
				return domain.ErrOrderNotFound
			}
		}
	}

	for _, fills := range [][]domain.Fill{alloc.Bids, alloc.Asks} {
		for _, f := range fills {
			if remaining := f.Order.ApplyFill(f.Quantity); remaining == 0 {
				if err := b.removeLocked(f.Order.OrderID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Orders returns a snapshot of every order currently on the book, in no
// particular order. Used by the revalidation sweep.
func (b *Book) Orders() []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*domain.Order, 0, len(b.index))
	for _, entry := range b.index {
		out = append(out, entry.Order)
	}
	return out
}

// Len returns the number of orders on each side.
func (b *Book) Len() (bids, asks int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.Len(), b.asks.Len()
}

func (b *Book) tree(side domain.Side) *btree.BTreeG[Entry] {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}
