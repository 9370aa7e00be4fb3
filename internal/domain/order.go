package domain

import (
	"sync"
	"time"
)

// Side indicates whether an order buys or sells the base asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusExpired         OrderStatus = "expired"
	// OrderStatusPendingRevalidation marks an order whose collection payload was
	// rejected by the ledger. It stays on the book but is excluded from clearing
	// until the revalidation sweep either restores or evicts it.
	OrderStatusPendingRevalidation OrderStatus = "pending_revalidation"
	OrderStatusEvicted             OrderStatus = "evicted"
)

// Order represents a signed limit order resting on the book. Identity fields
// are immutable after intake; only RemainingQuantity and Status change, and
// only after a settled batch commits, the order expires, or a sweep flags it.
type Order struct {
	OrderID string
	Side    Side
	Account string // ledger classic address of the owner
	Price   int64  // counter-asset base units per base-asset unit
	Expiry  time.Time
	// Sequence is the ledger sequence reserved by the pre-authorized
	// collection payload. An order becomes unsettleable once the account's
	// live sequence moves past it.
	Sequence uint32
	// CollectionPayload is the signed incoming payment, payable to the
	// custody account, produced by the owner at placement time.
	CollectionPayload []byte
	// LastValidLedgerIndex bounds how long the collection payload can
	// commit. Zero means unbounded.
	LastValidLedgerIndex uint32

	Quantity  int64 // base-asset base units
	CreatedAt time.Time

	// mu guards the two mutable fields: batches, sweeps, and expiry write
	// them while handlers read them concurrently.
	mu                sync.Mutex
	RemainingQuantity int64
	Status            OrderStatus
}

// State returns the order's status and remaining quantity as one consistent
// observation.
func (o *Order) State() (OrderStatus, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Status, o.RemainingQuantity
}

// SetStatus transitions the order's status.
func (o *Order) SetStatus(s OrderStatus) {
	o.mu.Lock()
	o.Status = s
	o.mu.Unlock()
}

// ApplyFill reduces the remaining quantity by a committed fill, advances the
// status, and returns the quantity still remaining.
func (o *Order) ApplyFill(qty int64) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.RemainingQuantity -= qty
	if o.RemainingQuantity <= 0 {
		o.RemainingQuantity = 0
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	return o.RemainingQuantity
}

// Live reports whether the order is eligible for matching at the given time.
func (o *Order) Live(now time.Time) bool {
	status, remaining := o.State()
	if remaining <= 0 {
		return false
	}
	if !o.Expiry.After(now) {
		return false
	}
	return status == OrderStatusOpen || status == OrderStatusPartiallyFilled
}
