package domain

// Fill pairs an order with the quantity a clearing round allocated to it.
// Fills are transient: they touch the book only after settlement confirms.
type Fill struct {
	Order    *Order
	Quantity int64 // base-asset base units
}

// Allocation is the output of a clearing round: the uniform price, the
// executed volume, and the per-side fills in book priority order.
type Allocation struct {
	Price  int64
	Volume int64
	Bids   []Fill
	Asks   []Fill
}

// Empty reports whether the allocation carries no fills.
func (a Allocation) Empty() bool {
	return len(a.Bids) == 0 && len(a.Asks) == 0
}
