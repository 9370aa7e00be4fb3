package engine

import (
	"math/bits"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

// Allocate distributes the executed volume pro-rata across eligible orders
// at the clearing price: bids priced >= price and asks priced <= price,
// each taken in book priority order. Integer truncation leftovers go one
// base unit at a time to the highest-priority eligible orders with spare
// capacity, so each side's fills sum exactly to the volume. Allocate is
// pure: it never mutates the book or the orders.
func Allocate(price, volume int64, bids, asks []*domain.Order) domain.Allocation {
	alloc := domain.Allocation{Price: price, Volume: volume}
	if volume <= 0 {
		return alloc
	}

	eligibleBids := make([]*domain.Order, 0, len(bids))
	for _, o := range bids {
		if o.Price >= price {
			eligibleBids = append(eligibleBids, o)
		}
	}
	eligibleAsks := make([]*domain.Order, 0, len(asks))
	for _, o := range asks {
		if o.Price <= price {
			eligibleAsks = append(eligibleAsks, o)
		}
	}

	alloc.Bids = allocateSide(volume, eligibleBids)
	alloc.Asks = allocateSide(volume, eligibleAsks)
	return alloc
}

func allocateSide(volume int64, orders []*domain.Order) []domain.Fill {
	var total int64
	for _, o := range orders {
		total += o.RemainingQuantity
	}
	if total <= 0 || volume > total {
		// By construction volume = min(demand, supply) <= total; a breach
		// means the caller passed ladders inconsistent with the price.
		return nil
	}

	fills := make([]int64, len(orders))
	var assigned int64
	for i, o := range orders {
		f := proRataShare(o.RemainingQuantity, volume, total)
		fills[i] = f
		assigned += f
	}

	// Distribute truncation leftovers. Every order whose share truncated
	// has fill < remaining, and there are at least as many of those as
	// leftover units, so a single pass in priority order always lands them.
	for i := range orders {
		if assigned == volume {
			break
		}
		if fills[i] < orders[i].RemainingQuantity {
			fills[i]++
			assigned++
		}
	}

	out := make([]domain.Fill, 0, len(orders))
	for i, o := range orders {
		if fills[i] > 0 {
			out = append(out, domain.Fill{Order: o, Quantity: fills[i]})
		}
	}
	return out
}

// proRataShare computes remaining*volume/total through a 128-bit
// intermediate product: base-unit quantities are large enough for the raw
// int64 product to overflow. volume <= total keeps the quotient within
// remaining, so the result always fits.
func proRataShare(remaining, volume, total int64) int64 {
	hi, lo := bits.Mul64(uint64(remaining), uint64(volume))
	q, _ := bits.Div64(hi, lo, uint64(total))
	return int64(q)
}
