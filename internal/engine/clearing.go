package engine

import (
	"sort"
	"sync"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

// ClearingResult reports the outcome of one clearing round. Price and
// Volume are meaningful only when Traded is true; a round with no crossing
// volume is a valid outcome, not an error.
type ClearingResult struct {
	Price  int64
	Volume int64
	Traded bool
}

// ClearingEngine discovers the uniform price maximizing executable volume.
// It owns the reference price used for tie-breaking, which survives
// no-trade rounds and is updated only when a round finds positive volume.
type ClearingEngine struct {
	mu         sync.Mutex
	lastTraded int64
	hasTraded  bool
}

// NewClearingEngine creates a ClearingEngine with no reference price.
func NewClearingEngine() *ClearingEngine {
	return &ClearingEngine{}
}

// LastTradedPrice returns the reference price from the most recent round
// that produced volume, and whether any round has traded yet. This is
// distinct from whether the latest round traded.
func (e *ClearingEngine) LastTradedPrice() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTraded, e.hasTraded
}

// priceLevel is a price with the summed remaining quantity at that price.
type priceLevel struct {
	price    int64
	quantity int64
}

// FindClearingPrice chooses the price P* maximizing
// min(demand(P), supply(P)), where demand sums bids priced >= P and supply
// sums asks priced <= P. Candidates are the union of price levels on both
// sides. Ties break toward the candidate nearest the reference price, then
// toward the lowest price. The result is a deterministic function of the
// ladders and the reference price.
func (e *ClearingEngine) FindClearingPrice(bids, asks []*domain.Order) ClearingResult {
	bidLevels := aggregateLevels(bids)
	askLevels := aggregateLevels(asks)
	if len(bidLevels) == 0 || len(askLevels) == 0 {
		return ClearingResult{}
	}

	// Prefix sums over sorted levels so each candidate is O(log n) instead
	// of a full ladder scan.
	demandFrom := make([]int64, len(bidLevels)+1) // sum of bids priced >= bidLevels[i].price
	for i := len(bidLevels) - 1; i >= 0; i-- {
		demandFrom[i] = demandFrom[i+1] + bidLevels[i].quantity
	}
	supplyUpTo := make([]int64, len(askLevels)+1) // sum of asks priced <= askLevels[i-1].price
	for i, lvl := range askLevels {
		supplyUpTo[i+1] = supplyUpTo[i] + lvl.quantity
	}

	candidates := mergePrices(bidLevels, askLevels)

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		bestPrice  int64
		bestVolume int64
	)
	for _, p := range candidates {
		i := sort.Search(len(bidLevels), func(i int) bool { return bidLevels[i].price >= p })
		demand := demandFrom[i]
		j := sort.Search(len(askLevels), func(i int) bool { return askLevels[i].price > p })
		supply := supplyUpTo[j]

		volume := min(demand, supply)
		if volume <= 0 {
			continue
		}
		switch {
		case volume > bestVolume:
			bestPrice, bestVolume = p, volume
		case volume == bestVolume && e.hasTraded &&
			absDiff(p, e.lastTraded) < absDiff(bestPrice, e.lastTraded):
			bestPrice = p
		}
	}

	if bestVolume == 0 {
		return ClearingResult{}
	}
	e.lastTraded = bestPrice
	e.hasTraded = true
	return ClearingResult{Price: bestPrice, Volume: bestVolume, Traded: true}
}

// aggregateLevels sums remaining quantity per price and returns levels
// sorted by price ascending.
func aggregateLevels(orders []*domain.Order) []priceLevel {
	byPrice := make(map[int64]int64)
	for _, o := range orders {
		byPrice[o.Price] += o.RemainingQuantity
	}
	out := make([]priceLevel, 0, len(byPrice))
	for price, qty := range byPrice {
		out = append(out, priceLevel{price: price, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].price < out[j].price })
	return out
}

// mergePrices returns the sorted union of the price sets of both sides.
func mergePrices(bids, asks []priceLevel) []int64 {
	seen := make(map[int64]bool, len(bids)+len(asks))
	out := make([]int64, 0, len(bids)+len(asks))
	for _, lvl := range bids {
		if !seen[lvl.price] {
			seen[lvl.price] = true
			out = append(out, lvl.price)
		}
	}
	for _, lvl := range asks {
		if !seen[lvl.price] {
			seen[lvl.price] = true
			out = append(out, lvl.price)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
