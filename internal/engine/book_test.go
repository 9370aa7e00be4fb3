package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// makeOrder creates a live order expiring well after baseTime.
func makeOrder(id string, side domain.Side, price, qty int64) *domain.Order {
	return &domain.Order{
		OrderID:           id,
		Side:              side,
		Account:           "rN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH",
		Price:             price,
		Expiry:            baseTime.Add(time.Hour),
		Sequence:          1,
		CollectionPayload: []byte("payload-" + id),
		Quantity:          qty,
		RemainingQuantity: qty,
		Status:            domain.OrderStatusOpen,
		CreatedAt:         baseTime,
	}
}

func TestBidLess_PriceDescending(t *testing.T) {
	a := Entry{Price: 200, Arrival: 2}
	b := Entry{Price: 100, Arrival: 1}
	if !bidLess(a, b) {
		t.Error("expected higher price to be less on bid side")
	}
	if bidLess(b, a) {
		t.Error("expected lower price to not be less on bid side")
	}
}

func TestBidLess_ArrivalAscending(t *testing.T) {
	a := Entry{Price: 100, Arrival: 1}
	b := Entry{Price: 100, Arrival: 2}
	if !bidLess(a, b) {
		t.Error("expected earlier arrival to be less on bid side at same price")
	}
}

func TestAskLess_PriceAscending(t *testing.T) {
	a := Entry{Price: 100, Arrival: 2}
	b := Entry{Price: 200, Arrival: 1}
	if !askLess(a, b) {
		t.Error("expected lower price to be less on ask side")
	}
}

func TestAskLess_ArrivalAscending(t *testing.T) {
	a := Entry{Price: 100, Arrival: 1}
	b := Entry{Price: 100, Arrival: 2}
	if !askLess(a, b) {
		t.Error("expected earlier arrival to be less on ask side at same price")
	}
}

func TestBook_AddRejectsDuplicateID(t *testing.T) {
	book := NewBook()
	if err := book.Add(makeOrder("o1", domain.SideBuy, 100, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := book.Add(makeOrder("o1", domain.SideSell, 200, 5))
	if !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
	bids, asks := book.Len()
	if bids != 1 || asks != 0 {
		t.Errorf("duplicate must not be inserted: bids=%d asks=%d", bids, asks)
	}
}

func TestBook_AddRejectsInvalidSide(t *testing.T) {
	book := NewBook()
	o := makeOrder("o1", "short", 100, 10)
	if err := book.Add(o); !errors.Is(err, domain.ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide, got %v", err)
	}
}

func TestBook_RemoveNonMember(t *testing.T) {
	book := NewBook()
	if err := book.Remove("ghost"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestBook_AddRemoveRoundTrip(t *testing.T) {
	book := NewBook()
	if err := book.Add(makeOrder("rest", domain.SideBuy, 90, 3)); err != nil {
		t.Fatal(err)
	}
	bidsBefore, asksBefore := book.Depth(baseTime)

	o := makeOrder("o1", domain.SideBuy, 100, 10)
	if err := book.Add(o); err != nil {
		t.Fatal(err)
	}
	if err := book.Remove("o1"); err != nil {
		t.Fatal(err)
	}

	bidsAfter, asksAfter := book.Depth(baseTime)
	if !reflect.DeepEqual(bidsBefore, bidsAfter) || !reflect.DeepEqual(asksBefore, asksAfter) {
		t.Errorf("add/remove should restore the aggregate view: before=%v/%v after=%v/%v",
			bidsBefore, asksBefore, bidsAfter, asksAfter)
	}
}

func TestBook_ExpireRemovesPastExpiry(t *testing.T) {
	book := NewBook()
	stale := makeOrder("stale", domain.SideBuy, 100, 10)
	stale.Expiry = baseTime.Add(-time.Minute)
	fresh := makeOrder("fresh", domain.SideSell, 100, 5)

	if err := book.Add(stale); err != nil {
		t.Fatal(err)
	}
	if err := book.Add(fresh); err != nil {
		t.Fatal(err)
	}

	if n := book.Expire(baseTime); n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}
	if stale.Status != domain.OrderStatusExpired {
		t.Errorf("expected expired status, got %s", stale.Status)
	}

	bids, asks := book.Len()
	if bids != 0 || asks != 1 {
		t.Errorf("expected only the fresh order to remain: bids=%d asks=%d", bids, asks)
	}
}

func TestBook_ExpireAtExactBoundary(t *testing.T) {
	book := NewBook()
	o := makeOrder("o1", domain.SideBuy, 100, 10)
	o.Expiry = baseTime
	if err := book.Add(o); err != nil {
		t.Fatal(err)
	}
	// expiry <= now is expired.
	if n := book.Expire(baseTime); n != 1 {
		t.Errorf("order expiring exactly at now must be removed, got %d", n)
	}
}

func TestBook_ExpireIdempotent(t *testing.T) {
	book := NewBook()
	stale := makeOrder("stale", domain.SideBuy, 100, 10)
	stale.Expiry = baseTime.Add(-time.Minute)
	if err := book.Add(stale); err != nil {
		t.Fatal(err)
	}
	if err := book.Add(makeOrder("fresh", domain.SideBuy, 100, 5)); err != nil {
		t.Fatal(err)
	}

	first := book.Expire(baseTime)
	bids1, asks1 := book.Depth(baseTime)
	second := book.Expire(baseTime)
	bids2, asks2 := book.Depth(baseTime)

	if first != 1 || second != 0 {
		t.Errorf("expected counts 1 then 0, got %d then %d", first, second)
	}
	if !reflect.DeepEqual(bids1, bids2) || !reflect.DeepEqual(asks1, asks2) {
		t.Error("consecutive expires must yield the same book")
	}
}

func TestBook_DepthAggregatesAndSorts(t *testing.T) {
	book := NewBook()
	for _, o := range []*domain.Order{
		makeOrder("b1", domain.SideBuy, 100, 10),
		makeOrder("b2", domain.SideBuy, 100, 5),
		makeOrder("b3", domain.SideBuy, 105, 1),
		makeOrder("a1", domain.SideSell, 110, 7),
		makeOrder("a2", domain.SideSell, 108, 2),
	} {
		if err := book.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	bids, asks := book.Depth(baseTime)

	wantBids := []Level{{Price: 105, Quantity: 1, Orders: 1}, {Price: 100, Quantity: 15, Orders: 2}}
	wantAsks := []Level{{Price: 108, Quantity: 2, Orders: 1}, {Price: 110, Quantity: 7, Orders: 1}}
	if !reflect.DeepEqual(bids, wantBids) {
		t.Errorf("bids = %v, want %v", bids, wantBids)
	}
	if !reflect.DeepEqual(asks, wantAsks) {
		t.Errorf("asks = %v, want %v", asks, wantAsks)
	}
}

func TestBook_DepthExcludesExpiredWithoutExpirePass(t *testing.T) {
	book := NewBook()
	stale := makeOrder("stale", domain.SideBuy, 100, 10)
	stale.Expiry = baseTime.Add(time.Minute)
	if err := book.Add(stale); err != nil {
		t.Fatal(err)
	}

	// Read after the expiry without running Expire: the view must not show it.
	bids, _ := book.Depth(baseTime.Add(2 * time.Minute))
	if len(bids) != 0 {
		t.Errorf("expected expired order hidden from depth, got %v", bids)
	}
}

func TestBook_SnapshotExcludesPendingRevalidation(t *testing.T) {
	book := NewBook()
	flagged := makeOrder("flagged", domain.SideBuy, 100, 10)
	if err := book.Add(flagged); err != nil {
		t.Fatal(err)
	}
	flagged.Status = domain.OrderStatusPendingRevalidation

	bids, _ := book.Snapshot(baseTime)
	if len(bids) != 0 {
		t.Errorf("pending_revalidation orders must not be matchable, got %d bids", len(bids))
	}
}

func TestBook_SnapshotPriorityOrder(t *testing.T) {
	book := NewBook()
	for _, o := range []*domain.Order{
		makeOrder("b1", domain.SideBuy, 100, 1),
		makeOrder("b2", domain.SideBuy, 105, 1),
		makeOrder("b3", domain.SideBuy, 100, 1),
	} {
		if err := book.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	bids, _ := book.Snapshot(baseTime)
	got := []string{bids[0].OrderID, bids[1].OrderID, bids[2].OrderID}
	want := []string{"b2", "b1", "b3"} // best price first, then arrival
	if !reflect.DeepEqual(got, want) {
		t.Errorf("snapshot order = %v, want %v", got, want)
	}
}

func TestBook_ApplyReducesAndRemovesFilled(t *testing.T) {
	book := NewBook()
	bid := makeOrder("bid", domain.SideBuy, 100, 15)
	ask := makeOrder("ask", domain.SideSell, 100, 10)
	if err := book.Add(bid); err != nil {
		t.Fatal(err)
	}
	if err := book.Add(ask); err != nil {
		t.Fatal(err)
	}

	alloc := domain.Allocation{
		Price:  100,
		Volume: 10,
		Bids:   []domain.Fill{{Order: bid, Quantity: 10}},
		Asks:   []domain.Fill{{Order: ask, Quantity: 10}},
	}
	if err := book.Apply(alloc); err != nil {
		t.Fatal(err)
	}

	if bid.RemainingQuantity != 5 || bid.Status != domain.OrderStatusPartiallyFilled {
		t.Errorf("bid = %d remaining, status %s", bid.RemainingQuantity, bid.Status)
	}
	if ask.RemainingQuantity != 0 || ask.Status != domain.OrderStatusFilled {
		t.Errorf("ask = %d remaining, status %s", ask.RemainingQuantity, ask.Status)
	}

	bids, asks := book.Len()
	if bids != 1 || asks != 0 {
		t.Errorf("filled ask must leave the book: bids=%d asks=%d", bids, asks)
	}
}

func TestBook_ApplyStaleFillCommitsNothing(t *testing.T) {
	b := NewBook()
	bid := makeOrder("b1", domain.SideBuy, 100, 10)
	ghost := makeOrder("gone", domain.SideSell, 100, 10)
	if err := b.Add(bid); err != nil {
		t.Fatal(err)
	}

	// ghost was never added (or was evicted between snapshot and commit).
	alloc := domain.Allocation{
		Price:  100,
		Volume: 10,
		Bids:   []domain.Fill{{Order: bid, Quantity: 10}},
		Asks:   []domain.Fill{{Order: ghost, Quantity: 10}},
	}

	if err := b.Apply(alloc); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// The bid fill preceding the stale one must not have been applied.
	if bid.RemainingQuantity != 10 {
		t.Errorf("bid remaining = %d, want 10 untouched", bid.RemainingQuantity)
	}
	if bid.Status != domain.OrderStatusOpen {
		t.Errorf("bid status = %s, want open", bid.Status)
	}
	bids, _ := b.Len()
	if bids != 1 {
		t.Error("bid must stay on the book after a rejected apply")
	}
}
