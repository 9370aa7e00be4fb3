package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/engine"
)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func revalidatorOrder(id string, seq uint32, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		OrderID:           id,
		Side:              domain.SideBuy,
		Account:           testAccount,
		Price:             100,
		Expiry:            baseTime.Add(time.Hour),
		Sequence:          seq,
		CollectionPayload: []byte("payload-" + id),
		Quantity:          10,
		RemainingQuantity: 10,
		Status:            status,
	}
}

func newTestRevalidator(book *engine.Book, ledger SequenceReader) *Revalidator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRevalidator(time.Minute, book, ledger, nil, logger)
}

func TestSweep_EvictsPassedSequence(t *testing.T) {
	book := engine.NewBook()
	dead := revalidatorOrder("dead", 5, domain.OrderStatusOpen)
	alive := revalidatorOrder("alive", 9, domain.OrderStatusOpen)
	for _, o := range []*domain.Order{dead, alive} {
		if err := book.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	r := newTestRevalidator(book, &fakeSequenceReader{seq: 6})
	r.Sweep(context.Background(), baseTime)

	if dead.Status != domain.OrderStatusEvicted {
		t.Errorf("dead order status = %s, want evicted", dead.Status)
	}
	if alive.Status != domain.OrderStatusOpen {
		t.Errorf("alive order status = %s, want open", alive.Status)
	}
	bids, _ := book.Len()
	if bids != 1 {
		t.Errorf("expected 1 order left on the book, got %d", bids)
	}
}

func TestSweep_RestoresPendingRevalidation(t *testing.T) {
	book := engine.NewBook()
	flagged := revalidatorOrder("flagged", 9, domain.OrderStatusOpen)
	if err := book.Add(flagged); err != nil {
		t.Fatal(err)
	}
	flagged.Status = domain.OrderStatusPendingRevalidation

	r := newTestRevalidator(book, &fakeSequenceReader{seq: 6})
	r.Sweep(context.Background(), baseTime)

	if flagged.Status != domain.OrderStatusOpen {
		t.Errorf("status = %s, want open after revalidation", flagged.Status)
	}
}

func TestSweep_RestoresPartialFillState(t *testing.T) {
	book := engine.NewBook()
	flagged := revalidatorOrder("flagged", 9, domain.OrderStatusOpen)
	if err := book.Add(flagged); err != nil {
		t.Fatal(err)
	}
	flagged.RemainingQuantity = 4 // previously partially filled
	flagged.Status = domain.OrderStatusPendingRevalidation

	r := newTestRevalidator(book, &fakeSequenceReader{seq: 6})
	r.Sweep(context.Background(), baseTime)

	if flagged.Status != domain.OrderStatusPartiallyFilled {
		t.Errorf("status = %s, want partially_filled", flagged.Status)
	}
}

func TestSweep_LedgerUnavailableLeavesOrdersAlone(t *testing.T) {
	book := engine.NewBook()
	o := revalidatorOrder("o1", 5, domain.OrderStatusOpen)
	if err := book.Add(o); err != nil {
		t.Fatal(err)
	}

	r := newTestRevalidator(book, &fakeSequenceReader{err: errors.New("unreachable")})
	r.Sweep(context.Background(), baseTime)

	if o.Status != domain.OrderStatusOpen {
		t.Errorf("status = %s, want open when ledger is unreachable", o.Status)
	}
	bids, _ := book.Len()
	if bids != 1 {
		t.Error("order must stay on the book when the ledger is unreachable")
	}
}

func TestSweep_YieldsWhileBatchInFlight(t *testing.T) {
	book := engine.NewBook()
	dead := revalidatorOrder("dead", 5, domain.OrderStatusOpen)
	if err := book.Add(dead); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	busy := func() bool { return true }
	r := NewRevalidator(time.Minute, book, &fakeSequenceReader{seq: 6}, busy, logger)
	r.Sweep(context.Background(), baseTime)

	// Nothing may change while a batch is between snapshot and commit.
	if dead.Status != domain.OrderStatusOpen {
		t.Errorf("status = %s, want open", dead.Status)
	}
	bids, _ := book.Len()
	if bids != 1 {
		t.Error("order must stay on the book during a batch")
	}
}
