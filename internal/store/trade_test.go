package store

import (
	"testing"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

func TestTradeStore_AppendAndList(t *testing.T) {
	s := NewTradeStore()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Append(&domain.Trade{TradeID: "t1", OrderID: "o1", Side: domain.SideBuy, Price: 100, Quantity: 5, ExecutedAt: at})
	s.Append(&domain.Trade{TradeID: "t2", OrderID: "o2", Side: domain.SideSell, Price: 100, Quantity: 5, ExecutedAt: at})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	got := s.List()
	if got[0].TradeID != "t1" || got[1].TradeID != "t2" {
		t.Error("trades out of chronological order")
	}
}

func TestTradeStore_ListReturnsCopy(t *testing.T) {
	s := NewTradeStore()
	s.Append(&domain.Trade{TradeID: "t1"})

	got := s.List()
	got[0] = &domain.Trade{TradeID: "mutated"}

	if s.List()[0].TradeID != "t1" {
		t.Error("mutating the returned slice leaked into the store")
	}
}

func TestTradeStore_EmptyList(t *testing.T) {
	s := NewTradeStore()
	if got := s.List(); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
