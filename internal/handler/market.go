package handler

import (
	"net/http"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/engine"
	"github.com/in-liberty420/xrpl-clob/internal/store"
)

// MarketHandler serves the aggregated book, clearing state, and trades.
type MarketHandler struct {
	book      *engine.Book
	clearing  *engine.ClearingEngine
	scheduler *engine.Scheduler
	trades    *store.TradeStore
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(book *engine.Book, clearing *engine.ClearingEngine, scheduler *engine.Scheduler, trades *store.TradeStore) *MarketHandler {
	return &MarketHandler{book: book, clearing: clearing, scheduler: scheduler, trades: trades}
}

type levelResponse struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

type bookResponse struct {
	Bids []levelResponse `json:"bids"`
	Asks []levelResponse `json:"asks"`
}

// GetBook handles GET /book: the L2 view, expiry-cleaned at read time.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bids, asks := h.book.Depth(time.Now())
	WriteJSON(w, http.StatusOK, bookResponse{
		Bids: toLevelResponses(bids),
		Asks: toLevelResponses(asks),
	})
}

func toLevelResponses(levels []engine.Level) []levelResponse {
	out := make([]levelResponse, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, levelResponse{Price: lvl.Price, Quantity: lvl.Quantity, Orders: lvl.Orders})
	}
	return out
}

type clearingResponse struct {
	LastTradedPrice *int64 `json:"last_traded_price"`
	LastRoundTraded bool   `json:"last_round_traded"`
	LastBatchTime   string `json:"last_batch_time,omitempty"`
}

// GetClearing handles GET /clearing: the reference price and whether the
// most recent round produced volume. The two are deliberately distinct: a
// no-trade round keeps exposing the prior reference price.
func (h *MarketHandler) GetClearing(w http.ResponseWriter, r *http.Request) {
	resp := clearingResponse{
		LastRoundTraded: h.scheduler.LastRoundTraded(),
	}
	if price, ok := h.clearing.LastTradedPrice(); ok {
		resp.LastTradedPrice = &price
	}
	if t := h.scheduler.LastBatchTime(); !t.IsZero() {
		resp.LastBatchTime = t.UTC().Format(time.RFC3339)
	}
	WriteJSON(w, http.StatusOK, resp)
}

type tradeResponse struct {
	TradeID    string `json:"trade_id"`
	OrderID    string `json:"order_id"`
	Side       string `json:"side"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	ExecutedAt string `json:"executed_at"`
}

// GetTrades handles GET /trades: executions from committed rounds.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.trades.List()
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"trades": out})
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:    t.TradeID,
		OrderID:    t.OrderID,
		Side:       string(t.Side),
		Price:      t.Price,
		Quantity:   t.Quantity,
		ExecutedAt: t.ExecutedAt.UTC().Format(time.RFC3339),
	}
}
