package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/store"
)

// Settler drives ledger settlement of an allocation. It returns nil only
// when every order's two-phase settlement succeeded; on error the whole
// allocation must be discarded without touching the book.
type Settler interface {
	SettleBatch(ctx context.Context, alloc domain.Allocation) error
}

// Scheduler runs the batch auction cycle: expire, clear, allocate, settle,
// then commit or discard. Exactly one batch runs at a time; a tick arriving
// while a batch is in flight is a no-op for that cycle.
type Scheduler struct {
	batchInterval time.Duration
	tickInterval  time.Duration
	book          *Book
	clearing      *ClearingEngine
	settler       Settler
	trades        *store.TradeStore
	logger        *slog.Logger

	inProgress atomic.Bool

	mu              sync.Mutex
	lastBatchTime   time.Time
	lastRoundTraded bool
}

// NewScheduler creates a Scheduler with the given dependencies.
func NewScheduler(
	batchInterval time.Duration,
	tickInterval time.Duration,
	book *Book,
	clearing *ClearingEngine,
	settler Settler,
	trades *store.TradeStore,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		batchInterval: batchInterval,
		tickInterval:  tickInterval,
		book:          book,
		clearing:      clearing,
		settler:       settler,
		trades:        trades,
		logger:        logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval until ctx is cancelled. Ticks are cheap; the batch itself only
// runs once batchInterval has elapsed since the previous batch.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				s.Tick(ctx, t)
			}
		}
	}()
}

// Tick runs one batch cycle if the interval has elapsed and no batch is in
// progress. Settlement blocks on the ledger for seconds; order intake stays
// concurrent with it, but no second batch begins before the outcome of the
// current one is known.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return
	}
	defer s.inProgress.Store(false)

	s.mu.Lock()
	due := now.Sub(s.lastBatchTime) >= s.batchInterval
	s.mu.Unlock()
	if !due {
		return
	}

	s.runBatch(ctx, now)

	s.mu.Lock()
	s.lastBatchTime = now
	s.mu.Unlock()
}

func (s *Scheduler) runBatch(ctx context.Context, now time.Time) {
	if expired := s.book.Expire(now); expired > 0 {
		s.logger.Info("expired orders removed", slog.Int("count", expired))
	}

	bids, asks := s.book.Snapshot(now)
	result := s.clearing.FindClearingPrice(bids, asks)

	s.mu.Lock()
	s.lastRoundTraded = result.Traded
	s.mu.Unlock()

	if !result.Traded {
		s.logger.Debug("no clearing price this round",
			slog.Int("bids", len(bids)), slog.Int("asks", len(asks)))
		return
	}

	alloc := Allocate(result.Price, result.Volume, bids, asks)
	if alloc.Empty() {
		return
	}

	if err := s.settler.SettleBatch(ctx, alloc); err != nil {
		// The allocation is discarded in full: no fill from this round may
		// touch the book after a settlement failure.
		s.logger.Error("batch settlement failed, allocation discarded",
			slog.String("error", err.Error()),
			slog.Int64("price", alloc.Price),
			slog.Int64("volume", alloc.Volume))
		return
	}

	if err := s.book.Apply(alloc); err != nil {
		s.logger.Error("failed to apply settled allocation", slog.String("error", err.Error()))
		return
	}
	s.recordTrades(alloc, now)

	s.logger.Info("batch settled",
		slog.Int64("price", alloc.Price),
		slog.Int64("volume", alloc.Volume),
		slog.Int("bid_fills", len(alloc.Bids)),
		slog.Int("ask_fills", len(alloc.Asks)))
}

func (s *Scheduler) recordTrades(alloc domain.Allocation, now time.Time) {
	for _, fills := range [][]domain.Fill{alloc.Bids, alloc.Asks} {
		for _, f := range fills {
			s.trades.Append(&domain.Trade{
				TradeID:    uuid.NewString(),
				OrderID:    f.Order.OrderID,
				Side:       f.Order.Side,
				Price:      alloc.Price,
				Quantity:   f.Quantity,
				ExecutedAt: now,
			})
		}
	}
}

// BatchInProgress reports whether a batch cycle is currently running.
// Background book mutators consult it so they never interleave with a batch
// between its snapshot and its commit.
func (s *Scheduler) BatchInProgress() bool {
	return s.inProgress.Load()
}

// LastBatchTime returns when the most recent batch cycle completed.
func (s *Scheduler) LastBatchTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBatchTime
}

// LastRoundTraded reports whether the most recent batch round produced
// volume. Distinct from the clearing engine's reference price, which
// survives no-trade rounds.
func (s *Scheduler) LastRoundTraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRoundTraded
}
