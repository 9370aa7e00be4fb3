package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/engine"
)

// Revalidator periodically re-checks resting orders against the ledger:
// orders whose reserved sequence has been passed by the account's live
// sequence can never settle and are evicted; orders flagged
// pending_revalidation whose payload is still viable are restored to the
// matchable pool.
type Revalidator struct {
	interval time.Duration
	book     *engine.Book
	ledger   SequenceReader
	busy     func() bool
	logger   *slog.Logger
	clock    func() time.Time
}

// NewRevalidator creates a Revalidator. busy, when non-nil, reports whether
// a batch is mid-flight; the sweep yields to it so the book never changes
// between a batch's snapshot and its commit.
func NewRevalidator(interval time.Duration, book *engine.Book, ledger SequenceReader, busy func() bool, logger *slog.Logger) *Revalidator {
	return &Revalidator{
		interval: interval,
		book:     book,
		ledger:   ledger,
		busy:     busy,
		logger:   logger,
		clock:    time.Now,
	}
}

// Start launches a background goroutine that sweeps at the configured
// interval until ctx is cancelled.
func (r *Revalidator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				r.Sweep(ctx, t)
			}
		}
	}()
}

// Sweep runs one revalidation pass over every order on the book. It is a
// no-op while a batch is in flight.
func (r *Revalidator) Sweep(ctx context.Context, now time.Time) {
	if r.busy != nil && r.busy() {
		return
	}

	sequences := make(map[string]uint32) // account → live sequence, per sweep

	for _, o := range r.book.Orders() {
		current, ok := sequences[o.Account]
		if !ok {
			var err error
			current, err = r.ledger.GetAccountSequence(ctx, o.Account)
			if err != nil {
				r.logger.Warn("revalidation skipped, ledger unavailable",
					slog.String("account", o.Account),
					slog.String("error", err.Error()))
				continue
			}
			sequences[o.Account] = current
		}

		status, remaining := o.State()
		switch {
		case o.Sequence < current:
			// The reserved sequence was consumed elsewhere; the collection
			// payload can never commit.
			if err := r.book.Remove(o.OrderID); err != nil {
				continue
			}
			o.SetStatus(domain.OrderStatusEvicted)
			r.logger.Info("order evicted, reserved sequence passed",
				slog.String("order_id", o.OrderID),
				slog.String("account", o.Account))

		case status == domain.OrderStatusPendingRevalidation && o.Expiry.After(now):
			if remaining == o.Quantity {
				o.SetStatus(domain.OrderStatusOpen)
			} else {
				o.SetStatus(domain.OrderStatusPartiallyFilled)
			}
			r.logger.Info("order revalidated",
				slog.String("order_id", o.OrderID))
		}
	}
}
