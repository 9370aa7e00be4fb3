package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/in-liberty420/xrpl-clob/internal/domain"
)

// SubmitResult is the ledger's verdict on a submitted transaction.
type SubmitResult struct {
	Success   bool
	Reference string
}

// LedgerClient is the narrow transport interface to the settlement ledger.
// Implementations own retry/backoff; an error from any call means the
// transport exhausted its attempts.
type LedgerClient interface {
	GetAccountSequence(ctx context.Context, address string) (uint32, error)
	SubmitTransaction(ctx context.Context, blob []byte) (SubmitResult, error)
	GetCurrentLedgerIndex(ctx context.Context) (uint32, error)
}

// Payout describes a payment from the custody account to an order's owner.
type Payout struct {
	Destination string
	Amount      int64
	Asset       string
	Reference   string
}

// PayoutBuilder turns a payout into a submittable transaction from the
// custody account. Signing and low-level encoding live behind this
// interface.
type PayoutBuilder interface {
	BuildPayout(ctx context.Context, p Payout) ([]byte, error)
}

// Coordinator drives per-order two-phase settlement: collect the order's
// pre-authorized incoming payment into custody, then pay out the matched
// counter-value. The batch contract is all-or-nothing at the book level:
// the first failing order aborts the remainder, and the caller must discard
// every fill of a failed batch.
type Coordinator struct {
	ledger  LedgerClient
	payouts PayoutBuilder
	journal *Journal
	logger  *slog.Logger
	clock   func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(ledger LedgerClient, payouts PayoutBuilder, journal *Journal, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		ledger:  ledger,
		payouts: payouts,
		journal: journal,
		logger:  logger,
		clock:   time.Now,
	}
}

// SettleBatch settles every fill of the allocation in a fixed order: bids
// in book priority order, then asks. It returns nil only if every order's
// two phases confirmed. It never mutates order quantities; fills become
// real only when the caller applies them after a nil return.
func (c *Coordinator) SettleBatch(ctx context.Context, alloc domain.Allocation) error {
	for _, fills := range [][]domain.Fill{alloc.Bids, alloc.Asks} {
		for _, f := range fills {
			if err := c.settleOrder(ctx, alloc.Price, f); err != nil {
				var se *domain.SettlementError
				if errors.As(err, &se) {
					c.logger.Error("order settlement failed, aborting batch",
						slog.String("order_id", se.OrderID),
						slog.String("code", string(se.Code)))
				} else {
					c.logger.Error("order settlement failed, aborting batch",
						slog.String("order_id", f.Order.OrderID),
						slog.String("error", err.Error()))
				}
				return err
			}
		}
	}
	return nil
}

func (c *Coordinator) settleOrder(ctx context.Context, price int64, f domain.Fill) error {
	o := f.Order

	if o.LastValidLedgerIndex > 0 {
		current, err := c.ledger.GetCurrentLedgerIndex(ctx)
		if err != nil {
			return &domain.SettlementError{Code: domain.SettlementLedgerTimeout, OrderID: o.OrderID, Err: err}
		}
		if o.LastValidLedgerIndex <= current {
			// The payload can never commit; do not submit it.
			o.SetStatus(domain.OrderStatusPendingRevalidation)
			return &domain.SettlementError{Code: domain.SettlementExpired, OrderID: o.OrderID}
		}
	}

	if err := c.collect(ctx, o); err != nil {
		return err
	}
	return c.payout(ctx, price, f)
}

// collect submits the order's pre-authorized collection payload, unless the
// journal shows it already confirmed in an earlier attempt.
func (c *Coordinator) collect(ctx context.Context, o *domain.Order) error {
	hash := PayloadHash(o.CollectionPayload)

	rec, ok, err := c.journal.Collection(hash)
	if err != nil {
		return fmt.Errorf("collection journal lookup for order %s: %w", o.OrderID, err)
	}
	if ok && rec.Confirmed {
		c.logger.Info("collection already confirmed, skipping resubmission",
			slog.String("order_id", o.OrderID),
			slog.String("reference", rec.Reference))
		return nil
	}

	res, err := c.ledger.SubmitTransaction(ctx, o.CollectionPayload)
	if err != nil {
		return &domain.SettlementError{Code: domain.SettlementLedgerTimeout, OrderID: o.OrderID, Err: err}
	}

	// Outcome goes to the journal before the phase is acknowledged.
	if err := c.journal.RecordCollection(hash, PhaseRecord{
		OrderID:   o.OrderID,
		Reference: res.Reference,
		Confirmed: res.Success,
		At:        c.clock(),
	}); err != nil {
		return fmt.Errorf("record collection for order %s: %w", o.OrderID, err)
	}

	if !res.Success {
		// The order stays on the book unmodified, flagged for
		// re-validation before the next round.
		o.SetStatus(domain.OrderStatusPendingRevalidation)
		return &domain.SettlementError{Code: domain.SettlementCollectionRejected, OrderID: o.OrderID}
	}
	return nil
}

// payout pays the matched counter-value from custody to the order's owner.
// A failure here leaves the confirmed collection in place: it is an
// operator liability reconciled out of band via the journal, but it still
// fails the batch.
func (c *Coordinator) payout(ctx context.Context, price int64, f domain.Fill) error {
	o := f.Order

	// One payout per collected payload: a batch retried after a later
	// order's failure, or restarted after a crash, must not pay again.
	rec, ok, err := c.journal.Payout(o.OrderID)
	if err != nil {
		return fmt.Errorf("payout journal lookup for order %s: %w", o.OrderID, err)
	}
	if ok && rec.Confirmed {
		c.logger.Info("payout already confirmed, skipping resubmission",
			slog.String("order_id", o.OrderID),
			slog.String("reference", rec.Reference))
		return nil
	}

	amount, asset := domain.PayoutAmount(o.Side, f.Quantity, price)

	p := Payout{
		Destination: o.Account,
		Amount:      amount,
		Asset:       asset,
		Reference:   uuid.NewString(),
	}
	blob, err := c.payouts.BuildPayout(ctx, p)
	if err != nil {
		return &domain.SettlementError{Code: domain.SettlementPayoutFailed, OrderID: o.OrderID, Err: err}
	}

	res, err := c.ledger.SubmitTransaction(ctx, blob)
	if err != nil {
		// The ledger may still have applied the payment; journal the
		// attempt so reconciliation can find it.
		if jerr := c.journal.RecordPayout(o.OrderID, PhaseRecord{
			OrderID:   o.OrderID,
			Reference: p.Reference,
			Confirmed: false,
			At:        c.clock(),
		}); jerr != nil {
			c.logger.Error("failed to journal payout attempt",
				slog.String("order_id", o.OrderID),
				slog.String("error", jerr.Error()))
		}
		c.logger.Error("payout submission failed after confirmed collection, reconcile out of band",
			slog.String("order_id", o.OrderID),
			slog.String("reference", p.Reference))
		return &domain.SettlementError{Code: domain.SettlementLedgerTimeout, OrderID: o.OrderID, Err: err}
	}

	if err := c.journal.RecordPayout(o.OrderID, PhaseRecord{
		OrderID:   o.OrderID,
		Reference: res.Reference,
		Confirmed: res.Success,
		At:        c.clock(),
	}); err != nil {
		return fmt.Errorf("record payout for order %s: %w", o.OrderID, err)
	}

	if !res.Success {
		c.logger.Error("payout rejected after confirmed collection, reconcile out of band",
			slog.String("order_id", o.OrderID),
			slog.String("reference", res.Reference))
		return &domain.SettlementError{Code: domain.SettlementPayoutFailed, OrderID: o.OrderID}
	}
	return nil
}
