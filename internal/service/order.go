package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/engine"
	"github.com/in-liberty420/xrpl-clob/internal/store"
)

// Classic ledger addresses: base58, 'r' prefix.
var accountRegex = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)

// SequenceReader reads an account's current ledger sequence. Satisfied by
// the ledger client.
type SequenceReader interface {
	GetAccountSequence(ctx context.Context, address string) (uint32, error)
}

// SignatureVerifier authenticates an order's canonical message before it
// ever reaches the book.
type SignatureVerifier interface {
	Verify(message, signature, publicKey []byte) bool
}

// PlaceOrderRequest represents the input for order placement.
type PlaceOrderRequest struct {
	Price                int64
	Quantity             int64
	Side                 domain.Side
	Account              string
	Expiry               time.Time
	Sequence             uint32
	PublicKey            []byte
	Signature            []byte
	CollectionPayload    []byte
	LastValidLedgerIndex uint32
}

// OrderMessage is the canonical byte string the owner signs at placement
// time: price, quantity, side, expiry (unix), sequence, account.
func OrderMessage(req PlaceOrderRequest) []byte {
	return []byte(fmt.Sprintf("%d,%d,%s,%d,%d,%s",
		req.Price, req.Quantity, req.Side, req.Expiry.Unix(), req.Sequence, req.Account))
}

// OrderService handles order intake and retrieval.
type OrderService struct {
	book     *engine.Book
	orders   *store.OrderStore
	ledger   SequenceReader
	verifier SignatureVerifier
	clock    func() time.Time
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(book *engine.Book, orders *store.OrderStore, ledger SequenceReader, verifier SignatureVerifier) *OrderService {
	return &OrderService{
		book:     book,
		orders:   orders,
		ledger:   ledger,
		verifier: verifier,
		clock:    time.Now,
	}
}

// PlaceOrder validates the request, authenticates its signature, checks the
// account's ledger sequence, and inserts the order into the book.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	now := s.clock()

	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return nil, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if req.Price <= 0 {
		return nil, &domain.ValidationError{Message: "price must be a positive integer"}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if req.Quantity > math.MaxInt64/req.Price {
		// Settlement amounts are fill*price; bounding the product here keeps
		// every downstream amount within int64.
		return nil, &domain.ValidationError{Message: "price times quantity exceeds the representable amount"}
	}
	if req.Account == "" {
		return nil, &domain.ValidationError{Message: "account is required"}
	}
	if !accountRegex.MatchString(req.Account) {
		return nil, &domain.ValidationError{Message: "account must be a valid ledger address"}
	}
	if req.Expiry.IsZero() {
		return nil, &domain.ValidationError{Message: "expiry is required"}
	}
	if !req.Expiry.After(now) {
		return nil, &domain.ValidationError{Message: "expiry must be in the future"}
	}
	if req.Sequence == 0 {
		return nil, &domain.ValidationError{Message: "sequence is required"}
	}
	if len(req.CollectionPayload) == 0 {
		return nil, &domain.ValidationError{Message: "collection_payload is required"}
	}
	if len(req.PublicKey) == 0 {
		return nil, &domain.ValidationError{Message: "public_key is required"}
	}
	if len(req.Signature) == 0 {
		return nil, &domain.ValidationError{Message: "signature is required"}
	}

	if !s.verifier.Verify(OrderMessage(req), req.Signature, req.PublicKey) {
		return nil, &domain.ValidationError{Message: "signature verification failed"}
	}

	current, err := s.ledger.GetAccountSequence(ctx, req.Account)
	if err != nil {
		return nil, fmt.Errorf("account sequence for %s: %w", req.Account, err)
	}
	if req.Sequence < current {
		return nil, domain.ErrInvalidSequence
	}

	order := &domain.Order{
		OrderID:              uuid.NewString(),
		Side:                 req.Side,
		Account:              req.Account,
		Price:                req.Price,
		Expiry:               req.Expiry,
		Sequence:             req.Sequence,
		CollectionPayload:    req.CollectionPayload,
		LastValidLedgerIndex: req.LastValidLedgerIndex,
		Quantity:             req.Quantity,
		RemainingQuantity:    req.Quantity,
		Status:               domain.OrderStatusOpen,
		CreatedAt:            now,
	}

	if err := s.book.Add(order); err != nil {
		return nil, err
	}
	s.orders.Create(order)
	return order, nil
}

// GetOrder retrieves an order by ID, including orders no longer on the book.
func (s *OrderService) GetOrder(id string) (*domain.Order, error) {
	return s.orders.Get(id)
}

// ListOrdersByAccount returns every order the account has placed, newest
// first, including orders no longer on the book.
func (s *OrderService) ListOrdersByAccount(account string) []*domain.Order {
	return s.orders.ListByAccount(account)
}
