package handler

import (
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/in-liberty420/xrpl-clob/internal/domain"
	"github.com/in-liberty420/xrpl-clob/internal/service"
)

// OrderHandler serves order placement and retrieval.
type OrderHandler struct {
	svc *service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// placeOrderRequest is the wire format for order placement. Binary fields
// are hex-encoded.
type placeOrderRequest struct {
	Price                int64  `json:"price"`
	Quantity             int64  `json:"quantity"`
	Side                 string `json:"side"`
	Account              string `json:"account"`
	Expiry               int64  `json:"expiry"` // unix seconds
	Sequence             uint32 `json:"sequence"`
	PublicKey            string `json:"public_key"`
	Signature            string `json:"signature"`
	CollectionPayload    string `json:"collection_payload"`
	LastValidLedgerIndex uint32 `json:"last_valid_ledger_index,omitempty"`
}

// orderResponse is the wire format for an order's state.
type orderResponse struct {
	OrderID           string `json:"order_id"`
	Side              string `json:"side"`
	Account           string `json:"account"`
	Price             int64  `json:"price"`
	Quantity          int64  `json:"quantity"`
	RemainingQuantity int64  `json:"remaining_quantity"`
	Status            string `json:"status"`
	Expiry            int64  `json:"expiry"`
	CreatedAt         string `json:"created_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	status, remaining := o.State()
	return orderResponse{
		OrderID:           o.OrderID,
		Side:              string(o.Side),
		Account:           o.Account,
		Price:             o.Price,
		Quantity:          o.Quantity,
		RemainingQuantity: remaining,
		Status:            string(status),
		Expiry:            o.Expiry.Unix(),
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	publicKey, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "public_key must be hex-encoded")
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "signature must be hex-encoded")
		return
	}
	payload, err := hex.DecodeString(req.CollectionPayload)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "collection_payload must be hex-encoded")
		return
	}

	order, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		Price:                req.Price,
		Quantity:             req.Quantity,
		Side:                 domain.Side(req.Side),
		Account:              req.Account,
		Expiry:               time.Unix(req.Expiry, 0),
		Sequence:             req.Sequence,
		PublicKey:            publicKey,
		Signature:            signature,
		CollectionPayload:    payload,
		LastValidLedgerIndex: req.LastValidLedgerIndex,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")

	order, err := h.svc.GetOrder(id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListAccountOrders handles GET /accounts/{account}/orders: every order the
// account has placed, newest first, including terminal ones.
func (h *OrderHandler) ListAccountOrders(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	orders := h.svc.ListOrdersByAccount(account)
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": out})
}

// writeOrderError maps domain errors to HTTP status codes.
func writeOrderError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrInvalidSequence):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_sequence",
			"sequence is below the account's current ledger sequence")
	case errors.Is(err, domain.ErrDuplicateOrder):
		WriteError(w, http.StatusConflict, "duplicate_order", "an order with this id already exists")
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "order not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
