package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/in-liberty420/xrpl-clob/internal/settlement"
)

// PaymentBuilder builds payout payments from the custody account. Each
// payout uses the custody account's live sequence; signing and low-level
// encoding happen downstream in the custody signer.
type PaymentBuilder struct {
	client  *Client
	custody string
}

// NewPaymentBuilder creates a PaymentBuilder for the given custody account.
func NewPaymentBuilder(client *Client, custody string) *PaymentBuilder {
	return &PaymentBuilder{client: client, custody: custody}
}

// payment is the unsigned payout transaction handed to the custody signer.
type payment struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Destination     string `json:"Destination"`
	Amount          string `json:"Amount"`
	Currency        string `json:"Currency"`
	Sequence        uint32 `json:"Sequence"`
	InvoiceID       string `json:"InvoiceID,omitempty"`
}

// BuildPayout builds the payout transaction for submission.
func (b *PaymentBuilder) BuildPayout(ctx context.Context, p settlement.Payout) ([]byte, error) {
	seq, err := b.client.GetAccountSequence(ctx, b.custody)
	if err != nil {
		return nil, fmt.Errorf("custody account sequence: %w", err)
	}
	return json.Marshal(payment{
		TransactionType: "Payment",
		Account:         b.custody,
		Destination:     p.Destination,
		Amount:          strconv.FormatInt(p.Amount, 10),
		Currency:        p.Asset,
		Sequence:        seq,
		InvoiceID:       p.Reference,
	})
}
