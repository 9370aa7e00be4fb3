// Package ledger provides a thin JSON-RPC client for the settlement
// ledger. It implements the narrow interface the settlement coordinator
// consumes; retry and backoff policy is the transport deployment's concern,
// not this client's.
package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/in-liberty420/xrpl-clob/internal/settlement"
)

// Client talks JSON-RPC to a ledger node.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client for the given JSON-RPC endpoint.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	reqBody := rpcRequest{Method: method}
	if params != nil {
		reqBody.Params = []any{params}
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// GetAccountSequence returns the account's current ledger sequence.
func (c *Client) GetAccountSequence(ctx context.Context, address string) (uint32, error) {
	var result struct {
		AccountData struct {
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	params := map[string]any{"account": address, "ledger_index": "current"}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return 0, err
	}
	return result.AccountData.Sequence, nil
}

// SubmitTransaction submits a signed transaction blob and reports whether
// the ledger accepted it.
func (c *Client) SubmitTransaction(ctx context.Context, blob []byte) (settlement.SubmitResult, error) {
	var result struct {
		EngineResult string `json:"engine_result"`
		TxJSON       struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	params := map[string]any{"tx_blob": hex.EncodeToString(blob)}
	if err := c.call(ctx, "submit", params, &result); err != nil {
		return settlement.SubmitResult{}, err
	}
	return settlement.SubmitResult{
		Success:   result.EngineResult == "tesSUCCESS",
		Reference: result.TxJSON.Hash,
	}, nil
}

// GetCurrentLedgerIndex returns the index of the ledger currently open.
func (c *Client) GetCurrentLedgerIndex(ctx context.Context) (uint32, error) {
	var result struct {
		LedgerCurrentIndex uint32 `json:"ledger_current_index"`
	}
	if err := c.call(ctx, "ledger_current", nil, &result); err != nil {
		return 0, err
	}
	return result.LedgerCurrentIndex, nil
}
