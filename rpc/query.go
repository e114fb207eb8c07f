package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/tx"
)

func (c *Client) query(ctx context.Context, params interface{}, resultOut interface{}) error {
	var raw json.RawMessage
	if err := c.Call(ctx, "query", params, &raw); err != nil {
		return err
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return &QueryError{Message: envelope.Error}
	}
	return json.Unmarshal(raw, resultOut)
}

// AccessKey queries the state of one access key at the latest final block.
func (c *Client) AccessKey(
	ctx context.Context,
	accountID primitives.AccountID,
	publicKey keys.PublicKey,
) (AccessKeyView, BlockRef, error) {
	var result struct {
		AccessKeyView
		BlockRef
	}
	err := c.query(ctx, accessKeyParams{
		RequestType: "view_access_key",
		Finality:    FinalityFinal,
		AccountID:   accountID.String(),
		PublicKey:   publicKey,
	}, &result)
	return result.AccessKeyView, result.BlockRef, err
}

// ViewAccount queries an account's balance and storage at the latest final block.
func (c *Client) ViewAccount(ctx context.Context, accountID primitives.AccountID) (AccountView, BlockRef, error) {
	var result struct {
		AccountView
		BlockRef
	}
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_account",
		"finality":     FinalityFinal,
		"account_id":   accountID.String(),
	}, &result)
	return result.AccountView, result.BlockRef, err
}

// ViewState returns the raw storage of a contract whose keys start with prefix.
func (c *Client) ViewState(
	ctx context.Context,
	accountID primitives.AccountID,
	prefix []byte,
) ([]StateItem, BlockRef, error) {
	var result struct {
		Values []StateItem `json:"values"`
		BlockRef
	}
	err := c.query(ctx, map[string]interface{}{
		"request_type":  "view_state",
		"finality":      FinalityFinal,
		"account_id":    accountID.String(),
		"prefix_base64": encodeBase64(prefix),
	}, &result)
	return result.Values, result.BlockRef, err
}

// ViewFunction calls a read-only contract method.
func (c *Client) ViewFunction(
	ctx context.Context,
	accountID primitives.AccountID,
	method string,
	args []byte,
) (CallResult, BlockRef, error) {
	var result struct {
		CallResult
		BlockRef
	}
	err := c.query(ctx, map[string]interface{}{
		"request_type": "call_function",
		"finality":     FinalityFinal,
		"account_id":   accountID.String(),
		"method_name":  method,
		"args_base64":  encodeBase64(args),
	}, &result)
	return result.CallResult, result.BlockRef, err
}

// Status returns the node status. It is also used as a reachability check.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var result StatusResponse
	err := c.Call(ctx, "status", []interface{}{}, &result)
	return result, err
}

// LatestBlock returns the header of the latest final block.
func (c *Client) LatestBlock(ctx context.Context) (BlockHeader, error) {
	var result blockResponse
	err := c.Call(ctx, "block", map[string]interface{}{"finality": FinalityFinal}, &result)
	return result.Header, err
}

// PatchState overwrites contract storage records. Only sandbox nodes implement it.
func (c *Client) PatchState(ctx context.Context, records []StateRecord) error {
	return c.Call(ctx, "sandbox_patch_state", map[string]interface{}{"records": records}, nil)
}

// BroadcastTxCommit submits a transaction once and waits for its final outcome.
func (c *Client) BroadcastTxCommit(ctx context.Context, signed tx.SignedTransaction) (FinalExecutionOutcome, error) {
	var result FinalExecutionOutcome
	err := c.Call(ctx, "broadcast_tx_commit", []string{signed.Base64()}, &result)
	return result, err
}

// SendTx submits a transaction and waits for its final outcome. A timeout reported by the
// node is retried with the same signed transaction, without limit and without backoff,
// until the node returns an outcome or any other error. Either way the call then waits
// for the settle delay before returning.
func (c *Client) SendTx(ctx context.Context, signed tx.SignedTransaction) (FinalExecutionOutcome, error) {
	var (
		outcome FinalExecutionOutcome
		err     error
	)
	for attempt := 1; ; attempt++ {
		outcome, err = c.BroadcastTxCommit(ctx, signed)
		if err != nil && IsTimeout(err) {
			c.logger.Printf("transaction %s timed out (attempt %d), resubmitting: %s", signed.Hash, attempt, err)
			continue
		}
		break
	}

	// TODO: replace the fixed delay with polling tx status once the node reports indexing
	// progress.
	if c.settleDelay > 0 {
		timer := time.NewTimer(c.settleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	if err != nil {
		return outcome, fmt.Errorf("error sending transaction %s: %w", signed.Hash, err)
	}
	return outcome, nil
}
