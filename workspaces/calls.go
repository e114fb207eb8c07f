package workspaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/rpc"
	"github.com/near/workspaces-harness/tx"
)

// signAndSend builds a transaction from signer to receiver using the key's next nonce and
// the latest block hash, and submits it. A transaction that executes but fails is returned
// along with an error wrapping rpc.ErrExecutionFailed.
func signAndSend(
	ctx context.Context,
	signer keys.Signer,
	receiver primitives.AccountID,
	actions ...tx.Action,
) (rpc.FinalExecutionOutcome, error) {
	view, _, blockHash, err := rpc.AccessKey(ctx, signer.AccountID(), signer.PublicKey())
	if err != nil {
		return rpc.FinalExecutionOutcome{}, err
	}
	signed, err := tx.Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      view.Nonce + 1,
		ReceiverID: receiver,
		BlockHash:  blockHash,
		Actions:    actions,
	}.Sign(signer)
	if err != nil {
		return rpc.FinalExecutionOutcome{}, err
	}
	backend.LoggerFrom(ctx).Printf("Sending %s", signed.Transaction)
	outcome, err := rpc.SendTx(ctx, signed)
	if err != nil {
		return outcome, err
	}
	if err := outcome.Status.Err(); err != nil {
		return outcome, fmt.Errorf("transaction %s: %w", signed.Hash, err)
	}
	return outcome, nil
}

// Call calls method on contractID with JSON-encoded args in a transaction signed by signer,
// attaching deposit.
func Call(
	ctx context.Context,
	signer keys.Signer,
	contractID primitives.AccountID,
	method string,
	args []byte,
	deposit primitives.Balance,
) (rpc.FinalExecutionOutcome, error) {
	outcome, err := signAndSend(ctx, signer, contractID, tx.FunctionCall(method, args, 0, deposit))
	if err != nil {
		return outcome, fmt.Errorf("call to %s.%s failed: %w", contractID, method, err)
	}
	return outcome, nil
}

// Transfer sends amount from signer to receiver.
func Transfer(
	ctx context.Context,
	signer keys.Signer,
	receiver primitives.AccountID,
	amount primitives.Balance,
) (rpc.FinalExecutionOutcome, error) {
	outcome, err := signAndSend(ctx, signer, receiver, tx.Transfer(amount))
	if err != nil {
		return outcome, fmt.Errorf("transfer to %s failed: %w", receiver, err)
	}
	return outcome, nil
}

// View calls a read-only method and decodes its JSON result. A method that returns nothing
// yields a null value.
func View(ctx context.Context, contractID primitives.AccountID, method string, args []byte) (ldvalue.Value, error) {
	client, err := rpc.ClientFor(ctx)
	if err != nil {
		return ldvalue.Null(), err
	}
	result, _, err := client.ViewFunction(ctx, contractID, method, args)
	if err != nil {
		return ldvalue.Null(), fmt.Errorf("view of %s.%s failed: %w", contractID, method, err)
	}
	if len(bytes.TrimSpace(result.Result)) == 0 {
		return ldvalue.Null(), nil
	}
	var value ldvalue.Value
	if err := json.Unmarshal(result.Result, &value); err != nil {
		return ldvalue.Null(), fmt.Errorf("view of %s.%s returned non-JSON result: %w", contractID, method, err)
	}
	return value, nil
}

// ViewAccount returns the balance and code hash of accountID.
func ViewAccount(ctx context.Context, accountID primitives.AccountID) (rpc.AccountView, error) {
	client, err := rpc.ClientFor(ctx)
	if err != nil {
		return rpc.AccountView{}, err
	}
	view, _, err := client.ViewAccount(ctx, accountID)
	if err != nil {
		return view, fmt.Errorf("failed to view account %s: %w", accountID, err)
	}
	return view, nil
}

// ViewState returns the storage of contractID whose keys start with prefix; an empty prefix
// returns all of it.
func ViewState(ctx context.Context, contractID primitives.AccountID, prefix []byte) (map[string][]byte, error) {
	return rpc.ViewState(ctx, contractID, prefix)
}

// PatchState overwrites one storage entry of contractID. It is only supported by sandbox
// backends.
func PatchState(ctx context.Context, contractID primitives.AccountID, key string, value []byte) error {
	return rpc.PatchState(ctx, contractID, []byte(key), value)
}
