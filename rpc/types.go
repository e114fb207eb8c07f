package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// Finality selects how settled the block a query observes must be.
type Finality string

const (
	FinalityFinal      Finality = "final"
	FinalityOptimistic Finality = "optimistic"
)

// BlockRef identifies the block a query result was observed at.
type BlockRef struct {
	BlockHeight primitives.BlockHeight `json:"block_height"`
	BlockHash   primitives.CryptoHash  `json:"block_hash"`
}

// FunctionCallPermission restricts an access key to calling some methods of one contract.
type FunctionCallPermission struct {
	Allowance   *primitives.Balance `json:"allowance"`
	ReceiverID  string              `json:"receiver_id"`
	MethodNames []string            `json:"method_names"`
}

// AccessKeyPermission is either full access or a FunctionCallPermission.
type AccessKeyPermission struct {
	FullAccess   bool
	FunctionCall *FunctionCallPermission
}

func (p AccessKeyPermission) MarshalJSON() ([]byte, error) {
	if p.FullAccess {
		return json.Marshal("FullAccess")
	}
	return json.Marshal(map[string]*FunctionCallPermission{"FunctionCall": p.FunctionCall})
}

func (p *AccessKeyPermission) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "FullAccess" {
			return fmt.Errorf("unknown access key permission %q", s)
		}
		*p = AccessKeyPermission{FullAccess: true}
		return nil
	}
	var obj struct {
		FunctionCall *FunctionCallPermission `json:"FunctionCall"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.FunctionCall == nil {
		return fmt.Errorf("unknown access key permission %s", string(data))
	}
	*p = AccessKeyPermission{FunctionCall: obj.FunctionCall}
	return nil
}

// AccessKeyView is the state of one access key.
type AccessKeyView struct {
	Nonce      uint64              `json:"nonce"`
	Permission AccessKeyPermission `json:"permission"`
}

// AccountView is the state of one account.
type AccountView struct {
	Amount        primitives.Balance     `json:"amount"`
	Locked        primitives.Balance     `json:"locked"`
	CodeHash      primitives.CryptoHash  `json:"code_hash"`
	StorageUsage  uint64                 `json:"storage_usage"`
	StoragePaidAt primitives.BlockHeight `json:"storage_paid_at"`
}

// StateItem is one raw contract storage entry, base64-encoded on the wire.
type StateItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ByteArray is a byte slice written as a JSON array of numbers, the way function call
// results are returned.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, x := range b {
		ints[i] = int(x)
	}
	return json.Marshal(ints)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, x := range ints {
		if x < 0 || x > 255 {
			return fmt.Errorf("byte value %d out of range", x)
		}
		out[i] = byte(x)
	}
	*b = out
	return nil
}

// CallResult is the output of a view function call.
type CallResult struct {
	Result ByteArray `json:"result"`
	Logs   []string  `json:"logs"`
}

// ExecutionStatus is the outcome of a transaction or receipt.
type ExecutionStatus struct {
	SuccessValue     []byte
	SuccessReceiptID *primitives.CryptoHash
	Failure          json.RawMessage
	Pending          string
}

// ErrExecutionFailed is wrapped by the error of a failed ExecutionStatus.
var ErrExecutionFailed = errors.New("execution failed")

func (s ExecutionStatus) IsSuccess() bool {
	return s.SuccessValue != nil || s.SuccessReceiptID != nil
}

func (s ExecutionStatus) IsFailure() bool { return s.Failure != nil }

// Err returns a non-nil error describing the failure if the status is a failure.
func (s ExecutionStatus) Err() error {
	if s.Failure != nil {
		return fmt.Errorf("%w: %s", ErrExecutionFailed, string(s.Failure))
	}
	return nil
}

func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	var pending string
	if err := json.Unmarshal(data, &pending); err == nil {
		*s = ExecutionStatus{Pending: pending}
		return nil
	}
	var obj struct {
		SuccessValue     *string                `json:"SuccessValue"`
		SuccessReceiptID *primitives.CryptoHash `json:"SuccessReceiptId"`
		Failure          json.RawMessage        `json:"Failure"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := ExecutionStatus{SuccessReceiptID: obj.SuccessReceiptID, Failure: obj.Failure}
	if obj.SuccessValue != nil {
		value, err := decodeBase64(*obj.SuccessValue)
		if err != nil {
			return fmt.Errorf("invalid SuccessValue: %w", err)
		}
		out.SuccessValue = value
	}
	if !out.IsSuccess() && out.Failure == nil {
		return fmt.Errorf("unrecognized execution status %s", string(data))
	}
	*s = out
	return nil
}

func (s ExecutionStatus) MarshalJSON() ([]byte, error) {
	switch {
	case s.Failure != nil:
		return json.Marshal(map[string]json.RawMessage{"Failure": s.Failure})
	case s.SuccessReceiptID != nil:
		return json.Marshal(map[string]primitives.CryptoHash{"SuccessReceiptId": *s.SuccessReceiptID})
	case s.SuccessValue != nil:
		return json.Marshal(map[string]string{"SuccessValue": encodeBase64(s.SuccessValue)})
	default:
		return json.Marshal(s.Pending)
	}
}

// ExecutionOutcome is what executing one transaction or receipt produced.
type ExecutionOutcome struct {
	Logs        []string                `json:"logs"`
	ReceiptIDs  []primitives.CryptoHash `json:"receipt_ids"`
	GasBurnt    uint64                  `json:"gas_burnt"`
	TokensBurnt primitives.Balance      `json:"tokens_burnt"`
	ExecutorID  string                  `json:"executor_id"`
	Status      ExecutionStatus         `json:"status"`
}

// ExecutionOutcomeWithID pairs an outcome with the transaction or receipt it belongs to.
type ExecutionOutcomeWithID struct {
	ID        primitives.CryptoHash `json:"id"`
	BlockHash primitives.CryptoHash `json:"block_hash"`
	Outcome   ExecutionOutcome      `json:"outcome"`
}

// FinalExecutionOutcome is the result of a committed transaction.
type FinalExecutionOutcome struct {
	Status             ExecutionStatus          `json:"status"`
	Transaction        json.RawMessage          `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithID   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithID `json:"receipts_outcome"`
}

// Logs returns the logs of the transaction and all of its receipts, in order.
func (o FinalExecutionOutcome) Logs() []string {
	logs := append([]string(nil), o.TransactionOutcome.Outcome.Logs...)
	for _, r := range o.ReceiptsOutcome {
		logs = append(logs, r.Outcome.Logs...)
	}
	return logs
}

// TotalGasBurnt sums the gas burnt by the transaction and its receipts.
func (o FinalExecutionOutcome) TotalGasBurnt() uint64 {
	total := o.TransactionOutcome.Outcome.GasBurnt
	for _, r := range o.ReceiptsOutcome {
		total += r.Outcome.GasBurnt
	}
	return total
}

// JSONValue decodes the success value of the outcome as JSON into target.
func (o FinalExecutionOutcome) JSONValue(target interface{}) error {
	if err := o.Status.Err(); err != nil {
		return err
	}
	if len(bytes.TrimSpace(o.Status.SuccessValue)) == 0 {
		return errors.New("transaction returned no value")
	}
	return json.Unmarshal(o.Status.SuccessValue, target)
}

// NodeVersion is the software version a node reports.
type NodeVersion struct {
	Version string `json:"version"`
	Build   string `json:"build"`
}

// SyncInfo is the chain head a node reports.
type SyncInfo struct {
	LatestBlockHash   primitives.CryptoHash  `json:"latest_block_hash"`
	LatestBlockHeight primitives.BlockHeight `json:"latest_block_height"`
	Syncing           bool                   `json:"syncing"`
}

// StatusResponse is the node status.
type StatusResponse struct {
	ChainID            string      `json:"chain_id"`
	Version            NodeVersion `json:"version"`
	SyncInfo           SyncInfo    `json:"sync_info"`
	ValidatorAccountID string      `json:"validator_account_id"`
}

// BlockHeader is the subset of a block header the harness uses.
type BlockHeader struct {
	Height primitives.BlockHeight `json:"height"`
	Hash   primitives.CryptoHash  `json:"hash"`
}

type blockResponse struct {
	Header BlockHeader `json:"header"`
}

// StateRecord is a record patched into sandbox state.
type StateRecord struct {
	AccountID primitives.AccountID
	Key       []byte
	Value     []byte
}

func (r StateRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"Data": map[string]string{
			"account_id": r.AccountID.String(),
			"data_key":   encodeBase64(r.Key),
			"value":      encodeBase64(r.Value),
		},
	})
}

type accessKeyParams struct {
	RequestType string         `json:"request_type"`
	Finality    Finality       `json:"finality"`
	AccountID   string         `json:"account_id"`
	PublicKey   keys.PublicKey `json:"public_key"`
}
