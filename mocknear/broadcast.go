package mocknear

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/near/workspaces-harness/tx"
)

const mockGasBurnt = 2428000000000

func (n *Node) broadcastLocked(raw json.RawMessage) (interface{}, *rpcError) {
	n.broadcasts++
	if n.pendingTimeouts > 0 {
		n.pendingTimeouts--
		return nil, &rpcError{
			status: http.StatusRequestTimeout,
			body: map[string]interface{}{
				"name":    "HANDLER_ERROR",
				"cause":   map[string]interface{}{"name": "TIMEOUT_ERROR"},
				"code":    -32000,
				"message": "Server error",
				"data":    "Timeout",
			},
		}
	}

	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 1 {
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", "expected one base64 transaction")
	}
	data, err := base64.StdEncoding.DecodeString(params[0])
	if err != nil {
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
	}
	signed, err := tx.DecodeSignedTransaction(data)
	if err != nil {
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
	}
	t := signed.Transaction
	signerID, receiverID := t.SignerID.String(), t.ReceiverID.String()

	signer, ok := n.accounts[signerID]
	if !ok {
		return nil, handlerError(http.StatusOK, "INVALID_TRANSACTION", fmt.Sprintf("signer %s does not exist", signerID))
	}
	keyText := t.PublicKey.String()
	currentNonce, ok := signer.Keys[keyText]
	if !ok {
		return nil, handlerError(http.StatusOK, "INVALID_TRANSACTION", fmt.Sprintf("access key %s not found", keyText))
	}
	if t.Nonce <= currentNonce {
		return nil, handlerError(http.StatusOK, "INVALID_TRANSACTION",
			fmt.Sprintf("InvalidNonce: tx nonce %d must be larger than %d", t.Nonce, currentNonce))
	}
	signer.Keys[keyText] = t.Nonce

	hashText := signed.Hash.String()
	blockHash := n.blockHashLocked()
	n.height++

	var status map[string]interface{}
	result, failure := n.applyActionsLocked(t)
	if failure != nil {
		status = map[string]interface{}{"Failure": failure}
	} else {
		status = map[string]interface{}{"SuccessValue": base64.StdEncoding.EncodeToString(result)}
	}

	return map[string]interface{}{
		"status": status,
		"transaction": map[string]interface{}{
			"signer_id":   signerID,
			"public_key":  keyText,
			"nonce":       t.Nonce,
			"receiver_id": receiverID,
			"hash":        hashText,
		},
		"transaction_outcome": map[string]interface{}{
			"id":         hashText,
			"block_hash": blockHash,
			"outcome": map[string]interface{}{
				"logs":         []string{},
				"receipt_ids":  []string{},
				"gas_burnt":    mockGasBurnt,
				"tokens_burnt": "0",
				"executor_id":  signerID,
				"status":       status,
			},
		},
		"receipts_outcome": []interface{}{},
	}, nil
}

// applyActionsLocked applies the actions in order against a copy of the receiver, so that
// a failing action leaves no partial changes behind.
func (n *Node) applyActionsLocked(t tx.Transaction) ([]byte, map[string]interface{}) {
	actionError := func(index int, kind interface{}) map[string]interface{} {
		return map[string]interface{}{
			"ActionError": map[string]interface{}{"index": index, "kind": kind},
		}
	}

	signerID, receiverID := t.SignerID.String(), t.ReceiverID.String()
	signer := n.accounts[signerID]
	receiver, exists := n.accounts[receiverID]
	var working *Account
	if exists {
		working = cloneAccount(receiver)
	}
	spent := new(uint256.Int)
	deleted := false
	var result []byte

	for i, action := range t.Actions {
		if _, creates := action.(tx.CreateAccountAction); !creates && working == nil {
			return nil, actionError(i, map[string]interface{}{
				"AccountDoesNotExist": map[string]string{"account_id": receiverID},
			})
		}
		switch a := action.(type) {
		case tx.CreateAccountAction:
			if working != nil {
				return nil, actionError(i, map[string]interface{}{
					"AccountAlreadyExists": map[string]string{"account_id": receiverID},
				})
			}
			working = &Account{Amount: new(uint256.Int), Keys: map[string]uint64{}, State: map[string][]byte{}}
		case tx.DeployContractAction:
			working.Code = append([]byte(nil), a.Code...)
		case tx.FunctionCallAction:
			fn, ok := n.lookupFunctionLocked(receiverID, working.Code, a.MethodName)
			if !ok {
				return nil, actionError(i, map[string]interface{}{
					"FunctionCallError": map[string]string{"MethodResolveError": "MethodNotFound"},
				})
			}
			out, err := fn(ContractCall{Predecessor: signerID, Args: a.Args, State: working.State})
			if err != nil {
				return nil, actionError(i, map[string]interface{}{
					"FunctionCallError": map[string]string{"ExecutionError": err.Error()},
				})
			}
			working.Amount.Add(working.Amount, a.Deposit.Uint256())
			spent.Add(spent, a.Deposit.Uint256())
			result = out
		case tx.TransferAction:
			working.Amount.Add(working.Amount, a.Deposit.Uint256())
			spent.Add(spent, a.Deposit.Uint256())
		case tx.AddKeyAction:
			working.Keys[a.PublicKey.String()] = 0
		case tx.DeleteKeyAction:
			delete(working.Keys, a.PublicKey.String())
		case tx.DeleteAccountAction:
			if beneficiary, ok := n.accounts[a.BeneficiaryID.String()]; ok {
				beneficiary.Amount.Add(beneficiary.Amount, working.Amount)
			}
			deleted = true
		}
	}

	if signerID == receiverID {
		// The signer is the receiver, so deposits were credited to the working copy.
		if working.Amount.Lt(spent) {
			return nil, actionError(0, map[string]interface{}{"LackBalanceForState": map[string]string{"account_id": signerID}})
		}
		working.Amount.Sub(working.Amount, spent)
	} else {
		if signer.Amount.Lt(spent) {
			return nil, actionError(0, map[string]interface{}{
				"NotEnoughBalance": map[string]string{"signer_id": signerID, "balance": signer.Amount.Dec()},
			})
		}
		signer.Amount.Sub(signer.Amount, spent)
	}

	if deleted {
		delete(n.accounts, receiverID)
	} else {
		n.accounts[receiverID] = working
	}
	return result, nil
}

func cloneAccount(a *Account) *Account {
	out := &Account{
		Amount: new(uint256.Int).Set(a.Amount),
		Keys:   make(map[string]uint64, len(a.Keys)),
		Code:   a.Code,
		State:  copyState(a.State),
	}
	for k, v := range a.Keys {
		out.Keys[k] = v
	}
	return out
}
