package mocknear

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"

	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/helpers"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// Somewhat arbitrary buffer size for the channel of recorded calls. If the channel is full,
// the handler does not block; the record is discarded.
const recordedCallsBufferSize = 100

const zeroHash = "11111111111111111111111111111111"

// RecordedCall is one JSON-RPC request received by the Node.
type RecordedCall struct {
	Method string
	Params json.RawMessage
}

// ContractCall is passed to a ContractFunc. State is the contract's storage; changes made
// by a transaction call persist, changes made by a view call are discarded.
type ContractCall struct {
	Predecessor string
	Args        []byte
	State       map[string][]byte
}

// ContractFunc simulates one contract method.
type ContractFunc func(call ContractCall) ([]byte, error)

// Account is a snapshot of a mock account.
type Account struct {
	Amount *uint256.Int
	Keys   map[string]uint64
	Code   []byte
	State  map[string][]byte
}

// Node simulates a ledger node's JSON-RPC interface over an in-memory set of accounts.
type Node struct {
	chainID         string
	height          uint64
	accounts        map[string]*Account
	functions       map[string]ContractFunc
	pendingTimeouts int
	broadcasts      int
	calls           chan RecordedCall
	handler         http.Handler
	debugLogger     framework.Logger
	lock            sync.Mutex
}

type rpcError struct {
	status int
	body   map[string]interface{}
}

func handlerError(status int, cause, message string) *rpcError {
	return &rpcError{
		status: status,
		body: map[string]interface{}{
			"name":    "HANDLER_ERROR",
			"cause":   map[string]interface{}{"name": cause, "info": map[string]interface{}{}},
			"code":    -32000,
			"message": "Server error",
			"data":    message,
		},
	}
}

func NewNode(chainID string, debugLogger framework.Logger) *Node {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	n := &Node{
		chainID:     chainID,
		height:      1,
		accounts:    make(map[string]*Account),
		functions:   make(map[string]ContractFunc),
		calls:       make(chan RecordedCall, recordedCallsBufferSize),
		debugLogger: debugLogger,
	}
	router := mux.NewRouter()
	router.HandleFunc("/", n.serveRPC).Methods("POST")
	n.handler = router
	return n
}

func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.handler.ServeHTTP(w, r)
}

// Calls returns the channel on which every received request is recorded.
func (n *Node) Calls() <-chan RecordedCall { return n.calls }

// AddAccount creates or replaces an account holding amount with one full-access key.
func (n *Node) AddAccount(id primitives.AccountID, publicKey keys.PublicKey, amount primitives.Balance) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.addAccountLocked(id.String(), publicKey.String(), amount)
}

func (n *Node) addAccountLocked(id, publicKey string, amount primitives.Balance) {
	n.accounts[id] = &Account{
		Amount: amount.Uint256(),
		Keys:   map[string]uint64{publicKey: 0},
		State:  make(map[string][]byte),
	}
}

// Account returns a copy of an account, or false if it does not exist.
func (n *Node) Account(id primitives.AccountID) (Account, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	a, ok := n.accounts[id.String()]
	if !ok {
		return Account{}, false
	}
	out := Account{
		Amount: new(uint256.Int).Set(a.Amount),
		Keys:   make(map[string]uint64, len(a.Keys)),
		Code:   append([]byte(nil), a.Code...),
		State:  copyState(a.State),
	}
	for k, v := range a.Keys {
		out.Keys[k] = v
	}
	return out, true
}

// SetState replaces one storage entry of an existing account.
func (n *Node) SetState(id primitives.AccountID, key string, value []byte) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if a, ok := n.accounts[id.String()]; ok {
		a.State[key] = value
	}
}

// SetContractFunction makes method callable on accountID, both as a view and in
// transactions.
func (n *Node) SetContractFunction(accountID primitives.AccountID, method string, fn ContractFunc) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.functions[accountID.String()+"/"+method] = fn
}

// RegisterContract makes method callable on every account whose deployed code is code.
func (n *Node) RegisterContract(code []byte, method string, fn ContractFunc) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.functions[codeKey(code)+"/"+method] = fn
}

func (n *Node) lookupFunctionLocked(accountID string, code []byte, method string) (ContractFunc, bool) {
	if fn, ok := n.functions[accountID+"/"+method]; ok {
		return fn, true
	}
	if len(code) == 0 {
		return nil, false
	}
	fn, ok := n.functions[codeKey(code)+"/"+method]
	return fn, ok
}

func codeKey(code []byte) string {
	h := sha256.Sum256(code)
	return "code:" + base58.Encode(h[:])
}

// FailNextTransactions makes the next count broadcasts fail with the node's timeout error
// without being applied.
func (n *Node) FailNextTransactions(count int) {
	n.lock.Lock()
	n.pendingTimeouts = count
	n.lock.Unlock()
}

// BroadcastCount returns how many broadcasts have been received, including failed ones.
func (n *Node) BroadcastCount() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.broadcasts
}

func (n *Node) blockHashLocked() string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n.height)
	h := sha256.Sum256(append([]byte(n.chainID), b[:]...))
	return base58.Encode(h[:])
}

func (n *Node) serveRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_ = helpers.NonBlockingSend(n.calls, RecordedCall{Method: req.Method, Params: req.Params})
	n.debugLogger.Printf("mock node received %s %s", req.Method, string(req.Params))

	result, rpcErr := n.dispatch(req.Method, req.Params)

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	status := http.StatusOK
	if rpcErr != nil {
		resp["error"] = rpcErr.body
		status = rpcErr.status
	} else {
		resp["result"] = result
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (n *Node) dispatch(method string, params json.RawMessage) (interface{}, *rpcError) {
	n.lock.Lock()
	defer n.lock.Unlock()
	switch method {
	case "status":
		return map[string]interface{}{
			"chain_id": n.chainID,
			"version":  map[string]string{"version": "mock", "build": "mock"},
			"sync_info": map[string]interface{}{
				"latest_block_hash":   n.blockHashLocked(),
				"latest_block_height": n.height,
				"syncing":             false,
			},
			"validator_account_id": nil,
		}, nil
	case "block":
		return map[string]interface{}{
			"header": map[string]interface{}{"height": n.height, "hash": n.blockHashLocked()},
		}, nil
	case "query":
		return n.queryLocked(params)
	case "broadcast_tx_commit":
		return n.broadcastLocked(params)
	case "sandbox_patch_state":
		return n.patchStateLocked(params)
	default:
		return nil, &rpcError{
			status: http.StatusOK,
			body: map[string]interface{}{
				"name":    "REQUEST_VALIDATION_ERROR",
				"cause":   map[string]interface{}{"name": "METHOD_NOT_FOUND", "info": map[string]interface{}{"method_name": method}},
				"code":    -32601,
				"message": "Method not found",
			},
		}
	}
}

type queryParams struct {
	RequestType  string `json:"request_type"`
	AccountID    string `json:"account_id"`
	PublicKey    string `json:"public_key"`
	PrefixBase64 string `json:"prefix_base64"`
	MethodName   string `json:"method_name"`
	ArgsBase64   string `json:"args_base64"`
}

func (n *Node) queryLocked(raw json.RawMessage) (interface{}, *rpcError) {
	var p queryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
	}
	account, ok := n.accounts[p.AccountID]
	if !ok {
		return nil, handlerError(http.StatusOK, "UNKNOWN_ACCOUNT", fmt.Sprintf("account %s does not exist", p.AccountID))
	}
	result := map[string]interface{}{
		"block_height": n.height,
		"block_hash":   n.blockHashLocked(),
	}
	switch p.RequestType {
	case "view_access_key":
		nonce, ok := account.Keys[p.PublicKey]
		if !ok {
			return nil, handlerError(http.StatusOK, "UNKNOWN_ACCESS_KEY", fmt.Sprintf("access key %s does not exist", p.PublicKey))
		}
		result["nonce"] = nonce
		result["permission"] = "FullAccess"
	case "view_account":
		codeHash := zeroHash
		if len(account.Code) > 0 {
			h := sha256.Sum256(account.Code)
			codeHash = base58.Encode(h[:])
		}
		result["amount"] = account.Amount.Dec()
		result["locked"] = "0"
		result["code_hash"] = codeHash
		result["storage_usage"] = len(account.Code) + stateSize(account.State)
		result["storage_paid_at"] = 0
	case "view_state":
		prefix, err := base64.StdEncoding.DecodeString(p.PrefixBase64)
		if err != nil {
			return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
		}
		values := make([]map[string]interface{}, 0, len(account.State))
		for k, v := range account.State {
			if strings.HasPrefix(k, string(prefix)) {
				values = append(values, map[string]interface{}{
					"key":   base64.StdEncoding.EncodeToString([]byte(k)),
					"value": base64.StdEncoding.EncodeToString(v),
					"proof": []string{},
				})
			}
		}
		result["values"] = values
		result["proof"] = []string{}
	case "call_function":
		fn, ok := n.lookupFunctionLocked(p.AccountID, account.Code, p.MethodName)
		if !ok {
			return nil, handlerError(http.StatusOK, "CONTRACT_EXECUTION_ERROR", "MethodNotFound")
		}
		args, err := base64.StdEncoding.DecodeString(p.ArgsBase64)
		if err != nil {
			return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
		}
		out, err := fn(ContractCall{Args: args, State: copyState(account.State)})
		if err != nil {
			return nil, handlerError(http.StatusOK, "CONTRACT_EXECUTION_ERROR", err.Error())
		}
		ints := make([]int, len(out))
		for i, b := range out {
			ints[i] = int(b)
		}
		result["result"] = ints
		result["logs"] = []string{}
	default:
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", "unknown request_type "+p.RequestType)
	}
	return result, nil
}

func (n *Node) patchStateLocked(raw json.RawMessage) (interface{}, *rpcError) {
	var p struct {
		Records []struct {
			Data *struct {
				AccountID string `json:"account_id"`
				DataKey   string `json:"data_key"`
				Value     string `json:"value"`
			} `json:"Data"`
		} `json:"records"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", err.Error())
	}
	for _, rec := range p.Records {
		if rec.Data == nil {
			continue
		}
		account, ok := n.accounts[rec.Data.AccountID]
		if !ok {
			return nil, handlerError(http.StatusOK, "UNKNOWN_ACCOUNT", "account "+rec.Data.AccountID+" does not exist")
		}
		key, err1 := base64.StdEncoding.DecodeString(rec.Data.DataKey)
		value, err2 := base64.StdEncoding.DecodeString(rec.Data.Value)
		if err1 != nil || err2 != nil {
			return nil, handlerError(http.StatusBadRequest, "PARSE_ERROR", "invalid base64 in record")
		}
		account.State[string(key)] = value
	}
	return map[string]interface{}{}, nil
}

func copyState(state map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(state))
	for k, v := range state {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func stateSize(state map[string][]byte) int {
	size := 0
	for k, v := range state {
		size += len(k) + len(v)
	}
	return size
}

