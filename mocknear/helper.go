package mocknear

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/helpers"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// HelperInitialBalance is what the mock helper funds new accounts with.
var HelperInitialBalance = primitives.NEAR(200) //nolint:gochecknoglobals

// AccountRequest is a request received by the HelperService.
type AccountRequest struct {
	NewAccountID        string `json:"newAccountId"`
	NewAccountPublicKey string `json:"newAccountPublicKey"`
}

// HelperService simulates the testnet account-creation helper. Accounts it creates are
// added to the linked Node.
type HelperService struct {
	node        *Node
	requests    chan AccountRequest
	handler     http.Handler
	debugLogger framework.Logger
}

func NewHelperService(node *Node, debugLogger framework.Logger) *HelperService {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	h := &HelperService{
		node:        node,
		requests:    make(chan AccountRequest, recordedCallsBufferSize),
		debugLogger: debugLogger,
	}
	router := mux.NewRouter()
	router.HandleFunc("/account", h.serveCreateAccount).Methods("POST")
	h.handler = router
	return h
}

func (h *HelperService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Requests returns the channel on which account creation requests are recorded.
func (h *HelperService) Requests() <-chan AccountRequest { return h.requests }

func (h *HelperService) serveCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_ = helpers.NonBlockingSend(h.requests, req)
	h.debugLogger.Printf("mock helper creating account %s", req.NewAccountID)

	id, err := primitives.ParseAccountID(req.NewAccountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pk, err := keys.ParsePublicKey(req.NewAccountPublicKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.node != nil {
		if _, exists := h.node.Account(id); exists {
			http.Error(w, "account already exists", http.StatusConflict)
			return
		}
		h.node.AddAccount(id, pk, HelperInitialBalance)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{}`))
}
