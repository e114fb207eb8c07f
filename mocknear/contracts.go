package mocknear

import (
	"encoding/json"
	"errors"

	"github.com/near/workspaces-harness/statusmessage"
)

// InstallStatusMessage registers a simulation of the status message example contract for
// accounts that deploy code.
func InstallStatusMessage(node *Node, code []byte) {
	node.RegisterContract(code, "set_status", func(call ContractCall) ([]byte, error) {
		var args struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		state, err := statusmessage.Decode(call.State[statusmessage.StateKey])
		if err != nil {
			return nil, err
		}
		state.Set(call.Predecessor, args.Message)
		encoded, err := state.Encode()
		if err != nil {
			return nil, err
		}
		call.State[statusmessage.StateKey] = encoded
		return nil, nil
	})
	node.RegisterContract(code, "get_status", func(call ContractCall) ([]byte, error) {
		var args struct {
			AccountID string `json:"account_id"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, err
		}
		if args.AccountID == "" {
			return nil, errors.New("missing account_id")
		}
		state, err := statusmessage.Decode(call.State[statusmessage.StateKey])
		if err != nil {
			return nil, err
		}
		if msg, ok := state.Get(args.AccountID); ok {
			return json.Marshal(msg)
		}
		return []byte("null"), nil
	})
}
