// Package statusmessage reads and writes the storage of the status message example
// contract, which keeps one message per account under the STATE key.
package statusmessage

import (
	"fmt"

	"github.com/near/borsh-go"
)

// StateKey is the storage key holding the whole contract state.
const StateKey = "STATE"

// Record is one account's message.
type Record struct {
	Key   string
	Value string
}

// State is the decoded contract state: a u32 count of records, then each record as two
// length-prefixed strings.
type State struct {
	Records []Record
}

// Get returns the message stored for accountID.
func (s State) Get(accountID string) (string, bool) {
	for _, r := range s.Records {
		if r.Key == accountID {
			return r.Value, true
		}
	}
	return "", false
}

// Set stores message for accountID, replacing any previous one.
func (s *State) Set(accountID, message string) {
	for i, r := range s.Records {
		if r.Key == accountID {
			s.Records[i].Value = message
			return
		}
	}
	s.Records = append(s.Records, Record{Key: accountID, Value: message})
}

// Encode returns the borsh form of s.
func (s State) Encode() ([]byte, error) {
	return borsh.Serialize(s)
}

// Decode parses the borsh form of a State. An empty input is an empty state.
func Decode(data []byte) (State, error) {
	var state State
	if len(data) == 0 {
		return state, nil
	}
	if err := borsh.Deserialize(&state, data); err != nil {
		return State{}, fmt.Errorf("invalid status message state: %w", err)
	}
	encoded, err := state.Encode()
	if err != nil {
		return State{}, err
	}
	if len(encoded) != len(data) {
		return State{}, fmt.Errorf("%d trailing bytes after status message state", len(data)-len(encoded))
	}
	return state, nil
}
