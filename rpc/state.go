package rpc

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

func encodeBase64(data []byte) string { return base64.StdEncoding.EncodeToString(data) }

func decodeBase64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// IntoStateMap decodes base64 storage entries into a map from UTF-8 key to raw value. Any
// undecodable entry fails the whole conversion. When two entries decode to the same key the
// later one wins.
func IntoStateMap(items []StateItem) (map[string][]byte, error) {
	state := make(map[string][]byte, len(items))
	for i, item := range items {
		rawKey, err := decodeBase64(item.Key)
		if err != nil {
			return nil, fmt.Errorf("state item %d: invalid base64 key: %w", i, err)
		}
		if !utf8.Valid(rawKey) {
			return nil, fmt.Errorf("state item %d: key is not valid UTF-8", i)
		}
		value, err := decodeBase64(item.Value)
		if err != nil {
			return nil, fmt.Errorf("state item %d (%q): invalid base64 value: %w", i, rawKey, err)
		}
		state[string(rawKey)] = value
	}
	return state, nil
}

// FromStateMap is the inverse of IntoStateMap.
func FromStateMap(state map[string][]byte) []StateItem {
	items := make([]StateItem, 0, len(state))
	for k, v := range state {
		items = append(items, StateItem{Key: encodeBase64([]byte(k)), Value: encodeBase64(v)})
	}
	return items
}
