package statusmessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	var s State
	s.Set("ab", "c")
	data, err := s.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0, 'a', 'b', 1, 0, 0, 0, 'c'}, data)
}

func TestSetReplaces(t *testing.T) {
	var s State
	s.Set("alice", "hi")
	s.Set("bob", "yo")
	s.Set("alice", "bye")
	require.Len(t, s.Records, 2)
	msg, ok := s.Get("alice")
	assert.True(t, ok)
	assert.Equal(t, "bye", msg)
	_, ok = s.Get("carol")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	var s State
	s.Set("dev-1", "hello from testnet")
	data, err := s.Encode()
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s, decoded)

	empty, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)

	_, err = Decode([]byte{1, 0, 0, 0, 5, 0})
	assert.Error(t, err)

	_, err = Decode(append(data, 0))
	assert.Error(t, err)
}
