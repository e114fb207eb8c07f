// Package keys holds account signing material: ed25519 key pairs in the ledger's
// "ed25519:<base58>" text form, and the credential files they are persisted to.
package keys

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
)

// KeyType is the signature scheme tag used both in text keys and in borsh encoding.
type KeyType byte

const (
	ED25519 KeyType = 0
)

const ed25519Prefix = "ed25519"

var ErrUnsupportedKeyType = errors.New("unsupported key type")

func (k KeyType) String() string {
	if k == ED25519 {
		return ed25519Prefix
	}
	return fmt.Sprintf("KeyType(%d)", byte(k))
}

func parseKeyText(s string, expectedLen int) (KeyType, []byte, error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok {
		// keys without a prefix are ed25519 by convention
		alg, enc = ed25519Prefix, s
	}
	if alg != ed25519Prefix {
		return 0, nil, fmt.Errorf("%w %q", ErrUnsupportedKeyType, alg)
	}
	data, err := base58.Decode(enc)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid base58 key data: %w", err)
	}
	if len(data) != expectedLen {
		return 0, nil, fmt.Errorf("invalid %s key length: expected %d bytes, got %d", alg, expectedLen, len(data))
	}
	return ED25519, data, nil
}

// PublicKey is a public key tagged with its scheme.
type PublicKey struct {
	Type KeyType
	Data []byte
}

// ParsePublicKey parses "ed25519:<base58>".
func ParsePublicKey(s string) (PublicKey, error) {
	t, data, err := parseKeyText(s, ed25519.PublicKeySize)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{Type: t, Data: data}, nil
}

func (k PublicKey) String() string { return k.Type.String() + ":" + base58.Encode(k.Data) }

func (k PublicKey) Equal(other PublicKey) bool {
	return k.Type == other.Type && string(k.Data) == string(other.Data)
}

// Verify reports whether sig is a valid signature of message by this key.
func (k PublicKey) Verify(message []byte, sig Signature) bool {
	return k.Type == ED25519 && sig.Type == ED25519 && ed25519.Verify(ed25519.PublicKey(k.Data), message, sig.Data)
}

func (k PublicKey) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SecretKey is a private key tagged with its scheme. For ed25519 the data is the 64-byte
// seed||public form.
type SecretKey struct {
	Type KeyType
	Data []byte
}

// GenerateSecretKey creates a new random ed25519 key.
func GenerateSecretKey() (SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SecretKey{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return SecretKey{Type: ED25519, Data: priv}, nil
}

// SecretKeyFromSeed derives a deterministic ed25519 key, mainly for tests.
func SecretKeyFromSeed(seed []byte) (SecretKey, error) {
	if len(seed) != ed25519.SeedSize {
		return SecretKey{}, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	return SecretKey{Type: ED25519, Data: ed25519.NewKeyFromSeed(seed)}, nil
}

// ParseSecretKey parses "ed25519:<base58>".
func ParseSecretKey(s string) (SecretKey, error) {
	t, data, err := parseKeyText(s, ed25519.PrivateKeySize)
	if err != nil {
		return SecretKey{}, err
	}
	return SecretKey{Type: t, Data: data}, nil
}

func (k SecretKey) String() string { return k.Type.String() + ":" + base58.Encode(k.Data) }

func (k SecretKey) PublicKey() PublicKey {
	pub := k.Data[ed25519.SeedSize:]
	return PublicKey{Type: k.Type, Data: append([]byte(nil), pub...)}
}

func (k SecretKey) Sign(message []byte) Signature {
	return Signature{Type: k.Type, Data: ed25519.Sign(ed25519.PrivateKey(k.Data), message)}
}

// Signature is a signature tagged with its scheme.
type Signature struct {
	Type KeyType
	Data []byte
}

func (s Signature) String() string { return s.Type.String() + ":" + base58.Encode(s.Data) }
