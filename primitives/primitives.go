// Package primitives contains the small value types shared by the key, transaction and RPC
// layers: account identifiers, hashes, block heights and balances.
package primitives

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
)

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

var accountIDRegex = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// ErrInvalidAccountID is matched by every account identifier syntax error.
var ErrInvalidAccountID = errors.New("invalid account ID")

// AccountID is a syntactically valid ledger account name, such as "alice.test.near".
type AccountID string

// ParseAccountID validates s against the ledger's account identifier rules: 2 to 64
// characters of lowercase letters, digits and the separators '-', '_' and '.', with no
// separator at either end and no two separators in a row.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < minAccountIDLen || len(s) > maxAccountIDLen {
		return "", fmt.Errorf("%w %q: length must be between %d and %d",
			ErrInvalidAccountID, s, minAccountIDLen, maxAccountIDLen)
	}
	if !accountIDRegex.MatchString(s) {
		return "", fmt.Errorf("%w %q", ErrInvalidAccountID, s)
	}
	return AccountID(s), nil
}

// MustParseAccountID is like ParseAccountID but panics on invalid input. It is meant for
// constants in test code.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string { return string(a) }

// Sub returns the sub-account "<prefix>.<a>".
func (a AccountID) Sub(prefix string) (AccountID, error) {
	return ParseAccountID(prefix + "." + string(a))
}

// BlockHeight is the height of a block.
type BlockHeight uint64

// CryptoHash is a 32-byte hash, shown in base58 on the wire.
type CryptoHash [32]byte

// ParseCryptoHash decodes a base58 hash string.
func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	data, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(data) != len(h) {
		return h, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, len(h), len(data))
	}
	copy(h[:], data)
	return h, nil
}

func (h CryptoHash) String() string { return base58.Encode(h[:]) }

func (h CryptoHash) IsZero() bool { return h == CryptoHash{} }

func (h CryptoHash) MarshalJSON() ([]byte, error) { return json.Marshal(h.String()) }

func (h *CryptoHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCryptoHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

var yoctoPerNEAR = uint256.MustFromDecimal("1000000000000000000000000") //nolint:gochecknoglobals

var maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1)) //nolint:gochecknoglobals

// Balance is an amount of yoctoNEAR. It is an unsigned 128-bit quantity on the wire,
// written as a decimal string in JSON.
type Balance struct {
	v uint256.Int
}

// Yocto returns a balance of n yoctoNEAR.
func Yocto(n uint64) Balance {
	var b Balance
	b.v.SetUint64(n)
	return b
}

// NEAR returns a balance of n whole tokens.
func NEAR(n uint64) Balance {
	var b Balance
	b.v.Mul(uint256.NewInt(n), yoctoPerNEAR)
	return b
}

// ParseBalance parses a decimal yoctoNEAR amount.
func ParseBalance(s string) (Balance, error) {
	var b Balance
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return b, fmt.Errorf("invalid balance %q: %w", s, err)
	}
	if v.Gt(maxU128) {
		return b, fmt.Errorf("invalid balance %q: exceeds 128 bits", s)
	}
	b.v = *v
	return b, nil
}

func (b Balance) String() string { return b.v.Dec() }

func (b Balance) IsZero() bool { return b.v.IsZero() }

func (b Balance) Cmp(other Balance) int { return b.v.Cmp(&other.v) }

// BigInt returns the balance as a new big.Int, the form borsh encodes as u128.
func (b Balance) BigInt() *big.Int { return b.v.ToBig() }

// Uint256 returns a copy of the balance for arithmetic.
func (b Balance) Uint256() *uint256.Int { return new(uint256.Int).Set(&b.v) }

// BalanceFromBig converts a u128 decoded from the wire.
func BalanceFromBig(v *big.Int) (Balance, error) {
	var b Balance
	if v.Sign() < 0 {
		return b, fmt.Errorf("invalid balance %s: negative", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow || u.Gt(maxU128) {
		return b, fmt.Errorf("invalid balance %s: exceeds 128 bits", v)
	}
	b.v = *u
	return b, nil
}

func (b Balance) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBalance(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
