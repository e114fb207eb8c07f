// Package tx builds and signs ledger transactions in their borsh wire encoding.
package tx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/near/borsh-go"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// Transaction is an unsigned transaction.
type Transaction struct {
	SignerID   primitives.AccountID
	PublicKey  keys.PublicKey
	Nonce      uint64
	ReceiverID primitives.AccountID
	BlockHash  primitives.CryptoHash
	Actions    []Action
}

// SignedTransaction is a transaction together with its signature, ready for broadcast.
// It is immutable, so the same value can be resubmitted any number of times.
type SignedTransaction struct {
	Transaction Transaction
	Signature   keys.Signature
	Hash        primitives.CryptoHash
	encoded     []byte
}

// Hash returns the sha256 of the borsh-encoded transaction, which is both the value that
// gets signed and the transaction's identifier on chain.
func (t Transaction) Hash() (primitives.CryptoHash, error) {
	body, err := t.encodeBody()
	if err != nil {
		return primitives.CryptoHash{}, err
	}
	return sha256.Sum256(body), nil
}

func (t Transaction) String() string {
	names := make([]string, 0, len(t.Actions))
	for _, a := range t.Actions {
		names = append(names, a.String())
	}
	return fmt.Sprintf("%s -> %s [%s]", t.SignerID, t.ReceiverID, strings.Join(names, ", "))
}

// Sign signs the transaction. The signer's public key must match t.PublicKey.
func (t Transaction) Sign(signer keys.Signer) (SignedTransaction, error) {
	if len(t.Actions) == 0 {
		return SignedTransaction{}, errors.New("transaction has no actions")
	}
	if !signer.PublicKey().Equal(t.PublicKey) {
		return SignedTransaction{}, fmt.Errorf("signer key %s does not match transaction key %s",
			signer.PublicKey(), t.PublicKey)
	}
	body, err := t.toWire()
	if err != nil {
		return SignedTransaction{}, err
	}
	bodyBytes, err := borsh.Serialize(body)
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("cannot encode transaction: %w", err)
	}
	hash := primitives.CryptoHash(sha256.Sum256(bodyBytes))
	sig := signer.Sign(hash[:])
	wireSig, err := toWireSignature(sig)
	if err != nil {
		return SignedTransaction{}, err
	}
	encoded, err := borsh.Serialize(wireSignedTransaction{Transaction: body, Signature: wireSig})
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("cannot encode signed transaction: %w", err)
	}
	return SignedTransaction{Transaction: t, Signature: sig, Hash: hash, encoded: encoded}, nil
}

// DecodeSignedTransaction parses the borsh form of a signed transaction, as produced by
// Bytes. The signature is not verified.
func DecodeSignedTransaction(data []byte) (SignedTransaction, error) {
	var w wireSignedTransaction
	if err := borsh.Deserialize(&w, data); err != nil {
		return SignedTransaction{}, fmt.Errorf("invalid signed transaction: %w", err)
	}
	// Converting first rejects the variants whose re-encoding would not be byte-exact.
	t, err := w.Transaction.transaction()
	if err != nil {
		return SignedTransaction{}, err
	}
	reencoded, err := borsh.Serialize(w)
	if err != nil {
		return SignedTransaction{}, err
	}
	if len(reencoded) != len(data) {
		return SignedTransaction{}, fmt.Errorf("invalid signed transaction: %d trailing bytes",
			len(data)-len(reencoded))
	}
	body, err := borsh.Serialize(w.Transaction)
	if err != nil {
		return SignedTransaction{}, err
	}
	return SignedTransaction{
		Transaction: t,
		Signature:   keys.Signature{Type: keys.KeyType(w.Signature.KeyType), Data: append([]byte(nil), w.Signature.Data[:]...)},
		Hash:        sha256.Sum256(body),
		encoded:     append([]byte(nil), data...),
	}, nil
}

// Bytes returns the borsh encoding of the signed transaction.
func (s SignedTransaction) Bytes() []byte { return append([]byte(nil), s.encoded...) }

// Base64 returns the form accepted by broadcast RPC methods.
func (s SignedTransaction) Base64() string { return base64.StdEncoding.EncodeToString(s.encoded) }
