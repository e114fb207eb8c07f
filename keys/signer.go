package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/near/workspaces-harness/primitives"
)

// Signer signs on behalf of one account.
type Signer interface {
	AccountID() primitives.AccountID
	PublicKey() PublicKey
	Sign(message []byte) Signature
}

// InMemorySigner is a Signer holding its secret key in memory.
type InMemorySigner struct {
	accountID primitives.AccountID
	secretKey SecretKey
}

func NewInMemorySigner(accountID primitives.AccountID, secretKey SecretKey) *InMemorySigner {
	return &InMemorySigner{accountID: accountID, secretKey: secretKey}
}

// GenerateSigner creates a signer for accountID with a fresh random key.
func GenerateSigner(accountID primitives.AccountID) (*InMemorySigner, error) {
	sk, err := GenerateSecretKey()
	if err != nil {
		return nil, err
	}
	return NewInMemorySigner(accountID, sk), nil
}

func (s *InMemorySigner) AccountID() primitives.AccountID { return s.accountID }

func (s *InMemorySigner) PublicKey() PublicKey { return s.secretKey.PublicKey() }

func (s *InMemorySigner) SecretKey() SecretKey { return s.secretKey }

func (s *InMemorySigner) Sign(message []byte) Signature { return s.secretKey.Sign(message) }

// credentialFile is the on-disk schema shared with the ledger's CLI tools. Node key files
// written by the sandbox use "private_key" instead of "secret_key"; both are accepted.
type credentialFile struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	SecretKey  string `json:"secret_key,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
}

// WriteFile persists the signer's credentials as JSON at path. The containing directory
// must already exist.
func (s *InMemorySigner) WriteFile(path string) error {
	data, err := json.MarshalIndent(credentialFile{
		AccountID: s.accountID.String(),
		PublicKey: s.PublicKey().String(),
		SecretKey: s.secretKey.String(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials for %s: %w", s.accountID, err)
	}
	return nil
}

// ReadSignerFile loads a signer from a credential file.
func ReadSignerFile(path string) (*InMemorySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var cf credentialFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("malformed credentials file %s: %w", path, err)
	}
	accountID, err := primitives.ParseAccountID(cf.AccountID)
	if err != nil {
		return nil, fmt.Errorf("malformed credentials file %s: %w", path, err)
	}
	secretText := cf.SecretKey
	if secretText == "" {
		secretText = cf.PrivateKey
	}
	if secretText == "" {
		return nil, fmt.Errorf("malformed credentials file %s: %w", path, errors.New("no secret key"))
	}
	sk, err := ParseSecretKey(secretText)
	if err != nil {
		return nil, fmt.Errorf("malformed credentials file %s: %w", path, err)
	}
	if cf.PublicKey != "" {
		pk, err := ParsePublicKey(cf.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("malformed credentials file %s: %w", path, err)
		}
		if !pk.Equal(sk.PublicKey()) {
			return nil, fmt.Errorf("credentials file %s: public key does not match secret key", path)
		}
	}
	return NewInMemorySigner(accountID, sk), nil
}
