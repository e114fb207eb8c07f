package tx

import (
	"fmt"
	"math/big"

	"github.com/near/borsh-go"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// The types below mirror the ledger's borsh schema field for field. Complex enums list
// their variants in index order after the borsh.Enum tag field.

type wirePublicKey struct {
	KeyType uint8
	Data    [32]byte
}

type wireSignature struct {
	KeyType uint8
	Data    [64]byte
}

type wireCreateAccount struct{}

type wireDeployContract struct {
	Code []byte
}

type wireFunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type wireTransfer struct {
	Deposit big.Int
}

type wireStake struct {
	Stake     big.Int
	PublicKey wirePublicKey
}

type wireFunctionCallPermission struct {
	Allowance   *big.Int
	ReceiverID  string
	MethodNames []string
}

type wireAccessKeyPermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall wireFunctionCallPermission
	FullAccess   struct{}
}

const permissionFullAccess borsh.Enum = 1

type wireAccessKey struct {
	Nonce      uint64
	Permission wireAccessKeyPermission
}

type wireAddKey struct {
	PublicKey wirePublicKey
	AccessKey wireAccessKey
}

type wireDeleteKey struct {
	PublicKey wirePublicKey
}

type wireDeleteAccount struct {
	BeneficiaryID string
}

type wireAction struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  wireCreateAccount
	DeployContract wireDeployContract
	FunctionCall   wireFunctionCall
	Transfer       wireTransfer
	Stake          wireStake
	AddKey         wireAddKey
	DeleteKey      wireDeleteKey
	DeleteAccount  wireDeleteAccount
}

// Variant indexes of wireAction.
const (
	actionCreateAccount borsh.Enum = iota
	actionDeployContract
	actionFunctionCall
	actionTransfer
	actionStake
	actionAddKey
	actionDeleteKey
	actionDeleteAccount
)

type wireTransaction struct {
	SignerID   string
	PublicKey  wirePublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []wireAction
}

type wireSignedTransaction struct {
	Transaction wireTransaction
	Signature   wireSignature
}

func toWirePublicKey(k keys.PublicKey) (wirePublicKey, error) {
	var w wirePublicKey
	if k.Type != keys.ED25519 || len(k.Data) != len(w.Data) {
		return w, fmt.Errorf("unsupported public key %s", k)
	}
	w.KeyType = uint8(k.Type)
	copy(w.Data[:], k.Data)
	return w, nil
}

func (w wirePublicKey) publicKey() (keys.PublicKey, error) {
	if keys.KeyType(w.KeyType) != keys.ED25519 {
		return keys.PublicKey{}, fmt.Errorf("unsupported key type %d", w.KeyType)
	}
	return keys.PublicKey{Type: keys.ED25519, Data: append([]byte(nil), w.Data[:]...)}, nil
}

func toWireSignature(s keys.Signature) (wireSignature, error) {
	var w wireSignature
	if len(s.Data) != len(w.Data) {
		return w, fmt.Errorf("signature has %d bytes", len(s.Data))
	}
	w.KeyType = uint8(s.Type)
	copy(w.Data[:], s.Data)
	return w, nil
}

func (t Transaction) toWire() (wireTransaction, error) {
	pk, err := toWirePublicKey(t.PublicKey)
	if err != nil {
		return wireTransaction{}, err
	}
	w := wireTransaction{
		SignerID:   t.SignerID.String(),
		PublicKey:  pk,
		Nonce:      t.Nonce,
		ReceiverID: t.ReceiverID.String(),
		BlockHash:  t.BlockHash,
		Actions:    make([]wireAction, 0, len(t.Actions)),
	}
	for _, a := range t.Actions {
		wa, err := a.wire()
		if err != nil {
			return wireTransaction{}, fmt.Errorf("%s: %w", a, err)
		}
		w.Actions = append(w.Actions, wa)
	}
	return w, nil
}

func (w wireTransaction) transaction() (Transaction, error) {
	pk, err := w.PublicKey.publicKey()
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		SignerID:   primitives.AccountID(w.SignerID),
		PublicKey:  pk,
		Nonce:      w.Nonce,
		ReceiverID: primitives.AccountID(w.ReceiverID),
		BlockHash:  w.BlockHash,
	}
	for i, wa := range w.Actions {
		a, err := wa.action()
		if err != nil {
			return Transaction{}, fmt.Errorf("action %d: %w", i, err)
		}
		t.Actions = append(t.Actions, a)
	}
	return t, nil
}

func (w wireAction) action() (Action, error) {
	switch w.Enum {
	case actionCreateAccount:
		return CreateAccountAction{}, nil
	case actionDeployContract:
		return DeployContractAction{Code: w.DeployContract.Code}, nil
	case actionFunctionCall:
		deposit, err := primitives.BalanceFromBig(&w.FunctionCall.Deposit)
		if err != nil {
			return nil, err
		}
		return FunctionCallAction{
			MethodName: w.FunctionCall.MethodName,
			Args:       w.FunctionCall.Args,
			Gas:        Gas(w.FunctionCall.Gas),
			Deposit:    deposit,
		}, nil
	case actionTransfer:
		deposit, err := primitives.BalanceFromBig(&w.Transfer.Deposit)
		if err != nil {
			return nil, err
		}
		return TransferAction{Deposit: deposit}, nil
	case actionAddKey:
		if w.AddKey.AccessKey.Permission.Enum != permissionFullAccess {
			return nil, fmt.Errorf("only full access keys are supported")
		}
		pk, err := w.AddKey.PublicKey.publicKey()
		if err != nil {
			return nil, err
		}
		return AddKeyAction{PublicKey: pk}, nil
	case actionDeleteKey:
		pk, err := w.DeleteKey.PublicKey.publicKey()
		if err != nil {
			return nil, err
		}
		return DeleteKeyAction{PublicKey: pk}, nil
	case actionDeleteAccount:
		return DeleteAccountAction{BeneficiaryID: primitives.AccountID(w.DeleteAccount.BeneficiaryID)}, nil
	default:
		return nil, fmt.Errorf("unsupported action %d", w.Enum)
	}
}

// encodeBody returns the borsh encoding of the unsigned transaction.
func (t Transaction) encodeBody() ([]byte, error) {
	w, err := t.toWire()
	if err != nil {
		return nil, err
	}
	return borsh.Serialize(w)
}
