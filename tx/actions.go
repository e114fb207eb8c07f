package tx

import (
	"fmt"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
)

// Gas is an amount of execution gas.
type Gas uint64

// DefaultFunctionCallGas is the gas attached to function calls when none is specified:
// 300 TGas, the per-transaction maximum.
const DefaultFunctionCallGas Gas = 300_000_000_000_000

// Action is one step of a transaction. The concrete types are the *Action structs in this
// package; decoded transactions hold the same types.
type Action interface {
	wire() (wireAction, error)
	fmt.Stringer
}

// CreateAccountAction creates the receiver account. It must be followed by actions funding
// it and giving it a key.
type CreateAccountAction struct{}

func CreateAccount() Action { return CreateAccountAction{} }

func (CreateAccountAction) wire() (wireAction, error) {
	return wireAction{Enum: actionCreateAccount}, nil
}

func (CreateAccountAction) String() string { return "CreateAccount" }

// DeployContractAction replaces the receiver's contract code.
type DeployContractAction struct {
	Code []byte
}

func DeployContract(code []byte) Action { return DeployContractAction{Code: code} }

func (a DeployContractAction) wire() (wireAction, error) {
	return wireAction{Enum: actionDeployContract, DeployContract: wireDeployContract{Code: a.Code}}, nil
}

func (a DeployContractAction) String() string {
	return fmt.Sprintf("DeployContract(%d bytes)", len(a.Code))
}

// FunctionCallAction calls a method on the receiver's contract with raw args.
type FunctionCallAction struct {
	MethodName string
	Args       []byte
	Gas        Gas
	Deposit    primitives.Balance
}

// FunctionCall returns a FunctionCallAction; zero gas means DefaultFunctionCallGas.
func FunctionCall(method string, args []byte, gas Gas, deposit primitives.Balance) Action {
	if gas == 0 {
		gas = DefaultFunctionCallGas
	}
	return FunctionCallAction{MethodName: method, Args: args, Gas: gas, Deposit: deposit}
}

func (a FunctionCallAction) wire() (wireAction, error) {
	args := a.Args
	if args == nil {
		args = []byte{}
	}
	return wireAction{Enum: actionFunctionCall, FunctionCall: wireFunctionCall{
		MethodName: a.MethodName,
		Args:       args,
		Gas:        uint64(a.Gas),
		Deposit:    *a.Deposit.BigInt(),
	}}, nil
}

func (a FunctionCallAction) String() string { return fmt.Sprintf("FunctionCall(%s)", a.MethodName) }

// TransferAction moves a deposit from the signer to the receiver.
type TransferAction struct {
	Deposit primitives.Balance
}

func Transfer(deposit primitives.Balance) Action { return TransferAction{Deposit: deposit} }

func (a TransferAction) wire() (wireAction, error) {
	return wireAction{Enum: actionTransfer, Transfer: wireTransfer{Deposit: *a.Deposit.BigInt()}}, nil
}

func (a TransferAction) String() string { return fmt.Sprintf("Transfer(%s)", a.Deposit) }

// AddKeyAction adds a full access key to the receiver with nonce 0.
type AddKeyAction struct {
	PublicKey keys.PublicKey
}

func AddFullAccessKey(publicKey keys.PublicKey) Action { return AddKeyAction{PublicKey: publicKey} }

func (a AddKeyAction) wire() (wireAction, error) {
	pk, err := toWirePublicKey(a.PublicKey)
	if err != nil {
		return wireAction{}, err
	}
	return wireAction{Enum: actionAddKey, AddKey: wireAddKey{
		PublicKey: pk,
		AccessKey: wireAccessKey{Permission: wireAccessKeyPermission{Enum: permissionFullAccess}},
	}}, nil
}

func (a AddKeyAction) String() string { return fmt.Sprintf("AddKey(%s)", a.PublicKey) }

// DeleteKeyAction removes a key from the receiver.
type DeleteKeyAction struct {
	PublicKey keys.PublicKey
}

func DeleteKey(publicKey keys.PublicKey) Action { return DeleteKeyAction{PublicKey: publicKey} }

func (a DeleteKeyAction) wire() (wireAction, error) {
	pk, err := toWirePublicKey(a.PublicKey)
	if err != nil {
		return wireAction{}, err
	}
	return wireAction{Enum: actionDeleteKey, DeleteKey: wireDeleteKey{PublicKey: pk}}, nil
}

func (a DeleteKeyAction) String() string { return fmt.Sprintf("DeleteKey(%s)", a.PublicKey) }

// DeleteAccountAction deletes the receiver, sending its remaining balance to the
// beneficiary.
type DeleteAccountAction struct {
	BeneficiaryID primitives.AccountID
}

func DeleteAccount(beneficiary primitives.AccountID) Action {
	return DeleteAccountAction{BeneficiaryID: beneficiary}
}

func (a DeleteAccountAction) wire() (wireAction, error) {
	return wireAction{
		Enum:          actionDeleteAccount,
		DeleteAccount: wireDeleteAccount{BeneficiaryID: a.BeneficiaryID.String()},
	}, nil
}

func (a DeleteAccountAction) String() string { return fmt.Sprintf("DeleteAccount(%s)", a.BeneficiaryID) }

