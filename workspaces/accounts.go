package workspaces

import (
	"context"
	"fmt"
	"os"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/opt"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/rpc"
	"github.com/near/workspaces-harness/runner"
	"github.com/near/workspaces-harness/tx"
)

// DefaultAccountBalance is what the sandbox root account gives each new top-level account.
var DefaultAccountBalance = primitives.NEAR(100) //nolint:gochecknoglobals

// CreateTopLevelAccount creates accountID with publicKey as its full-access key. On a
// sandbox the root account signs a transaction and its outcome is returned; on the test
// network the helper service creates the account and there is no outcome.
func CreateTopLevelAccount(
	ctx context.Context,
	accountID primitives.AccountID,
	publicKey keys.PublicKey,
) (opt.Maybe[rpc.FinalExecutionOutcome], error) {
	none := opt.None[rpc.FinalExecutionOutcome]()
	flavor, err := backend.Require(ctx)
	if err != nil {
		return none, err
	}
	switch flavor.Kind() {
	case backend.KindSandbox:
		root, err := runner.RootSigner(ctx)
		if err != nil {
			return none, err
		}
		outcome, err := signAndSend(ctx, root, accountID,
			tx.CreateAccount(),
			tx.Transfer(DefaultAccountBalance),
			tx.AddFullAccessKey(publicKey),
		)
		if err != nil {
			return none, fmt.Errorf("failed to create account %s: %w", accountID, err)
		}
		return opt.Some(outcome), nil
	case backend.KindTestnet:
		helperURL, err := rpc.HelperURLFor(ctx)
		if err != nil {
			return none, err
		}
		return none, rpc.URLCreateAccount(ctx, helperURL, accountID, publicKey)
	default:
		return none, &backend.UnsupportedError{Flavor: flavor.Name(), Capability: "account creation"}
	}
}

// CreateTopLevelAccountAndDeploy creates accountID and deploys code to it. On a sandbox both
// happen in one transaction from the root account; on the test network the account is
// created by the helper service and signer, which must hold publicKey, deploys the code.
func CreateTopLevelAccountAndDeploy(
	ctx context.Context,
	accountID primitives.AccountID,
	publicKey keys.PublicKey,
	signer keys.Signer,
	code []byte,
) (rpc.FinalExecutionOutcome, error) {
	flavor, err := backend.Require(ctx)
	if err != nil {
		return rpc.FinalExecutionOutcome{}, err
	}
	switch flavor.Kind() {
	case backend.KindSandbox:
		root, err := runner.RootSigner(ctx)
		if err != nil {
			return rpc.FinalExecutionOutcome{}, err
		}
		outcome, err := signAndSend(ctx, root, accountID,
			tx.CreateAccount(),
			tx.Transfer(DefaultAccountBalance),
			tx.AddFullAccessKey(publicKey),
			tx.DeployContract(code),
		)
		if err != nil {
			return outcome, fmt.Errorf("failed to create and deploy %s: %w", accountID, err)
		}
		return outcome, nil
	case backend.KindTestnet:
		if _, err := CreateTopLevelAccount(ctx, accountID, publicKey); err != nil {
			return rpc.FinalExecutionOutcome{}, err
		}
		outcome, err := signAndSend(ctx, signer, accountID, tx.DeployContract(code))
		if err != nil {
			return outcome, fmt.Errorf("failed to deploy to %s: %w", accountID, err)
		}
		return outcome, nil
	default:
		return rpc.FinalExecutionOutcome{}, &backend.UnsupportedError{Flavor: flavor.Name(), Capability: "account creation"}
	}
}

// DevCreate creates an account with a random dev- name and a new key, and saves its
// credentials in the current backend's keystore.
func DevCreate(ctx context.Context) (*keys.InMemorySigner, error) {
	signer, err := newDevSigner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := CreateTopLevelAccount(ctx, signer.AccountID(), signer.PublicKey()); err != nil {
		return nil, err
	}
	return signer, nil
}

// DevDeploy is like DevCreate, and also deploys the contract in the wasm file at path.
func DevDeploy(ctx context.Context, path string) (*keys.InMemorySigner, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract: %w", err)
	}
	signer, err := newDevSigner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := CreateTopLevelAccountAndDeploy(ctx, signer.AccountID(), signer.PublicKey(), signer, code); err != nil {
		return nil, err
	}
	return signer, nil
}

func newDevSigner(ctx context.Context) (*keys.InMemorySigner, error) {
	accountID, err := rpc.RandomAccountID()
	if err != nil {
		return nil, err
	}
	signer, err := keys.GenerateSigner(accountID)
	if err != nil {
		return nil, err
	}
	path, err := rpc.CredentialsFilepath(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := signer.WriteFile(path); err != nil {
		return nil, fmt.Errorf("failed to save credentials of %s: %w", accountID, err)
	}
	backend.LoggerFrom(ctx).Printf("Saved credentials of %s to %s", accountID, path)
	return signer, nil
}

// LoadSigner reads the saved credentials of accountID from the current backend's keystore.
func LoadSigner(ctx context.Context, accountID primitives.AccountID) (*keys.InMemorySigner, error) {
	path, err := rpc.CredentialsFilepath(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return keys.ReadSignerFile(path)
}
