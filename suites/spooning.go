package suites

import (
	"context"
	"encoding/json"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/require"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/scenario"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/runner"
	"github.com/near/workspaces-harness/statusmessage"
	"github.com/near/workspaces-harness/workspaces"
)

const spoonedMessage = "hello from testnet"

type spoonedState struct {
	contractID primitives.AccountID
	state      []byte
}

// spooning copies a contract's state from the test network into a contract on the sandbox,
// then reads the copied data through the sandbox contract.
func (s suite) spooning(t *scenario.T) {
	if !s.config.hasBackend(backend.SandboxName) || !s.config.hasBackend(backend.TestnetName) {
		t.SkipWithReason("needs both sandbox and testnet")
	}
	if s.config.ContractWasm == "" {
		t.SkipWithReason("no contract configured")
	}
	t.NonCritical(testnetExplanation)

	source, err := runner.WithTestnet(t.Context(), func(ctx context.Context) (spoonedState, error) {
		signer, err := workspaces.DevDeploy(ctx, s.config.ContractWasm)
		if err != nil {
			return spoonedState{}, err
		}
		args, _ := json.Marshal(map[string]string{"message": spoonedMessage})
		if _, err := workspaces.Call(ctx, signer, signer.AccountID(), "set_status", args, primitives.Balance{}); err != nil {
			return spoonedState{}, err
		}
		values, err := workspaces.ViewState(ctx, signer.AccountID(), []byte(statusmessage.StateKey))
		return spoonedState{contractID: signer.AccountID(), state: values[statusmessage.StateKey]}, err
	}, s.options(t)...)
	require.NoError(t, err)
	require.NotEmpty(t, source.state, "contract on testnet has no state")
	t.Debug("Copying state of %s", source.contractID)

	_, err = runner.WithSandbox(t.Context(), func(ctx context.Context) (struct{}, error) {
		t.RunWithContext(ctx, "read copied state", func(t *scenario.T) {
			signer, err := workspaces.DevDeploy(t.Context(), s.config.ContractWasm)
			require.NoError(t, err)
			id := signer.AccountID()
			require.NoError(t, workspaces.PatchState(t.Context(), id, statusmessage.StateKey, source.state))

			m.In(t).Assert(getStatus(t, id, source.contractID), m.JSONStrEqual(`"`+spoonedMessage+`"`))
			m.In(t).Assert(getStatus(t, id, id), m.JSONStrEqual("null"))
		})
		return struct{}{}, nil
	}, s.options(t)...)
	require.NoError(t, err)
}
