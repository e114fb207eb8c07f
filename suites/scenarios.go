package suites

import (
	"encoding/json"
	"os"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/scenario"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/rpc"
	"github.com/near/workspaces-harness/statusmessage"
	"github.com/near/workspaces-harness/workspaces"
)

const statusMessageFromSuite = "hello from the harness"

func doStatusScenario(t *scenario.T) {
	client, err := rpc.ClientFor(t.Context())
	require.NoError(t, err)

	status, err := client.Status(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, status.ChainID)
	t.Debug("Chain %q, node version %s", status.ChainID, status.Version.Version)

	block, err := client.LatestBlock(t.Context())
	require.NoError(t, err)
	assert.False(t, block.Hash.IsZero())
}

func doDevAccountScenarios(t *scenario.T) {
	signer, err := workspaces.DevCreate(t.Context())
	require.NoError(t, err)
	t.Debug("Created %s", signer.AccountID())

	t.Run("credentials file", func(t *scenario.T) {
		path, err := rpc.CredentialsFilepath(t.Context(), signer.AccountID())
		require.NoError(t, err)
		_, err = os.Stat(path)
		require.NoError(t, err)

		loaded, err := keys.ReadSignerFile(path)
		require.NoError(t, err)
		m.In(t).Assert(loaded.AccountID(), m.Equal(signer.AccountID()))
		m.In(t).Assert(loaded.PublicKey().String(), m.Equal(signer.PublicKey().String()))
	})

	t.Run("access key", func(t *scenario.T) {
		view, _, blockHash, err := rpc.AccessKey(t.Context(), signer.AccountID(), signer.PublicKey())
		require.NoError(t, err)
		assert.True(t, view.Permission.FullAccess)
		assert.False(t, blockHash.IsZero())
	})

	t.Run("account", func(t *scenario.T) {
		account, err := workspaces.ViewAccount(t.Context(), signer.AccountID())
		require.NoError(t, err)
		assert.False(t, account.Amount.IsZero())
		assert.True(t, account.CodeHash.IsZero())
	})

	t.Run("unknown account", func(t *scenario.T) {
		id, err := rpc.RandomAccountID()
		require.NoError(t, err)
		_, err = workspaces.ViewAccount(t.Context(), id)
		assert.Error(t, err)
	})
}

func doTransferScenario(t *scenario.T) {
	sender, err := workspaces.DevCreate(t.Context())
	require.NoError(t, err)
	receiver, err := workspaces.DevCreate(t.Context())
	require.NoError(t, err)

	before, err := workspaces.ViewAccount(t.Context(), receiver.AccountID())
	require.NoError(t, err)

	outcome, err := workspaces.Transfer(t.Context(), sender, receiver.AccountID(), primitives.NEAR(1))
	require.NoError(t, err)
	t.Debug("Transfer %s burnt %d gas", outcome.TransactionOutcome.ID, outcome.TotalGasBurnt())

	after, err := workspaces.ViewAccount(t.Context(), receiver.AccountID())
	require.NoError(t, err)
	assert.Equal(t, 1, after.Amount.Cmp(before.Amount), "receiver balance did not increase")
}

func doPatchStateScenario(t *scenario.T) {
	signer, err := workspaces.DevCreate(t.Context())
	require.NoError(t, err)

	var state statusmessage.State
	state.Set(signer.AccountID().String(), statusMessageFromSuite)
	encoded, err := state.Encode()
	require.NoError(t, err)
	err = workspaces.PatchState(t.Context(), signer.AccountID(), statusmessage.StateKey, encoded)

	if !backend.Within(t.Context(), backend.SandboxName) {
		assert.ErrorIs(t, err, backend.ErrNotSupported)
		return
	}
	require.NoError(t, err)

	values, err := workspaces.ViewState(t.Context(), signer.AccountID(), []byte(statusmessage.StateKey))
	require.NoError(t, err)
	m.In(t).Assert(values[statusmessage.StateKey], m.Equal(encoded))
}

func (s suite) doContractScenario(t *scenario.T) {
	if s.config.ContractWasm == "" {
		t.SkipWithReason("no contract configured")
	}
	signer, err := workspaces.DevDeploy(t.Context(), s.config.ContractWasm)
	require.NoError(t, err)
	id := signer.AccountID()

	t.Run("code deployed", func(t *scenario.T) {
		account, err := workspaces.ViewAccount(t.Context(), id)
		require.NoError(t, err)
		assert.False(t, account.CodeHash.IsZero())
	})

	t.Run("call and view", func(t *scenario.T) {
		setStatus(t, signer, id, statusMessageFromSuite)
		m.In(t).Assert(getStatus(t, id, id), m.JSONStrEqual(`"`+statusMessageFromSuite+`"`))
		m.In(t).Assert(getStatus(t, id, "nobody.near"), m.JSONStrEqual("null"))
	})

	t.Run("state", func(t *scenario.T) {
		values, err := workspaces.ViewState(t.Context(), id, nil)
		require.NoError(t, err)
		state, err := statusmessage.Decode(values[statusmessage.StateKey])
		require.NoError(t, err)
		message, ok := state.Get(id.String())
		require.True(t, ok, "no status for %s in contract state", id)
		assert.Equal(t, statusMessageFromSuite, message)
	})

	t.Run("failed call", func(t *scenario.T) {
		_, err := workspaces.Call(t.Context(), signer, id, "no_such_method", nil, primitives.Balance{})
		assert.ErrorIs(t, err, rpc.ErrExecutionFailed)
	})
}

func setStatus(t *scenario.T, signer keys.Signer, contractID primitives.AccountID, message string) {
	args, err := json.Marshal(map[string]string{"message": message})
	require.NoError(t, err)
	_, err = workspaces.Call(t.Context(), signer, contractID, "set_status", args, primitives.Balance{})
	require.NoError(t, err)
}

// getStatus returns the JSON result of get_status for the given account.
func getStatus(t *scenario.T, contractID, of primitives.AccountID) string {
	args, err := json.Marshal(map[string]string{"account_id": string(of)})
	require.NoError(t, err)
	value, err := workspaces.View(t.Context(), contractID, "get_status", args)
	require.NoError(t, err)
	return value.JSONString()
}
