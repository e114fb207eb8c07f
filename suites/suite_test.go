package suites

import (
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/scenario"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/mocknear"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/runner"
)

var contractCode = []byte("\x00asm status message") //nolint:gochecknoglobals

// withMockConfig serves a mock sandbox node and a mock test network with a helper service,
// and returns a Config that points at them.
func withMockConfig(t *testing.T, action func(Config)) {
	t.Setenv("HOME", t.TempDir())

	root, err := keys.GenerateSigner("test.near")
	require.NoError(t, err)
	rootKeyFile := filepath.Join(t.TempDir(), "validator_key.json")
	require.NoError(t, root.WriteFile(rootKeyFile))

	sandbox := mocknear.NewNode("sandbox", nil)
	sandbox.AddAccount(root.AccountID(), root.PublicKey(), primitives.NEAR(1000000))
	testnet := mocknear.NewNode("testnet", nil)
	helper := mocknear.NewHelperService(testnet, nil)
	mocknear.InstallStatusMessage(sandbox, contractCode)
	mocknear.InstallStatusMessage(testnet, contractCode)

	wasm := filepath.Join(t.TempDir(), "status_message.wasm")
	require.NoError(t, os.WriteFile(wasm, contractCode, 0o600))

	httphelpers.WithServer(sandbox, func(sandboxServer *httptest.Server) {
		httphelpers.WithServer(testnet, func(testnetServer *httptest.Server) {
			httphelpers.WithServer(helper, func(helperServer *httptest.Server) {
				sandboxURL, _ := url.Parse(sandboxServer.URL)
				port, _ := strconv.Atoi(sandboxURL.Port())
				helperURL, _ := url.Parse(helperServer.URL)
				noDelay := Duration(0)
				action(Config{
					Backends:           []string{backend.SandboxName, backend.TestnetName},
					SandboxPort:        uint16(port),
					SandboxRootKeyFile: rootKeyFile,
					ContractWasm:       wasm,
					SettleDelay:        &noDelay,
					ScopeOptions: []runner.ScopeOption{
						runner.WithLauncher(backend.TestnetName, runner.AttachedLauncher{
							Flavor:    backend.Testnet(),
							RPCAddr:   testnetServer.URL,
							HelperURL: helperURL,
						}),
					},
				})
			})
		})
	})
}

func resultIDs(results []scenario.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID.String())
	}
	return ids
}

func requireNoFailures(t *testing.T, results scenario.Results) {
	for _, r := range append(results.Failures, results.NonCriticalFailures...) {
		for _, err := range r.Errors {
			t.Errorf("%s: %s", r.ID, err)
		}
	}
	require.True(t, results.OK())
	require.Len(t, results.NonCriticalFailures, 0)
}

func TestSuitePassesAgainstMockBackends(t *testing.T) {
	withMockConfig(t, func(config Config) {
		results := RunSuite(config, nil, nil, nil)
		requireNoFailures(t, results)

		ids := resultIDs(results.Tests)
		for _, name := range []string{backend.SandboxName, backend.TestnetName} {
			assert.Contains(t, ids, name+"/status")
			assert.Contains(t, ids, name+"/dev accounts/credentials file")
			assert.Contains(t, ids, name+"/dev accounts/access key")
			assert.Contains(t, ids, name+"/transfer")
			assert.Contains(t, ids, name+"/patch state")
			assert.Contains(t, ids, name+"/contract/call and view")
			assert.Contains(t, ids, name+"/contract/failed call")
		}
		assert.Contains(t, ids, "spooning/read copied state")
	})
}

func TestSuiteSkipsContractScenariosWithoutContract(t *testing.T) {
	withMockConfig(t, func(config Config) {
		config.ContractWasm = ""
		config.Backends = []string{backend.SandboxName}
		results := RunSuite(config, nil, nil, nil)
		requireNoFailures(t, results)

		ids := resultIDs(results.Tests)
		assert.Contains(t, ids, "sandbox/status")
		assert.NotContains(t, ids, "sandbox/contract")
		assert.NotContains(t, ids, "spooning")
		assert.NotContains(t, ids, "testnet")
	})
}

func TestSuiteFilter(t *testing.T) {
	withMockConfig(t, func(config Config) {
		var filters scenario.Filters
		require.NoError(t, filters.Run.Set("sandbox/status"))
		results := RunSuite(config, filters.Match, nil, nil)
		requireNoFailures(t, results)

		assert.Equal(t, []string{"sandbox/status", "sandbox", ""}, resultIDs(results.Tests))
	})
}

func TestTestnetFailuresAreNonCritical(t *testing.T) {
	withMockConfig(t, func(config Config) {
		config.ScopeOptions = []runner.ScopeOption{
			runner.WithLauncher(backend.TestnetName, runner.AttachedLauncher{
				Flavor:  backend.Testnet(),
				RPCAddr: "http://localhost:1",
			}),
		}
		results := RunSuite(config, nil, nil, nil)

		assert.True(t, results.OK())
		assert.Contains(t, resultIDs(results.NonCriticalFailures), "testnet")
		assert.Contains(t, resultIDs(results.NonCriticalFailures), "spooning")
	})
}

func TestSandboxFailureFailsRun(t *testing.T) {
	withMockConfig(t, func(config Config) {
		config.Backends = []string{backend.SandboxName}
		config.SandboxPort = 1
		results := RunSuite(config, nil, nil, nil)

		assert.False(t, results.OK())
		assert.Equal(t, []string{"sandbox"}, resultIDs(results.Failures))
	})
}
