package suites

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/workspaces-harness/backend"
)

func TestLoadConfig(t *testing.T) {
	for _, p := range []struct {
		desc, fileName, content string
	}{
		{"JSON", "config.json", `{"backends":["sandbox","testnet"],"sandboxPort":3030,` +
			`"contractWasm":"res/status_message.wasm","settleDelay":"500ms"}`},
		{"YAML", "config.yaml", `---
backends:
  - sandbox
  - testnet
sandboxPort: 3030
contractWasm: res/status_message.wasm
settleDelay: 500ms
`},
	} {
		t.Run(p.desc, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), p.fileName)
			require.NoError(t, os.WriteFile(path, []byte(p.content), 0o600))

			config, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"sandbox", "testnet"}, config.Backends)
			assert.Equal(t, uint16(3030), config.SandboxPort)
			assert.Equal(t, "res/status_message.wasm", config.ContractWasm)
			require.NotNil(t, config.SettleDelay)
			assert.Equal(t, 500*time.Millisecond, time.Duration(*config.SettleDelay))
			assert.NoError(t, config.Validate())
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settleDelay: soon\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestYAMLAnchorsAreResolved(t *testing.T) {
	input := `---
common: &common
  sandboxPort: 3030
config:
  <<: *common
  backends: [sandbox]
`
	var out struct {
		Config Config `json:"config"`
	}
	require.NoError(t, parseJSONOrYAML([]byte(input), &out))
	assert.Equal(t, uint16(3030), out.Config.SandboxPort)
	assert.Equal(t, []string{"sandbox"}, out.Config.Backends)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.ErrorIs(t, Config{Backends: []string{"devnet"}}.Validate(), backend.ErrUnknownBackend)
	assert.NoError(t, Config{Backends: []string{"mainnet"}}.Validate())
}

func TestHasBackend(t *testing.T) {
	c := Config{Backends: []string{backend.TestnetName}}
	assert.True(t, c.hasBackend(backend.TestnetName))
	assert.False(t, c.hasBackend(backend.SandboxName))
	assert.False(t, Config{}.hasBackend(backend.SandboxName))
}
