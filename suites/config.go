package suites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/exp/slices"
	yaml "gopkg.in/yaml.v3"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/runner"
)

// Config describes what a run covers. It can be loaded from a JSON or YAML file and then
// adjusted by command-line flags.
type Config struct {
	// Backends are the names of the backends to run scenarios against, in order.
	Backends []string `json:"backends"`

	// SandboxPort, if set, attaches to a sandbox node that is already listening on that port
	// instead of starting one.
	SandboxPort uint16 `json:"sandboxPort"`

	// SandboxRootKeyFile is the validator key of an attached sandbox node.
	SandboxRootKeyFile string `json:"sandboxRootKeyFile"`

	// SandboxBinary overrides the sandbox executable.
	SandboxBinary string `json:"sandboxBinary"`

	// ContractWasm is the path of the status-message contract used by the contract and
	// spooning scenarios. They are skipped if it is empty.
	ContractWasm string `json:"contractWasm"`

	// SettleDelay overrides how long the client waits after each transaction.
	SettleDelay *Duration `json:"settleDelay"`

	// ScopeOptions are added after the options derived from the fields above.
	ScopeOptions []runner.ScopeOption `json:"-"`
}

// Duration is a time.Duration written as a string such as "500ms" in configuration files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads a configuration file.
func LoadConfig(path string) (Config, error) {
	var config Config
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return config, fmt.Errorf("cannot read configuration file: %w", err)
	}
	if err := parseJSONOrYAML(data, &config); err != nil {
		return config, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the backend names.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("no backends selected")
	}
	for _, name := range c.Backends {
		if _, err := backend.ParseName(name, c.SandboxPort); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) hasBackend(name string) bool { return slices.Contains(c.Backends, name) }

func (c Config) scopeOptions() []runner.ScopeOption {
	var options []runner.ScopeOption
	switch {
	case c.SandboxPort != 0:
		options = append(options, runner.WithLauncher(backend.SandboxName, runner.AttachedLauncher{
			Flavor:      backend.Sandbox(c.SandboxPort),
			RootKeyFile: c.SandboxRootKeyFile,
		}))
	case c.SandboxBinary != "":
		options = append(options, runner.WithLauncher(backend.SandboxName, &runner.SandboxLauncher{
			BinaryPath: c.SandboxBinary,
		}))
	}
	return append(options, c.ScopeOptions...)
}

// parseJSONOrYAML unmarshals JSON, or YAML converted to JSON so that the json struct tags
// apply either way.
func parseJSONOrYAML(data []byte, target interface{}) error {
	if json.Valid(data) {
		return json.Unmarshal(data, target)
	}
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	converted, err := yamlToJSONValue(raw)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(converted)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

func yamlToJSONValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			converted, err := yamlToJSONValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			converted, err := yamlToJSONValue(item)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			s, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("YAML map key %v is not a string", key)
			}
			converted, err := yamlToJSONValue(item)
			if err != nil {
				return nil, err
			}
			out[s] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}
