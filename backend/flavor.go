package backend

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	SandboxName = "sandbox"
	TestnetName = "testnet"
	MainnetName = "mainnet"
)

const (
	// TestnetRPCURL is the public JSON-RPC endpoint of the shared test network.
	TestnetRPCURL = "https://rpc.testnet.near.org"

	// TestnetHelperURL is the account-creation helper service of the shared test network.
	TestnetHelperURL = "https://helper.testnet.near.org"

	credentialsDirName = ".near-credentials"
)

var (
	// ErrNotSupported is matched by every *UnsupportedError.
	ErrNotSupported = errors.New("not supported")

	// ErrUnknownBackend is returned when a backend name is not one of the recognized names.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrNoHomeDir is returned when the user's home directory cannot be resolved.
	ErrNoHomeDir = errors.New("could not resolve home directory")
)

func init() {
	// Tests and callers may point HOME somewhere else between scopes.
	homedir.DisableCache = true
}

// Kind identifies a backend variant.
type Kind int

const (
	KindSandbox Kind = iota + 1
	KindTestnet
	KindMainnet
)

// Flavor describes one execution target. The zero value is invalid; use Sandbox, Testnet or
// Mainnet.
type Flavor struct {
	kind Kind
	port uint16
}

// Sandbox returns the descriptor of a local sandbox node listening for RPC on port.
func Sandbox(port uint16) Flavor { return Flavor{kind: KindSandbox, port: port} }

// Testnet returns the descriptor of the shared test network.
func Testnet() Flavor { return Flavor{kind: KindTestnet} }

// Mainnet returns the descriptor of the main network. None of its capabilities are
// implemented yet.
func Mainnet() Flavor { return Flavor{kind: KindMainnet} }

// UnsupportedError reports a capability requested from a flavor that does not implement it.
type UnsupportedError struct {
	Flavor     string
	Capability string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported for backend %q", e.Capability, e.Flavor)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrNotSupported }

func (f Flavor) unsupported(capability string) error {
	return &UnsupportedError{Flavor: f.Name(), Capability: capability}
}

func (f Flavor) Kind() Kind { return f.kind }

// Port returns the RPC port of a sandbox flavor, or zero for remote flavors.
func (f Flavor) Port() uint16 { return f.port }

// IsValid returns false for the zero Flavor.
func (f Flavor) IsValid() bool { return f.kind != 0 }

func (f Flavor) Name() string {
	switch f.kind {
	case KindSandbox:
		return SandboxName
	case KindTestnet:
		return TestnetName
	case KindMainnet:
		return MainnetName
	default:
		return "invalid"
	}
}

func (f Flavor) String() string {
	if f.kind == KindSandbox {
		return fmt.Sprintf("%s(%d)", SandboxName, f.port)
	}
	return f.Name()
}

// RPCAddr returns the base URL of the flavor's JSON-RPC endpoint.
func (f Flavor) RPCAddr() (string, error) {
	switch f.kind {
	case KindSandbox:
		return fmt.Sprintf("http://localhost:%d", f.port), nil
	case KindTestnet:
		return TestnetRPCURL, nil
	default:
		return "", f.unsupported("RPC address")
	}
}

// KeystorePath returns the directory holding credential files for accounts on this flavor.
// It does not create the directory.
func (f Flavor) KeystorePath() (string, error) {
	var sub string
	switch f.kind {
	case KindSandbox:
		sub = SandboxName
	case KindTestnet:
		sub = TestnetName
	default:
		return "", f.unsupported("credential storage")
	}
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", ErrNoHomeDir, err)
	}
	return filepath.Join(home, credentialsDirName, sub) + string(filepath.Separator), nil
}

// HelperURL returns the account-creation helper service for remote flavors.
func (f Flavor) HelperURL() (*url.URL, error) {
	if f.kind != KindTestnet {
		return nil, f.unsupported("account-creation helper")
	}
	return url.Parse(TestnetHelperURL)
}

// ParseName resolves a backend name. port is used only for the sandbox flavor.
func ParseName(name string, port uint16) (Flavor, error) {
	switch name {
	case SandboxName:
		return Sandbox(port), nil
	case TestnetName:
		return Testnet(), nil
	case MainnetName:
		return Mainnet(), nil
	default:
		return Flavor{}, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
}
