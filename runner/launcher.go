package runner

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/rpc"
)

// DefaultStatusTimeout is how long a launcher waits for an existing backend to answer a
// status query.
const DefaultStatusTimeout = 10 * time.Second

// Launcher starts, or connects to, one backend for the duration of a scope.
type Launcher interface {
	Launch(ctx context.Context) (Instance, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Instance, error)

func (f LauncherFunc) Launch(ctx context.Context) (Instance, error) { return f(ctx) }

// Instance is a running backend.
type Instance interface {
	Flavor() backend.Flavor
	Stop() error
}

// ContextProvider is implemented by instances that attach more values than the flavor to
// the context of the scope, such as a root account or endpoint overrides.
type ContextProvider interface {
	ScopeContext(ctx context.Context) context.Context
}

type instance struct {
	flavor    backend.Flavor
	rpcAddr   string
	helperURL *url.URL
	root      keys.Signer
	stop      func() error
}

func (i *instance) Flavor() backend.Flavor { return i.flavor }

func (i *instance) Stop() error {
	if i.stop == nil {
		return nil
	}
	return i.stop()
}

func (i *instance) ScopeContext(ctx context.Context) context.Context {
	if i.rpcAddr != "" {
		ctx = rpc.WithClientOptions(ctx, rpc.WithAddr(i.rpcAddr))
	}
	if i.helperURL != nil {
		ctx = rpc.WithHelperURL(ctx, i.helperURL)
	}
	if i.root != nil {
		ctx = WithRootSigner(ctx, i.root)
	}
	return ctx
}

// AttachedLauncher connects to a backend that is already running, such as a remote network
// or a sandbox node started outside of the harness. Stopping the instance leaves the
// backend running.
type AttachedLauncher struct {
	Flavor backend.Flavor

	// RPCAddr overrides the flavor's usual endpoint.
	RPCAddr string

	// HelperURL overrides the flavor's account-creation helper.
	HelperURL *url.URL

	// RootSigner, or else the credentials in RootKeyFile, is used to create top-level
	// accounts on backends that have no helper service.
	RootSigner  keys.Signer
	RootKeyFile string

	// StatusTimeout defaults to DefaultStatusTimeout.
	StatusTimeout time.Duration
}

func (l AttachedLauncher) Launch(ctx context.Context) (Instance, error) {
	inst := &instance{flavor: l.Flavor, rpcAddr: l.RPCAddr, helperURL: l.HelperURL, root: l.RootSigner}
	if inst.root == nil && l.RootKeyFile != "" {
		signer, err := keys.ReadSignerFile(l.RootKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load root account key: %w", err)
		}
		inst.root = signer
	}

	addr := l.RPCAddr
	if addr == "" {
		var err error
		if addr, err = l.Flavor.RPCAddr(); err != nil {
			return nil, err
		}
	}
	timeout := l.StatusTimeout
	if timeout <= 0 {
		timeout = DefaultStatusTimeout
	}
	if err := checkStatus(ctx, addr, timeout); err != nil {
		return nil, fmt.Errorf("%s backend at %s is not reachable: %w", l.Flavor.Name(), addr, err)
	}
	return inst, nil
}

// TestnetLauncher connects to the public test network.
func TestnetLauncher() Launcher {
	return AttachedLauncher{Flavor: backend.Testnet()}
}

func unsupportedLauncher(name, capability string) Launcher {
	return LauncherFunc(func(context.Context) (Instance, error) {
		return nil, &backend.UnsupportedError{Flavor: name, Capability: capability}
	})
}

func checkStatus(ctx context.Context, addr string, timeout time.Duration) error {
	client, err := rpc.NewClient(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err = client.Status(ctx)
	return err
}
