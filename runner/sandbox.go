package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/helpers"
	"github.com/near/workspaces-harness/keys"
)

const (
	// SandboxBinEnvVar names the environment variable that overrides the sandbox binary.
	SandboxBinEnvVar = "NEAR_SANDBOX_BIN_PATH"

	// DefaultSandboxStartTimeout is how long SandboxLauncher waits for a new node to answer
	// status queries.
	DefaultSandboxStartTimeout = 60 * time.Second

	defaultSandboxBinary = "near-sandbox"
	sandboxPollInterval  = 500 * time.Millisecond
	validatorKeyFile     = "validator_key.json"
)

// SandboxLauncher starts a local sandbox node in a temporary home directory. The node's
// validator account becomes the scope's root account.
type SandboxLauncher struct {
	// BinaryPath defaults to $NEAR_SANDBOX_BIN_PATH, then near-sandbox on the PATH.
	BinaryPath string

	// StartTimeout defaults to DefaultSandboxStartTimeout.
	StartTimeout time.Duration

	// Output receives the node's stdout and stderr. Nil discards them.
	Output io.Writer
}

type sandboxInstance struct {
	instance
	home     string
	cmd      *exec.Cmd
	exited   chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func (l *SandboxLauncher) binary() (string, error) {
	bin := helpers.FirstNonZero(l.BinaryPath, os.Getenv(SandboxBinEnvVar))
	if bin != "" {
		return bin, nil
	}
	path, err := exec.LookPath(defaultSandboxBinary)
	if err != nil {
		return "", fmt.Errorf("sandbox binary not found; install %s or set %s: %w",
			defaultSandboxBinary, SandboxBinEnvVar, err)
	}
	return path, nil
}

func (l *SandboxLauncher) Launch(ctx context.Context) (Instance, error) {
	bin, err := l.binary()
	if err != nil {
		return nil, err
	}
	rpcPort, err := freePort()
	if err != nil {
		return nil, err
	}
	netPort, err := freePort()
	if err != nil {
		return nil, err
	}
	home, err := os.MkdirTemp("", "sandbox-")
	if err != nil {
		return nil, err
	}
	output := l.Output
	if output == nil {
		output = io.Discard
	}

	initCmd := exec.CommandContext(ctx, bin, "--home", home, "init")
	initCmd.Stdout, initCmd.Stderr = output, output
	if err := initCmd.Run(); err != nil {
		_ = os.RemoveAll(home)
		return nil, fmt.Errorf("sandbox init failed: %w", err)
	}

	cmd := exec.Command(bin, "--home", home, "run", //nolint:gosec
		"--rpc-addr", fmt.Sprintf("0.0.0.0:%d", rpcPort),
		"--network-addr", fmt.Sprintf("0.0.0.0:%d", netPort))
	cmd.Stdout, cmd.Stderr = output, output
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(home)
		return nil, fmt.Errorf("sandbox failed to start: %w", err)
	}

	inst := &sandboxInstance{
		instance: instance{flavor: backend.Sandbox(rpcPort)},
		home:     home,
		cmd:      cmd,
		exited:   make(chan struct{}),
	}
	inst.instance.stop = inst.kill
	go func() {
		_ = cmd.Wait()
		close(inst.exited)
	}()

	addr, _ := inst.flavor.RPCAddr()
	timeout := helpers.FirstNonZero(l.StartTimeout, DefaultSandboxStartTimeout)
	err = helpers.PollUntil(ctx, func(ctx context.Context) error {
		select {
		case <-inst.exited:
			return errors.New("sandbox process exited")
		default:
		}
		return checkStatus(ctx, addr, sandboxPollInterval)
	}, timeout, sandboxPollInterval)
	if err != nil {
		_ = inst.Stop()
		return nil, fmt.Errorf("sandbox did not become ready: %w", err)
	}

	root, err := keys.ReadSignerFile(filepath.Join(home, validatorKeyFile))
	if err != nil {
		_ = inst.Stop()
		return nil, fmt.Errorf("failed to load sandbox validator key: %w", err)
	}
	inst.root = root
	return inst, nil
}

func (s *sandboxInstance) kill() error {
	s.stopOnce.Do(func() {
		select {
		case <-s.exited:
		default:
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.stopErr = err
			}
			<-s.exited
		}
		if err := os.RemoveAll(s.home); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
	})
	return s.stopErr
}

func freePort() (uint16, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("could not find a free port: %w", err)
	}
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port), nil
}
