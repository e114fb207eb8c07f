package runner

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/helpers"
)

type scopeConfig struct {
	launchers map[string]Launcher
	logger    framework.Logger
}

// ScopeOption configures a call to Scope.
type ScopeOption helpers.ConfigOption[scopeConfig]

// WithLauncher replaces the launcher used for the backend called name.
func WithLauncher(name string, launcher Launcher) ScopeOption {
	return helpers.ConfigOptionFunc[scopeConfig](func(c *scopeConfig) error {
		c.launchers[name] = launcher
		return nil
	})
}

// WithLogger sets the logger that the scope reports to and that tasks find with
// backend.LoggerFrom.
func WithLogger(logger framework.Logger) ScopeOption {
	return helpers.ConfigOptionFunc[scopeConfig](func(c *scopeConfig) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	})
}

func defaultLaunchers() map[string]Launcher {
	return map[string]Launcher{
		backend.SandboxName: &SandboxLauncher{},
		backend.TestnetName: TestnetLauncher(),
		backend.MainnetName: unsupportedLauncher(backend.MainnetName, "scoped runtime"),
	}
}

// isNilLauncher also catches a nil pointer or func stored in the interface.
func isNilLauncher(l Launcher) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

type scopeResult[T any] struct {
	value T
	err   error
}

// Scope starts the backend called name, runs task with that backend current in its
// context, stops the backend, and returns what task returned.
//
// The backend and the task run on their own goroutine, locked to an OS thread that is
// discarded afterward; the caller only waits for the outcome. A panic in either is
// returned as an *AbortError, as is a task that ends its goroutine with runtime.Goexit.
func Scope[T any](
	ctx context.Context,
	name string,
	task func(context.Context) (T, error),
	options ...ScopeOption,
) (T, error) {
	var zero T
	config := scopeConfig{launchers: defaultLaunchers(), logger: framework.NullLogger()}
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return zero, err
	}
	launcher, ok := config.launchers[name]
	if !ok || isNilLauncher(launcher) {
		return zero, fmt.Errorf("%w %q", backend.ErrUnknownBackend, name)
	}

	done := make(chan scopeResult[T], 1)
	go func() {
		// Never unlocked, so the thread exits along with this goroutine.
		runtime.LockOSThread()
		returned := false
		defer func() {
			if returned {
				return
			}
			r := recover()
			if r == nil {
				r = errTaskExited
			}
			config.logger.Printf("%s scope aborted: %v", name, r)
			done <- scopeResult[T]{err: &AbortError{Backend: name, Value: r, Stack: debug.Stack()}}
		}()
		value, err := runScope(ctx, name, launcher, task, config.logger)
		returned = true
		done <- scopeResult[T]{value: value, err: err}
	}()
	result := <-done
	return result.value, result.err
}

func runScope[T any](
	ctx context.Context,
	name string,
	launcher Launcher,
	task func(context.Context) (T, error),
	logger framework.Logger,
) (value T, err error) {
	logger.Printf("Starting %s backend", name)
	inst, err := launcher.Launch(ctx)
	if err != nil {
		return value, fmt.Errorf("failed to start %s backend: %w", name, err)
	}
	defer func() {
		if stopErr := inst.Stop(); stopErr != nil {
			logger.Printf("Failed to stop %s backend: %s", name, stopErr)
			if err == nil {
				err = fmt.Errorf("failed to stop %s backend: %w", name, stopErr)
			}
		}
	}()

	scoped := backend.WithLogger(backend.WithFlavor(ctx, inst.Flavor()), logger)
	if provider, ok := inst.(ContextProvider); ok {
		scoped = provider.ScopeContext(scoped)
	}
	logger.Printf("Running task against %s", inst.Flavor())
	return task(scoped)
}

// WithSandbox runs task in a scope with a fresh local sandbox node.
func WithSandbox[T any](ctx context.Context, task func(context.Context) (T, error), options ...ScopeOption) (T, error) {
	return Scope(ctx, backend.SandboxName, task, options...)
}

// WithTestnet runs task in a scope connected to the public test network.
func WithTestnet[T any](ctx context.Context, task func(context.Context) (T, error), options ...ScopeOption) (T, error) {
	return Scope(ctx, backend.TestnetName, task, options...)
}
