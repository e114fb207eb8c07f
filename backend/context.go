package backend

import (
	"context"
	"errors"

	"golang.org/x/exp/slices"

	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/opt"
)

// ErrMissingRuntime means code that needs the current backend was called outside of any
// scope. It is a setup mistake in the calling test, never a transient condition.
var ErrMissingRuntime = errors.New("no backend runtime is active; use runner.WithSandbox or runner.WithTestnet")

type flavorKey struct{}

type loggerKey struct{}

// WithFlavor returns a copy of ctx in which f is the current backend. Work given the
// returned context, and everything it calls with it, resolves f; the parent is unaffected.
func WithFlavor(ctx context.Context, f Flavor) context.Context {
	return context.WithValue(ctx, flavorKey{}, f)
}

// Current returns the backend installed in ctx, if any.
func Current(ctx context.Context) opt.Maybe[Flavor] {
	if f, ok := ctx.Value(flavorKey{}).(Flavor); ok && f.IsValid() {
		return opt.Some(f)
	}
	return opt.None[Flavor]()
}

// Require is like Current but returns ErrMissingRuntime if there is no active backend.
func Require(ctx context.Context) (Flavor, error) {
	if f, ok := Current(ctx).Get(); ok {
		return f, nil
	}
	return Flavor{}, ErrMissingRuntime
}

// MustCurrent is like Require but panics with ErrMissingRuntime.
func MustCurrent(ctx context.Context) Flavor {
	f, err := Require(ctx)
	if err != nil {
		panic(err)
	}
	return f
}

// Within reports whether the current backend is one of the named ones. It returns false
// outside of any scope.
func Within(ctx context.Context, names ...string) bool {
	f, ok := Current(ctx).Get()
	return ok && slices.Contains(names, f.Name())
}

// WithLogger attaches the logger used by helpers called within ctx.
func WithLogger(ctx context.Context, logger framework.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger attached to ctx, or a null logger.
func LoggerFrom(ctx context.Context) framework.Logger {
	if l, ok := ctx.Value(loggerKey{}).(framework.Logger); ok && l != nil {
		return l
	}
	return framework.NullLogger()
}
