package workspaces

import (
	"context"

	"github.com/near/workspaces-harness/runner"
)

// WithSandbox runs task against a fresh local sandbox node. See runner.Scope.
func WithSandbox[T any](ctx context.Context, task func(context.Context) (T, error), options ...runner.ScopeOption) (T, error) {
	return runner.WithSandbox(ctx, task, options...)
}

// WithTestnet runs task against the public test network. See runner.Scope.
func WithTestnet[T any](ctx context.Context, task func(context.Context) (T, error), options ...runner.ScopeOption) (T, error) {
	return runner.WithTestnet(ctx, task, options...)
}
