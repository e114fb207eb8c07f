package runner

import (
	"context"

	"github.com/near/workspaces-harness/keys"
)

type rootSignerKey struct{}

// WithRootSigner returns a copy of ctx in which RootSigner returns signer.
func WithRootSigner(ctx context.Context, signer keys.Signer) context.Context {
	return context.WithValue(ctx, rootSignerKey{}, signer)
}

// RootSigner returns the account that creates top-level accounts on the current backend.
// Only sandbox backends have one.
func RootSigner(ctx context.Context) (keys.Signer, error) {
	if signer, ok := ctx.Value(rootSignerKey{}).(keys.Signer); ok && signer != nil {
		return signer, nil
	}
	return nil, ErrNoRootAccount
}
