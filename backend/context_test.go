package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/near/workspaces-harness/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentOutsideScope(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Current(ctx).IsDefined())

	_, err := Require(ctx)
	assert.Equal(t, ErrMissingRuntime, err)
	assert.PanicsWithValue(t, ErrMissingRuntime, func() { MustCurrent(ctx) })
	assert.False(t, Within(ctx, SandboxName, TestnetName))
}

func TestCurrentIsVisibleToNestedCalls(t *testing.T) {
	parent := context.Background()
	ctx := WithFlavor(parent, Sandbox(3030))

	nested := func(ctx context.Context) Flavor {
		inner, cancel := context.WithCancel(ctx)
		defer cancel()
		return MustCurrent(inner)
	}
	assert.Equal(t, Sandbox(3030), nested(ctx))
	assert.True(t, Within(ctx, SandboxName))
	assert.False(t, Within(ctx, TestnetName))

	assert.False(t, Current(parent).IsDefined())
}

func TestInnerScopeShadowsOuter(t *testing.T) {
	outer := WithFlavor(context.Background(), Testnet())
	inner := WithFlavor(outer, Sandbox(4040))
	assert.Equal(t, Sandbox(4040), MustCurrent(inner))
	assert.Equal(t, Testnet(), MustCurrent(outer))
}

func TestConcurrentScopesAreIsolated(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		port := uint16(3000 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithFlavor(context.Background(), Sandbox(port))
			for j := 0; j < 100; j++ {
				addr, err := MustCurrent(ctx).RPCAddr()
				assert.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("http://localhost:%d", port), addr)
			}
		}()
	}
	wg.Wait()
}

func TestLoggerFrom(t *testing.T) {
	assert.Equal(t, framework.NullLogger(), LoggerFrom(context.Background()))

	var l framework.CapturingLogger
	ctx := WithLogger(context.Background(), &l)
	LoggerFrom(ctx).Printf("hello")
	require.Len(t, l.Output(), 1)
}
