package rpc

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/near/workspaces-harness/backend"
	h "github.com/near/workspaces-harness/framework/helpers"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/mocknear"
	"github.com/near/workspaces-harness/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomAccountID(t *testing.T) {
	seen := make(map[primitives.AccountID]bool)
	for i := 0; i < 1000; i++ {
		id, err := RandomAccountID()
		require.NoError(t, err)
		parts := strings.Split(id.String(), "-")
		require.Len(t, parts, 3)
		assert.Equal(t, "dev", parts[0])
		assert.Len(t, parts[1], len(devAccountTimestamp))
		assert.Len(t, parts[2], 14)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCredentialsFilepath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	for _, flavor := range []backend.Flavor{backend.Sandbox(3030), backend.Testnet()} {
		t.Run(flavor.Name(), func(t *testing.T) {
			ctx := backend.WithFlavor(context.Background(), flavor)
			path, err := CredentialsFilepath(ctx, "dev-1.test.near")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(home, ".near-credentials", flavor.Name(), "dev-1.test.near.json"), path)
			assert.DirExists(t, filepath.Dir(path))
			assert.NoFileExists(t, path)
		})
	}

	_, err := CredentialsFilepath(context.Background(), "dev-1.test.near")
	assert.ErrorIs(t, err, backend.ErrMissingRuntime)

	_, err = CredentialsFilepath(backend.WithFlavor(context.Background(), backend.Mainnet()), "dev-1.test.near")
	assert.ErrorIs(t, err, backend.ErrNotSupported)
}

func TestAccessKey(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		view, height, hash, err := AccessKey(ctx, root.AccountID(), root.PublicKey())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), view.Nonce)
		assert.True(t, view.Permission.FullAccess)
		assert.Equal(t, primitives.BlockHeight(1), height)
		assert.False(t, hash.IsZero())

		other, err := keys.GenerateSigner("test.near")
		require.NoError(t, err)
		_, _, _, err = AccessKey(ctx, root.AccountID(), other.PublicKey())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "test.near")
		assert.Contains(t, err.Error(), "UNKNOWN_ACCESS_KEY")
	})
}

func TestURLCreateAccount(t *testing.T) {
	node := mocknear.NewNode("testnet", nil)
	helper := mocknear.NewHelperService(node, nil)
	signer, err := keys.GenerateSigner("dev-20240101000000-12345678901234")
	require.NoError(t, err)

	httphelpers.WithServer(helper, func(server *httptest.Server) {
		helperURL, err := url.Parse(server.URL)
		require.NoError(t, err)
		require.NoError(t, URLCreateAccount(context.Background(), helperURL, signer.AccountID(), signer.PublicKey()))

		req := h.RequireValue(t, helper.Requests(), time.Second)
		assert.Equal(t, signer.AccountID().String(), req.NewAccountID)
		assert.Equal(t, signer.PublicKey().String(), req.NewAccountPublicKey)

		err = URLCreateAccount(context.Background(), helperURL, signer.AccountID(), signer.PublicKey())
		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 409, statusErr.Status)
	})
	_, ok := node.Account(signer.AccountID())
	assert.True(t, ok)
}

func TestURLCreateAccountUsesContextHTTPClient(t *testing.T) {
	node := mocknear.NewNode("testnet", nil)
	helper := mocknear.NewHelperService(node, nil)
	signer, err := keys.GenerateSigner("dev-20240101000000-12345678901234")
	require.NoError(t, err)

	// The host does not resolve; only the handler-backed client can reach the helper.
	helperURL, err := url.Parse("http://helper.invalid")
	require.NoError(t, err)
	ctx := WithClientOptions(context.Background(), WithHTTPClient(httphelpers.ClientFromHandler(helper)))
	require.NoError(t, URLCreateAccount(ctx, helperURL, signer.AccountID(), signer.PublicKey()))

	req := h.RequireValue(t, helper.Requests(), time.Second)
	assert.Equal(t, signer.AccountID().String(), req.NewAccountID)
	_, ok := node.Account(signer.AccountID())
	assert.True(t, ok)
}

func TestHelperURLFor(t *testing.T) {
	ctx := backend.WithFlavor(context.Background(), backend.Testnet())
	u, err := HelperURLFor(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.TestnetHelperURL, u.String())

	_, err = HelperURLFor(backend.WithFlavor(context.Background(), backend.Sandbox(3030)))
	assert.ErrorIs(t, err, backend.ErrNotSupported)

	override, _ := url.Parse("http://localhost:1234")
	u, err = HelperURLFor(WithHelperURL(backend.WithFlavor(context.Background(), backend.Sandbox(3030)), override))
	require.NoError(t, err)
	assert.Equal(t, override, u)
}

func TestViewAndPatchState(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		require.NoError(t, PatchState(ctx, root.AccountID(), []byte("STATE"), []byte("value")))
		node.SetState(root.AccountID(), "other", []byte("x"))

		state, err := ViewState(ctx, root.AccountID(), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"STATE": []byte("value"), "other": []byte("x")}, state)

		state, err = ViewState(ctx, root.AccountID(), []byte("ST"))
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"STATE": []byte("value")}, state)
	})
}

func TestPatchStateOutsideSandbox(t *testing.T) {
	ctx := backend.WithFlavor(context.Background(), backend.Testnet())
	err := PatchState(ctx, "dev-1.testnet", []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, backend.ErrNotSupported)

	err = PatchState(context.Background(), "dev-1.testnet", []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, backend.ErrMissingRuntime)
}

func TestIntoStateMap(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString
	state, err := IntoStateMap([]StateItem{
		{Key: enc([]byte("a")), Value: enc([]byte{0, 1, 2})},
		{Key: enc([]byte("b")), Value: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": {0, 1, 2}, "b": {}}, state)

	back, err := IntoStateMap(FromStateMap(state))
	require.NoError(t, err)
	assert.Equal(t, state, back)

	t.Run("invalid base64 key", func(t *testing.T) {
		_, err := IntoStateMap([]StateItem{{Key: "!!", Value: ""}})
		assert.Error(t, err)
	})
	t.Run("invalid base64 value", func(t *testing.T) {
		_, err := IntoStateMap([]StateItem{{Key: enc([]byte("a")), Value: "!!"}})
		assert.Error(t, err)
	})
	t.Run("key not UTF-8", func(t *testing.T) {
		_, err := IntoStateMap([]StateItem{{Key: enc([]byte{0xff, 0xfe}), Value: ""}})
		assert.Error(t, err)
	})
	t.Run("colliding keys keep the last entry", func(t *testing.T) {
		// "YR==" has non-zero padding bits and decodes to "a" like "YQ==".
		state, err := IntoStateMap([]StateItem{
			{Key: "YQ==", Value: "AQ=="},
			{Key: "YR==", Value: "Ag=="},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"a": {2}}, state)
	})
	t.Run("empty", func(t *testing.T) {
		state, err := IntoStateMap(nil)
		require.NoError(t, err)
		assert.Empty(t, state)
	})
}
