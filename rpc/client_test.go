package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/mocknear"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/tx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverPort(t *testing.T, server *httptest.Server) uint16 {
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return uint16(port)
}

func withMockNode(t *testing.T, action func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner)) {
	testLog := ldlogtest.NewMockLog()
	testLog.Loggers.SetMinLevel(ldlog.Debug)
	defer testLog.DumpIfTestFailed(t)

	node := mocknear.NewNode("sandbox", testLog.Loggers.ForLevel(ldlog.Debug))
	root, err := keys.GenerateSigner("test.near")
	require.NoError(t, err)
	node.AddAccount(root.AccountID(), root.PublicKey(), primitives.NEAR(1000))

	httphelpers.WithServer(node, func(server *httptest.Server) {
		ctx := backend.WithFlavor(context.Background(), backend.Sandbox(serverPort(t, server)))
		ctx = backend.WithLogger(ctx, testLog.Loggers.ForLevel(ldlog.Info))
		ctx = WithClientOptions(ctx, WithSettleDelay(0))
		action(ctx, node, root)
	})
}

func signTransfer(t *testing.T, ctx context.Context, signer *keys.InMemorySigner) tx.SignedTransaction {
	view, _, blockHash, err := AccessKey(ctx, signer.AccountID(), signer.PublicKey())
	require.NoError(t, err)
	signed, err := tx.Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      view.Nonce + 1,
		ReceiverID: signer.AccountID(),
		BlockHash:  blockHash,
		Actions:    []tx.Action{tx.Transfer(primitives.Yocto(1))},
	}.Sign(signer)
	require.NoError(t, err)
	return signed
}

func TestCallDecodesJSONRPCError(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		client, err := ClientFor(ctx)
		require.NoError(t, err)
		err = client.Call(ctx, "no_such_method", []interface{}{}, nil)
		var rpcErr *Error
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "no_such_method", rpcErr.Method)
		assert.Equal(t, "REQUEST_VALIDATION_ERROR", rpcErr.Name)
		assert.False(t, IsTimeout(err))
	})
}

func TestCallReportsHTTPErrorWithoutBody(t *testing.T) {
	handler := httphelpers.HandlerWithStatus(http.StatusServiceUnavailable)
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		client, err := NewClient(server.URL)
		require.NoError(t, err)
		err = client.Call(context.Background(), "status", []interface{}{}, nil)
		var statusErr *HTTPStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	})
}

func TestCallReportsConnectionFailure(t *testing.T) {
	client, err := NewClient("http://localhost:1")
	require.NoError(t, err)
	err = client.Call(context.Background(), "status", []interface{}{}, nil)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "status", transportErr.Method)
}

func TestStatusAndLatestBlock(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		client, err := ClientFor(ctx)
		require.NoError(t, err)
		status, err := client.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sandbox", status.ChainID)
		assert.False(t, status.SyncInfo.LatestBlockHash.IsZero())

		block, err := client.LatestBlock(ctx)
		require.NoError(t, err)
		assert.Equal(t, status.SyncInfo.LatestBlockHash, block.Hash)
	})
}

func TestSendTxRetriesTimeouts(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		signed := signTransfer(t, ctx, root)
		node.FailNextTransactions(3)

		outcome, err := SendTx(ctx, signed)
		require.NoError(t, err)
		assert.True(t, outcome.Status.IsSuccess())
		assert.Equal(t, 4, node.BroadcastCount())
		assert.Equal(t, signed.Hash, outcome.TransactionOutcome.ID)
	})
}

func TestSendTxDoesNotRetryOtherErrors(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		signed := signTransfer(t, ctx, root)
		_, err := SendTx(ctx, signed)
		require.NoError(t, err)

		_, err = SendTx(ctx, signed)
		require.Error(t, err)
		var rpcErr *Error
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "INVALID_TRANSACTION", rpcErr.Cause.Name)
		assert.Equal(t, 2, node.BroadcastCount())
	})
}

func TestSendTxWaitsSettleDelay(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		signed := signTransfer(t, ctx, root)
		client, err := NewClient(mustAddr(t, ctx), WithSettleDelay(200*time.Millisecond))
		require.NoError(t, err)

		start := time.Now()
		_, err = client.SendTx(ctx, signed)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	})
}

func TestSendTxSettleDelayStopsOnCancel(t *testing.T) {
	withMockNode(t, func(ctx context.Context, node *mocknear.Node, root *keys.InMemorySigner) {
		signed := signTransfer(t, ctx, root)
		client, err := NewClient(mustAddr(t, ctx), WithSettleDelay(time.Hour))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err = client.SendTx(ctx, signed)
		require.NoError(t, err)
	})
}

func TestClientForRequiresRuntime(t *testing.T) {
	_, err := ClientFor(context.Background())
	assert.ErrorIs(t, err, backend.ErrMissingRuntime)

	_, err = SendTx(context.Background(), tx.SignedTransaction{})
	assert.ErrorIs(t, err, backend.ErrMissingRuntime)
}

func TestClientForAppliesContextOptions(t *testing.T) {
	ctx := backend.WithFlavor(context.Background(), backend.Testnet())
	client, err := ClientFor(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.TestnetRPCURL, client.Addr())

	client, err = ClientFor(WithClientOptions(ctx, WithAddr("http://localhost:9999")))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", client.Addr())
}

func mustAddr(t *testing.T, ctx context.Context) string {
	client, err := ClientFor(ctx)
	require.NoError(t, err)
	return client.Addr()
}
