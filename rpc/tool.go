package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"
	"github.com/near/workspaces-harness/tx"
)

const (
	devAccountPrefix    = "dev"
	devAccountTimestamp = "20060102150405"
	devSuffixMin        = 10000000000000
	devSuffixMax        = 99999999999999
)

// AccessKey queries the nonce and permission of publicKey on accountID at the latest final
// block of the current backend, and the block it was observed at. It does not retry; a
// stale nonce is for the caller to handle.
func AccessKey(
	ctx context.Context,
	accountID primitives.AccountID,
	publicKey keys.PublicKey,
) (AccessKeyView, primitives.BlockHeight, primitives.CryptoHash, error) {
	client, err := ClientFor(ctx)
	if err != nil {
		return AccessKeyView{}, 0, primitives.CryptoHash{}, err
	}
	view, ref, err := client.AccessKey(ctx, accountID, publicKey)
	if err != nil {
		return AccessKeyView{}, 0, primitives.CryptoHash{},
			fmt.Errorf("failed to fetch access key %s of %s: %w", publicKey, accountID, err)
	}
	return view, ref.BlockHeight, ref.BlockHash, nil
}

// SendTx submits signed to the current backend. See Client.SendTx for the retry policy.
func SendTx(ctx context.Context, signed tx.SignedTransaction) (FinalExecutionOutcome, error) {
	client, err := ClientFor(ctx)
	if err != nil {
		return FinalExecutionOutcome{}, err
	}
	return client.SendTx(ctx, signed)
}

// CredentialsFilepath returns where the credentials of accountID are stored for the current
// backend, creating the containing directory if needed. It does not touch the file itself.
func CredentialsFilepath(ctx context.Context, accountID primitives.AccountID) (string, error) {
	flavor, err := backend.Require(ctx)
	if err != nil {
		return "", err
	}
	dir, err := flavor.KeystorePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, accountID.String()+".json"), nil
}

// RandomAccountID returns an account ID of the form dev-<UTC timestamp>-<14 digits>, which
// is unique enough to isolate test runs from each other.
func RandomAccountID() (primitives.AccountID, error) {
	suffix := devSuffixMin + rand.Int64N(devSuffixMax-devSuffixMin)
	s := fmt.Sprintf("%s-%s-%d", devAccountPrefix, time.Now().UTC().Format(devAccountTimestamp), suffix)
	id, err := primitives.ParseAccountID(s)
	if err != nil {
		return "", fmt.Errorf("could not generate dev account: %w", err)
	}
	return id, nil
}

type helperURLKey struct{}

// WithHelperURL returns a copy of ctx in which HelperURLFor returns u instead of the
// backend's own helper service.
func WithHelperURL(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, helperURLKey{}, u)
}

// HelperURLFor returns the account-creation helper service for the current backend.
func HelperURLFor(ctx context.Context) (*url.URL, error) {
	if u, ok := ctx.Value(helperURLKey{}).(*url.URL); ok && u != nil {
		return u, nil
	}
	flavor, err := backend.Require(ctx)
	if err != nil {
		return nil, err
	}
	return flavor.HelperURL()
}

// URLCreateAccount asks an account-creation helper service to create accountID with
// publicKey as its full-access key. It uses the HTTP client set with WithClientOptions, if any.
func URLCreateAccount(
	ctx context.Context,
	helperURL *url.URL,
	accountID primitives.AccountID,
	publicKey keys.PublicKey,
) error {
	endpoint := helperURL.JoinPath("account")
	body, err := json.Marshal(map[string]string{
		"newAccountId":        accountID.String(),
		"newAccountPublicKey": publicKey.String(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	httpClient, err := httpClientFor(ctx)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create account %s via %s: %w", accountID, endpoint, err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to create account %s via %s: %w", accountID, endpoint,
			&HTTPStatusError{Status: resp.StatusCode, Body: string(respBody)})
	}
	return nil
}

// ViewState returns the storage of accountID on the current backend as a map from key to
// raw value. Only keys starting with prefix are returned.
func ViewState(ctx context.Context, accountID primitives.AccountID, prefix []byte) (map[string][]byte, error) {
	client, err := ClientFor(ctx)
	if err != nil {
		return nil, err
	}
	items, _, err := client.ViewState(ctx, accountID, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to view state of %s: %w", accountID, err)
	}
	return IntoStateMap(items)
}

// PatchState overwrites one storage record of accountID. Only sandbox backends support it.
func PatchState(ctx context.Context, accountID primitives.AccountID, key, value []byte) error {
	if !backend.Within(ctx, backend.SandboxName) {
		flavor, err := backend.Require(ctx)
		if err != nil {
			return err
		}
		return &backend.UnsupportedError{Flavor: flavor.Name(), Capability: "state patching"}
	}
	client, err := ClientFor(ctx)
	if err != nil {
		return err
	}
	if err := client.PatchState(ctx, []StateRecord{{AccountID: accountID, Key: key, Value: value}}); err != nil {
		return fmt.Errorf("failed to patch state of %s: %w", accountID, err)
	}
	return nil
}
