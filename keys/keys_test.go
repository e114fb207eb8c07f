package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/near/workspaces-harness/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedKey(t *testing.T) SecretKey {
	sk, err := SecretKeyFromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return sk
}

func TestKeyTextRoundTrip(t *testing.T) {
	sk := fixedKey(t)
	pk := sk.PublicKey()

	parsedPK, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	assert.True(t, pk.Equal(parsedPK))

	parsedSK, err := ParseSecretKey(sk.String())
	require.NoError(t, err)
	assert.Equal(t, sk, parsedSK)
}

func TestParsePublicKeyErrors(t *testing.T) {
	_, err := ParsePublicKey("secp256k1:abc")
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)

	_, err = ParsePublicKey("ed25519:0OIl")
	assert.Error(t, err)

	_, err = ParsePublicKey("ed25519:3yZe7d")
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	sk := fixedKey(t)
	sig := sk.Sign([]byte("message"))
	assert.Len(t, sig.Data, 64)
	assert.True(t, sk.PublicKey().Verify([]byte("message"), sig))
	assert.False(t, sk.PublicKey().Verify([]byte("other"), sig))
}

func TestGeneratedKeysDiffer(t *testing.T) {
	a, err := GenerateSecretKey()
	require.NoError(t, err)
	b, err := GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), b.String())
}

func TestCredentialFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice.test.near.json")
	signer := NewInMemorySigner(primitives.MustParseAccountID("alice.test.near"), fixedKey(t))
	require.NoError(t, signer.WriteFile(path))

	loaded, err := ReadSignerFile(path)
	require.NoError(t, err)
	assert.Equal(t, signer.AccountID(), loaded.AccountID())
	assert.True(t, signer.PublicKey().Equal(loaded.PublicKey()))
}

func TestReadNodeKeyFile(t *testing.T) {
	sk := fixedKey(t)
	path := filepath.Join(t.TempDir(), "validator_key.json")
	content := `{"account_id":"test.near","public_key":"` + sk.PublicKey().String() +
		`","private_key":"` + sk.String() + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := ReadSignerFile(path)
	require.NoError(t, err)
	assert.Equal(t, primitives.AccountID("test.near"), loaded.AccountID())
}

func TestReadSignerFileRejectsMismatchedKeys(t *testing.T) {
	other, err := GenerateSecretKey()
	require.NoError(t, err)
	sk := fixedKey(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	content := `{"account_id":"bob.near","public_key":"` + other.PublicKey().String() +
		`","secret_key":"` + sk.String() + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err = ReadSignerFile(path)
	assert.Error(t, err)
}
