package tx

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/near/borsh-go"

	"github.com/near/workspaces-harness/keys"
	"github.com/near/workspaces-harness/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T, id string) *keys.InMemorySigner {
	sk, err := keys.SecretKeyFromSeed(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	return keys.NewInMemorySigner(primitives.MustParseAccountID(id), sk)
}

func TestTransactionLayout(t *testing.T) {
	signer := testSigner(t, "ab")
	var blockHash primitives.CryptoHash
	blockHash[0] = 0xaa
	txn := Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      5,
		ReceiverID: "cd",
		BlockHash:  blockHash,
		Actions:    []Action{Transfer(primitives.Yocto(1))},
	}
	data, err := txn.encodeBody()
	require.NoError(t, err)

	expectedLen := 4 + 2 + 1 + 32 + 8 + 4 + 2 + 32 + 4 + 1 + 16
	require.Len(t, data, expectedLen)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, "ab", string(data[4:6]))
	assert.Equal(t, byte(keys.ED25519), data[6])
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(data[39:47]))
	assert.Equal(t, "cd", string(data[51:53]))
	assert.Equal(t, byte(0xaa), data[53])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[85:89]))
	assert.Equal(t, byte(actionTransfer), data[89])
	assert.Equal(t, byte(1), data[90])
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	signer := testSigner(t, "alice.test.near")
	txn := Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      1,
		ReceiverID: "bob.test.near",
		Actions: []Action{
			CreateAccount(),
			Transfer(primitives.NEAR(10)),
			AddFullAccessKey(signer.PublicKey()),
			FunctionCall("set_status", []byte(`{"message":"hi"}`), 0, primitives.Balance{}),
			DeployContract([]byte{0, 'a', 's', 'm'}),
		},
	}
	signed, err := txn.Sign(signer)
	require.NoError(t, err)

	hash, err := txn.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, signed.Hash)
	assert.True(t, signer.PublicKey().Verify(signed.Hash[:], signed.Signature))

	raw, err := base64.StdEncoding.DecodeString(signed.Base64())
	require.NoError(t, err)
	assert.Equal(t, signed.Bytes(), raw)
	body, err := txn.encodeBody()
	require.NoError(t, err)
	assert.Len(t, raw, len(body)+1+64)
}

func TestSignRejectsMismatchedKey(t *testing.T) {
	signer := testSigner(t, "alice.test.near")
	other, err := keys.GenerateSigner("alice.test.near")
	require.NoError(t, err)
	txn := Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  other.PublicKey(),
		ReceiverID: "bob.test.near",
		Actions:    []Action{Transfer(primitives.Yocto(1))},
	}
	_, err = txn.Sign(signer)
	assert.Error(t, err)
}

func TestSignRejectsEmptyTransaction(t *testing.T) {
	signer := testSigner(t, "alice.test.near")
	_, err := Transaction{SignerID: signer.AccountID(), PublicKey: signer.PublicKey()}.Sign(signer)
	assert.Error(t, err)
}

func TestFunctionCallDefaultsGas(t *testing.T) {
	a := FunctionCall("m", nil, 0, primitives.Balance{}).(FunctionCallAction)
	assert.Equal(t, DefaultFunctionCallGas, a.Gas)
	assert.Equal(t, "FunctionCall(m)", a.String())
}

func TestFunctionCallLayout(t *testing.T) {
	w, err := FunctionCall("m", []byte("{}"), 7, primitives.Yocto(0x0102)).wire()
	require.NoError(t, err)
	data, err := borsh.Serialize(w)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(actionFunctionCall),
		1, 0, 0, 0, 'm',
		2, 0, 0, 0, '{', '}',
		7, 0, 0, 0, 0, 0, 0, 0,
		0x02, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}, data)
}

func TestAddKeyLayout(t *testing.T) {
	signer := testSigner(t, "ab")
	w, err := AddFullAccessKey(signer.PublicKey()).wire()
	require.NoError(t, err)
	data, err := borsh.Serialize(w)
	require.NoError(t, err)
	require.Len(t, data, 1+1+32+8+1)
	assert.Equal(t, byte(actionAddKey), data[0])
	assert.Equal(t, signer.PublicKey().Data, data[2:34])
	assert.Equal(t, byte(permissionFullAccess), data[42])
}

func TestDecodeSignedTransaction(t *testing.T) {
	signer := testSigner(t, "alice.test.near")
	var blockHash primitives.CryptoHash
	blockHash[31] = 9
	txn := Transaction{
		SignerID:   signer.AccountID(),
		PublicKey:  signer.PublicKey(),
		Nonce:      12,
		ReceiverID: "bob.test.near",
		BlockHash:  blockHash,
		Actions: []Action{
			CreateAccount(),
			DeployContract([]byte{0, 'a', 's', 'm'}),
			FunctionCall("set_status", []byte(`{"message":"hi"}`), 0, primitives.NEAR(1)),
			Transfer(primitives.NEAR(100)),
			AddFullAccessKey(signer.PublicKey()),
			DeleteKey(signer.PublicKey()),
			DeleteAccount("carol.test.near"),
		},
	}
	signed, err := txn.Sign(signer)
	require.NoError(t, err)

	decoded, err := DecodeSignedTransaction(signed.Bytes())
	require.NoError(t, err)
	assert.Equal(t, signed.Hash, decoded.Hash)
	assert.Equal(t, signed.Signature, decoded.Signature)
	assert.Equal(t, signed.Bytes(), decoded.Bytes())
	assert.Equal(t, txn, decoded.Transaction)

	_, err = DecodeSignedTransaction(append(signed.Bytes(), 0))
	assert.Error(t, err)
	_, err = DecodeSignedTransaction(signed.Bytes()[:20])
	assert.Error(t, err)
}
