package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimchat/dim-go/types"
)

func TestAESRoundTrip(t *testing.T) {
	key := GenerateAESKey()
	extra := types.StringKeyMap{}
	ciphertext := key.Encrypt([]byte("hello, world"), extra)
	assert.NotEmpty(t, extra["IV"])

	plaintext, err := key.Decrypt(ciphertext, extra)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(plaintext))
}

func TestAESMissingIVDefaultsToZero(t *testing.T) {
	key := GenerateAESKey()
	ciphertext := key.Encrypt([]byte("no iv tracked"), nil)
	// decrypting without an IV must behave exactly like decrypting with an
	// explicit all-zero IV
	zeroIV := types.StringKeyMap{"IV": Base64Encode(make([]byte, aesIVSize))}
	withoutIV, errWithout := key.Decrypt(ciphertext, nil)
	withZeroIV, errZero := key.Decrypt(ciphertext, zeroIV)
	assert.Equal(t, errZero, errWithout)
	assert.Equal(t, withZeroIV, withoutIV)
}

func TestAESMatchEncryptKey(t *testing.T) {
	key := GenerateAESKey()
	other := GenerateAESKey()
	assert.True(t, key.MatchEncryptKey(key))
	assert.False(t, key.MatchEncryptKey(other))
}

func TestPlainKeyIsIdentity(t *testing.T) {
	plain := GetPlainKey()
	data := []byte("broadcast payload")
	ciphertext := plain.Encrypt(data, nil)
	assert.Equal(t, data, ciphertext)

	plaintext, err := plain.Decrypt(ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, data, plaintext)
}

func TestRSASignVerifyAndEncryptDecrypt(t *testing.T) {
	priv, err := GenerateRSAPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey()

	signature := priv.Sign([]byte("message"))
	assert.True(t, pub.Verify([]byte("message"), signature))
	assert.False(t, pub.Verify([]byte("tampered"), signature))

	ciphertext, err := pub.(EncryptKey).Encrypt([]byte("secret"))
	require.NoError(t, err)
	plaintext, err := priv.(DecryptKey).Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plaintext))
}

func TestRSAParseRoundTrip(t *testing.T) {
	priv, err := GenerateRSAPrivateKey()
	require.NoError(t, err)

	parsedPriv, err := ParseRSAPrivateKey(priv.GetMap(true))
	require.NoError(t, err)
	signature := parsedPriv.Sign([]byte("x"))
	assert.True(t, priv.PublicKey().Verify([]byte("x"), signature))

	parsedPub, err := ParseRSAPublicKey(priv.PublicKey().GetMap(true))
	require.NoError(t, err)
	assert.True(t, parsedPub.Verify([]byte("x"), signature))
}

func TestECCSignVerify(t *testing.T) {
	priv, err := GenerateECCPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey()

	signature := priv.Sign([]byte("message"))
	assert.True(t, pub.Verify([]byte("message"), signature))
	assert.False(t, pub.Verify([]byte("other"), signature))
}

func TestECCParsePublicKeyCompressedAndUncompressed(t *testing.T) {
	priv, err := GenerateECCPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey().(*ECCPublicKey)

	uncompressed, err := ParseECCPublicKey(types.StringKeyMap{
		"algorithm": ECC,
		"data":      Base64Encode(pub.Data()),
	})
	require.NoError(t, err)
	signature := priv.Sign([]byte("y"))
	assert.True(t, uncompressed.Verify([]byte("y"), signature))

	compressed, err := ParseECCPublicKey(types.StringKeyMap{
		"algorithm": ECC,
		"data":      Base64Encode(pub.CompressedBytes()),
	})
	require.NoError(t, err)
	assert.True(t, compressed.Verify([]byte("y"), signature))
}

func TestFactoryGenerateAndParseSymmetricKey(t *testing.T) {
	key, err := GenerateSymmetricKey(AES)
	require.NoError(t, err)
	parsed, err := ParseSymmetricKey(key.GetMap(true))
	require.NoError(t, err)
	assert.Equal(t, key.Data(), parsed.Data())
}

func TestFactoryLegacyAlgorithmAlias(t *testing.T) {
	assert.Equal(t, AES, CanonicalAlgorithm("aes"))
	assert.Equal(t, AES, CanonicalAlgorithm("1"))
	assert.Equal(t, RSA, CanonicalAlgorithm("rsa"))
	assert.Equal(t, ECC, CanonicalAlgorithm("ecc"))
}

func TestFactoryParsePlainKey(t *testing.T) {
	key, err := ParseSymmetricKey(types.StringKeyMap{"algorithm": PlainKeyAlgorithm})
	require.NoError(t, err)
	_, isPlain := key.(*PlainKey)
	assert.True(t, isPlain)
}

func TestDigests(t *testing.T) {
	data := []byte("dimchat")
	assert.Len(t, SHA256(data), 32)
	assert.Len(t, RIPEMD160(data), 20)
	assert.Len(t, KECCAK256(data), 32)
	assert.Len(t, RIPEMD160SHA256(data), 20)
	assert.Len(t, DoubleSHA256(data), 32)
}

func TestBase58RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0xFF}
	encoded := Base58Encode(data)
	decoded, err := Base58Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}
