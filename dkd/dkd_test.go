package dkd

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/mkm"
)

func mustID(t *testing.T, name string, network mkm.NetworkType) mkm.ID {
	t.Helper()
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	meta, err := mkm.GenerateMeta(mkm.MKMType, priv, name)
	require.NoError(t, err)
	addr := meta.GenerateAddress(network)
	return mkm.NewID(name, addr, "")
}

func TestEncryptDecryptSignVerifyRoundTrip(t *testing.T) {
	sender := mustID(t, "sender", mkm.MAIN)
	receiver := mustID(t, "receiver", mkm.MAIN)

	senderSignKey, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	receiverKeyPair, err := crypto.GenerateRSAPrivateKey()
	require.NoError(t, err)

	envelope := NewEnvelope(sender, receiver)
	content := NewContent(TextContent)
	content.Set("text", "hello")
	instant := NewInstantMessage(envelope, content)

	password := crypto.GenerateAESKey()
	secure, err := instant.Encrypt(password, receiverKeyPair.PublicKey().(crypto.EncryptKey))
	require.NoError(t, err)
	assert.NotEmpty(t, secure.Data())
	assert.NotEmpty(t, secure.Key())

	reliable := secure.Sign(senderSignKey)
	assert.NotEmpty(t, reliable.Signature())

	verified, err := reliable.Verify(senderSignKey.PublicKey())
	require.NoError(t, err)

	unwrapped, err := verified.DecryptedKey(receiverKeyPair, receiver.String())
	require.NoError(t, err)

	result, err := verified.Decrypt(unwrapped)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Content().(*baseContent).Get("text"))
}

func TestVerifyFailsUnderWrongKey(t *testing.T) {
	sender := mustID(t, "sender", mkm.MAIN)
	receiver := mustID(t, "receiver", mkm.MAIN)
	signKey, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)

	envelope := NewEnvelope(sender, receiver)
	content := NewContent(TextContent)
	instant := NewInstantMessage(envelope, content)
	password := crypto.GenerateAESKey()
	secure, err := instant.Encrypt(password, nil)
	require.NoError(t, err)
	reliable := secure.Sign(signKey)

	_, err = reliable.Verify(otherKey.PublicKey())
	assert.Error(t, err)
}

func TestEncryptForMembersProducesPerMemberKeys(t *testing.T) {
	sender := mustID(t, "sender", mkm.MAIN)
	group := mustID(t, "group", mkm.GROUP)
	member1 := mustID(t, "m1", mkm.MAIN)
	member2 := mustID(t, "m2", mkm.MAIN)

	key1, err := crypto.GenerateRSAPrivateKey()
	require.NoError(t, err)
	key2, err := crypto.GenerateRSAPrivateKey()
	require.NoError(t, err)

	envelope := NewEnvelope(sender, group)
	content := NewContent(TextContent)
	instant := NewInstantMessage(envelope, content)
	password := crypto.GenerateAESKey()

	secure, err := instant.EncryptForMembers(password, map[string]crypto.EncryptKey{
		member1.String(): key1.PublicKey().(crypto.EncryptKey),
		member2.String(): key2.PublicKey().(crypto.EncryptKey),
	})
	require.NoError(t, err)
	assert.Len(t, secure.Keys(), 2)

	unwrapped, err := secure.DecryptedKey(key1, member1.String())
	require.NoError(t, err)
	assert.Equal(t, password.Data(), unwrapped.Data())
}

func TestGenerateSerialNumberNeverZero(t *testing.T) {
	for i := 0; i < 100; i++ {
		sn := GenerateSerialNumber()
		assert.NotZero(t, sn)
	}
}

// The legal range is 0 < sn <= 2^31-1 (§6) — the maximum value itself
// must be reachable, not skipped by the wraparound check.
func TestGenerateSerialNumberReachesMaximum(t *testing.T) {
	const max = 1<<31 - 1
	atomic.StoreUint32(&sn, max-1)
	got := GenerateSerialNumber()
	assert.Equal(t, uint32(max), got)

	next := GenerateSerialNumber()
	assert.Equal(t, uint32(1), next)
}

func TestEncryptReusedRoundTrip(t *testing.T) {
	sender := mustID(t, "alice", mkm.MAIN)
	receiver := mustID(t, "bob", mkm.MAIN)

	envelope := NewEnvelope(sender, receiver)
	content := NewContent(TextContent)
	content.Set("text", "hi")
	instant := NewInstantMessage(envelope, content)

	password := crypto.GenerateAESKey()
	digest := SetDigest(password)
	MarkReused(password)

	secure, err := instant.EncryptReused(password, digest)
	require.NoError(t, err)

	gotDigest, ok := secure.Digest()
	require.True(t, ok)
	assert.Equal(t, digest, gotDigest)
	assert.Nil(t, secure.Key())
	assert.Nil(t, secure.Keys())

	// Parsing the wire form back must preserve the digest and keep Keys()
	// nil rather than an empty {digest: ...} map (no wrapped key to try).
	frame := secure.GetMap(false)
	parsed, err := ParseSecureMessage(frame)
	require.NoError(t, err)
	parsedDigest, ok := parsed.Digest()
	require.True(t, ok)
	assert.Equal(t, digest, parsedDigest)
	assert.Nil(t, parsed.Keys())

	decrypted, err := parsed.Decrypt(password)
	require.NoError(t, err)
	assert.Equal(t, "hi", decrypted.Content().Get("text"))
}

func TestKeyLifecycleStripRestore(t *testing.T) {
	key := crypto.GenerateAESKey()
	MarkReused(key)
	digest := SetDigest(key)
	assert.True(t, IsReused(key))
	got, ok := Digest(key)
	assert.True(t, ok)
	assert.Equal(t, digest, got)

	reused, digestValue, hadDigest := StripTransientFields(key)
	assert.True(t, reused)
	assert.True(t, hadDigest)
	assert.Equal(t, digest, digestValue)
	assert.False(t, IsReused(key))
	_, ok = Digest(key)
	assert.False(t, ok)

	RestoreTransientFields(key, reused, digestValue, hadDigest)
	assert.True(t, IsReused(key))
	got, ok = Digest(key)
	assert.True(t, ok)
	assert.Equal(t, digest, got)
}

func TestContentTypeLegacyAlias(t *testing.T) {
	ct, ok := ResolveContentTypeAlias("text")
	assert.True(t, ok)
	assert.Equal(t, TextContent, ct)
}

func TestParseInstantMessageRoundTrip(t *testing.T) {
	sender := mustID(t, "sender", mkm.MAIN)
	receiver := mustID(t, "receiver", mkm.MAIN)
	envelope := NewEnvelope(sender, receiver)
	content := NewContent(TextContent)
	content.Set("text", "round trip")
	instant := NewInstantMessage(envelope, content)

	parsed, err := ParseInstantMessage(instant.GetMap(true))
	require.NoError(t, err)
	assert.Equal(t, sender.String(), parsed.Envelope().Sender().String())
	assert.Equal(t, TextContent, parsed.Content().Type())
}
