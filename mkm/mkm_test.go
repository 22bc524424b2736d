package mkm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimchat/dim-go/crypto"
)

func TestBTCMetaGenerateAddressAndMatchID(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)

	meta, err := GenerateMeta(MKMType, priv, "alice")
	require.NoError(t, err)
	assert.True(t, meta.Valid())

	addr := meta.GenerateAddress(MAIN)
	id := NewID("alice", addr, "")
	assert.True(t, meta.MatchID(id))

	other := NewID("bob", addr, "")
	assert.False(t, meta.MatchID(other))
}

func TestMetaMemoizesAddressPerNetwork(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	meta, err := GenerateMeta(BTCType, priv, "")
	require.NoError(t, err)

	a1 := meta.GenerateAddress(MAIN)
	a2 := meta.GenerateAddress(MAIN)
	assert.Same(t, a1, a2)

	a3 := meta.GenerateAddress(GROUP)
	assert.NotEqual(t, a1.String(), a3.String())
}

func TestMetaParseRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	meta, err := GenerateMeta(MKMType, priv, "carol")
	require.NoError(t, err)

	parsed, err := ParseMeta(meta.GetMap(true))
	require.NoError(t, err)
	assert.True(t, parsed.Valid())
	assert.Equal(t, meta.Seed(), parsed.Seed())
}

func TestGenerateMetaRejectsSeedMismatch(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	_, err = GenerateMeta(MKMType, priv, "")
	assert.Error(t, err)

	_, err = GenerateMeta(BTCType, priv, "should-not-have-seed")
	assert.Error(t, err)
}

func TestETHAddressChecksumAndParse(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey().(*crypto.ECCPublicKey)

	addr := GenerateETHAddress(pub.PointBytes(), MAIN)
	text := addr.String()
	assert.Len(t, text, 42)
	assert.Equal(t, "0x", text[:2])

	parsed, err := ParseETHAddress(text)
	require.NoError(t, err)
	assert.Equal(t, text, parsed.String())
}

func TestBroadcastAddressesAndIdentifiers(t *testing.T) {
	assert.True(t, Anywhere.IsBroadcast())
	assert.True(t, Everywhere.IsBroadcast())
	assert.True(t, BroadcastIDAny.IsBroadcast())
	assert.True(t, BroadcastIDEvery.IsBroadcast())
	assert.Equal(t, "anyone@anywhere", BroadcastIDAny.String())
}

func TestParseAddressDispatchesByLength(t *testing.T) {
	priv, err := crypto.GenerateECCPrivateKey()
	require.NoError(t, err)
	btc := GenerateBTCAddress(crypto.SHA256([]byte("seed")), MAIN)
	parsedBTC, err := ParseAddress(btc.String())
	require.NoError(t, err)
	assert.Equal(t, btc.String(), parsedBTC.String())

	pub := priv.PublicKey().(*crypto.ECCPublicKey)
	eth := GenerateETHAddress(pub.PointBytes(), MAIN)
	parsedETH, err := ParseAddress(eth.String())
	require.NoError(t, err)
	assert.Equal(t, eth.String(), parsedETH.String())
}

func TestThanosCacheOddIndexReduce(t *testing.T) {
	cache := NewThanosCache()
	for i := 0; i < 5; i++ {
		cache.Put(string(rune('a'+i)), i)
	}
	removed := cache.Reduce()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, cache.Len())
}

func TestDocumentSignVerifyAndExpiry(t *testing.T) {
	priv, err := crypto.GenerateRSAPrivateKey()
	require.NoError(t, err)
	meta, err := GenerateMeta(MKMType, priv, "dora")
	require.NoError(t, err)
	addr := meta.GenerateAddress(MAIN)
	id := NewID("dora", addr, "")

	visa, err := NewVisa(id, map[string]interface{}{"name": "Dora"}, priv.PublicKey().(crypto.EncryptKey))
	require.NoError(t, err)
	require.NoError(t, visa.Sign(priv))
	assert.True(t, visa.Verify(priv.PublicKey()))

	key, err := visa.EncryptKey()
	require.NoError(t, err)
	assert.Equal(t, crypto.RSA, key.Algorithm())

	older, err := NewVisa(id, map[string]interface{}{"name": "Dora Prior"}, priv.PublicKey().(crypto.EncryptKey))
	require.NoError(t, err)
	require.NoError(t, older.Sign(priv))
	// Sign() always stamps "now", so two signatures taken microseconds
	// apart can't be trusted to land in different Unix seconds; force
	// visa's timestamp strictly ahead of older's to make the comparison
	// deterministic.
	visaDoc := visa.(*visaDocument).baseDocument
	olderDoc := older.(*visaDocument).baseDocument
	visaDoc.timestamp = olderDoc.timestamp.Add(time.Hour)

	assert.True(t, ExpiredRelativeToNewer(older, visa))
	assert.False(t, ExpiredRelativeToNewer(visa, older))
}

func TestDocumentParseRoundTripPreservesVisaInterface(t *testing.T) {
	priv, err := crypto.GenerateRSAPrivateKey()
	require.NoError(t, err)
	meta, err := GenerateMeta(MKMType, priv, "erin")
	require.NoError(t, err)
	addr := meta.GenerateAddress(MAIN)
	id := NewID("erin", addr, "")

	visa, err := NewVisa(id, nil, priv.PublicKey().(crypto.EncryptKey))
	require.NoError(t, err)
	require.NoError(t, visa.Sign(priv))

	parsed, err := ParseDocument(visa.GetMap(true))
	require.NoError(t, err)
	asVisa, ok := parsed.(Visa)
	require.True(t, ok, "round-tripped VISA document must still satisfy Visa")
	key, err := asVisa.EncryptKey()
	require.NoError(t, err)
	assert.Equal(t, crypto.RSA, key.Algorithm())
}
