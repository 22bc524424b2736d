/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
 * ==============================================================================
 */

package mkm

import (
	"errors"
	"sync"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/types"
)

// Meta is the §3 identity root: a public key plus, for seeded types, the
// seed string and the fingerprint signature binding the two together.
type Meta interface {
	types.Map

	Type() MetaType
	PublicKey() crypto.PublicKey
	Seed() string
	Fingerprint() []byte

	// Valid re-verifies the §4.2 "Validity check on Meta": the hasSeed
	// invariant and, when seeded, that Fingerprint verifies against
	// PublicKey over Seed.
	Valid() bool

	// GenerateAddress is pure and memoized per network (§4.2).
	GenerateAddress(network NetworkType) Address

	// MatchID reports whether this Meta matches id: its regenerated
	// address for id.Address().Network() equals id.Address(), and, when
	// seeded, id.Name() equals Seed() (§4.2).
	MatchID(id ID) bool
}

type baseMeta struct {
	types.Dictionary

	metaType    MetaType
	publicKey   crypto.PublicKey
	seed        string
	fingerprint []byte

	mutex     sync.Mutex
	addresses map[NetworkType]Address
}

// NewMeta builds a Meta from its already-parsed fields; used by the
// factory below after parsing the wire dictionary.
func NewMeta(metaType MetaType, publicKey crypto.PublicKey, seed string, fingerprint []byte) Meta {
	dict := types.StringKeyMap{
		"type":      metaType,
		"key":       publicKey.GetMap(false),
	}
	if HasSeed(metaType) {
		dict["seed"] = seed
		dict["fingerprint"] = crypto.Base64Encode(fingerprint)
	}
	return &baseMeta{
		Dictionary:  types.NewDictionary(dict),
		metaType:    metaType,
		publicKey:   publicKey,
		seed:        seed,
		fingerprint: fingerprint,
		addresses:   make(map[NetworkType]Address),
	}
}

// GenerateMeta creates a fresh Meta by signing seed with privateKey. Used
// at registration time, when the caller still holds the private key.
func GenerateMeta(metaType MetaType, privateKey crypto.PrivateKey, seed string) (Meta, error) {
	var fingerprint []byte
	if HasSeed(metaType) {
		if seed == "" {
			return nil, errors.New("mkm: seeded meta type requires a non-empty seed")
		}
		fingerprint = privateKey.Sign([]byte(seed))
	} else if seed != "" {
		return nil, errors.New("mkm: non-seeded meta type must not carry a seed")
	}
	return NewMeta(metaType, privateKey.PublicKey(), seed, fingerprint), nil
}

// ParseMeta parses a Meta from its wire dictionary.
func ParseMeta(dict types.StringKeyMap) (Meta, error) {
	d := types.NewDictionary(dict)
	metaType := MetaType(toUint8(d.Get("type")))
	keyMap, ok := d.Get("key").(types.StringKeyMap)
	if !ok {
		return nil, errors.New("mkm: meta missing public key")
	}
	publicKey, err := crypto.ParsePublicKey(keyMap)
	if err != nil {
		return nil, err
	}
	seed := d.GetString("seed")
	var fingerprint []byte
	if fp := d.GetString("fingerprint"); fp != "" {
		fingerprint, err = crypto.Base64Decode(fp)
		if err != nil {
			return nil, err
		}
	}
	return &baseMeta{
		Dictionary:  d,
		metaType:    metaType,
		publicKey:   publicKey,
		seed:        seed,
		fingerprint: fingerprint,
		addresses:   make(map[NetworkType]Address),
	}, nil
}

func toUint8(v interface{}) uint8 {
	switch n := v.(type) {
	case uint8:
		return n
	case int:
		return uint8(n)
	case float64:
		return uint8(n)
	default:
		return 0
	}
}

func (m *baseMeta) Type() MetaType            { return m.metaType }
func (m *baseMeta) PublicKey() crypto.PublicKey { return m.publicKey }
func (m *baseMeta) Seed() string              { return m.seed }
func (m *baseMeta) Fingerprint() []byte       { return m.fingerprint }

func (m *baseMeta) Valid() bool {
	seeded := HasSeed(m.metaType)
	if seeded {
		if m.seed == "" || len(m.fingerprint) == 0 {
			return false
		}
		return m.publicKey.Verify([]byte(m.seed), m.fingerprint)
	}
	return m.seed == "" && len(m.fingerprint) == 0
}

func (m *baseMeta) GenerateAddress(network NetworkType) Address {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if addr, ok := m.addresses[network]; ok {
		return addr
	}
	var addr Address
	switch m.metaType {
	case MKMType:
		addr = GenerateBTCAddress(m.fingerprint, network)
	case BTCType, ExBTCType:
		addr = GenerateBTCAddress(m.publicKeyBytes(), network)
	case ETHType, ExETHType:
		addr = GenerateETHAddress(m.publicKeyPoint(), network)
	default:
		addr = GenerateBTCAddress(m.publicKeyBytes(), network)
	}
	m.addresses[network] = addr
	return addr
}

func (m *baseMeta) publicKeyBytes() []byte {
	if ecc, ok := m.publicKey.(*crypto.ECCPublicKey); ok {
		return ecc.CompressedBytes()
	}
	return m.publicKey.Data()
}

func (m *baseMeta) publicKeyPoint() []byte {
	if ecc, ok := m.publicKey.(*crypto.ECCPublicKey); ok {
		return ecc.PointBytes()
	}
	return m.publicKey.Data()
}

func (m *baseMeta) MatchID(id ID) bool {
	addr := m.GenerateAddress(id.Address().Network())
	if addr.String() != id.Address().String() {
		return false
	}
	if HasSeed(m.metaType) {
		return id.Name() == m.seed
	}
	return true
}
