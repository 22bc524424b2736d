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

package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	gotypes "github.com/dimchat/dim-go/types"
)

// ECCPrivateKey implements PrivateKey over secp256k1 (§4.1: ASN.1
// SEQUENCE(r,s) signatures over SHA256, used by BTC/ETH address metas).
type ECCPrivateKey struct {
	gotypes.Dictionary

	key *secp256k1.PrivateKey
	pub *ECCPublicKey
}

func GenerateECCPrivateKey() (*ECCPrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	dict := gotypes.StringKeyMap{
		"algorithm": ECC,
		"data":      HexEncode(key.Serialize()),
		"curve":     "secp256k1",
	}
	return &ECCPrivateKey{Dictionary: gotypes.NewDictionary(dict), key: key}, nil
}

// ParseECCPrivateKey parses a private key from its wire dictionary; the
// raw 32-byte scalar is carried hex-encoded in "data".
func ParseECCPrivateKey(dict gotypes.StringKeyMap) (*ECCPrivateKey, error) {
	priv := &ECCPrivateKey{Dictionary: gotypes.NewDictionary(dict)}
	raw, err := HexDecode(priv.GetString("data"))
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, errors.New("crypto: invalid secp256k1 private key length")
	}
	priv.key = secp256k1.PrivKeyFromBytes(raw)
	return priv, nil
}

func (k *ECCPrivateKey) Algorithm() string { return ECC }
func (k *ECCPrivateKey) Data() []byte      { return k.key.Serialize() }

// Sign produces a DER-encoded ASN.1 SEQUENCE(r,s) signature over
// SHA256(data), per §4.1.
func (k *ECCPrivateKey) Sign(data []byte) []byte {
	hash := sha256.Sum256(data)
	signature := ecdsa.Sign(k.key, hash[:])
	return signature.Serialize()
}

// PublicKey lazily derives and caches the matching public key.
func (k *ECCPrivateKey) PublicKey() PublicKey {
	if k.pub == nil {
		pub := k.key.PubKey()
		dict := gotypes.StringKeyMap{
			"algorithm": ECC,
			"data":      HexEncode(pub.SerializeUncompressed()),
			"curve":     "secp256k1",
		}
		k.pub = &ECCPublicKey{Dictionary: gotypes.NewDictionary(dict), key: pub}
	}
	return k.pub
}

// ECCPublicKey implements PublicKey over secp256k1. It does not implement
// EncryptKey: per §4.1 ECC keys are signature-only, RSA carries key-wrap.
type ECCPublicKey struct {
	gotypes.Dictionary

	key *secp256k1.PublicKey
}

// ParseECCPublicKey accepts either the 65-byte uncompressed or 33-byte
// compressed SEC1 point encoding in "data", hex-encoded (as
// GenerateECCPrivateKey's public key writes it) or base64-encoded.
func ParseECCPublicKey(dict gotypes.StringKeyMap) (*ECCPublicKey, error) {
	pub := &ECCPublicKey{Dictionary: gotypes.NewDictionary(dict)}
	text := pub.GetString("data")
	raw, err := HexDecode(text)
	if err != nil {
		raw, err = Base64Decode(text)
		if err != nil {
			return nil, err
		}
	}
	key, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, err
	}
	pub.key = key
	return pub, nil
}

func (k *ECCPublicKey) Algorithm() string { return ECC }
func (k *ECCPublicKey) Data() []byte      { return k.key.SerializeUncompressed() }

// PointBytes returns the uncompressed 65-byte SEC1 point, the input to
// Keccak256 in ETH-style address derivation (the leading 0x04 is dropped
// by the caller, per §3).
func (k *ECCPublicKey) PointBytes() []byte {
	return k.key.SerializeUncompressed()
}

// CompressedBytes returns the 33-byte compressed SEC1 point, the input to
// RIPEMD160(SHA256(...)) in BTC-style address derivation (§3).
func (k *ECCPublicKey) CompressedBytes() []byte {
	return k.key.SerializeCompressed()
}

func (k *ECCPublicKey) Verify(data []byte, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(data)
	return sig.Verify(hash[:], k.key)
}

func (k *ECCPublicKey) MatchSignKey(sKey SignKey) bool {
	probe := []byte("Moky loves May Lee forever!")
	signature := sKey.Sign(probe)
	return k.Verify(probe, signature)
}
