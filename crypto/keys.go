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

// Package crypto implements the primitive algorithms component (§4.1):
// AES-CBC/PKCS7, RSA-PKCS1+SHA256, ECDSA/secp256k1, the three digests, and
// the Base58/Base64/Hex encoders. Every key is also a types.Map so it can
// travel on the wire as `{algorithm, data, ...}`.
package crypto

import (
	"github.com/dimchat/dim-go/types"
)

// Key algorithm names (§4.1). Both the canonical and legacy-lowercase
// forms are accepted by the factory registry (§9 "legacy aliases").
const (
	AES = "AES"
	RSA = "RSA"
	ECC = "ECC"
)

// CryptographyKey is the root of the key hierarchy: every key carries an
// algorithm name and is itself a map (so it serializes as
// `{"algorithm": ..., "data": ...}`).
type CryptographyKey interface {
	types.Map

	Algorithm() string
	// Data is the raw key material this key wraps (already decoded from
	// the map's `data` field).
	Data() []byte
}

// SymmetricKey can both encrypt and decrypt with the same key material
// (AES-CBC here, or the null PlainKey used for broadcast messages).
type SymmetricKey interface {
	CryptographyKey

	// Encrypt returns the ciphertext. Implementations that need an IV
	// generate one and write it into extra (base64, key "IV"); extra may
	// be nil if the caller does not need it back.
	Encrypt(plaintext []byte, extra types.StringKeyMap) []byte

	// Decrypt reverses Encrypt. params carries the IV the way Encrypt
	// wrote it; a missing IV defaults to all-zero (§4.1).
	Decrypt(ciphertext []byte, params types.StringKeyMap) ([]byte, error)

	// MatchEncryptKey reports whether encrypting a probe value with key
	// and decrypting it with this key round-trips — used to validate a
	// cached reused key still matches a freshly-advertised one.
	MatchEncryptKey(key SymmetricKey) bool
}

// SignKey signs raw bytes with a private key.
type SignKey interface {
	CryptographyKey

	Sign(data []byte) []byte
}

// VerifyKey verifies a signature with a public key.
type VerifyKey interface {
	CryptographyKey

	Verify(data []byte, signature []byte) bool
	// MatchSignKey reports whether a signature produced by sKey verifies
	// under this key.
	MatchSignKey(sKey SignKey) bool
}

// EncryptKey encrypts with a public key (RSA only — ECDSA keys do not
// implement this interface, matching §4.1's scoping of RSA to key-wrap
// and ECDSA to signatures only).
type EncryptKey interface {
	CryptographyKey

	Encrypt(plaintext []byte) ([]byte, error)
	MatchDecryptKey(dKey DecryptKey) bool
}

// DecryptKey decrypts with a private key.
type DecryptKey interface {
	CryptographyKey

	Decrypt(ciphertext []byte) ([]byte, error)
}

// PublicKey is the half of an asymmetric pair a Meta/Visa publishes.
type PublicKey interface {
	VerifyKey
}

// PrivateKey is the half of an asymmetric pair kept secret by its owner.
// PublicKey() lazily derives and caches the matching public key (§4.1
// "Key generation... returns a private key that derives its public key
// lazily and caches it").
type PrivateKey interface {
	SignKey

	PublicKey() PublicKey
}
