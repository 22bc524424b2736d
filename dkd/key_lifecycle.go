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

package dkd

import "github.com/dimchat/dim-go/crypto"

// IsReused reports the §3 `reused` flag carried on a cached symmetric
// key's own map.
func IsReused(key crypto.SymmetricKey) bool {
	reused, _ := key.Get("reused").(bool)
	return reused
}

// MarkReused sets the `reused` flag so the next CacheCipherKey-backed
// send elects the digest-only wire form.
func MarkReused(key crypto.SymmetricKey) {
	key.Set("reused", true)
}

// Digest returns the key's cached `digest` field, if any.
func Digest(key crypto.SymmetricKey) (string, bool) {
	digest, ok := key.Get("digest").(string)
	return digest, ok
}

// SetDigest stamps the 8-character trailing-base64 digest §3 uses to
// let a receiver recognize a reused key without resending it.
func SetDigest(key crypto.SymmetricKey) string {
	b64 := crypto.Base64Encode(key.Data())
	digest := b64
	if len(b64) > 8 {
		digest = b64[len(b64)-8:]
	}
	key.Set("digest", digest)
	return digest
}

// StripTransientFields removes `reused`/`digest` before serializing a
// key for the wire (§4.4.1 step 6), returning the two values so the
// caller can restore them on the in-memory key afterward.
func StripTransientFields(key crypto.SymmetricKey) (reused bool, digest string, hadDigest bool) {
	reused = IsReused(key)
	digest, hadDigest = Digest(key)
	key.Set("reused", nil)
	key.Set("digest", nil)
	return
}

// ClearReused drops the `reused` flag and the cached `digest`, so the
// next send with this same key wraps it in full instead of electing the
// digest-only wire form — used when a digest-only receive fails to
// resolve or decrypt (§9 open question "key rotation under reused").
func ClearReused(key crypto.SymmetricKey) {
	key.Set("reused", nil)
	key.Set("digest", nil)
}

// RestoreTransientFields re-applies reused/digest after the stripped
// wire copy has been serialized, so the in-memory key elects the
// digest-only form on its next send.
func RestoreTransientFields(key crypto.SymmetricKey, reused bool, digest string, hadDigest bool) {
	if reused {
		key.Set("reused", true)
	}
	if hadDigest {
		key.Set("digest", digest)
	}
}
