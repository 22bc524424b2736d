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

import (
	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/mkm"
)

// CipherKeyDelegate owns the per-peer symmetric-key cache (§3 "Key
// lifecycle"). It is external to the core: the pipeline only calls it.
type CipherKeyDelegate interface {
	// CipherKey returns the cached key for (from, to[, group]), generating
	// one via crypto.GenerateSymmetricKey(crypto.AES) when generate is
	// true and none is cached.
	CipherKey(from, to mkm.ID, group mkm.ID, generate bool) (crypto.SymmetricKey, error)

	// CacheCipherKey stores key for (from, to[, group]) so a later
	// `reused` message can be decrypted from the digest-only form.
	CacheCipherKey(from, to mkm.ID, group mkm.ID, key crypto.SymmetricKey)
}
