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
	"github.com/dimchat/dim-go/types"
)

// §4.2: "Factories for Address, ID, Meta, Document are singletons
// holding insertion-indexed maps from canonical string to live object,
// bounded only by the Thanos eviction policy." Parsing is lookup → miss
// → parse → insert.

var (
	addressCache  = NewThanosCache()
	idCache       = NewThanosCache()
	metaCache     = NewThanosCache()
	documentCache = NewThanosCache()
)

// GetAddress resolves text through the address cache, parsing and
// inserting on a miss.
func GetAddress(text string) (Address, error) {
	if cached, ok := addressCache.Get(text); ok {
		return cached.(Address), nil
	}
	addr, err := ParseAddress(text)
	if err != nil {
		return nil, err
	}
	addressCache.Put(text, addr)
	return addr, nil
}

// GetID resolves text through the ID cache, splitting and parsing its
// address on a miss.
func GetID(text string) (ID, error) {
	if cached, ok := idCache.Get(text); ok {
		return cached.(ID), nil
	}
	name, addressText, terminal := splitIdentifierParts(text)
	address, err := GetAddress(addressText)
	if err != nil {
		return nil, err
	}
	id := NewID(name, address, terminal)
	idCache.Put(text, id)
	return id, nil
}

// GetMeta resolves a Meta for id's canonical string, parsing dict on a
// miss. The cache key is the owning ID, not the meta's own content,
// since a given ID has exactly one Meta for its lifetime.
func GetMeta(id ID, dict types.StringKeyMap) (Meta, error) {
	key := id.String()
	if cached, ok := metaCache.Get(key); ok {
		return cached.(Meta), nil
	}
	meta, err := ParseMeta(dict)
	if err != nil {
		return nil, err
	}
	metaCache.Put(key, meta)
	return meta, nil
}

// CacheMeta registers an already-built Meta for id (used right after
// GenerateMeta at registration time, skipping the parse round-trip).
func CacheMeta(id ID, meta Meta) {
	metaCache.Put(id.String(), meta)
}

// GetDocument resolves the cached Document for id+docType, parsing dict
// on a miss. The cache key combines ID and type since an entity may
// carry more than one document type (Visa + Bulletin).
func GetDocument(id ID, docType string, dict types.StringKeyMap) (Document, error) {
	key := id.String() + "#" + docType
	if cached, ok := documentCache.Get(key); ok {
		return cached.(Document), nil
	}
	doc, err := ParseDocument(dict)
	if err != nil {
		return nil, err
	}
	documentCache.Put(key, doc)
	return doc, nil
}

func CacheDocument(id ID, doc Document) {
	documentCache.Put(id.String()+"#"+doc.Type(), doc)
}

// ReduceIdentityCaches runs the Thanos eviction sweep across all four
// identity caches and returns the total entries removed (§4.2).
func ReduceIdentityCaches() int {
	return ThanosReduce(addressCache, idCache, metaCache, documentCache)
}
