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

// Package dimp implements the pipeline component (§4.4): Messenger,
// Packer, Processor, Facebook and EntityChecker.
package dimp

import (
	"errors"
	"sync"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/mkm"
	"github.com/sirupsen/logrus"
)

// Archivist is the persistence boundary Facebook delegates to (§5
// "Meta/Document... stored persistently"). It is the async, possibly
// I/O-bound half of identity lookups; Facebook is the synchronous facade
// over it plus the in-process Thanos caches in package mkm.
type Archivist interface {
	LoadMeta(id mkm.ID) (mkm.Meta, error)
	SaveMeta(id mkm.ID, meta mkm.Meta) error

	LoadDocuments(id mkm.ID) ([]mkm.Document, error)
	SaveDocument(id mkm.ID, doc mkm.Document) error

	// LoadPrivateKeys returns the local signing/decryption keys for id,
	// or nil if id is not a local user.
	LoadPrivateKeys(id mkm.ID) ([]crypto.PrivateKey, error)
}

// Facebook is the identity lookup facade the pipeline calls into (§4.4,
// table row D). It owns the Archivist with a strong reference; per §5
// the Archivist is documented as holding a weak back-reference to break
// the cycle — Go's collector handles the cycle natively, so this module
// keeps a plain pointer and relies on explicit Close()/teardown ordering
// instead of runtime weak references (see DESIGN.md).
type Facebook struct {
	archivist Archivist

	mutex      sync.RWMutex
	localUsers []mkm.ID
}

func NewFacebook(archivist Archivist) *Facebook {
	return &Facebook{archivist: archivist}
}

func (f *Facebook) AddLocalUser(id mkm.ID) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, existing := range f.localUsers {
		if existing.String() == id.String() {
			return
		}
	}
	f.localUsers = append(f.localUsers, id)
}

func (f *Facebook) LocalUsers() []mkm.ID {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	out := make([]mkm.ID, len(f.localUsers))
	copy(out, f.localUsers)
	return out
}

func (f *Facebook) IsLocalUser(id mkm.ID) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	for _, existing := range f.localUsers {
		if existing.String() == id.String() {
			return true
		}
	}
	return false
}

// GetMeta loads id's Meta from the Archivist on every call and inserts
// it into the in-process meta cache; the cache is not consulted first.
func (f *Facebook) GetMeta(id mkm.ID) (mkm.Meta, error) {
	meta, err := f.archivist.LoadMeta(id)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errors.New("dimp: no meta for " + id.String())
	}
	mkm.CacheMeta(id, meta)
	return meta, nil
}

// GetVisa resolves the most recent, non-expired Visa for a user id and
// returns it — callers need this to fetch the EncryptKey for readiness
// checks (§4.4.1 step 2).
func (f *Facebook) GetVisa(id mkm.ID) (mkm.Visa, error) {
	docs, err := f.archivist.LoadDocuments(id)
	if err != nil {
		return nil, err
	}
	var latest mkm.Visa
	for _, doc := range docs {
		if doc.Type() != mkm.VisaType {
			continue
		}
		visa, ok := doc.(mkm.Visa)
		if !ok {
			continue
		}
		if latest == nil || visa.Time().After(latest.Time()) {
			latest = visa
		}
	}
	if latest == nil {
		return nil, errors.New("dimp: no visa for " + id.String())
	}
	return latest, nil
}

// EncryptKeyFor resolves the EncryptKey a sender should use to wrap a
// symmetric key for receiver (§4.4.1 step 5). Returns (nil, nil) for the
// broadcast receiver, signalling "use PlainKey" to the caller.
func (f *Facebook) EncryptKeyFor(receiver mkm.ID) (crypto.EncryptKey, error) {
	if receiver.IsBroadcast() {
		return nil, nil
	}
	visa, err := f.GetVisa(receiver)
	if err != nil {
		return nil, err
	}
	return visa.EncryptKey()
}

// PrivateKeysFor returns the local decrypt/sign keys for a local user id.
func (f *Facebook) PrivateKeysFor(id mkm.ID) ([]crypto.PrivateKey, error) {
	keys, err := f.archivist.LoadPrivateKeys(id)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.New("dimp: no private keys for " + id.String())
	}
	return keys, nil
}

// SaveDocument accepts a document iff it passes the §4.4.5 acceptance
// rules: future-timestamp guard, valid signature under the owner's Meta,
// and no stored document of the same type with a strictly greater
// timestamp (violation silently drops the new document).
func (f *Facebook) SaveDocument(doc mkm.Document) error {
	meta, err := f.GetMeta(doc.ID())
	if err != nil {
		return err
	}
	if !doc.Verify(meta.PublicKey()) {
		return errors.New("dimp: document signature or timestamp invalid")
	}
	existing, err := f.archivist.LoadDocuments(doc.ID())
	if err != nil {
		return err
	}
	for _, old := range existing {
		if mkm.ExpiredRelativeToNewer(doc, old) {
			logrus.WithField("id", doc.ID().String()).Debug("dimp: dropping stale document")
			return nil
		}
	}
	if err := f.archivist.SaveDocument(doc.ID(), doc); err != nil {
		return err
	}
	mkm.CacheDocument(doc.ID(), doc)
	return nil
}
