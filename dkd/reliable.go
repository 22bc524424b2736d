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
	"errors"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/mkm"
	"github.com/dimchat/dim-go/types"
)

// ReliableMessage is SecureMessage ∪ {signature}, the form that actually
// travels on the wire (§3, §6). It may carry `meta`/`visa` attachments
// for first-contact handshake, plus `SDT`/`sn` synchronization hints.
type ReliableMessage interface {
	SecureMessage

	Signature() []byte

	// Verify checks Signature() against the sender's Meta public key and
	// returns the underlying SecureMessage on success (§3 "verify
	// (ReliableMessage → SecureMessage on success)").
	Verify(publicKey crypto.VerifyKey) (SecureMessage, error)

	Meta() (mkm.Meta, bool)
	Visa() (mkm.Document, bool)
	SenderDocumentTime() (int64, bool)
}

type baseReliableMessage struct {
	*baseSecureMessage

	signature []byte
}

// ParseReliableMessage parses a ReliableMessage from its wire dictionary.
// Frames of length <= 8 bytes are rejected by the caller before this is
// reached (§4.4.2 step 1); this function assumes a well-formed JSON map.
func ParseReliableMessage(dict types.StringKeyMap) (ReliableMessage, error) {
	secure, err := ParseSecureMessage(dict)
	if err != nil {
		return nil, err
	}
	base, ok := secure.(*baseSecureMessage)
	if !ok {
		return nil, errors.New("dkd: unexpected secure message implementation")
	}
	sigB64 := base.GetString("signature")
	if sigB64 == "" {
		return nil, errors.New("dkd: reliable message missing signature")
	}
	signature, err := crypto.Base64Decode(sigB64)
	if err != nil {
		return nil, err
	}
	return &baseReliableMessage{baseSecureMessage: base, signature: signature}, nil
}

func (m *baseReliableMessage) Signature() []byte { return m.signature }

func (m *baseReliableMessage) Verify(publicKey crypto.VerifyKey) (SecureMessage, error) {
	if !publicKey.Verify(m.data, m.signature) {
		return nil, errors.New("dkd: signature verification failed")
	}
	return m.baseSecureMessage, nil
}

func (m *baseReliableMessage) Meta() (mkm.Meta, bool) {
	metaMap, ok := m.Get("meta").(types.StringKeyMap)
	if !ok {
		return nil, false
	}
	meta, err := mkm.ParseMeta(metaMap)
	if err != nil {
		return nil, false
	}
	return meta, true
}

func (m *baseReliableMessage) Visa() (mkm.Document, bool) {
	visaMap, ok := m.Get("visa").(types.StringKeyMap)
	if !ok {
		return nil, false
	}
	visa, err := mkm.ParseDocument(visaMap)
	if err != nil {
		return nil, false
	}
	return visa, true
}

func (m *baseReliableMessage) SenderDocumentTime() (int64, bool) {
	sdt, ok := m.Get("SDT").(float64)
	if !ok {
		return 0, false
	}
	return int64(sdt), true
}
