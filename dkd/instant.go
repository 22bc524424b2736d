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
	"encoding/json"
	"errors"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/types"
)

// InstantMessage is Envelope ∪ {content}, the plaintext form (§3).
type InstantMessage interface {
	types.Map

	Envelope() Envelope
	Content() Content

	// Encrypt serializes Content to JSON, encrypts it with password, and
	// wraps password for receiver (nil receiverKey means broadcast /
	// PlainKey). The returned SecureMessage carries `key` (not `keys`);
	// per-recipient `keys` wrapping for groups is the caller's loop over
	// this method (§4.4.1 step 5).
	Encrypt(password crypto.SymmetricKey, receiverKey crypto.EncryptKey) (SecureMessage, error)

	// EncryptForMembers is the group form of Encrypt: one ciphertext
	// shared by all members, with a per-member `keys` map instead of a
	// single `key` (§6 "Key wrap envelope").
	EncryptForMembers(password crypto.SymmetricKey, memberKeys map[string]crypto.EncryptKey) (SecureMessage, error)

	// EncryptReused is the §3 "reused" form: password is already known to
	// the receiver from an earlier message to the same peer, so the wire
	// carries `keys: {digest}` instead of a freshly wrapped key (§6 "A
	// keys object containing only {digest} indicates the cached
	// symmetric key is reused").
	EncryptReused(password crypto.SymmetricKey, digest string) (SecureMessage, error)
}

type baseInstantMessage struct {
	types.Dictionary

	envelope Envelope
	content  Content
}

// NewInstantMessage pairs an Envelope with its Content.
func NewInstantMessage(envelope Envelope, content Content) InstantMessage {
	dict := types.CopyMap(envelope.GetMap(false))
	dict["content"] = content.GetMap(false)
	return &baseInstantMessage{
		Dictionary: types.NewDictionary(dict),
		envelope:   envelope,
		content:    content,
	}
}

// ParseInstantMessage parses an InstantMessage from its wire dictionary.
func ParseInstantMessage(dict types.StringKeyMap) (InstantMessage, error) {
	envelope, err := ParseEnvelope(dict)
	if err != nil {
		return nil, err
	}
	contentMap, ok := dict["content"].(types.StringKeyMap)
	if !ok {
		return nil, errors.New("dkd: instant message missing content")
	}
	content, err := ParseContent(contentMap)
	if err != nil {
		return nil, err
	}
	return &baseInstantMessage{Dictionary: types.NewDictionary(dict), envelope: envelope, content: content}, nil
}

func (m *baseInstantMessage) Envelope() Envelope { return m.envelope }
func (m *baseInstantMessage) Content() Content   { return m.content }

func (m *baseInstantMessage) Encrypt(password crypto.SymmetricKey, receiverKey crypto.EncryptKey) (SecureMessage, error) {
	plaintext, err := json.Marshal(m.content.GetMap(false))
	if err != nil {
		return nil, err
	}
	extra := types.StringKeyMap{}
	ciphertext := password.Encrypt(plaintext, extra)

	dict := types.CopyMap(m.envelope.GetMap(false))
	dict["data"] = crypto.Base64Encode(ciphertext)
	if iv, ok := extra["IV"]; ok {
		dict["IV"] = iv
	}

	var keyData []byte
	if receiverKey != nil {
		keyMap := password.GetMap(false)
		keyJSON, err := json.Marshal(keyMap)
		if err != nil {
			return nil, err
		}
		keyData, err = receiverKey.Encrypt(keyJSON)
		if err != nil {
			return nil, err
		}
		dict["key"] = crypto.Base64Encode(keyData)
	}

	return &baseSecureMessage{
		Dictionary: types.NewDictionary(dict),
		envelope:   m.envelope,
		data:       ciphertext,
		key:        keyData,
	}, nil
}

func (m *baseInstantMessage) EncryptReused(password crypto.SymmetricKey, digest string) (SecureMessage, error) {
	plaintext, err := json.Marshal(m.content.GetMap(false))
	if err != nil {
		return nil, err
	}
	extra := types.StringKeyMap{}
	ciphertext := password.Encrypt(plaintext, extra)

	dict := types.CopyMap(m.envelope.GetMap(false))
	dict["data"] = crypto.Base64Encode(ciphertext)
	if iv, ok := extra["IV"]; ok {
		dict["IV"] = iv
	}
	dict["keys"] = types.StringKeyMap{"digest": digest}

	return &baseSecureMessage{
		Dictionary: types.NewDictionary(dict),
		envelope:   m.envelope,
		data:       ciphertext,
		digest:     digest,
		hasDigest:  true,
	}, nil
}

func (m *baseInstantMessage) EncryptForMembers(password crypto.SymmetricKey, memberKeys map[string]crypto.EncryptKey) (SecureMessage, error) {
	plaintext, err := json.Marshal(m.content.GetMap(false))
	if err != nil {
		return nil, err
	}
	extra := types.StringKeyMap{}
	ciphertext := password.Encrypt(plaintext, extra)

	dict := types.CopyMap(m.envelope.GetMap(false))
	dict["data"] = crypto.Base64Encode(ciphertext)
	if iv, ok := extra["IV"]; ok {
		dict["IV"] = iv
	}

	keyMap := password.GetMap(false)
	keyJSON, err := json.Marshal(keyMap)
	if err != nil {
		return nil, err
	}
	keys := make(map[string][]byte, len(memberKeys))
	keysWire := types.StringKeyMap{}
	for member, encryptKey := range memberKeys {
		if encryptKey == nil {
			continue
		}
		wrapped, err := encryptKey.Encrypt(keyJSON)
		if err != nil {
			return nil, err
		}
		keys[member] = wrapped
		keysWire[member] = crypto.Base64Encode(wrapped)
	}
	dict["keys"] = keysWire

	return &baseSecureMessage{
		Dictionary: types.NewDictionary(dict),
		envelope:   m.envelope,
		data:       ciphertext,
		keys:       keys,
	}, nil
}
