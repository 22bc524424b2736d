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

// SecureMessage is Envelope ∪ {data, key?, keys?}: the encrypted-but-
// unsigned wire shape (§3). It is never transmitted on its own — a
// Reliable is what actually goes over the wire (§6).
type SecureMessage interface {
	types.Map

	Envelope() Envelope
	Data() []byte
	Key() []byte
	Keys() map[string][]byte

	// DecryptedKey unwraps the recipient-encrypted symmetric key using
	// decryptKey, trying Key() first and falling back to Keys()[memberID].
	DecryptedKey(decryptKey crypto.DecryptKey, memberID string) (crypto.SymmetricKey, error)

	// Digest reports the §6 "keys object containing only {digest}" form:
	// the sender is telling us to reuse the cached symmetric key for this
	// peer instead of unwrapping a fresh one (§3 "Key lifecycle").
	Digest() (string, bool)

	// Decrypt decrypts Data() with password and parses the Content JSON,
	// reassembling the original InstantMessage (§3 "verify" reverses
	// "sign"; Decrypt reverses Encrypt).
	Decrypt(password crypto.SymmetricKey) (InstantMessage, error)

	// Sign produces a ReliableMessage using the sender's signature key
	// (§4.4.1 step 7). Signing is over Data() (the ciphertext).
	Sign(signKey crypto.SignKey) ReliableMessage
}

type baseSecureMessage struct {
	types.Dictionary

	envelope  Envelope
	data      []byte
	key       []byte
	keys      map[string][]byte
	digest    string
	hasDigest bool
}

// ParseSecureMessage parses a SecureMessage from its wire dictionary.
func ParseSecureMessage(dict types.StringKeyMap) (SecureMessage, error) {
	envelope, err := ParseEnvelope(dict)
	if err != nil {
		return nil, err
	}
	d := types.NewDictionary(dict)
	b64 := d.GetString("data")
	if b64 == "" {
		return nil, errors.New("dkd: secure message missing data")
	}
	data, err := crypto.Base64Decode(b64)
	if err != nil {
		return nil, err
	}
	msg := &baseSecureMessage{Dictionary: d, envelope: envelope, data: data}
	if keyB64 := d.GetString("key"); keyB64 != "" {
		msg.key, err = crypto.Base64Decode(keyB64)
		if err != nil {
			return nil, err
		}
	}
	if keysMap, ok := d.Get("keys").(types.StringKeyMap); ok {
		msg.keys = make(map[string][]byte, len(keysMap))
		for member, v := range keysMap {
			if member == "digest" {
				if s, ok := v.(string); ok {
					msg.digest = s
					msg.hasDigest = true
				}
				continue
			}
			b64, ok := v.(string)
			if !ok {
				continue
			}
			raw, err := crypto.Base64Decode(b64)
			if err != nil {
				return nil, err
			}
			msg.keys[member] = raw
		}
		// A `keys` object containing only {digest} carries no actual
		// wrapped key (§6) — don't let an empty map look like "there are
		// keys to try" to DecryptedKey's caller.
		if len(msg.keys) == 0 && msg.hasDigest {
			msg.keys = nil
		}
	}
	return msg, nil
}

func (m *baseSecureMessage) Envelope() Envelope      { return m.envelope }
func (m *baseSecureMessage) Data() []byte            { return m.data }
func (m *baseSecureMessage) Key() []byte             { return m.key }
func (m *baseSecureMessage) Keys() map[string][]byte { return m.keys }
func (m *baseSecureMessage) Digest() (string, bool)  { return m.digest, m.hasDigest }

func (m *baseSecureMessage) DecryptedKey(decryptKey crypto.DecryptKey, memberID string) (crypto.SymmetricKey, error) {
	var wrapped []byte
	switch {
	case m.key != nil:
		wrapped = m.key
	case m.keys != nil:
		var ok bool
		wrapped, ok = m.keys[memberID]
		if !ok {
			return nil, errors.New("dkd: no wrapped key for member")
		}
	default:
		return nil, errors.New("dkd: secure message carries no key")
	}
	keyJSON, err := decryptKey.Decrypt(wrapped)
	if err != nil {
		return nil, err
	}
	var keyMap types.StringKeyMap
	if err := json.Unmarshal(keyJSON, &keyMap); err != nil {
		return nil, err
	}
	return crypto.ParseSymmetricKey(keyMap)
}

func (m *baseSecureMessage) Decrypt(password crypto.SymmetricKey) (InstantMessage, error) {
	params := types.StringKeyMap{}
	if iv := m.GetString("IV"); iv != "" {
		params["IV"] = iv
	}
	plaintext, err := password.Decrypt(m.data, params)
	if err != nil {
		return nil, err
	}
	var contentMap types.StringKeyMap
	if err := json.Unmarshal(plaintext, &contentMap); err != nil {
		return nil, err
	}
	content, err := ParseContent(contentMap)
	if err != nil {
		return nil, err
	}
	return NewInstantMessage(m.envelope, content), nil
}

func (m *baseSecureMessage) Sign(signKey crypto.SignKey) ReliableMessage {
	signature := signKey.Sign(m.data)
	dict := types.CopyMap(m.GetMap(false))
	dict["signature"] = crypto.Base64Encode(signature)
	signed := &baseSecureMessage{
		Dictionary: types.NewDictionary(dict),
		envelope:   m.envelope,
		data:       m.data,
		key:        m.key,
		keys:       m.keys,
		digest:     m.digest,
		hasDigest:  m.hasDigest,
	}
	return &baseReliableMessage{baseSecureMessage: signed, signature: signature}
}
