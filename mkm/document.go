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
	"encoding/json"
	"errors"
	"time"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/types"
)

// Document type names (§3).
const (
	VisaType     = "VISA"
	BulletinType = "BULLETIN"
	ProfileType  = "PROFILE"
	AnyType      = "*"
)

// futureTolerance bounds how far into the future a Document's time may
// sit and still be considered valid (§3 "future-timestamp guard").
const futureTolerance = 30 * time.Minute

// Document is the §3 signed identity profile: `{did, type, data, signature, time}`.
type Document interface {
	types.Map

	ID() ID
	Type() string
	Time() time.Time
	Properties() (types.StringKeyMap, error)

	// Sign fills signature and time from data, signed by privateKey.
	Sign(privateKey crypto.PrivateKey) error

	// Verify checks the signature against publicKey and the future-time
	// guard (§3). It does not check expiry-relative-to-newer — that is a
	// cross-document comparison the Facebook performs.
	Verify(publicKey crypto.PublicKey) bool
}

type baseDocument struct {
	types.Dictionary

	id        ID
	docType   string
	data      string
	signature []byte
	timestamp time.Time
}

// DefaultDocumentType derives the default per §3: user→VISA, group→BULLETIN,
// else PROFILE.
func DefaultDocumentType(id ID) string {
	switch {
	case id.IsUser():
		return VisaType
	case id.IsGroup():
		return BulletinType
	default:
		return ProfileType
	}
}

// NewDocument creates an unsigned Document for id carrying properties.
// Call Sign before transmitting.
func NewDocument(id ID, docType string, properties types.StringKeyMap) (Document, error) {
	if docType == "" {
		docType = DefaultDocumentType(id)
	}
	raw, err := json.Marshal(properties)
	if err != nil {
		return nil, err
	}
	dict := types.StringKeyMap{
		"did":  id.String(),
		"type": docType,
		"data": string(raw),
	}
	return &baseDocument{Dictionary: types.NewDictionary(dict), id: id, docType: docType, data: string(raw)}, nil
}

// ParseDocument parses a Document from its wire dictionary.
func ParseDocument(dict types.StringKeyMap) (Document, error) {
	d := types.NewDictionary(dict)
	idText := d.GetString("did")
	if idText == "" {
		return nil, errors.New("mkm: document missing did")
	}
	id, err := GetID(idText)
	if err != nil {
		return nil, err
	}
	docType := d.GetString("type")
	if docType == "" {
		docType = DefaultDocumentType(id)
	}
	doc := &baseDocument{Dictionary: d, id: id, docType: docType, data: d.GetString("data")}
	if sig := d.GetString("signature"); sig != "" {
		raw, err := crypto.Base64Decode(sig)
		if err != nil {
			return nil, err
		}
		doc.signature = raw
	}
	if ts, ok := d.Get("time").(float64); ok {
		doc.timestamp = time.Unix(int64(ts), 0).UTC()
	}
	// A VISA carries an EncryptKey, so the wire form is re-wrapped as a
	// visaDocument — otherwise a round-tripped document loses the
	// ability to satisfy the Visa interface (§3).
	if docType == VisaType {
		return &visaDocument{baseDocument: doc}, nil
	}
	return doc, nil
}

func (d *baseDocument) ID() ID        { return d.id }
func (d *baseDocument) Type() string  { return d.docType }
func (d *baseDocument) Time() time.Time { return d.timestamp }

func (d *baseDocument) Properties() (types.StringKeyMap, error) {
	var props types.StringKeyMap
	if err := json.Unmarshal([]byte(d.data), &props); err != nil {
		return nil, err
	}
	return props, nil
}

// Sign stamps time to now and signs `data` with privateKey (§3).
func (d *baseDocument) Sign(privateKey crypto.PrivateKey) error {
	d.timestamp = time.Now().UTC()
	d.signature = privateKey.Sign([]byte(d.data))
	d.Set("signature", crypto.Base64Encode(d.signature))
	d.Set("time", float64(d.timestamp.Unix()))
	return nil
}

// Verify re-checks the future-timestamp guard and the signature against
// publicKey (§3).
func (d *baseDocument) Verify(publicKey crypto.PublicKey) bool {
	if len(d.signature) == 0 {
		return false
	}
	if d.timestamp.After(time.Now().UTC().Add(futureTolerance)) {
		return false
	}
	return publicKey.Verify([]byte(d.data), d.signature)
}

// ExpiredRelativeToNewer reports whether other is the same document type
// with a strictly later time than d (§3 "expired relative to a newer one").
func ExpiredRelativeToNewer(d, other Document) bool {
	return d.Type() == other.Type() && other.Time().After(d.Time())
}

// Visa is a user Document additionally carrying an EncryptKey used to
// wrap symmetric session keys sent to its owner (§3).
type Visa interface {
	Document

	EncryptKey() (crypto.EncryptKey, error)
	SetEncryptKey(key crypto.EncryptKey)
}

type visaDocument struct {
	*baseDocument
}

func NewVisa(id ID, properties types.StringKeyMap, encryptKey crypto.EncryptKey) (Visa, error) {
	base, err := NewDocument(id, VisaType, properties)
	if err != nil {
		return nil, err
	}
	v := &visaDocument{baseDocument: base.(*baseDocument)}
	v.SetEncryptKey(encryptKey)
	return v, nil
}

func (v *visaDocument) SetEncryptKey(key crypto.EncryptKey) {
	v.Set("key", key.GetMap(false))
}

func (v *visaDocument) EncryptKey() (crypto.EncryptKey, error) {
	keyMap, ok := v.Get("key").(types.StringKeyMap)
	if !ok {
		return nil, errors.New("mkm: visa has no encrypt key")
	}
	algorithm, _ := keyMap["algorithm"].(string)
	if algorithm != crypto.RSA {
		return nil, errors.New("mkm: visa encrypt key must be RSA")
	}
	return crypto.ParseRSAPublicKey(keyMap)
}

// Bulletin is a group Document (§3); it carries no EncryptKey.
type Bulletin interface {
	Document
}

func NewBulletin(id ID, properties types.StringKeyMap) (Bulletin, error) {
	base, err := NewDocument(id, BulletinType, properties)
	if err != nil {
		return nil, err
	}
	return base.(*baseDocument), nil
}
