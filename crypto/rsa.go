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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"

	gotypes "github.com/dimchat/dim-go/types"
)

const rsaKeyBits = 1024

// RSAPrivateKey implements PrivateKey + DecryptKey (§4.1: RSA 1024-bit,
// exponent 65537, PKCS1 padding, SHA256 signatures).
type RSAPrivateKey struct {
	gotypes.Dictionary

	key *rsa.PrivateKey
	pub *RSAPublicKey
}

func GenerateRSAPrivateKey() (*RSAPrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, err
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	dict := gotypes.StringKeyMap{
		"algorithm": RSA,
		"data":      Base64Encode(pem.EncodeToMemory(block)),
	}
	priv := &RSAPrivateKey{Dictionary: gotypes.NewDictionary(dict), key: key}
	return priv, nil
}

// ParseRSAPrivateKey parses a private key from its wire dictionary.
func ParseRSAPrivateKey(dict gotypes.StringKeyMap) (*RSAPrivateKey, error) {
	priv := &RSAPrivateKey{Dictionary: gotypes.NewDictionary(dict)}
	b64 := priv.GetString("data")
	raw, err := Base64Decode(b64)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	var der []byte
	if block != nil {
		der = block.Bytes
	} else {
		der = raw
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, err
	}
	priv.key = key
	return priv, nil
}

func (k *RSAPrivateKey) Algorithm() string { return RSA }
func (k *RSAPrivateKey) Data() []byte      { return x509.MarshalPKCS1PrivateKey(k.key) }

func (k *RSAPrivateKey) Sign(data []byte) []byte {
	hash := sha256.Sum256(data)
	signature, err := rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, hash[:])
	if err != nil {
		panic(err)
	}
	return signature
}

func (k *RSAPrivateKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, k.key, ciphertext)
}

// PublicKey lazily derives and caches the matching public key (§4.1).
func (k *RSAPrivateKey) PublicKey() PublicKey {
	if k.pub == nil {
		der, err := x509.MarshalPKIXPublicKey(&k.key.PublicKey)
		if err != nil {
			panic(err)
		}
		dict := gotypes.StringKeyMap{
			"algorithm": RSA,
			"data":      Base64Encode(der),
		}
		k.pub = &RSAPublicKey{Dictionary: gotypes.NewDictionary(dict), key: &k.key.PublicKey}
	}
	return k.pub
}

// RSAPublicKey implements PublicKey + EncryptKey.
type RSAPublicKey struct {
	gotypes.Dictionary

	key *rsa.PublicKey
}

// ParseRSAPublicKey parses a public key from its wire dictionary. Accepts
// either a PKIX DER blob or a raw PKCS1 DER blob.
func ParseRSAPublicKey(dict gotypes.StringKeyMap) (*RSAPublicKey, error) {
	pub := &RSAPublicKey{Dictionary: gotypes.NewDictionary(dict)}
	b64 := pub.GetString("data")
	raw, err := Base64Decode(b64)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	if key, err := x509.ParsePKIXPublicKey(raw); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("crypto: not an RSA public key")
		}
		pub.key = rsaKey
		return pub, nil
	}
	key, err := x509.ParsePKCS1PublicKey(raw)
	if err != nil {
		return nil, err
	}
	pub.key = key
	return pub, nil
}

func (k *RSAPublicKey) Algorithm() string { return RSA }
func (k *RSAPublicKey) Data() []byte {
	der, _ := x509.MarshalPKIXPublicKey(k.key)
	return der
}

func (k *RSAPublicKey) Verify(data []byte, signature []byte) bool {
	hash := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(k.key, crypto.SHA256, hash[:], signature) == nil
}

func (k *RSAPublicKey) MatchSignKey(sKey SignKey) bool {
	probe := []byte("Moky loves May Lee forever!")
	signature := sKey.Sign(probe)
	return k.Verify(probe, signature)
}

func (k *RSAPublicKey) Encrypt(plaintext []byte) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, k.key, plaintext)
}

func (k *RSAPublicKey) MatchDecryptKey(dKey DecryptKey) bool {
	probe := []byte("Moky loves May Lee forever!")
	ciphertext, err := k.Encrypt(probe)
	if err != nil {
		return false
	}
	plaintext, err := dKey.Decrypt(ciphertext)
	return err == nil && string(plaintext) == string(probe)
}
