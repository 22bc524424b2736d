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
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"github.com/dimchat/dim-go/types"
)

const (
	aesKeySize = 32 // AES-256
	aesIVSize  = 16
)

// AESKey implements SymmetricKey as AES/CBC/PKCS7 (§4.1). The IV is
// generated fresh per Encrypt call and handed back to the caller through
// extra["IV"] (base64); Decrypt reads it back from params["IV"],
// defaulting to an all-zero IV when absent.
type AESKey struct {
	types.Dictionary

	data []byte
}

func NewAESKey(dict types.StringKeyMap) *AESKey {
	key := &AESKey{Dictionary: types.NewDictionary(dict)}
	if b64 := key.GetString("data"); b64 != "" {
		if raw, err := Base64Decode(b64); err == nil {
			key.data = raw
		}
	}
	return key
}

// GenerateAESKey creates a fresh random AES-256 key.
func GenerateAESKey() *AESKey {
	raw := make([]byte, aesKeySize)
	_, _ = rand.Read(raw)
	dict := types.StringKeyMap{
		"algorithm": AES,
		"data":      Base64Encode(raw),
	}
	key := NewAESKey(dict)
	key.data = raw
	return key
}

func (k *AESKey) Algorithm() string { return AES }
func (k *AESKey) Data() []byte      { return k.data }

func (k *AESKey) Encrypt(plaintext []byte, extra types.StringKeyMap) []byte {
	iv := make([]byte, aesIVSize)
	_, _ = rand.Read(iv)
	if extra != nil {
		extra["IV"] = Base64Encode(iv)
	}
	return aesCBCEncrypt(k.data, iv, pkcs7Pad(plaintext, aes.BlockSize))
}

func (k *AESKey) Decrypt(ciphertext []byte, params types.StringKeyMap) ([]byte, error) {
	iv := make([]byte, aesIVSize)
	if params != nil {
		if b64, ok := params["IV"].(string); ok && b64 != "" {
			if raw, err := Base64Decode(b64); err == nil && len(raw) == aesIVSize {
				iv = raw
			}
		}
	}
	padded, err := aesCBCDecrypt(k.data, iv, ciphertext)
	if err != nil {
		return nil, err
	}
	return pkcs7Unpad(padded)
}

func (k *AESKey) MatchEncryptKey(key SymmetricKey) bool {
	probe := []byte("Moky loves May Lee forever!")
	extra := types.StringKeyMap{}
	ciphertext := key.Encrypt(probe, extra)
	plaintext, err := k.Decrypt(ciphertext, extra)
	return err == nil && bytes.Equal(plaintext, probe)
}

func aesCBCEncrypt(key, iv, padded []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("crypto: ciphertext is not a multiple of the block size")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		return nil, errors.New("crypto: cannot unpad empty data")
	}
	padLen := int(data[length-1])
	if padLen == 0 || padLen > length {
		return nil, errors.New("crypto: invalid PKCS7 padding")
	}
	return data[:length-padLen], nil
}

// PlainKey is a null cipher: Encrypt/Decrypt are identity functions. It is
// used exclusively when the receiver is the broadcast address, so the
// pipeline's "must encrypt" contract holds uniformly even though nobody
// can hold a broadcast private key (§4.1).
type PlainKey struct {
	types.Dictionary
}

const PlainKeyAlgorithm = "PLAIN"

var sharedPlainKey = newPlainKey()

func newPlainKey() *PlainKey {
	return &PlainKey{Dictionary: types.NewDictionary(types.StringKeyMap{
		"algorithm": PlainKeyAlgorithm,
	})}
}

// GetPlainKey returns the process-wide PlainKey singleton.
func GetPlainKey() *PlainKey { return sharedPlainKey }

func (k *PlainKey) Algorithm() string { return PlainKeyAlgorithm }
func (k *PlainKey) Data() []byte      { return nil }

func (k *PlainKey) Encrypt(plaintext []byte, _ types.StringKeyMap) []byte {
	return plaintext
}

func (k *PlainKey) Decrypt(ciphertext []byte, _ types.StringKeyMap) ([]byte, error) {
	return ciphertext, nil
}

func (k *PlainKey) MatchEncryptKey(key SymmetricKey) bool {
	_, isPlain := key.(*PlainKey)
	return isPlain
}
