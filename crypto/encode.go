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
	"encoding/base64"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// Base64Encode/Decode: the wire encoding for key material and ciphertext
// (§4.1, §6 "Key wrap envelope").
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func Base64Decode(text string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(text)
}

// HexEncode/Decode: debug formatting and ETH address hex digits.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

func HexDecode(text string) ([]byte, error) {
	return hex.DecodeString(text)
}

// Base58Encode/Decode: BTC-style address encoding (§3 Address).
func Base58Encode(data []byte) string {
	return base58.Encode(data)
}

func Base58Decode(text string) ([]byte, error) {
	return base58.Decode(text)
}
