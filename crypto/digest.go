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
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 * ==============================================================================
 */

package crypto

import (
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 required for BTC-style addresses
)

// SHA256 returns the plain SHA-256 digest of data.
func SHA256(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}

// RIPEMD160 returns the RIPEMD-160 digest of data, used by BTC-style
// address derivation over SHA256(fingerprint).
func RIPEMD160(data []byte) []byte {
	hasher := ripemd160.New()
	_, _ = hasher.Write(data)
	return hasher.Sum(nil)
}

// KECCAK256 returns the Keccak-256 digest of data, used by ETH-style
// address derivation and the EIP-55 checksum.
func KECCAK256(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// RIPEMD160SHA256 is the BTC-style "hash160": RIPEMD160(SHA256(data)).
func RIPEMD160SHA256(data []byte) []byte {
	return RIPEMD160(SHA256(data))
}

// DoubleSHA256 is the BTC-style double hash used by the address checksum.
func DoubleSHA256(data []byte) []byte {
	return SHA256(SHA256(data))
}
