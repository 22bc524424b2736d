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
	"encoding/binary"
	"errors"
	"strings"

	"github.com/dimchat/dim-go/crypto"
)

// Address is the canonical string form of an entity's location on the
// network; it carries a NetworkType and round-trips through String()
// (§3 "round-trip parse(format(a)) == a").
type Address interface {
	String() string
	Network() NetworkType
	IsBroadcast() bool
	IsUser() bool
	IsGroup() bool
}

const (
	AnywhereString   = "anywhere"
	EverywhereString = "everywhere"
)

// constantAddress implements the two fixed broadcast addresses (§3c).
type constantAddress struct {
	text    string
	network NetworkType
}

func (a *constantAddress) String() string       { return a.text }
func (a *constantAddress) Network() NetworkType  { return a.network }
func (a *constantAddress) IsBroadcast() bool     { return true }
func (a *constantAddress) IsUser() bool          { return IsUser(a.network) }
func (a *constantAddress) IsGroup() bool         { return IsGroup(a.network) }

var (
	Anywhere   Address = &constantAddress{text: AnywhereString, network: MAIN}
	Everywhere Address = &constantAddress{text: EverywhereString, network: GROUP}
)

// btcAddress is the Base58 `network‖hash160‖check4` form (§3a).
type btcAddress struct {
	text    string
	network NetworkType
}

func (a *btcAddress) String() string      { return a.text }
func (a *btcAddress) Network() NetworkType { return a.network }
func (a *btcAddress) IsBroadcast() bool    { return false }
func (a *btcAddress) IsUser() bool         { return IsUser(a.network) }
func (a *btcAddress) IsGroup() bool        { return IsGroup(a.network) }

// GenerateBTCAddress derives a BTC-style address from a fingerprint (the
// signature produced over the Meta seed) and a network byte (§3a, §4.2
// "BTC/ExBTC use public-key bytes with RIPEMD160").
func GenerateBTCAddress(fingerprint []byte, network NetworkType) Address {
	hash := crypto.RIPEMD160SHA256(fingerprint)
	payload := append([]byte{network}, hash...)
	checksum := crypto.DoubleSHA256(payload)
	full := append(payload, checksum[:4]...)
	return &btcAddress{text: crypto.Base58Encode(full), network: network}
}

// ParseBTCAddress parses and re-verifies a BTC-style address string,
// re-deriving check4 as the invariant in §3a requires.
func ParseBTCAddress(text string) (Address, error) {
	raw, err := crypto.Base58Decode(text)
	if err != nil {
		return nil, err
	}
	if len(raw) != 25 {
		return nil, errors.New("mkm: invalid BTC address length")
	}
	payload := raw[:21]
	check4 := raw[21:]
	expected := crypto.DoubleSHA256(payload)
	if string(expected[:4]) != string(check4) {
		return nil, errors.New("mkm: BTC address checksum mismatch")
	}
	return &btcAddress{text: text, network: payload[0]}, nil
}

// ethAddress is the "0x" + EIP-55-cased hex form (§3b).
type ethAddress struct {
	text    string
	network NetworkType
}

func (a *ethAddress) String() string      { return a.text }
func (a *ethAddress) Network() NetworkType { return a.network }
func (a *ethAddress) IsBroadcast() bool    { return false }
func (a *ethAddress) IsUser() bool         { return IsUser(a.network) }
func (a *ethAddress) IsGroup() bool        { return IsGroup(a.network) }

// GenerateETHAddress derives an ETH-style address from the 64-byte
// uncompressed public key point (prefix stripped) per §3b, §4.2.
func GenerateETHAddress(publicKeyPoint []byte, network NetworkType) Address {
	point := publicKeyPoint
	if len(point) == 65 && point[0] == 0x04 {
		point = point[1:]
	}
	digest := crypto.KECCAK256(point)
	tail := digest[len(digest)-20:]
	text := eip55Checksum(crypto.HexEncode(tail))
	return &ethAddress{text: "0x" + text, network: network}
}

// ParseETHAddress parses a "0x"-prefixed ETH address string. Network is
// not recoverable from the address bytes (§3b carries no network byte),
// so callers that need it pass it alongside out-of-band; parse alone
// defaults to MAIN.
func ParseETHAddress(text string) (Address, error) {
	if len(text) != 42 || !strings.HasPrefix(text, "0x") {
		return nil, errors.New("mkm: invalid ETH address length")
	}
	if _, err := crypto.HexDecode(text[2:]); err != nil {
		return nil, err
	}
	return &ethAddress{text: text, network: MAIN}, nil
}

// eip55Checksum applies the EIP-55 mixed-case checksum to a lowercase hex
// string: a hex digit is uppercased iff the corresponding nibble of
// KECCAK256(lowercase_hex) is >= 8 (§3b).
func eip55Checksum(lowerHex string) string {
	hash := crypto.KECCAK256([]byte(lowerHex))
	out := make([]byte, len(lowerHex))
	for i, c := range []byte(lowerHex) {
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			} else {
				nibble &= 0x0f
			}
			if nibble >= 8 {
				out[i] = c - 'a' + 'A'
				continue
			}
		}
		out[i] = c
	}
	return string(out)
}

// ParseAddress discriminates by string length (§3 "Parse discrimination
// is by length (8/10/26–35/42)") and dispatches to the matching variant.
func ParseAddress(text string) (Address, error) {
	switch {
	case text == AnywhereString:
		return Anywhere, nil
	case text == EverywhereString:
		return Everywhere, nil
	case len(text) == 42 && strings.HasPrefix(text, "0x"):
		return ParseETHAddress(text)
	case len(text) >= 26 && len(text) <= 35:
		return ParseBTCAddress(text)
	default:
		return nil, errors.New("mkm: unrecognized address format")
	}
}

// AnonymousNumber derives the 10-digit decimal display code used when a
// Document has no `name` (§4.2 "Anonymous naming"): the last 4 bytes of
// the decoded address payload, read as big-endian u32, formatted
// "XXX-XXX-XXXX".
func AnonymousNumber(address Address) (string, error) {
	var tail []byte
	switch a := address.(type) {
	case *btcAddress:
		raw, err := crypto.Base58Decode(a.text)
		if err != nil {
			return "", err
		}
		tail = raw[len(raw)-4:]
	case *ethAddress:
		raw, err := crypto.HexDecode(strings.TrimPrefix(a.text, "0x"))
		if err != nil {
			return "", err
		}
		tail = raw[len(raw)-4:]
	default:
		return "", errors.New("mkm: anonymous naming not defined for this address kind")
	}
	number := binary.BigEndian.Uint32(tail) % 10000000000
	digits := [10]byte{}
	for i := 9; i >= 0; i-- {
		digits[i] = byte('0' + number%10)
		number /= 10
	}
	s := string(digits[:])
	return s[0:3] + "-" + s[3:6] + "-" + s[6:10], nil
}
