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

// NetworkType is the single byte an Address carries to say what kind of
// entity it names (§3 "a canonical string with a network-type byte").
type NetworkType = byte

const (
	MAIN    NetworkType = 0x00 // ordinary person
	GROUP   NetworkType = 0x04 // polylogue
	CHATROOM NetworkType = 0x0C
	PROVIDER NetworkType = 0x76 // service provider
	STATION  NetworkType = 0x88 // server node
	THING    NetworkType = 0x80 // IoT device
	ROBOT    NetworkType = 0x84
)

// IsGroup reports whether network names a group-like entity. §3 only
// fixes two constant addresses (ANYWHERE/EVERYWHERE); all other network
// values are caller-defined, so this checks an explicit list: GROUP,
// CHATROOM and PROVIDER are group-like, every other value (including
// ROBOT, STATION and THING) is not.
func IsGroup(network NetworkType) bool {
	return network == GROUP || network == CHATROOM || network == PROVIDER
}

// IsUser reports whether network names an individual account capable of
// holding its own private keys.
func IsUser(network NetworkType) bool {
	return !IsGroup(network)
}

// MetaType enumerates the Meta.type values of §3.
type MetaType = uint8

const (
	MKMType   MetaType = 1
	BTCType   MetaType = 2
	ExBTCType MetaType = 3
	ETHType   MetaType = 4
	ExETHType MetaType = 5
)

// HasSeed reports the §3 invariant `hasSeed(type) ⇔ (type & 1) == 1`.
func HasSeed(metaType MetaType) bool {
	return metaType&1 == 1
}
