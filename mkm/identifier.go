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

import "strings"

// ID is the `[name@]address[/terminal]` identifier of §3. Parsing is
// split-then-cache; String() is the cache key (§4.2).
type ID interface {
	String() string
	Name() string
	Address() Address
	Terminal() string

	IsBroadcast() bool
	IsUser() bool
	IsGroup() bool
}

type identifier struct {
	text     string
	name     string
	address  Address
	terminal string
}

func (id *identifier) String() string    { return id.text }
func (id *identifier) Name() string      { return id.name }
func (id *identifier) Address() Address  { return id.address }
func (id *identifier) Terminal() string  { return id.terminal }
func (id *identifier) IsBroadcast() bool { return id.address.IsBroadcast() }
func (id *identifier) IsUser() bool      { return id.address.IsUser() }
func (id *identifier) IsGroup() bool     { return id.address.IsGroup() }

// NewID builds an ID from already-known parts without touching the
// factory cache (used by the factory itself, and by Meta-driven
// generation before the result is cached).
func NewID(name string, address Address, terminal string) ID {
	text := address.String()
	if name != "" {
		text = name + "@" + text
	}
	if terminal != "" {
		text = text + "/" + terminal
	}
	return &identifier{text: text, name: name, address: address, terminal: terminal}
}

// splitIdentifierParts parses `[name@]address[/terminal]` without resolving
// the cache; callers needing the Address object must parse it with
// ParseAddress and reassemble via NewID.
func splitIdentifierParts(text string) (name, addressText, terminal string) {
	rest := text
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		terminal = rest[slash+1:]
		rest = rest[:slash]
	}
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		name = rest[:at]
		addressText = rest[at+1:]
	} else {
		addressText = rest
	}
	return name, addressText, terminal
}

// BroadcastIDAny / BroadcastIDEvery are the anyone/everyone singletons
// whose PlainKey-based encryption makes the "must encrypt" pipeline
// contract hold uniformly (§4.1).
var (
	BroadcastIDAny   = NewID("anyone", Anywhere, "")
	BroadcastIDEvery = NewID("everyone", Everywhere, "")
)
