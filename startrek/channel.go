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

// Package startrek implements the transport scheduling component (§4.7):
// Porter, Hub, and the ActiveConnection self-heal driver.
package startrek

import (
	"net"
	"time"
)

// Channel is the byte-channel abstraction a Porter writes fragments to
// and a ConnectionStateMachine observes for liveness (§4.5, §4.7).
type Channel interface {
	RemoteAddress() net.Addr
	LocalAddress() net.Addr

	IsOpen() bool
	IsAlive() bool
	IsWritable() bool

	// Write returns the number of bytes actually written; a short write
	// is not an error (§4.7 point 3 "keep the remainder... for
	// resumption").
	Write(data []byte) (int, error)
	Read(buffer []byte) (int, error)

	Close() error

	LastReceivedAt() time.Time
	LastSentAt() time.Time
}
