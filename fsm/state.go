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

// Package fsm implements the connection state machine (§4.5): six
// states driven by a 1 Hz tick, tracking channel liveness and recv/send
// recency to decide transitions.
package fsm

import "time"

// State enumerates the six connection states of §4.5.
type State string

const (
	Init        State = "init"
	Preparing   State = "preparing"
	Ready       State = "ready"
	Expired     State = "expired"
	Maintaining State = "maintaining"
	Error       State = "error"
)

// Channel is the liveness/activity source the machine observes. It is
// supplied by the caller (typically a Connection) rather than owned by
// the machine.
type Channel interface {
	IsOpen() bool
	IsAlive() bool
	LastReceivedAt() time.Time
	LastSentAt() time.Time
}
