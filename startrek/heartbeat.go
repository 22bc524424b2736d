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

package startrek

import "github.com/dimchat/dim-go/dock"

// The four-byte ASCII control payloads recognized by the "plain" Porter
// variant (§6 "Heartbeat protocol", §4.5).
var (
	Ping = []byte("PING")
	Pong = []byte("PONG")
	Noop = []byte("NOOP")
)

// plainArrival is the "plain" Porter's Arrival: no framing of its own,
// the whole read is one ship (§6).
type plainArrival struct {
	payload []byte
}

// NewPlainArrival wraps a raw byte read that carries no internal framing
// (§6 "A 'plain' Porter variant accepts a byte stream with no framing of
// its own and treats the whole read as one Arrival").
func NewPlainArrival(payload []byte) dock.Arrival {
	return &plainArrival{payload: payload}
}

func (a *plainArrival) SN() string { return "" }

func (a *plainArrival) Assemble(_ dock.Arrival) (dock.Arrival, bool) {
	return a, true
}

func (a *plainArrival) Payload() []byte { return a.payload }

// IsHeartbeat reports whether arrival is a bare PING/PONG/NOOP control
// payload, in which case the Porter consumes it and it never bubbles up
// to the delegate (§4.5, §6).
func IsHeartbeat(arrival dock.Arrival) bool {
	plain, ok := arrival.(*plainArrival)
	if !ok {
		return false
	}
	payload := plain.payload
	return bytesEqual(payload, Ping) || bytesEqual(payload, Pong) || bytesEqual(payload, Noop)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// plainDeparture is the matching outbound ship for the heartbeat bytes.
type plainDeparture struct {
	payload  []byte
	priority int
}

func NewHeartbeatDeparture(payload []byte, priority int) dock.Departure {
	return &plainDeparture{payload: payload, priority: priority}
}

func (d *plainDeparture) SN() string          { return "" }
func (d *plainDeparture) Priority() int       { return d.priority }
func (d *plainDeparture) MaxTries() int       { return 1 }
func (d *plainDeparture) IsImportant() bool   { return false }
func (d *plainDeparture) Fragments() [][]byte { return [][]byte{d.payload} }
