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

package dimp

import (
	"sync"

	"github.com/dimchat/dim-go/dkd"
	"github.com/dimchat/dim-go/mkm"
)

// Suspended holds one message parked on the Packer's suspension queue
// (§4.4.1 step 2, §4.4.2 step 2) alongside the error map the caller
// should report if the dependency never resolves.
type Suspended struct {
	Instant  dkd.InstantMessage
	Reliable dkd.ReliableMessage
	Error    map[string]interface{}
}

// Packer gates outbound sends on receiver readiness and inbound receives
// on sender readiness, parking anything not yet ready in a suspension
// queue keyed by the missing dependency's ID string (§4.4.1 step 2,
// §4.4.2 step 2).
type Packer struct {
	facebook *Facebook

	mutex      sync.Mutex
	suspended  map[string][]Suspended
}

func NewPacker(facebook *Facebook) *Packer {
	return &Packer{facebook: facebook, suspended: make(map[string][]Suspended)}
}

// CheckReceiverReady implements §4.4.1 step 2: broadcast receivers pass
// unconditionally; a single user requires a locally-known Visa
// encrypt-key; a group is always refused — group messages must be
// delivered individually to members, never encrypted to the group ID.
func (p *Packer) CheckReceiverReady(receiver mkm.ID) (bool, error) {
	if receiver.IsBroadcast() {
		return true, nil
	}
	if receiver.IsGroup() {
		return false, nil
	}
	_, err := p.facebook.GetVisa(receiver)
	return err == nil, nil
}

// CheckSenderReady implements §4.4.2 step 2: a Visa attachment on the
// frame is accepted iff it names the sender; otherwise a cached
// encrypt-key for the sender must already exist.
func (p *Packer) CheckSenderReady(msg dkd.ReliableMessage) bool {
	if visa, ok := msg.Visa(); ok {
		return visa.ID().String() == msg.Envelope().Sender().String()
	}
	_, err := p.facebook.GetVisa(msg.Envelope().Sender())
	return err == nil
}

// SuspendOutgoing parks an Instant message pending receiver, with the
// §4.4.1 step 2 error map `{message, user}`.
func (p *Packer) SuspendOutgoing(msg dkd.InstantMessage, waitingFor mkm.ID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	key := waitingFor.String()
	p.suspended[key] = append(p.suspended[key], Suspended{
		Instant: msg,
		Error:   map[string]interface{}{"message": "encrypt key not found", "user": key},
	})
}

// SuspendIncoming parks a Reliable message pending sender readiness,
// with the §4.4.2 step 2 error map `{message, user}`.
func (p *Packer) SuspendIncoming(msg dkd.ReliableMessage, waitingFor mkm.ID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	key := waitingFor.String()
	p.suspended[key] = append(p.suspended[key], Suspended{
		Reliable: msg,
		Error:    map[string]interface{}{"message": "verify key not found", "user": key},
	})
}

// ResumeFor pops and returns every message suspended on waitingFor,
// clearing them from the queue — called once the blocking dependency
// (typically a freshly-arrived Visa/Meta) is satisfied.
func (p *Packer) ResumeFor(waitingFor mkm.ID) []Suspended {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	key := waitingFor.String()
	pending := p.suspended[key]
	delete(p.suspended, key)
	return pending
}
