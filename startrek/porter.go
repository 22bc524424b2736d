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

import (
	"time"

	"github.com/dimchat/dim-go/dock"
	"github.com/dimchat/dim-go/internal/config"
)

// PorterDelegate receives the outcomes of one process() step (§4.7).
type PorterDelegate interface {
	OnPorterReceived(arrivals []dock.Arrival)
	OnPorterSent(ship dock.Departure)
	OnPorterFailed(err *dock.IOError, ship dock.Departure)
	OnPorterError(err error, ship dock.Departure)
}

// partialSend tracks an in-flight Departure across short writes (§4.7
// point 3).
type partialSend struct {
	ship           dock.Departure
	fragments      [][]byte
	fragmentOffset int
}

// Porter owns a Channel (held weakly per §5 — modeled here as a plain
// pointer the caller is responsible for nulling on teardown, since Go's
// GC needs no help breaking the cycle) plus a Dock, and is driven by a
// single-threaded scheduler calling process() (§4.7).
type Porter struct {
	Channel    Channel
	Dock       *dock.LockedDock
	Delegate   PorterDelegate
	GetArrivals func(data []byte) []dock.Arrival

	pending *partialSend
}

// NewPorter builds a Porter. cfg supplies every timing constant its
// LockedDock needs; a nil cfg falls back to config.Load()'s defaults.
func NewPorter(ch Channel, delegate PorterDelegate, getArrivals func(data []byte) []dock.Arrival, cfg *config.Transport) *Porter {
	return &Porter{
		Channel:     ch,
		Dock:        dock.NewLockedDock(cfg),
		Delegate:    delegate,
		GetArrivals: getArrivals,
	}
}

// Process runs one outbound scheduling step (§4.7 steps 1-5). It returns
// false when the caller should "sleep" (nothing to do / channel not
// ready) and true when it should be called again immediately.
func (p *Porter) Process(now time.Time) bool {
	if p.Channel == nil || !p.Channel.IsWritable() {
		return false
	}

	if p.pending == nil {
		ship, timeoutErr := p.Dock.Departures.GetNextDeparture(now)
		if timeoutErr != nil {
			p.Delegate.OnPorterFailed(timeoutErr, ship)
			return true
		}
		if ship == nil {
			return false
		}
		p.pending = &partialSend{ship: ship, fragments: ship.Fragments()}
	}

	send := p.pending
	for len(send.fragments) > 0 {
		fragment := send.fragments[0][send.fragmentOffset:]
		n, err := p.Channel.Write(fragment)
		if err != nil {
			p.Delegate.OnPorterError(err, send.ship)
			return true
		}
		if n < len(fragment) {
			send.fragmentOffset += n
			return true
		}
		send.fragments = send.fragments[1:]
		send.fragmentOffset = 0
	}

	ship := send.ship
	p.pending = nil
	if !ship.IsImportant() {
		p.Delegate.OnPorterSent(ship)
	}
	return true
}

// ReceiveBytes runs the inbound path: parse zero or more Arrivals,
// filter each through checkArrival, and deliver survivors to the
// delegate (§4.7).
func (p *Porter) ReceiveBytes(data []byte) {
	if p.GetArrivals == nil {
		return
	}
	arrivals := p.GetArrivals(data)
	survivors := make([]dock.Arrival, 0, len(arrivals))
	for _, arrival := range arrivals {
		if survivor := p.checkArrival(arrival); survivor != nil {
			survivors = append(survivors, survivor)
		}
	}
	if len(survivors) > 0 {
		p.Delegate.OnPorterReceived(survivors)
	}
}

// checkArrival consumes heartbeats, matches responses to outgoing ships,
// and assembles fragments via the Dock (§4.7).
func (p *Porter) checkArrival(arrival dock.Arrival) dock.Arrival {
	if IsHeartbeat(arrival) {
		return nil
	}
	if ship := p.Dock.Departures.CheckResponse(arrival); ship != nil {
		return nil
	}
	return p.Dock.Arrivals.AssembleArrival(arrival)
}
