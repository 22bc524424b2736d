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

package dock

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimchat/dim-go/internal/config"
)

type arrivalEntry struct {
	ship      Arrival
	lastTouch time.Time
}

// ArrivalHall reassembles fragmented inbound ships keyed by SN, with
// replay protection for recently-finished reassemblies (§4.6).
type ArrivalHall struct {
	mutex    sync.Mutex
	pending  map[string]*arrivalEntry
	finished map[string]time.Time

	// entryExpires/finishedRetention are the §4.6 ENTRY_EXPIRES and
	// finished-set retention windows, sourced from config.Transport (§10).
	entryExpires      time.Duration
	finishedRetention time.Duration
}

// NewArrivalHall builds an ArrivalHall. cfg supplies EntryExpires and
// FinishedRetention; a nil cfg falls back to config.Load()'s defaults.
func NewArrivalHall(cfg *config.Transport) *ArrivalHall {
	if cfg == nil {
		cfg = config.Load()
	}
	return &ArrivalHall{
		pending:           make(map[string]*arrivalEntry),
		finished:          make(map[string]time.Time),
		entryExpires:      cfg.EntryExpires,
		finishedRetention: cfg.FinishedRetention,
	}
}

// AssembleArrival implements §4.6's per-fragment handling: a ship with
// no SN is always complete; a ship whose SN is already finished is
// dropped (replay defense); otherwise the fragment is merged into any
// pending partial ship, and completion retires the SN into the finished
// set.
func (h *ArrivalHall) AssembleArrival(ship Arrival) Arrival {
	sn := ship.SN()
	if sn == "" {
		return ship
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, done := h.finished[sn]; done {
		return nil
	}

	entry, exists := h.pending[sn]
	if !exists {
		merged, complete := ship.Assemble(nil)
		if complete {
			delete(h.pending, sn)
			h.finished[sn] = time.Now()
			return merged
		}
		h.pending[sn] = &arrivalEntry{ship: merged, lastTouch: time.Now()}
		return nil
	}

	merged, complete := entry.ship.Assemble(ship)
	if complete {
		delete(h.pending, sn)
		h.finished[sn] = time.Now()
		return merged
	}
	entry.ship = merged
	entry.lastTouch = time.Now()
	return nil
}

// Purge drops pending entries untouched for longer than EntryExpires and
// finished markers older than FinishedRetention, returning the number of
// pending entries removed.
func (h *ArrivalHall) Purge(now time.Time) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	removed := 0
	for sn, entry := range h.pending {
		if now.Sub(entry.lastTouch) > h.entryExpires {
			delete(h.pending, sn)
			removed++
		}
	}
	for sn, at := range h.finished {
		if now.Sub(at) > h.finishedRetention {
			delete(h.finished, sn)
		}
	}
	if removed > 0 {
		logrus.WithField("count", removed).Debug("arrival hall purged stale fragments")
	}
	return removed
}
