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
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimchat/dim-go/internal/config"
)

type departureEntry struct {
	ship      Departure
	tries     int
	nextRetry time.Time
	done      bool
	failed    bool
}

// DepartureHall is the §4.6 priority/retry queue of outgoing ships.
type DepartureHall struct {
	mutex   sync.Mutex
	entries map[string]*departureEntry
	order   []string // insertion order, broken by priority at pop time

	// tRetry is the §4.6 "schedule next retry at now + T_retry" gap,
	// sourced from config.Transport (§10).
	tRetry time.Duration
}

// NewDepartureHall builds a DepartureHall. cfg supplies TRetry; a nil
// cfg falls back to config.Load()'s defaults.
func NewDepartureHall(cfg *config.Transport) *DepartureHall {
	if cfg == nil {
		cfg = config.Load()
	}
	return &DepartureHall{entries: make(map[string]*departureEntry), tRetry: cfg.TRetry}
}

// AddDeparture enqueues ship for sending, returning false (without
// touching the existing entry) if its SN is already queued (§8 testable
// property 8: "addDeparture(x) twice returns false the second time").
func (h *DepartureHall) AddDeparture(ship Departure) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	sn := ship.SN()
	if _, exists := h.entries[sn]; exists {
		return false
	}
	h.entries[sn] = &departureEntry{ship: ship, tries: ship.MaxTries()}
	h.order = append(h.order, sn)
	return true
}

// CheckResponse implements §4.6 point 3: a ship whose SN matches an
// incoming Arrival's SN is marked done regardless of remaining tries.
// Once an entry has already been matched, further calls return nil
// (§8 testable property 8: "checkResponse(ack) returns the matching
// Departure exactly once, null thereafter").
func (h *DepartureHall) CheckResponse(arrival Arrival) Departure {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	entry, ok := h.entries[arrival.SN()]
	if !ok || entry.done {
		return nil
	}
	entry.done = true
	return entry.ship
}

// GetNextDeparture implements §4.6's selection algorithm: prefer a ship
// whose retry clock has fired and which still has tries remaining;
// otherwise pop the highest-priority fresh ship (lower Priority() value
// wins), decrementing tries and arming the next retry. A ship that has
// exhausted MaxTries without an ack transitions to failed and is
// returned as the second value so the caller can surface
// onPorterFailed(IOError("Request timeout")).
func (h *DepartureHall) GetNextDeparture(now time.Time) (Departure, *IOError) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.reapDone()

	candidates := make([]string, 0, len(h.order))
	for _, sn := range h.order {
		if _, ok := h.entries[sn]; ok {
			candidates = append(candidates, sn)
		}
	}
	h.order = candidates

	// point 4: surface ships that exhausted their tries
	for _, sn := range candidates {
		entry := h.entries[sn]
		if entry.failed {
			continue
		}
		if entry.tries <= 0 {
			entry.failed = true
			timeoutErr := NewRequestTimeoutError()
			logrus.WithFields(logrus.Fields{"sn": sn, "correlation_id": timeoutErr.CorrelationID}).
				Warn("departure exhausted its retries")
			return nil, timeoutErr
		}
	}

	// point 1: retry-ready ships first
	for _, sn := range candidates {
		entry := h.entries[sn]
		if entry.failed || entry.done {
			continue
		}
		if !entry.nextRetry.IsZero() && !now.Before(entry.nextRetry) && entry.tries > 0 {
			entry.tries--
			entry.nextRetry = now.Add(h.tRetry)
			return entry.ship, nil
		}
	}

	// point 2: highest-priority fresh ship (never yet attempted)
	fresh := make([]string, 0, len(candidates))
	for _, sn := range candidates {
		entry := h.entries[sn]
		if !entry.failed && !entry.done && entry.nextRetry.IsZero() {
			fresh = append(fresh, sn)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return h.entries[fresh[i]].ship.Priority() < h.entries[fresh[j]].ship.Priority()
	})
	if len(fresh) == 0 {
		return nil, nil
	}
	entry := h.entries[fresh[0]]
	entry.tries--
	entry.nextRetry = now.Add(h.tRetry)
	return entry.ship, nil
}

// reapDone drops entries marked done or failed. Must be called with the
// mutex held.
func (h *DepartureHall) reapDone() {
	for sn, entry := range h.entries {
		if entry.done || entry.failed {
			delete(h.entries, sn)
		}
	}
}
