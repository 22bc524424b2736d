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

	"github.com/dimchat/dim-go/internal/config"
)

// LockedDock pairs an ArrivalHall and DepartureHall under one Porter,
// rate-limiting Purge to the configured PurgeInterval (§4.6 "Purge is
// rate-limited to at most once per 30 s").
type LockedDock struct {
	Arrivals   *ArrivalHall
	Departures *DepartureHall

	mutex         sync.Mutex
	lastPurge     time.Time
	purgeInterval time.Duration
}

// NewLockedDock builds a LockedDock. cfg supplies every timing constant
// its ArrivalHall/DepartureHall/PurgeInterval need; a nil cfg falls back
// to config.Load()'s defaults.
func NewLockedDock(cfg *config.Transport) *LockedDock {
	if cfg == nil {
		cfg = config.Load()
	}
	return &LockedDock{
		Arrivals:      NewArrivalHall(cfg),
		Departures:    NewDepartureHall(cfg),
		purgeInterval: cfg.PurgeInterval,
	}
}

// Purge runs ArrivalHall.Purge if at least PurgeInterval has elapsed
// since the last sweep; otherwise it is a no-op and returns -1.
func (d *LockedDock) Purge(now time.Time) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if !d.lastPurge.IsZero() && now.Sub(d.lastPurge) < d.purgeInterval {
		return -1
	}
	d.lastPurge = now
	return d.Arrivals.Purge(now)
}
