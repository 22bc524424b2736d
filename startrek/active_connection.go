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
	"net"
	"sync"
	"time"

	"github.com/dimchat/dim-go/internal/config"
)

// ConnectionDriver holds the two self-heal timers for one
// ActiveConnection: ConnectionExpired bounds how long a freshly-opened
// socket may sit in "opening" before it is torn down, and
// ConnectionRetry bounds how often a new dial is attempted once the
// socket is gone (§4.7).
type ConnectionDriver struct {
	mutex     sync.Mutex
	channel   Channel
	expireAt  time.Time
	nextRetry time.Time

	// Config supplies ConnectionExpired/ConnectionRetry; left nil on a
	// struct literal, it resolves lazily to config.Load()'s defaults on
	// first use.
	Config *config.Transport
}

// resolve returns d.Config, defaulting it to config.Load() the first
// time it is needed. Must be called with the mutex held.
func (d *ConnectionDriver) resolve() *config.Transport {
	if d.Config == nil {
		d.Config = config.Load()
	}
	return d.Config
}

// Step runs one self-heal evaluation against now (§4.7): if the current
// channel is alive, clear its expiration; if it is closed or expired,
// evict it; if there is no channel and the retry clock has fired, dial a
// fresh one via hub.Open and, on success, adopt it and arm EXPIRED.
func (d *ConnectionDriver) Step(now time.Time, hub *Hub, remote, local net.Addr) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	cfg := d.resolve()

	if d.channel != nil {
		if d.channel.IsAlive() {
			d.expireAt = time.Time{}
			return
		}
		if !d.channel.IsOpen() || (!d.expireAt.IsZero() && now.After(d.expireAt)) {
			_ = d.channel.Close()
			d.channel = nil
			d.expireAt = time.Time{}
		}
		return
	}

	if !d.nextRetry.IsZero() && now.Before(d.nextRetry) {
		return
	}
	ch, err := hub.Open(remote, local)
	if err != nil {
		d.nextRetry = now.Add(cfg.ConnectionRetry)
		return
	}
	d.channel = ch
	d.expireAt = now.Add(cfg.ConnectionExpired)
	d.nextRetry = now.Add(cfg.ConnectionRetry)
}

func (d *ConnectionDriver) Channel() Channel {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.channel
}

// ActiveConnection is the client self-heal background task: a
// ForegroundTick-period tick, degrading to BackgroundTick while the
// application reports itself backgrounded (§4.7).
type ActiveConnection struct {
	Hub    *Hub
	Remote net.Addr
	Local  net.Addr
	Driver *ConnectionDriver

	// InBackground, if set, reports whether the application is currently
	// backgrounded, switching the tick period to BackgroundTick.
	InBackground func() bool

	// Config supplies ForegroundTick/BackgroundTick; a nil Config falls
	// back to config.Load()'s defaults.
	Config *config.Transport
}

// NewActiveConnection builds an ActiveConnection. cfg supplies every
// timing constant its Driver and tick loop need; a nil cfg falls back
// to config.Load()'s defaults.
func NewActiveConnection(hub *Hub, remote, local net.Addr, cfg *config.Transport) *ActiveConnection {
	if cfg == nil {
		cfg = config.Load()
	}
	return &ActiveConnection{
		Hub:    hub,
		Remote: remote,
		Local:  local,
		Driver: &ConnectionDriver{Config: cfg},
		Config: cfg,
	}
}

// Run drives ConnectionDriver.Step on the ForegroundTick/BackgroundTick
// cadence until stop closes.
func (c *ActiveConnection) Run(stop <-chan struct{}) {
	cfg := c.Config
	if cfg == nil {
		cfg = config.Load()
	}
	period := cfg.ForegroundTick
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			c.Driver.Step(now, c.Hub, c.Remote, c.Local)
			wantBackground := c.InBackground != nil && c.InBackground()
			wantPeriod := cfg.ForegroundTick
			if wantBackground {
				wantPeriod = cfg.BackgroundTick
			}
			if wantPeriod != period {
				period = wantPeriod
				ticker.Reset(period)
			}
		}
	}
}
