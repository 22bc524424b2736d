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

package fsm

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimchat/dim-go/internal/config"
)

// Machine runs the §4.5 transition table. Tick is meant to be called
// once per second from the owning scheduler's single event loop (§5
// "Scheduling model"); Machine itself does not start its own ticker so
// tests can drive it with synthetic timestamps.
type Machine struct {
	mutex   sync.RWMutex
	state   State
	entered time.Time

	channel Channel

	// tExpire/tLong are the §4.5 inactivity horizon and its "error"
	// escalation threshold, sourced from config.Transport (§10).
	tExpire time.Duration
	tLong   time.Duration

	// SendHeartbeat writes the 4-byte PING payload; called only while in
	// the maintaining state (§4.5).
	SendHeartbeat func() error

	// OnTransition, if set, is notified of every state change.
	OnTransition func(from, to State)

	// Logger defaults to logrus.StandardLogger() when left nil.
	Logger *logrus.Logger
}

// NewMachine builds a Machine observing channel. cfg supplies the
// TExpire/TLong timings (§4.5); a nil cfg falls back to config.Load()'s
// defaults.
func NewMachine(channel Channel, cfg *config.Transport) *Machine {
	if cfg == nil {
		cfg = config.Load()
	}
	return &Machine{
		state:   Init,
		entered: time.Now(),
		channel: channel,
		tExpire: cfg.TExpire,
		tLong:   cfg.TLong,
	}
}

func (m *Machine) logger() *logrus.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logrus.StandardLogger()
}

func (m *Machine) State() State {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state
}

func (m *Machine) transition(to State, now time.Time) {
	from := m.state
	m.state = to
	m.entered = now
	if from == to {
		return
	}
	fields := m.logger().WithFields(logrus.Fields{"from": from, "to": to})
	if to == Error {
		fields.Warn("connection state machine entered error")
	} else {
		fields.Debug("connection state transition")
	}
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}

// Tick evaluates the transition table once against now and the current
// Channel observation (§4.5).
func (m *Machine) Tick(now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.channel == nil {
		return
	}
	switch m.state {
	case Init:
		if m.channel.IsOpen() {
			m.transition(Preparing, now)
		}

	case Preparing:
		if !m.channel.IsOpen() {
			m.transition(Init, now)
		} else if m.channel.IsAlive() {
			m.transition(Ready, now)
		}

	case Ready:
		if !m.channel.IsAlive() {
			m.transition(Error, now)
		} else if now.Sub(m.channel.LastReceivedAt()) > m.tExpire {
			m.transition(Expired, now)
		}

	case Expired:
		switch {
		case !m.channel.IsAlive() || now.Sub(m.channel.LastReceivedAt()) > m.tLong:
			m.transition(Error, now)
		case now.Sub(m.channel.LastSentAt()) < m.tExpire:
			m.transition(Maintaining, now)
		}

	case Maintaining:
		switch {
		case !m.channel.IsAlive() || now.Sub(m.channel.LastReceivedAt()) > m.tLong:
			m.transition(Error, now)
		case now.Sub(m.channel.LastReceivedAt()) < m.tExpire:
			m.transition(Ready, now)
		case now.Sub(m.channel.LastSentAt()) >= m.tExpire:
			m.transition(Expired, now)
		default:
			if m.SendHeartbeat != nil {
				_ = m.SendHeartbeat()
			}
		}

	case Error:
		if m.channel.IsAlive() && m.channel.LastReceivedAt().After(m.entered) {
			m.transition(Init, now)
		}
	}
}

// Run drives Tick once per second until stop is closed, matching the
// "1 Hz tick" requirement of §4.5.
func (m *Machine) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}
