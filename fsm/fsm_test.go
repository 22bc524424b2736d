package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimchat/dim-go/internal/config"
)

var testTiming = config.Load()

type fakeChannel struct {
	open     bool
	alive    bool
	received time.Time
	sent     time.Time
}

func (c *fakeChannel) IsOpen() bool              { return c.open }
func (c *fakeChannel) IsAlive() bool             { return c.alive }
func (c *fakeChannel) LastReceivedAt() time.Time { return c.received }
func (c *fakeChannel) LastSentAt() time.Time     { return c.sent }

// toReady drives a fresh Machine from Init to Ready. Each state in the
// table only evaluates its own case per Tick, so reaching Ready from
// Init always takes exactly two ticks (Init->Preparing, Preparing->Ready).
func toReady(t *testing.T, channel *fakeChannel, now time.Time) *Machine {
	t.Helper()
	m := NewMachine(channel, nil)
	m.Tick(now)
	require.Equal(t, Preparing, m.State())
	m.Tick(now)
	require.Equal(t, Ready, m.State())
	return m
}

func TestMachineInitToPreparingOnOpen(t *testing.T) {
	channel := &fakeChannel{open: false, alive: false}
	m := NewMachine(channel, nil)
	now := time.Now()
	m.Tick(now)
	assert.Equal(t, Init, m.State())

	channel.open = true
	m.Tick(now)
	assert.Equal(t, Preparing, m.State())
}

func TestMachinePreparingFallsBackToInitWhenChannelCloses(t *testing.T) {
	channel := &fakeChannel{open: true, alive: false}
	m := NewMachine(channel, nil)
	now := time.Now()
	m.Tick(now)
	require.Equal(t, Preparing, m.State())

	channel.open = false
	m.Tick(now)
	assert.Equal(t, Init, m.State())
}

func TestMachinePreparingToReadyWhenAlive(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	toReady(t, channel, now)
}

func TestMachineReadyToExpiredAfterTExpire(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	later := now.Add(testTiming.TExpire + time.Second)
	m.Tick(later)
	assert.Equal(t, Expired, m.State())
}

func TestMachineReadyToErrorWhenChannelDies(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	channel.alive = false
	m.Tick(now)
	assert.Equal(t, Error, m.State())
}

func TestMachineExpiredRecoversToMaintainingAfterRecentSend(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	later := now.Add(testTiming.TExpire + time.Second)
	m.Tick(later)
	require.Equal(t, Expired, m.State())

	channel.sent = later
	m.Tick(later)
	assert.Equal(t, Maintaining, m.State())
}

func TestMachineExpiredToErrorAfterTLong(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	much := now.Add(testTiming.TLong + time.Second)
	m.Tick(much)
	require.Equal(t, Expired, m.State())

	m.Tick(much)
	assert.Equal(t, Error, m.State())
}

func TestMachineMaintainingSendsHeartbeatWhenNoStateChange(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	expiredAt := now.Add(testTiming.TExpire + time.Second)
	m.Tick(expiredAt)
	require.Equal(t, Expired, m.State())

	channel.sent = expiredAt
	m.Tick(expiredAt)
	require.Equal(t, Maintaining, m.State())

	heartbeats := 0
	m.SendHeartbeat = func() error {
		heartbeats++
		return nil
	}
	// received is still stale from `now` (> TExpire but < TLong ago) and
	// sent is recent enough to stay under TExpire: neither the recovery
	// nor the re-expiry branch fires, so the default heartbeat path runs.
	stale := expiredAt.Add(testTiming.TExpire / 2)
	m.Tick(stale)
	assert.Equal(t, Maintaining, m.State())
	assert.Equal(t, 1, heartbeats)
}

func TestMachineMaintainingRecoversToReadyOnFreshReceive(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	expiredAt := now.Add(testTiming.TExpire + time.Second)
	m.Tick(expiredAt)
	require.Equal(t, Expired, m.State())
	channel.sent = expiredAt
	m.Tick(expiredAt)
	require.Equal(t, Maintaining, m.State())

	fresh := expiredAt.Add(time.Millisecond)
	channel.received = fresh
	m.Tick(fresh)
	assert.Equal(t, Ready, m.State())
}

func TestMachineMaintainingToExpiredWhenSendStalls(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	expiredAt := now.Add(testTiming.TExpire + time.Second)
	m.Tick(expiredAt)
	require.Equal(t, Expired, m.State())
	channel.sent = expiredAt
	m.Tick(expiredAt)
	require.Equal(t, Maintaining, m.State())

	stalled := expiredAt.Add(testTiming.TExpire + time.Second)
	m.Tick(stalled)
	assert.Equal(t, Expired, m.State())
}

func TestMachineErrorRecoversToInitOnFreshReceiveAfterEntry(t *testing.T) {
	now := time.Now()
	channel := &fakeChannel{open: true, alive: true, received: now, sent: now}
	m := toReady(t, channel, now)

	channel.alive = false
	m.Tick(now)
	require.Equal(t, Error, m.State())

	later := now.Add(time.Second)
	channel.alive = true
	channel.received = later
	m.Tick(later)
	assert.Equal(t, Init, m.State())
}

func TestMachineOnTransitionCallbackInvokedOnChange(t *testing.T) {
	channel := &fakeChannel{open: false, alive: false}
	m := NewMachine(channel, nil)
	var transitions [][2]State
	m.OnTransition = func(from, to State) {
		transitions = append(transitions, [2]State{from, to})
	}
	now := time.Now()
	m.Tick(now)
	assert.Empty(t, transitions)

	channel.open = true
	m.Tick(now)
	require.Len(t, transitions, 1)
	assert.Equal(t, Init, transitions[0][0])
	assert.Equal(t, Preparing, transitions[0][1])
}

func TestMachineRunStopsOnSignal(t *testing.T) {
	channel := &fakeChannel{open: true, alive: true}
	m := NewMachine(channel, nil)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Run(stop)
		close(done)
	}()
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after signal")
	}
}
