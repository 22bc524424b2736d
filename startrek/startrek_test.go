package startrek

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimchat/dim-go/dock"
	"github.com/dimchat/dim-go/internal/config"
)

var testTiming = config.Load()

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

type fakeChannel struct {
	open, alive, writable bool
	writes                [][]byte
	writeErr              error
	shortWriteN           int
	closed                bool
	received, sent        time.Time
}

func (c *fakeChannel) RemoteAddress() net.Addr { return fakeAddr("remote") }
func (c *fakeChannel) LocalAddress() net.Addr  { return fakeAddr("local") }
func (c *fakeChannel) IsOpen() bool            { return c.open }
func (c *fakeChannel) IsAlive() bool           { return c.alive }
func (c *fakeChannel) IsWritable() bool        { return c.writable }

func (c *fakeChannel) Write(data []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.shortWriteN > 0 && c.shortWriteN < len(data) {
		n := c.shortWriteN
		c.shortWriteN = 0
		c.writes = append(c.writes, append([]byte(nil), data[:n]...))
		return n, nil
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (c *fakeChannel) Read(buffer []byte) (int, error) { return 0, nil }
func (c *fakeChannel) Close() error                    { c.closed = true; return nil }
func (c *fakeChannel) LastReceivedAt() time.Time       { return c.received }
func (c *fakeChannel) LastSentAt() time.Time           { return c.sent }

type fakeDelegate struct {
	received [][]dock.Arrival
	sent     []dock.Departure
	failed   []*dock.IOError
	errored  []error
}

func (d *fakeDelegate) OnPorterReceived(arrivals []dock.Arrival) {
	d.received = append(d.received, arrivals)
}
func (d *fakeDelegate) OnPorterSent(ship dock.Departure) { d.sent = append(d.sent, ship) }
func (d *fakeDelegate) OnPorterFailed(err *dock.IOError, ship dock.Departure) {
	d.failed = append(d.failed, err)
}
func (d *fakeDelegate) OnPorterError(err error, ship dock.Departure) {
	d.errored = append(d.errored, err)
}

type testDeparture struct {
	sn        string
	priority  int
	maxTries  int
	important bool
	fragments [][]byte
}

func (d *testDeparture) SN() string          { return d.sn }
func (d *testDeparture) Priority() int       { return d.priority }
func (d *testDeparture) MaxTries() int       { return d.maxTries }
func (d *testDeparture) IsImportant() bool   { return d.important }
func (d *testDeparture) Fragments() [][]byte { return d.fragments }

func TestHubOpenCachesChannel(t *testing.T) {
	calls := 0
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		calls++
		return &fakeChannel{open: true, alive: true, writable: true}, nil
	})
	remote, local := fakeAddr("r"), fakeAddr("l")
	a, err := hub.Open(remote, local)
	require.NoError(t, err)
	b, err := hub.Open(remote, local)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestHubOpenFallsBackToUnsetLocalEntry(t *testing.T) {
	calls := 0
	var opened Channel
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		calls++
		opened = &fakeChannel{open: true, alive: true, writable: true}
		return opened, nil
	})
	remote := fakeAddr("r")
	first, err := hub.Open(remote, nil)
	require.NoError(t, err)
	assert.Same(t, opened, first)

	second, err := hub.Open(remote, fakeAddr("l2"))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestHubRemoveEvictsChannel(t *testing.T) {
	calls := 0
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		calls++
		return &fakeChannel{open: true, alive: true, writable: true}, nil
	})
	remote, local := fakeAddr("r"), fakeAddr("l")
	_, err := hub.Open(remote, local)
	require.NoError(t, err)
	hub.Remove(remote, local)
	_, err = hub.Open(remote, local)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestHubOpenPropagatesConnectError(t *testing.T) {
	wantErr := errors.New("dial failed")
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		return nil, wantErr
	})
	_, err := hub.Open(fakeAddr("r"), fakeAddr("l"))
	assert.Equal(t, wantErr, err)
}

func TestConnectionDriverOpensFreshChannel(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: true}
	hub := NewHub(func(remote, local net.Addr) (Channel, error) { return ch, nil })
	driver := &ConnectionDriver{}
	now := time.Now()
	driver.Step(now, hub, fakeAddr("r"), fakeAddr("l"))
	assert.Same(t, ch, driver.Channel())
}

func TestConnectionDriverBacksOffOnConnectError(t *testing.T) {
	calls := 0
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		calls++
		return nil, errors.New("refused")
	})
	driver := &ConnectionDriver{}
	now := time.Now()
	driver.Step(now, hub, fakeAddr("r"), fakeAddr("l"))
	assert.Equal(t, 1, calls)

	driver.Step(now, hub, fakeAddr("r"), fakeAddr("l"))
	assert.Equal(t, 1, calls, "retry clock has not fired yet")

	driver.Step(now.Add(testTiming.ConnectionRetry+time.Second), hub, fakeAddr("r"), fakeAddr("l"))
	assert.Equal(t, 2, calls)
}

func TestConnectionDriverKeepsAliveChannel(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: true}
	driver := &ConnectionDriver{channel: ch, expireAt: time.Now().Add(testTiming.ConnectionExpired)}
	driver.Step(time.Now(), nil, nil, nil)
	assert.Same(t, ch, driver.Channel())
}

func TestConnectionDriverEvictsDeadChannel(t *testing.T) {
	ch := &fakeChannel{open: false, alive: false}
	driver := &ConnectionDriver{channel: ch}
	driver.Step(time.Now(), nil, nil, nil)
	assert.Nil(t, driver.Channel())
	assert.True(t, ch.closed)
}

func TestConnectionDriverEvictsExpiredOpeningChannel(t *testing.T) {
	now := time.Now()
	ch := &fakeChannel{open: true, alive: false}
	driver := &ConnectionDriver{channel: ch, expireAt: now.Add(-time.Second)}
	driver.Step(now, nil, nil, nil)
	assert.Nil(t, driver.Channel())
	assert.True(t, ch.closed)
}

func TestPorterProcessReturnsFalseWhenNotWritable(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: false}
	delegate := &fakeDelegate{}
	p := NewPorter(ch, delegate, nil, nil)
	assert.False(t, p.Process(time.Now()))
}

func TestPorterProcessSendsFreshDeparture(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: true}
	delegate := &fakeDelegate{}
	p := NewPorter(ch, delegate, nil, nil)
	ship := &testDeparture{sn: "s1", maxTries: 1, fragments: [][]byte{[]byte("hi")}}
	p.Dock.Departures.AddDeparture(ship)

	more := p.Process(time.Now())
	assert.True(t, more)
	require.Len(t, delegate.sent, 1)
	assert.Equal(t, "s1", delegate.sent[0].SN())
	assert.Equal(t, [][]byte{[]byte("hi")}, ch.writes)
}

func TestPorterProcessResumesAfterShortWrite(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: true, shortWriteN: 2}
	delegate := &fakeDelegate{}
	p := NewPorter(ch, delegate, nil, nil)
	ship := &testDeparture{sn: "s1", maxTries: 1, fragments: [][]byte{[]byte("hello")}}
	p.Dock.Departures.AddDeparture(ship)

	more := p.Process(time.Now())
	assert.True(t, more)
	assert.Empty(t, delegate.sent, "partial write must not finish the ship yet")

	more = p.Process(time.Now())
	assert.True(t, more)
	require.Len(t, delegate.sent, 1)
	assert.Equal(t, [][]byte{[]byte("he"), []byte("llo")}, ch.writes)
}

func TestPorterProcessSurfacesExhaustedRetriesAsFailed(t *testing.T) {
	ch := &fakeChannel{open: true, alive: true, writable: true}
	delegate := &fakeDelegate{}
	p := NewPorter(ch, delegate, nil, nil)
	ship := &testDeparture{sn: "s1", maxTries: 1, fragments: [][]byte{[]byte("hi")}}
	p.Dock.Departures.AddDeparture(ship)

	p.Process(time.Now())
	require.Len(t, delegate.sent, 1)

	more := p.Process(time.Now())
	assert.True(t, more)
	require.Len(t, delegate.failed, 1)
	assert.Equal(t, "Request timeout", delegate.failed[0].Error())
}

func TestPorterReceiveBytesFiltersHeartbeat(t *testing.T) {
	delegate := &fakeDelegate{}
	p := NewPorter(&fakeChannel{}, delegate, func(data []byte) []dock.Arrival {
		return []dock.Arrival{NewPlainArrival(Ping)}
	}, nil)
	p.ReceiveBytes([]byte("PING"))
	assert.Empty(t, delegate.received)
}

func TestPorterReceiveBytesSuppressesMatchedResponse(t *testing.T) {
	delegate := &fakeDelegate{}
	p := NewPorter(&fakeChannel{}, delegate, func(data []byte) []dock.Arrival {
		return []dock.Arrival{&respondingArrival{sn: "s1"}}
	}, nil)
	p.Dock.Departures.AddDeparture(&testDeparture{sn: "s1", maxTries: 1, fragments: nil})

	p.ReceiveBytes([]byte("anything"))
	assert.Empty(t, delegate.received)
}

func TestPorterReceiveBytesDeliversSurvivors(t *testing.T) {
	delegate := &fakeDelegate{}
	p := NewPorter(&fakeChannel{}, delegate, func(data []byte) []dock.Arrival {
		return []dock.Arrival{NewPlainArrival(data)}
	}, nil)
	p.ReceiveBytes([]byte("payload"))
	require.Len(t, delegate.received, 1)
	require.Len(t, delegate.received[0], 1)
}

type respondingArrival struct{ sn string }

func (a *respondingArrival) SN() string { return a.sn }
func (a *respondingArrival) Assemble(_ dock.Arrival) (dock.Arrival, bool) {
	return a, true
}

func TestIsHeartbeatRecognizesControlPayloads(t *testing.T) {
	assert.True(t, IsHeartbeat(NewPlainArrival(Ping)))
	assert.True(t, IsHeartbeat(NewPlainArrival(Pong)))
	assert.True(t, IsHeartbeat(NewPlainArrival(Noop)))
	assert.False(t, IsHeartbeat(NewPlainArrival([]byte("DATA"))))
}

func TestActiveConnectionRunStopsOnSignal(t *testing.T) {
	hub := NewHub(func(remote, local net.Addr) (Channel, error) {
		return nil, errors.New("no dial in this test")
	})
	conn := NewActiveConnection(hub, fakeAddr("r"), fakeAddr("l"), nil)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		conn.Run(stop)
		close(done)
	}()
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after signal")
	}
}
