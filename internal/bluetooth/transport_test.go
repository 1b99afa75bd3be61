package bluetooth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

type fakeServer struct {
	mu             sync.Mutex
	started        int
	stopped        int
	sent           [][]byte
	sendErr        error
	onConnected    func()
	onDisconnected func()
}

func (s *fakeServer) Start(onConnected, onDisconnected func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	s.onConnected = onConnected
	s.onDisconnected = onDisconnected
	return nil
}

func (s *fakeServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeServer) SendAlert(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *fakeServer) sentAlerts() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func newTestTransport(t *testing.T) (*Transport, *fakeServer) {
	t.Helper()
	server := &fakeServer{}
	tr := NewTransport(server, quietLogger())
	tr.settle = 5 * time.Millisecond
	return tr, server
}

func TestTransportDisabledFails(t *testing.T) {
	tr, _ := newTestTransport(t)

	result := tr.AddNotification(&notify.Message{Primary: "hello"})
	assert.Equal(t, notify.ResultFailure, result)
}

func TestTransportDelaysWithoutPeer(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	result := tr.AddNotification(&notify.Message{Primary: "hello"})
	assert.Equal(t, notify.ResultDelayed, result)
	assert.Equal(t, 1, server.started)
	assert.Empty(t, server.sentAlerts())
}

func TestTransportFlushesAfterSettle(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "hello"})
	server.onConnected()

	require.Eventually(t, func() bool {
		return len(server.sentAlerts()) == 1
	}, time.Second, time.Millisecond)

	sent := server.sentAlerts()[0]
	assert.Equal(t, AlertMessage, sent[0])
	assert.Equal(t, FlagEnabled, sent[1])
	assert.Equal(t, "hello", string(sent[2:]))
}

func TestTransportLatchesMostRecentOnly(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "first"})
	tr.AddNotification(&notify.Message{Primary: "second"})
	server.onConnected()

	require.Eventually(t, func() bool {
		return len(server.sentAlerts()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "second", string(server.sentAlerts()[0][2:]))
}

func TestTransportSendsDirectlyWhenConnected(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "warmup"})
	server.onConnected()
	require.Eventually(t, func() bool {
		return len(server.sentAlerts()) == 1
	}, time.Second, time.Millisecond)

	result := tr.AddNotification(&notify.Message{Primary: "direct"})
	assert.Equal(t, notify.ResultSuccess, result)
	require.Len(t, server.sentAlerts(), 2)
	assert.Equal(t, "direct", string(server.sentAlerts()[1][2:]))
}

func TestTransportDisconnectRelatches(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "warmup"})
	server.onConnected()
	require.Eventually(t, func() bool {
		return len(server.sentAlerts()) == 1
	}, time.Second, time.Millisecond)

	server.onDisconnected()
	assert.False(t, tr.Connected())

	result := tr.AddNotification(&notify.Message{Primary: "later"})
	assert.Equal(t, notify.ResultDelayed, result)
}

func TestTransportDisableDropsEverything(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "hello"})
	tr.SetEnabled(false)
	assert.Equal(t, 1, server.stopped)

	// the latched message must be gone once the radio comes back
	tr.SetEnabled(true)
	server.onConnected()
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, server.sentAlerts())
}

func TestTransportSendFailure(t *testing.T) {
	tr, server := newTestTransport(t)
	tr.SetEnabled(true)

	tr.AddNotification(&notify.Message{Primary: "warmup"})
	server.onConnected()
	require.Eventually(t, func() bool {
		return len(server.sentAlerts()) == 1
	}, time.Second, time.Millisecond)

	server.mu.Lock()
	server.sendErr = ErrNotConnected
	server.mu.Unlock()

	result := tr.AddNotification(&notify.Message{Primary: "boom"})
	assert.Equal(t, notify.ResultFailure, result)
}
