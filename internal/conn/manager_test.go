package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const timeout = 2 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// fakeServer is an in-process game server. Every accepted connection gets a
// fresh identity; dropAfterHello closes connections right after the hello.
type fakeServer struct {
	srv            *httptest.Server
	conns          atomic.Int32
	received       chan protocol.Envelope
	dropAfterHello atomic.Int32 // number of connections to drop
	skipHello      bool
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{received: make(chan protocol.Envelope, 16)}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", fs.handle)
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/ws"
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	n := fs.conns.Add(1)

	if fs.skipHello {
		_ = c.WriteJSON(protocol.Envelope{Type: protocol.EventRoomUpdate, Payload: json.RawMessage(`{}`)})
	} else {
		hello, _ := protocol.New(protocol.EventConnected, "", protocol.Hello{ID: fmt.Sprintf("sock-%d", n)})
		if err := c.WriteJSON(hello); err != nil {
			return
		}
	}

	if fs.dropAfterHello.Load() > 0 {
		fs.dropAfterHello.Add(-1)
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting"))
		return
	}

	for {
		var env protocol.Envelope
		if err := c.ReadJSON(&env); err != nil {
			return
		}
		fs.received <- env
		// Echo every frame back so tests can observe inbound delivery.
		if err := c.WriteJSON(env); err != nil {
			return
		}
	}
}

func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for connection event")
		return nil
	}
}

func runManager(t *testing.T, m *Manager) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		done <- m.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return done
}

func TestManager_ConnectReportsIdentity(t *testing.T) {
	fs := startFakeServer(t)
	m := NewManager(fs.url(), RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond}, zaptest.NewLogger(t))

	require.ErrorIs(t, m.Send(protocol.Envelope{Type: "start-game"}), ErrNotConnected)

	runManager(t, m)

	ev := recvEvent(t, m.Events(), timeout)
	connected, ok := ev.(Connected)
	require.True(t, ok, "want Connected, got %#v", ev)
	assert.Equal(t, uint64(1), connected.Gen)
	assert.Equal(t, "sock-1", connected.ID)
	assert.Equal(t, "sock-1", m.Identity())
}

func TestManager_SendAndReceive(t *testing.T) {
	fs := startFakeServer(t)
	m := NewManager(fs.url(), RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond}, zaptest.NewLogger(t))
	runManager(t, m)
	recvEvent(t, m.Events(), timeout) // connected

	env, err := protocol.New("start-game", "", protocol.RoomRequest{RoomCode: "ABC123"})
	require.NoError(t, err)
	require.NoError(t, m.Send(env))

	select {
	case got := <-fs.received:
		assert.Equal(t, protocol.MessageType("start-game"), got.Type)
		assert.JSONEq(t, `{"roomCode":"ABC123"}`, string(got.Payload))
	case <-time.After(timeout):
		t.Fatalf("server never received the frame")
	}

	ev := recvEvent(t, m.Events(), timeout)
	msg, ok := ev.(Message)
	require.True(t, ok, "want Message, got %#v", ev)
	assert.Equal(t, uint64(1), msg.Gen)
	assert.Equal(t, protocol.MessageType("start-game"), msg.Envelope.Type)
}

func TestManager_ReconnectsWithNewIdentity(t *testing.T) {
	fs := startFakeServer(t)
	fs.dropAfterHello.Store(1)
	m := NewManager(fs.url(), RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond}, zaptest.NewLogger(t))
	runManager(t, m)

	first := recvEvent(t, m.Events(), timeout)
	require.Equal(t, Connected{Gen: 1, ID: "sock-1"}, first)

	lost, ok := recvEvent(t, m.Events(), timeout).(Lost)
	require.True(t, ok)
	assert.Equal(t, uint64(1), lost.Gen)

	second, ok := recvEvent(t, m.Events(), timeout).(Connected)
	require.True(t, ok)
	assert.Equal(t, uint64(2), second.Gen)
	assert.Equal(t, "sock-2", second.ID)
}

func TestManager_GivesUpAfterBoundedAttempts(t *testing.T) {
	fs := startFakeServer(t)
	endpoint := fs.url()
	fs.srv.Close()

	m := NewManager(endpoint, RetryPolicy{Attempts: 3, Delay: 5 * time.Millisecond}, zaptest.NewLogger(t))
	done := runManager(t, m)

	ev := recvEvent(t, m.Events(), timeout)
	gaveUp, ok := ev.(GaveUp)
	require.True(t, ok, "want GaveUp, got %#v", ev)
	assert.ErrorIs(t, gaveUp.Err, ErrRetriesExhausted)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRetriesExhausted)
	case <-time.After(timeout):
		t.Fatalf("Run did not return after giving up")
	}
}

func TestManager_MissingHelloCountsAsFailedAttempt(t *testing.T) {
	fs := startFakeServer(t)
	fs.skipHello = true
	m := NewManager(fs.url(), RetryPolicy{Attempts: 2, Delay: 5 * time.Millisecond}, zaptest.NewLogger(t))
	runManager(t, m)

	_, ok := recvEvent(t, m.Events(), timeout).(GaveUp)
	require.True(t, ok)
	assert.Equal(t, int32(2), fs.conns.Load())
}

func TestRetryPolicy_Normalize(t *testing.T) {
	cases := []struct {
		name string
		in   RetryPolicy
		want RetryPolicy
	}{
		{"zero value", RetryPolicy{}, RetryPolicy{Attempts: MaxAttempts, Delay: time.Second}},
		{"over cap", RetryPolicy{Attempts: 50, Delay: time.Second}, RetryPolicy{Attempts: MaxAttempts, Delay: time.Second}},
		{"valid", RetryPolicy{Attempts: 3, Delay: 20 * time.Millisecond}, RetryPolicy{Attempts: 3, Delay: 20 * time.Millisecond}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.normalize(); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
