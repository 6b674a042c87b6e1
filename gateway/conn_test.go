package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newGatewayServer starts a stub gateway that feeds every inbound frame to
// handler. The handler may write response frames on the same connection.
func newGatewayServer(t *testing.T, handler func(conn *websocket.Conn, msg OutboundMessage)) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg OutboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if handler != nil {
				handler(conn, msg)
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func serverAddress(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "http://")
}

func newTestManager(server *httptest.Server, maxReconnects int) *ConnectionManager {
	return NewConnectionManager(Config{
		Address:              serverAddress(server),
		ConnectTimeout:       time.Second,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: maxReconnects,
	})
}

func TestConnectIsIdempotent(t *testing.T) {
	server := newGatewayServer(t, nil)
	m := newTestManager(server, 0)
	defer m.Disconnect()

	assert.True(t, m.Connect(context.Background()))
	assert.True(t, m.Connect(context.Background()))
	assert.True(t, m.IsConnected())
	assert.Equal(t, StateOpen, m.State())
}

func TestConnectFailureReturnsFalse(t *testing.T) {
	m := NewConnectionManager(Config{
		Address:        "localhost:1", // nothing listens here
		ConnectTimeout: 100 * time.Millisecond,
	})

	assert.False(t, m.Connect(context.Background()))
	assert.False(t, m.IsConnected())
	assert.Equal(t, StateDisconnected, m.State())
}

func TestCallWhenDisconnected(t *testing.T) {
	m := NewConnectionManager(Config{Address: "localhost:1"})

	_, err := m.Call(context.Background(), OutboundMessage{Type: MessageTypeExecuteSkill}, time.Second)
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
}

func TestCallResolvesMatchingResponse(t *testing.T) {
	server := newGatewayServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		conn.WriteJSON(InboundMessage{
			RequestId: msg.RequestId,
			Success:   true,
			SkillName: msg.SkillName,
			Data:      json.RawMessage(`{"ok":true}`),
		})
	})
	m := newTestManager(server, 0)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	resp, err := m.Call(context.Background(), OutboundMessage{
		Type:      MessageTypeExecuteSkill,
		SkillName: "timeline-extraction",
	}, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "timeline-extraction", resp.SkillName)
	assert.Equal(t, 0, m.PendingCount())
}

func TestConcurrentCallsResolveOutOfOrder(t *testing.T) {
	var mu sync.Mutex
	var received []OutboundMessage
	server := newGatewayServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		mu.Lock()
		received = append(received, msg)
		if len(received) == 2 {
			// reply in reverse arrival order
			for i := len(received) - 1; i >= 0; i-- {
				conn.WriteJSON(InboundMessage{
					RequestId: received[i].RequestId,
					Success:   true,
					Data:      json.RawMessage(`"` + received[i].Params["marker"].(string) + `"`),
				})
			}
		}
		mu.Unlock()
	})
	m := newTestManager(server, 0)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	type callResult struct {
		marker string
		resp   InboundMessage
		err    error
	}
	results := make(chan callResult, 2)
	for _, marker := range []string{"first", "second"} {
		go func(marker string) {
			resp, err := m.Call(context.Background(), OutboundMessage{
				Type:   MessageTypeExecuteSkill,
				Params: map[string]interface{}{"marker": marker},
			}, time.Second)
			results <- callResult{marker: marker, resp: resp, err: err}
		}(marker)
	}

	for i := 0; i < 2; i++ {
		res := <-results
		require.NoError(t, res.err)
		// each caller gets its own response, never a swapped one
		assert.Equal(t, `"`+res.marker+`"`, string(res.resp.Data))
	}
	assert.Equal(t, 0, m.PendingCount())
}

func TestCallTimeoutEvictsPending(t *testing.T) {
	server := newGatewayServer(t, nil) // never replies
	m := newTestManager(server, 0)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	_, err := m.Call(context.Background(), OutboundMessage{Type: MessageTypeExecuteSkill}, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, 0, m.PendingCount())
}

func TestDuplicateRequestIdRejected(t *testing.T) {
	server := newGatewayServer(t, nil)
	m := newTestManager(server, 0)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	errs := make(chan error, 1)
	go func() {
		_, err := m.Call(context.Background(), OutboundMessage{RequestId: "req-1"}, 300*time.Millisecond)
		errs <- err
	}()

	require.Eventually(t, func() bool { return m.PendingCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := m.Call(context.Background(), OutboundMessage{RequestId: "req-1"}, 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate request id")

	assert.ErrorIs(t, <-errs, ErrRequestTimeout)
}

func TestDisconnectRejectsAllPending(t *testing.T) {
	server := newGatewayServer(t, nil) // never replies
	m := newTestManager(server, 0)
	require.True(t, m.Connect(context.Background()))

	const n = 5
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := m.Call(context.Background(), OutboundMessage{Type: MessageTypeExecuteSkill}, 5*time.Second)
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return m.PendingCount() == n }, time.Second, 5*time.Millisecond)

	m.Disconnect()

	for i := 0; i < n; i++ {
		assert.ErrorIs(t, <-errs, ErrDisconnected)
	}
	assert.Equal(t, 0, m.PendingCount())
	assert.False(t, m.IsConnected())
}

func TestReconnectBudgetExhaustion(t *testing.T) {
	// bespoke server so the test can sever the hijacked websocket itself:
	// closing the listener alone leaves upgraded connections alive
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer server.Close()

	m := newTestManager(server, 2)
	require.True(t, m.Connect(context.Background()))
	serverConn := <-serverConns

	// losing the server triggers bounded reconnection, which cannot succeed
	server.Close()
	serverConn.Close()

	require.Eventually(t, func() bool {
		return m.State() == StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, m.IsConnected())

	// stays disconnected until an explicit connect
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestReconnectRestoresConnection(t *testing.T) {
	var mu sync.Mutex
	dropFirst := true
	server := newGatewayServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		mu.Lock()
		drop := dropFirst
		dropFirst = false
		mu.Unlock()
		if drop {
			conn.Close()
			return
		}
		conn.WriteJSON(InboundMessage{RequestId: msg.RequestId, Success: true})
	})
	m := newTestManager(server, 3)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	// first call gets dropped mid-flight and rejected on disconnect
	_, err := m.Call(context.Background(), OutboundMessage{Type: MessageTypeExecuteSkill}, time.Second)
	assert.ErrorIs(t, err, ErrDisconnected)

	require.Eventually(t, m.IsConnected, 2*time.Second, 10*time.Millisecond)

	resp, err := m.Call(context.Background(), OutboundMessage{Type: MessageTypeExecuteSkill}, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestWorkspaceReadySignal(t *testing.T) {
	server := newGatewayServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		if msg.Type == MessageTypeWorkspaceSetup {
			conn.WriteJSON(InboundMessage{Type: MessageTypeWorkspaceReady, WorkspaceId: msg.WorkspaceId})
		}
	})
	m := newTestManager(server, 0)
	defer m.Disconnect()
	require.True(t, m.Connect(context.Background()))

	require.NoError(t, m.SetupWorkspace(context.Background(), "ws_test"))
	require.Eventually(t, func() bool {
		return m.WorkspaceReady("ws_test")
	}, time.Second, 5*time.Millisecond)
}

func TestSetupWorkspaceWhileDisconnectedDegrades(t *testing.T) {
	m := NewConnectionManager(Config{Address: "localhost:1"})

	err := m.SetupWorkspace(context.Background(), "ws_test")
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	assert.False(t, m.WorkspaceReady("ws_test"))
}
