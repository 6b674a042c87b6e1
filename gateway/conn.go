package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"dayflow/domain"
	"dayflow/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosing      State = "closing"
)

// Config tunes the connection manager. Zero durations fall back to the
// defaults below.
type Config struct {
	Address              string
	ConnectTimeout       time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReconnectDelay = 3 * time.Second
)

type result struct {
	msg InboundMessage
	err error
}

// pendingRequest is one in-flight call awaiting its correlated response.
type pendingRequest struct {
	id       string
	issuedAt time.Time
	ch       chan result // buffered, capacity 1
}

// ConnectionManager owns the single persistent websocket connection to the
// local skill gateway, correlates responses to pending requests by request
// id, and reconnects with a fixed delay up to a bounded number of attempts.
type ConnectionManager struct {
	cfg Config

	mu                sync.Mutex
	state             State
	conn              *websocket.Conn
	pending           map[string]*pendingRequest
	reconnectAttempts int
	reconnectTimer    *time.Timer
	manualClose       bool
	dialing           bool
	// generation invalidates read pumps from replaced connections
	generation int
	// workspaces tracks gateway-side workspaces to (re)initialize on connect,
	// mapped to whether the gateway has acked them with workspace_ready
	workspaces map[string]bool

	// writeMu serializes frame writes; gorilla allows one concurrent writer
	writeMu sync.Mutex
}

func NewConnectionManager(cfg Config) *ConnectionManager {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &ConnectionManager{
		cfg:        cfg,
		state:      StateDisconnected,
		pending:    make(map[string]*pendingRequest),
		workspaces: make(map[string]bool),
	}
}

// Connect idempotently establishes the connection. It returns true
// immediately if already open, and false (without an error) if the dial
// fails or another connect is in progress. A successful connect resets the
// reconnect counter and re-sends workspace setup for known workspaces.
func (m *ConnectionManager) Connect(ctx context.Context) bool {
	m.mu.Lock()
	if m.state == StateOpen {
		m.mu.Unlock()
		return true
	}
	if m.dialing {
		m.mu.Unlock()
		return false
	}
	m.dialing = true
	m.state = StateConnecting
	address := m.cfg.Address
	m.mu.Unlock()

	u := url.URL{Scheme: "ws", Host: address, Path: "/gateway"}
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.ConnectTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()
	conn, _, err := dialer.DialContext(dialCtx, u.String(), nil)

	m.mu.Lock()
	m.dialing = false
	if err != nil {
		if m.state == StateConnecting {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		l := logger.Get()
		l.Warn().Err(err).Str("address", address).Msg("gateway dial failed")
		return false
	}

	m.conn = conn
	m.state = StateOpen
	m.manualClose = false
	m.reconnectAttempts = 0
	m.generation++
	gen := m.generation
	workspaceIds := make([]string, 0, len(m.workspaces))
	for id := range m.workspaces {
		m.workspaces[id] = false
		workspaceIds = append(workspaceIds, id)
	}
	m.mu.Unlock()

	go m.readPump(conn, gen)

	for _, workspaceId := range workspaceIds {
		if err := m.send(OutboundMessage{Type: MessageTypeWorkspaceSetup, WorkspaceId: workspaceId}); err != nil {
			l := logger.Get()
			l.Warn().Err(err).Str("workspaceId", workspaceId).Msg("failed to send workspace setup")
		}
	}

	return true
}

// IsConnected is a cheap status check.
func (m *ConnectionManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

// State returns the current connection state.
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PendingCount returns the number of in-flight requests, for operational
// visibility.
func (m *ConnectionManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Disconnect closes the transport, cancels any scheduled reconnect, and
// rejects every pending request with ErrDisconnected.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	m.manualClose = true
	m.state = StateClosing
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	conn := m.conn
	m.conn = nil
	m.generation++
	failed := m.takePendingLocked()
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	rejectAll(failed, ErrDisconnected)
}

// Call sends an execute_skill (or other correlated) message and suspends the
// caller until the matching response arrives, the timeout elapses, or the
// connection is lost. Each call has an independent timeout; responses are
// matched strictly by request id, never by send order.
func (m *ConnectionManager) Call(ctx context.Context, msg OutboundMessage, timeout time.Duration) (InboundMessage, error) {
	m.mu.Lock()
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return InboundMessage{}, ErrConnectionUnavailable
	}
	if msg.RequestId == "" {
		msg.RequestId = uuid.NewString()
	}
	if _, exists := m.pending[msg.RequestId]; exists {
		m.mu.Unlock()
		return InboundMessage{}, fmt.Errorf("duplicate request id: %s", msg.RequestId)
	}
	pr := &pendingRequest{
		id:       msg.RequestId,
		issuedAt: time.Now(),
		ch:       make(chan result, 1),
	}
	m.pending[msg.RequestId] = pr
	m.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := m.send(msg); err != nil {
		m.removePending(msg.RequestId)
		return InboundMessage{}, fmt.Errorf("%w: %v", ErrConnectionUnavailable, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-pr.ch:
		return res.msg, res.err
	case <-timer.C:
		m.removePending(msg.RequestId)
		return InboundMessage{}, ErrRequestTimeout
	case <-ctx.Done():
		m.removePending(msg.RequestId)
		return InboundMessage{}, ctx.Err()
	}
}

// SetupWorkspace registers a gateway-side workspace and requests its
// initialization. The workspace is re-initialized automatically after a
// reconnect. Initialization is best-effort: callers treat an error as
// degraded functionality, not a failure.
func (m *ConnectionManager) SetupWorkspace(ctx context.Context, workspaceId string) error {
	m.mu.Lock()
	if _, known := m.workspaces[workspaceId]; !known {
		m.workspaces[workspaceId] = false
	}
	connected := m.state == StateOpen
	m.mu.Unlock()

	if !connected {
		return ErrConnectionUnavailable
	}
	return m.send(OutboundMessage{Type: MessageTypeWorkspaceSetup, WorkspaceId: workspaceId})
}

// ReleaseWorkspace tells the gateway to tear down a workspace and forgets it.
func (m *ConnectionManager) ReleaseWorkspace(ctx context.Context, workspaceId string) error {
	m.mu.Lock()
	delete(m.workspaces, workspaceId)
	connected := m.state == StateOpen
	m.mu.Unlock()

	if !connected {
		return ErrConnectionUnavailable
	}
	return m.send(OutboundMessage{Type: MessageTypeWorkspaceRelease, WorkspaceId: workspaceId})
}

// SyncProfile pushes the learning profile to the gateway-side workspace,
// best-effort.
func (m *ConnectionManager) SyncProfile(ctx context.Context, workspaceId string, profile domain.LearningProfile) error {
	m.mu.Lock()
	connected := m.state == StateOpen
	m.mu.Unlock()

	if !connected {
		return ErrConnectionUnavailable
	}
	return m.send(OutboundMessage{
		Type:        MessageTypeProfileSync,
		WorkspaceId: workspaceId,
		Params:      map[string]interface{}{"profile": profile},
	})
}

// WorkspaceReady reports whether the gateway has acked the workspace with a
// workspace_ready frame since the last (re)connect.
func (m *ConnectionManager) WorkspaceReady(workspaceId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workspaces[workspaceId]
}

func (m *ConnectionManager) send(msg OutboundMessage) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrConnectionUnavailable
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (m *ConnectionManager) removePending(requestId string) {
	m.mu.Lock()
	delete(m.pending, requestId)
	m.mu.Unlock()
}

// takePendingLocked drains the pending table; the caller rejects the drained
// requests after releasing the lock.
func (m *ConnectionManager) takePendingLocked() []*pendingRequest {
	failed := make([]*pendingRequest, 0, len(m.pending))
	for _, pr := range m.pending {
		failed = append(failed, pr)
	}
	m.pending = make(map[string]*pendingRequest)
	return failed
}

func rejectAll(requests []*pendingRequest, err error) {
	for _, pr := range requests {
		pr.ch <- result{err: err}
	}
}

func (m *ConnectionManager) readPump(conn *websocket.Conn, gen int) {
	l := logger.Get()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}

		var inbound InboundMessage
		if err := json.Unmarshal(message, &inbound); err != nil {
			l.Warn().Err(err).Msg("failed to unmarshal gateway frame")
			continue
		}

		if inbound.RequestId != "" {
			m.mu.Lock()
			pr, ok := m.pending[inbound.RequestId]
			if ok {
				delete(m.pending, inbound.RequestId)
			}
			m.mu.Unlock()
			if ok {
				pr.ch <- result{msg: inbound}
			} else {
				l.Debug().Str("requestId", inbound.RequestId).Msg("response for unknown or evicted request")
			}
			continue
		}

		switch inbound.Type {
		case MessageTypeWorkspaceReady:
			m.mu.Lock()
			if _, known := m.workspaces[inbound.WorkspaceId]; known {
				m.workspaces[inbound.WorkspaceId] = true
			}
			m.mu.Unlock()
			l.Info().Str("workspaceId", inbound.WorkspaceId).Msg("gateway workspace ready")
		case MessageTypeError:
			// server-reported error frames are non-fatal
			l.Warn().Str("error", inbound.Error).Msg("gateway reported an error")
		default:
			l.Debug().Str("type", inbound.Type).Msg("unhandled gateway frame type")
		}
	}
}

// handleClose runs the reconnect state machine after an unexpected close.
func (m *ConnectionManager) handleClose(gen int, cause error) {
	m.mu.Lock()
	if gen != m.generation {
		// a stale pump for a connection that was already replaced
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	failed := m.takePendingLocked()
	for id := range m.workspaces {
		m.workspaces[id] = false
	}

	l := logger.Get()
	if m.manualClose {
		m.state = StateDisconnected
		m.mu.Unlock()
		rejectAll(failed, ErrDisconnected)
		return
	}

	if m.reconnectAttempts < m.cfg.MaxReconnectAttempts {
		m.reconnectAttempts++
		m.state = StateConnecting
		attempt := m.reconnectAttempts
		m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, m.reconnect)
		m.mu.Unlock()
		l.Warn().Err(cause).Int("attempt", attempt).Msg("gateway connection lost, reconnecting")
	} else {
		m.state = StateDisconnected
		m.mu.Unlock()
		l.Error().Err(cause).Int("maxAttempts", m.cfg.MaxReconnectAttempts).
			Msg("gateway reconnect budget exhausted, staying disconnected until explicit connect")
	}

	rejectAll(failed, ErrDisconnected)
}

func (m *ConnectionManager) reconnect() {
	if m.Connect(context.Background()) {
		return
	}

	m.mu.Lock()
	if m.manualClose || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	if m.reconnectAttempts < m.cfg.MaxReconnectAttempts {
		m.reconnectAttempts++
		m.state = StateConnecting
		m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, m.reconnect)
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.mu.Unlock()
	l := logger.Get()
	l.Error().Int("maxAttempts", m.cfg.MaxReconnectAttempts).
		Msg("gateway reconnect budget exhausted, staying disconnected until explicit connect")
}
