package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"dayflow/domain"
	"dayflow/logger"
	"dayflow/srv"
)

const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// GatewayInitializer is the slice of the connection manager the session
// manager needs to provision and tear down gateway workspaces.
type GatewayInitializer interface {
	SetupWorkspace(ctx context.Context, workspaceId string) error
	ReleaseWorkspace(ctx context.Context, workspaceId string) error
	SyncProfile(ctx context.Context, workspaceId string, profile domain.LearningProfile) error
}

// Manager owns the in-memory session table and the persisted learning
// profiles behind it. One active session exists per user; idle sessions are
// swept on a fixed interval.
type Manager struct {
	storage domain.ProfileStorage
	conn    GatewayInitializer

	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*domain.WorkspaceSession // keyed by userId
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewManager(storage domain.ProfileStorage, conn GatewayInitializer, idleTimeout, sweepInterval time.Duration) *Manager {
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if sweepInterval == 0 {
		sweepInterval = DefaultSweepInterval
	}
	m := &Manager{
		storage:       storage,
		conn:          conn,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		sessions:      make(map[string]*domain.WorkspaceSession),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// GetOrCreateSession returns the user's active session, creating one on first
// use. Creation loads the learning profile (falling back to a default on
// first contact), provisions a gateway workspace, and syncs the profile to
// it. Gateway initialization is best effort: a degraded gateway still yields
// a usable session.
func (m *Manager) GetOrCreateSession(ctx context.Context, userId string) (domain.WorkspaceSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[userId]; ok && session.Active {
		session.LastActivity = time.Now().UTC()
		result := *session
		m.mu.Unlock()
		return result, nil
	}
	m.mu.Unlock()

	profile, err := m.loadOrCreateProfile(ctx, userId)
	if err != nil {
		return domain.WorkspaceSession{}, err
	}

	now := time.Now().UTC()
	session := &domain.WorkspaceSession{
		WorkspaceId:  "ws_" + ksuid.New().String(),
		UserId:       userId,
		SessionId:    "sess_" + ksuid.New().String(),
		Created:      now,
		LastActivity: now,
		Active:       true,
	}

	l := logger.Get()
	if err := m.conn.SetupWorkspace(ctx, session.WorkspaceId); err != nil {
		l.Warn().Err(err).Str("userId", userId).Msg("workspace setup deferred, gateway unavailable")
	} else if err := m.conn.SyncProfile(ctx, session.WorkspaceId, profile); err != nil {
		l.Warn().Err(err).Str("userId", userId).Msg("profile sync failed")
	}

	m.mu.Lock()
	// another caller may have raced us to create the session
	if existing, ok := m.sessions[userId]; ok && existing.Active {
		existing.LastActivity = time.Now().UTC()
		result := *existing
		m.mu.Unlock()
		_ = m.conn.ReleaseWorkspace(ctx, session.WorkspaceId)
		return result, nil
	}
	m.sessions[userId] = session
	result := *session
	m.mu.Unlock()

	l.Info().Str("userId", userId).Str("sessionId", session.SessionId).Msg("session created")
	return result, nil
}

// GetSession returns the user's active session without creating one.
func (m *Manager) GetSession(userId string) (domain.WorkspaceSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[userId]; ok && session.Active {
		return *session, true
	}
	return domain.WorkspaceSession{}, false
}

// Touch refreshes the session's last-activity timestamp.
func (m *Manager) Touch(userId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[userId]; ok {
		session.LastActivity = time.Now().UTC()
	}
}

// EndSession releases the user's workspace and removes the session.
func (m *Manager) EndSession(ctx context.Context, userId string) {
	m.mu.Lock()
	session, ok := m.sessions[userId]
	if ok {
		delete(m.sessions, userId)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.conn.ReleaseWorkspace(ctx, session.WorkspaceId); err != nil {
		l := logger.Get()
		l.Warn().Err(err).Str("userId", userId).Msg("workspace release failed")
	}
}

// ActiveSessionCount reports the number of live sessions.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop halts the sweep loop and releases all sessions.
func (m *Manager) Stop(ctx context.Context) {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.done

	m.mu.Lock()
	sessions := make([]*domain.WorkspaceSession, 0, len(m.sessions))
	for userId, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, userId)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		_ = m.conn.ReleaseWorkspace(ctx, session.WorkspaceId)
	}
}

func (m *Manager) loadOrCreateProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	profile, err := m.storage.GetProfile(ctx, userId)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, srv.ErrNotFound) {
		return domain.LearningProfile{}, err
	}
	profile = domain.DefaultLearningProfile(userId)
	if err := m.storage.PersistProfile(ctx, profile); err != nil {
		return domain.LearningProfile{}, err
	}
	return profile, nil
}

func (m *Manager) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().UTC().Add(-m.idleTimeout)

	m.mu.Lock()
	var expired []*domain.WorkspaceSession
	for userId, session := range m.sessions {
		if session.LastActivity.Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, userId)
		}
	}
	m.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	l := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, session := range expired {
		l.Info().Str("userId", session.UserId).Str("sessionId", session.SessionId).Msg("sweeping idle session")
		if err := m.conn.ReleaseWorkspace(ctx, session.WorkspaceId); err != nil {
			l.Warn().Err(err).Str("userId", session.UserId).Msg("workspace release failed during sweep")
		}
	}
}
