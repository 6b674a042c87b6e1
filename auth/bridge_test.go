package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayflow/domain"
	"dayflow/skill"
)

type fakeSessions struct {
	mu        sync.Mutex
	active    map[string]domain.WorkspaceSession
	createErr error
	creates   int
	touches   int
	ends      []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{active: make(map[string]domain.WorkspaceSession)}
}

func (f *fakeSessions) GetOrCreateSession(ctx context.Context, userId string) (domain.WorkspaceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return domain.WorkspaceSession{}, f.createErr
	}
	session := domain.WorkspaceSession{UserId: userId, SessionId: "sess_" + userId, Active: true}
	f.active[userId] = session
	return session, nil
}

func (f *fakeSessions) GetSession(userId string) (domain.WorkspaceSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.active[userId]
	return session, ok
}

func (f *fakeSessions) Touch(userId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
}

func (f *fakeSessions) EndSession(ctx context.Context, userId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, userId)
	f.ends = append(f.ends, userId)
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExecutor) ExecuteSkill(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return skill.Result{SkillName: name, Text: "ok"}, f.err
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFlags struct {
	enabled bool
}

func (f fakeFlags) IsGatewayEnabled(userId string) bool { return f.enabled }

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (f *fakeAudit) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeAudit) GetAuditEvents(ctx context.Context, userId string, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, 0, len(f.events))
	for _, e := range f.events {
		actions = append(actions, e.Action)
	}
	return actions
}

func newTestBridge(enabled bool) (*Bridge, *fakeSessions, *fakeExecutor, *fakeAudit) {
	sessions := newFakeSessions()
	executor := &fakeExecutor{}
	audit := &fakeAudit{}
	bridge := NewBridge(sessions, executor, fakeFlags{enabled: enabled}, audit)
	return bridge, sessions, executor, audit
}

func proAccount() domain.UserAccount {
	return domain.UserAccount{Id: "u1", Tier: domain.TierPro, Role: domain.RoleMember}
}

func TestHandleSignIn_CreatesSessionWhenPermitted(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, audit := newTestBridge(true)

	bridge.HandleSignIn(context.Background(), proAccount())

	sc, ok := bridge.CurrentContext()
	require.True(t, ok)
	assert.Equal(t, "u1", sc.UserId)
	assert.Equal(t, GatewayAccessLimited, sc.Permissions.GatewayAccess)
	assert.Equal(t, 1, sessions.creates)
	assert.Contains(t, audit.actions(), "sign_in")
}

func TestHandleSignIn_FreeTierSkipsSessionCreation(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, _ := newTestBridge(true)

	bridge.HandleSignIn(context.Background(), domain.UserAccount{Id: "u1", Tier: domain.TierFree})

	sc, ok := bridge.CurrentContext()
	require.True(t, ok)
	assert.False(t, sc.CanUseGateway())
	assert.Equal(t, 0, sessions.creates)
}

func TestHandleSignIn_SessionFailureDegrades(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, _ := newTestBridge(true)
	sessions.createErr = errors.New("gateway down")

	bridge.HandleSignIn(context.Background(), proAccount())

	sc, ok := bridge.CurrentContext()
	require.True(t, ok, "sign-in must succeed even when session creation fails")
	assert.True(t, sc.CanUseGateway())
}

func TestHandleSignOut(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, audit := newTestBridge(true)
	bridge.HandleSignIn(context.Background(), proAccount())

	bridge.HandleSignOut(context.Background())

	_, ok := bridge.CurrentContext()
	assert.False(t, ok)
	assert.Equal(t, []string{"u1"}, sessions.ends)
	assert.Contains(t, audit.actions(), "sign_out")
}

func TestHandleTokenRefresh_RecreatesLapsedSession(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, _ := newTestBridge(true)
	ctx := context.Background()
	bridge.HandleSignIn(ctx, proAccount())

	// session lapsed behind the bridge's back
	sessions.mu.Lock()
	delete(sessions.active, "u1")
	sessions.mu.Unlock()

	bridge.HandleTokenRefresh(ctx, proAccount())
	assert.Equal(t, 2, sessions.creates)

	bridge.HandleTokenRefresh(ctx, proAccount())
	assert.Equal(t, 2, sessions.creates)
	assert.Equal(t, 1, sessions.touches)
}

func TestHandleTokenRefresh_IgnoresOtherUsers(t *testing.T) {
	t.Parallel()
	bridge, sessions, _, _ := newTestBridge(true)
	bridge.HandleSignIn(context.Background(), proAccount())

	bridge.HandleTokenRefresh(context.Background(), domain.UserAccount{Id: "intruder", Tier: domain.TierPro})
	assert.Equal(t, 1, sessions.creates)
}

func TestExecuteSkillWithAuth_NotAuthenticated(t *testing.T) {
	t.Parallel()
	bridge, _, executor, _ := newTestBridge(true)

	_, err := bridge.ExecuteSkillWithAuth(context.Background(), "any", nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, executor.callCount())
}

func TestExecuteSkillWithAuth_NotPermitted(t *testing.T) {
	t.Parallel()
	bridge, _, executor, audit := newTestBridge(true)
	bridge.HandleSignIn(context.Background(), domain.UserAccount{Id: "u1", Tier: domain.TierFree})

	_, err := bridge.ExecuteSkillWithAuth(context.Background(), "any", nil)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, 0, executor.callCount())

	sc, _ := bridge.CurrentContext()
	assert.Equal(t, int64(1), sc.DeniedExecutions())
	assert.Contains(t, audit.actions(), "execute_skill_denied")
}

func TestExecuteSkillWithAuth_LimitedTierCap(t *testing.T) {
	t.Parallel()
	bridge, _, executor, _ := newTestBridge(true)
	bridge.HandleSignIn(context.Background(), proAccount())

	sc, _ := bridge.CurrentContext()
	sc.skillExecutions.Store(limitedTierMaxExecutions)

	_, err := bridge.ExecuteSkillWithAuth(context.Background(), "any", nil)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, 0, executor.callCount())
}

func TestExecuteSkillWithAuth_PermittedCountsAndAudits(t *testing.T) {
	t.Parallel()
	bridge, _, executor, audit := newTestBridge(true)
	bridge.HandleSignIn(context.Background(), proAccount())

	result, err := bridge.ExecuteSkillWithAuth(context.Background(), "natural-language-request", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, 1, executor.callCount())

	sc, _ := bridge.CurrentContext()
	assert.Equal(t, int64(1), sc.SkillExecutions())
	assert.Contains(t, audit.actions(), "execute_skill")
}

func TestExecuteSkillWithAuth_AuditFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()
	bridge, _, _, audit := newTestBridge(true)
	audit.err = errors.New("sink down")
	bridge.HandleSignIn(context.Background(), proAccount())

	_, err := bridge.ExecuteSkillWithAuth(context.Background(), "any", nil)
	assert.NoError(t, err)
}

func TestListeners_PanicIsolated(t *testing.T) {
	t.Parallel()
	bridge, _, _, _ := newTestBridge(true)

	var events []Event
	bridge.AddListener(func(event Event) {
		panic("boom")
	})
	bridge.AddListener(func(event Event) {
		events = append(events, event)
	})

	bridge.HandleSignIn(context.Background(), proAccount())
	bridge.HandleSignOut(context.Background())

	require.Len(t, events, 2)
	assert.Equal(t, EventSignIn, events[0].Type)
	assert.Equal(t, EventSignOut, events[1].Type)
}
