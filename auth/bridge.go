package auth

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"dayflow/domain"
	"dayflow/logger"
	"dayflow/skill"
)

// SessionController is the slice of the session manager the bridge drives in
// lockstep with identity events.
type SessionController interface {
	GetOrCreateSession(ctx context.Context, userId string) (domain.WorkspaceSession, error)
	GetSession(userId string) (domain.WorkspaceSession, bool)
	Touch(userId string)
	EndSession(ctx context.Context, userId string)
}

// SkillExecutor is the slice of the executor the bridge gates.
type SkillExecutor interface {
	ExecuteSkill(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error)
}

// FlagChecker evaluates the gateway kill-switch flag per user.
type FlagChecker interface {
	IsGatewayEnabled(userId string) bool
}

type EventType string

const (
	EventSignIn       EventType = "sign_in"
	EventSignOut      EventType = "sign_out"
	EventTokenRefresh EventType = "token_refresh"
)

// Event describes one auth state change delivered to listeners.
type Event struct {
	Type   EventType
	UserId string
}

type Listener func(event Event)

// Bridge consumes identity-provider events, derives the security context, and
// keeps the workspace session in lockstep with authentication state.
type Bridge struct {
	sessions SessionController
	executor SkillExecutor
	flags    FlagChecker
	audit    domain.AuditStorage

	mu        sync.Mutex
	current   *SecurityContext
	listeners []Listener
}

func NewBridge(sessions SessionController, executor SkillExecutor, flags FlagChecker, audit domain.AuditStorage) *Bridge {
	return &Bridge{
		sessions: sessions,
		executor: executor,
		flags:    flags,
		audit:    audit,
	}
}

// AddListener registers a listener for auth state changes. Listeners are
// invoked synchronously in registration order; a panicking listener does not
// prevent the others from being notified.
func (b *Bridge) AddListener(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// HandleSignIn derives the user's permission set, installs a fresh security
// context, and creates a workspace session when gateway access is permitted.
// Session-creation failure degrades to authenticated-without-gateway rather
// than failing the sign-in.
func (b *Bridge) HandleSignIn(ctx context.Context, account domain.UserAccount) {
	perms := ComputePermissions(account, b.flags.IsGatewayEnabled(account.Id))
	sc := &SecurityContext{
		UserId:         account.Id,
		OrganizationId: account.OrganizationId,
		Role:           account.Role,
		Tier:           account.Tier,
		Permissions:    perms,
		SignedInAt:     time.Now().UTC(),
	}

	l := logger.Get()
	if sc.CanUseGateway() {
		if _, err := b.sessions.GetOrCreateSession(ctx, account.Id); err != nil {
			l.Warn().Err(err).Str("userId", account.Id).Msg("session creation failed, continuing without gateway access")
		}
	}

	b.mu.Lock()
	b.current = sc
	b.mu.Unlock()

	b.appendAudit(ctx, account.Id, "sign_in", string(perms.GatewayAccess), true)
	b.notify(Event{Type: EventSignIn, UserId: account.Id})
	l.Info().Str("userId", account.Id).Str("tier", string(account.Tier)).Msg("user signed in")
}

// HandleSignOut ends the active session and discards the security context.
func (b *Bridge) HandleSignOut(ctx context.Context) {
	b.mu.Lock()
	sc := b.current
	b.current = nil
	b.mu.Unlock()
	if sc == nil {
		return
	}

	b.sessions.EndSession(ctx, sc.UserId)
	b.appendAudit(ctx, sc.UserId, "sign_out", "", true)
	b.notify(Event{Type: EventSignOut, UserId: sc.UserId})
	l := logger.Get()
	l.Info().Str("userId", sc.UserId).Msg("user signed out")
}

// HandleTokenRefresh refreshes activity bookkeeping for the signed-in user
// and transparently recreates the session if it lapsed while gateway access
// is still permitted.
func (b *Bridge) HandleTokenRefresh(ctx context.Context, account domain.UserAccount) {
	b.mu.Lock()
	sc := b.current
	b.mu.Unlock()
	if sc == nil || sc.UserId != account.Id {
		return
	}

	if sc.CanUseGateway() {
		if _, ok := b.sessions.GetSession(account.Id); !ok {
			if _, err := b.sessions.GetOrCreateSession(ctx, account.Id); err != nil {
				l := logger.Get()
				l.Warn().Err(err).Str("userId", account.Id).Msg("session recreation failed on token refresh")
			}
		} else {
			b.sessions.Touch(account.Id)
		}
	}
	b.notify(Event{Type: EventTokenRefresh, UserId: account.Id})
}

// CurrentContext returns the active security context, or false when no user
// is signed in.
func (b *Bridge) CurrentContext() (*SecurityContext, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.current != nil
}

// ExecuteSkillWithAuth gates skill execution on the security context: it
// fails with ErrNotAuthenticated or ErrNotPermitted before ever reaching the
// executor. Permitted executions bump the audit counter and are logged to the
// audit sink best effort.
func (b *Bridge) ExecuteSkillWithAuth(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error) {
	b.mu.Lock()
	sc := b.current
	b.mu.Unlock()
	if sc == nil {
		return skill.Result{}, ErrNotAuthenticated
	}

	if !sc.CanUseGateway() {
		sc.deniedExecutions.Add(1)
		b.appendAudit(ctx, sc.UserId, "execute_skill_denied", name, false)
		return skill.Result{}, ErrNotPermitted
	}
	if max := sc.Permissions.MaxSkillExecutions; max > 0 && sc.skillExecutions.Load() >= max {
		sc.deniedExecutions.Add(1)
		b.appendAudit(ctx, sc.UserId, "execute_skill_denied", name, false)
		return skill.Result{}, ErrNotPermitted
	}

	sc.skillExecutions.Add(1)
	result, err := b.executor.ExecuteSkill(ctx, name, params)
	b.appendAudit(ctx, sc.UserId, "execute_skill", name, err == nil)
	return result, err
}

// appendAudit writes to the audit sink best effort; sink failures never
// propagate as functional failures.
func (b *Bridge) appendAudit(ctx context.Context, userId, action, detail string, success bool) {
	if b.audit == nil {
		return
	}
	event := domain.AuditEvent{
		Id:      "audit_" + ksuid.New().String(),
		UserId:  userId,
		Action:  action,
		Detail:  detail,
		Success: success,
		Created: time.Now().UTC(),
	}
	if err := b.audit.AppendAuditEvent(ctx, event); err != nil {
		l := logger.Get()
		l.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}

func (b *Bridge) notify(event Event) {
	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l := logger.Get()
					l.Error().Interface("panic", r).Msg("auth listener panicked")
				}
			}()
			listener(event)
		}()
	}
}
