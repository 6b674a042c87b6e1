package intelligence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayflow/auth"
	"dayflow/common"
	"dayflow/domain"
	"dayflow/skill"
	"dayflow/srv/sqlite"
)

// stubGate scripts the auth bridge: a fixed security context plus canned
// skill results keyed by skill name.
type stubGate struct {
	mu      sync.Mutex
	sc      *auth.SecurityContext
	results map[string]skill.Result
	errs    map[string]error
	calls   []string
}

func (g *stubGate) CurrentContext() (*auth.SecurityContext, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sc, g.sc != nil
}

func (g *stubGate) ExecuteSkillWithAuth(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
	if err, ok := g.errs[name]; ok {
		return skill.Result{}, err
	}
	result := g.results[name]
	if result.Analysis != nil {
		// the engine takes ownership of the analysis pointer
		analysisCopy := *result.Analysis
		result.Analysis = &analysisCopy
	}
	return result, nil
}

func (g *stubGate) skillCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type stubSessions struct {
	mu          sync.Mutex
	corrections []domain.Correction
}

func (s *stubSessions) GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	return domain.DefaultLearningProfile(userId), nil
}

func (s *stubSessions) RecordCorrection(ctx context.Context, userId string, correction domain.Correction) (domain.LearningProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections = append(s.corrections, correction)
	return domain.LearningProfile{}, nil
}

func unlimitedContext(userId string) *auth.SecurityContext {
	return &auth.SecurityContext{
		UserId: userId,
		Tier:   domain.TierTeam,
		Permissions: auth.Permissions{
			GatewayAccess:   auth.GatewayAccessUnlimited,
			CanReadOwnData:  true,
			CanWriteOwnData: true,
		},
	}
}

func newTestEngine(t *testing.T, sc *auth.SecurityContext, analysis *domain.TimelineAnalysis) (*Engine, *sqlite.Storage, *stubGate, *stubSessions) {
	t.Helper()
	storage := sqlite.NewTestSqliteStorage(t, "test")
	gate := &stubGate{
		sc:      sc,
		results: map[string]skill.Result{},
		errs:    map[string]error{},
	}
	if analysis != nil {
		gate.results[skill.SkillTimelineAnalysis] = skill.Result{Analysis: analysis, Confidence: 0.9}
	}
	sessions := &stubSessions{}
	engine := NewEngine(storage, gate, sessions, common.IntelligenceConfig{})
	return engine, storage, gate, sessions
}

func analysisWith(actions ...domain.ProactiveAction) *domain.TimelineAnalysis {
	return &domain.TimelineAnalysis{
		ProactiveActions: actions,
		Insights:         domain.Insights{HealthScore: 0.8},
	}
}

func TestAnalysisCycle_SkippedWhenUnauthenticated(t *testing.T) {
	t.Parallel()
	engine, _, gate, _ := newTestEngine(t, nil, analysisWith())

	require.NoError(t, engine.runAnalysisCycle(context.Background()))
	assert.Empty(t, gate.skillCalls())
	assert.Nil(t, engine.CurrentAnalysis())
}

func TestAnalysisCycle_SkippedWhenGatewayDisabled(t *testing.T) {
	t.Parallel()
	sc := &auth.SecurityContext{UserId: "user1", Permissions: auth.Permissions{GatewayAccess: auth.GatewayAccessDisabled}}
	engine, _, gate, _ := newTestEngine(t, sc, analysisWith())

	require.NoError(t, engine.runAnalysisCycle(context.Background()))
	assert.Empty(t, gate.skillCalls())
}

func TestAnalysisCycle_ReplacesLatestAndPersistsHistory(t *testing.T) {
	t.Parallel()
	engine, storage, _, _ := newTestEngine(t, unlimitedContext("user1"), analysisWith())
	ctx := context.Background()

	require.NoError(t, engine.runAnalysisCycle(ctx))
	first := engine.CurrentAnalysis()
	require.NotNil(t, first)
	assert.Equal(t, "user1", first.UserId)

	require.NoError(t, engine.runAnalysisCycle(ctx))
	second := engine.CurrentAnalysis()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	history, err := storage.GetRecentAnalyses(ctx, "user1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAnalysisCycle_PartitionsActionsByConfidence(t *testing.T) {
	t.Parallel()
	actions := []domain.ProactiveAction{
		{
			Type:           domain.ActionTypeAddBuffer,
			Description:    "auto",
			Confidence:     0.9,
			AutoExecutable: true,
			Changes: []domain.EntityChange{
				{Event: domain.TimelineEvent{Title: "Buffer", Start: time.Now().UTC().Add(time.Hour), DurationMinutes: 10}},
			},
		},
		{
			Type:        domain.ActionTypeCreateFocusBlock,
			Description: "suggest",
			Confidence:  0.7,
			Changes: []domain.EntityChange{
				{Event: domain.TimelineEvent{Title: "Focus", Start: time.Now().UTC().Add(2 * time.Hour)}},
			},
		},
		{
			Type:        domain.ActionTypeReorderSchedule,
			Description: "discard",
			Confidence:  0.4,
		},
	}
	engine, storage, _, _ := newTestEngine(t, unlimitedContext("user1"), analysisWith(actions...))
	ctx := context.Background()

	require.NoError(t, engine.runAnalysisCycle(ctx))

	// the auto action applied its change with provenance
	now := time.Now().UTC()
	events, err := storage.GetEventsInWindow(ctx, "user1", now.Add(-time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Buffer", events[0].Title)
	assert.Equal(t, domain.ModifiedByProactive, events[0].ModifiedBy)
	assert.Equal(t, "assistant", events[0].Source)

	records, err := storage.GetRecentActionRecords(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionTypeAddBuffer, records[0].Type)
	assert.True(t, records[0].Success)
	assert.Equal(t, 1, records[0].ChangedEvents)

	// the medium-confidence action became a pending suggestion
	pending, err := storage.GetPendingSuggestions(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.ActionTypeCreateFocusBlock, pending[0].Action.Type)

	// the low-confidence action left no trace
	assert.Len(t, events, 1)
	assert.Len(t, records, 1)
}

func TestAnalysisCycle_ProactiveDisabledDemotesToSuggestion(t *testing.T) {
	t.Parallel()
	action := domain.ProactiveAction{
		Type:           domain.ActionTypeAddBuffer,
		Confidence:     0.95,
		AutoExecutable: true,
		Changes: []domain.EntityChange{
			{Event: domain.TimelineEvent{Title: "Buffer", Start: time.Now().UTC().Add(time.Hour)}},
		},
	}
	engine, storage, _, _ := newTestEngine(t, unlimitedContext("user1"), analysisWith(action))
	engine.SetProactiveActionsEnabled(false)
	ctx := context.Background()

	require.NoError(t, engine.runAnalysisCycle(ctx))

	now := time.Now().UTC()
	events, err := storage.GetEventsInWindow(ctx, "user1", now.Add(-time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events, "no entity changes may be applied while auto-execution is disabled")

	pending, err := storage.GetPendingSuggestions(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAnalysisCycle_ActionFailureIsIsolated(t *testing.T) {
	t.Parallel()
	actions := []domain.ProactiveAction{
		{
			Type:           domain.ActionTypeResolveConflict,
			Confidence:     0.9,
			AutoExecutable: true,
			SkillName:      "schedule-optimization",
		},
		{
			Type:           domain.ActionTypeAddBuffer,
			Confidence:     0.9,
			AutoExecutable: true,
			Changes: []domain.EntityChange{
				{Event: domain.TimelineEvent{Title: "Buffer", Start: time.Now().UTC().Add(time.Hour)}},
			},
		},
	}
	engine, storage, gate, _ := newTestEngine(t, unlimitedContext("user1"), analysisWith(actions...))
	gate.errs["schedule-optimization"] = errors.New("gateway hiccup")
	ctx := context.Background()

	require.NoError(t, engine.runAnalysisCycle(ctx))

	records, err := storage.GetRecentActionRecords(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	bySuccess := map[bool]domain.ProactiveActionType{}
	for _, record := range records {
		bySuccess[record.Success] = record.Type
	}
	assert.Equal(t, domain.ActionTypeResolveConflict, bySuccess[false])
	assert.Equal(t, domain.ActionTypeAddBuffer, bySuccess[true])
}

func TestRecentActions_ClampsLimit(t *testing.T) {
	t.Parallel()
	engine, storage, _, _ := newTestEngine(t, unlimitedContext("user1"), nil)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, storage.PersistActionRecord(ctx, domain.ProactiveActionRecord{
			Id: string(rune('a' + i)), UserId: "user1", Type: domain.ActionTypeAddBuffer,
			Confidence: 0.9, ExecutedAt: base.Add(time.Duration(i) * time.Second), Success: true,
		}))
	}

	records, err := engine.RecentActions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = engine.RecentActions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestRecentActions_RequiresAuthentication(t *testing.T) {
	t.Parallel()
	engine, _, _, _ := newTestEngine(t, nil, nil)

	_, err := engine.RecentActions(context.Background(), 10)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLearningRefresh_FeedsSuccessfulOutcomesBack(t *testing.T) {
	t.Parallel()
	engine, storage, _, sessions := newTestEngine(t, unlimitedContext("user1"), nil)
	ctx := context.Background()

	engine.mu.Lock()
	engine.lastLearning = time.Now().UTC().Add(-time.Hour)
	engine.mu.Unlock()

	now := time.Now().UTC()
	require.NoError(t, storage.PersistActionRecord(ctx, domain.ProactiveActionRecord{
		Id: "pa_ok", UserId: "user1", Type: domain.ActionTypeAddBuffer,
		Confidence: 0.9, ExecutedAt: now.Add(-time.Minute), Success: true,
	}))
	require.NoError(t, storage.PersistActionRecord(ctx, domain.ProactiveActionRecord{
		Id: "pa_failed", UserId: "user1", Type: domain.ActionTypeAddBuffer,
		Confidence: 0.9, ExecutedAt: now.Add(-time.Minute), Success: false,
	}))
	require.NoError(t, storage.PersistActionRecord(ctx, domain.ProactiveActionRecord{
		Id: "pa_low", UserId: "user1", Type: domain.ActionTypeAddBuffer,
		Confidence: 0.5, ExecutedAt: now.Add(-time.Minute), Success: true,
	}))
	engine.sinceLearning.Store(3)

	require.NoError(t, engine.runLearningRefresh(ctx))

	require.Len(t, sessions.corrections, 1)
	assert.Equal(t, domain.CorrectionTypeTiming, sessions.corrections[0].Type)
	assert.Equal(t, int64(0), engine.sinceLearning.Load())
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	engine, _, _, _ := newTestEngine(t, nil, nil)
	engine.Start()
	engine.TriggerAnalysis()
	engine.Stop()
}
