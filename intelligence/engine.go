package intelligence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dayflow/auth"
	"dayflow/common"
	"dayflow/domain"
	"dayflow/logger"
	"dayflow/skill"
	"dayflow/srv"
)

// learningRefreshActionCount triggers an early learning refresh once this
// many high-confidence actions have recorded outcomes since the last refresh.
const learningRefreshActionCount = 3

// cycleTimeout bounds one background cycle end to end, including the analysis
// skill call and any entity writes.
const cycleTimeout = 2 * time.Minute

// AuthGate is the slice of the auth bridge the engine consults before every
// cycle and routes skill calls through.
type AuthGate interface {
	CurrentContext() (*auth.SecurityContext, bool)
	ExecuteSkillWithAuth(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error)
}

// LearningUpdater is the slice of the session manager the learning refresh
// feeds outcomes back into.
type LearningUpdater interface {
	GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error)
	RecordCorrection(ctx context.Context, userId string, correction domain.Correction) (domain.LearningProfile, error)
}

// Engine is the autonomous decision loop: on a fixed interval it fetches the
// upcoming timeline, requests analysis, and classifies the proposed actions
// by confidence into auto-execute, suggest, or discard.
type Engine struct {
	storage  srv.Storage
	gate     AuthGate
	sessions LearningUpdater
	config   common.IntelligenceConfig

	latest           atomic.Pointer[domain.TimelineAnalysis]
	proactiveEnabled atomic.Bool
	sinceLearning    atomic.Int64

	mu           sync.Mutex
	lastLearning time.Time

	trigger  chan struct{}
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewEngine(storage srv.Storage, gate AuthGate, sessions LearningUpdater, config common.IntelligenceConfig) *Engine {
	defaults := common.DefaultConfig().Intelligence
	if config.AnalysisIntervalMinutes == 0 {
		config.AnalysisIntervalMinutes = defaults.AnalysisIntervalMinutes
	}
	if config.LearningIntervalMinutes == 0 {
		config.LearningIntervalMinutes = defaults.LearningIntervalMinutes
	}
	if config.LookaheadDays == 0 {
		config.LookaheadDays = defaults.LookaheadDays
	}
	if config.AutoExecuteThreshold == 0 {
		config.AutoExecuteThreshold = defaults.AutoExecuteThreshold
	}
	if config.SuggestThreshold == 0 {
		config.SuggestThreshold = defaults.SuggestThreshold
	}
	if config.MaxRecentActions == 0 {
		config.MaxRecentActions = defaults.MaxRecentActions
	}

	e := &Engine{
		storage:      storage,
		gate:         gate,
		sessions:     sessions,
		config:       config,
		lastLearning: time.Now().UTC(),
		trigger:      make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	e.proactiveEnabled.Store(true)
	return e
}

// Start launches the background analysis and learning loops.
func (e *Engine) Start() {
	go e.run()
}

// Stop halts the background loops and waits for the current cycle to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)
	analysisTicker := time.NewTicker(e.config.AnalysisInterval())
	defer analysisTicker.Stop()
	learningTicker := time.NewTicker(e.config.LearningInterval())
	defer learningTicker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-analysisTicker.C:
			e.safeAnalysisCycle()
		case <-e.trigger:
			e.safeAnalysisCycle()
		case <-learningTicker.C:
			e.safeLearningRefresh()
		}
		if e.sinceLearning.Load() >= learningRefreshActionCount {
			e.safeLearningRefresh()
		}
	}
}

// safeAnalysisCycle runs one cycle with loop-boundary fault isolation: a
// single cycle's failure never stops subsequent cycles.
func (e *Engine) safeAnalysisCycle() {
	l := logger.Get()
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("analysis cycle panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()
	if err := e.runAnalysisCycle(ctx); err != nil {
		l.Warn().Err(err).Msg("analysis cycle failed")
	}
}

// runAnalysisCycle fetches the forward-looking event window, requests
// analysis, atomically replaces the latest result, and dispatches the
// proposed actions. An unauthenticated or unpermitted user makes the cycle a
// no-op, not an error.
func (e *Engine) runAnalysisCycle(ctx context.Context) error {
	sc, ok := e.gate.CurrentContext()
	if !ok || !sc.CanUseGateway() {
		return nil
	}
	userId := sc.UserId

	now := time.Now().UTC()
	events, err := e.storage.GetEventsInWindow(ctx, userId, now, now.AddDate(0, 0, e.config.LookaheadDays))
	if err != nil {
		return fmt.Errorf("failed to fetch timeline events: %w", err)
	}
	profile, err := e.sessions.GetProfile(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to load learning profile: %w", err)
	}

	result, err := e.gate.ExecuteSkillWithAuth(ctx, skill.SkillTimelineAnalysis, map[string]interface{}{
		"events":  events,
		"profile": profile,
	})
	if err != nil {
		return fmt.Errorf("analysis skill failed: %w", err)
	}
	if result.Analysis == nil {
		return fmt.Errorf("analysis skill returned no structured analysis")
	}

	analysis := result.Analysis
	analysis.UserId = userId
	analysis.GeneratedAt = now
	e.latest.Store(analysis)
	if err := e.storage.AppendAnalysis(ctx, *analysis); err != nil {
		l := logger.Get()
		l.Warn().Err(err).Msg("failed to persist analysis history")
	}

	e.processActions(ctx, userId, analysis.ProactiveActions)
	return nil
}

// processActions partitions proposed actions into auto-execute, suggest, and
// discard. Actions are processed sequentially with per-action fault
// isolation.
func (e *Engine) processActions(ctx context.Context, userId string, actions []domain.ProactiveAction) {
	l := logger.Get()
	for _, action := range actions {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.Error().Interface("panic", r).Str("actionType", string(action.Type)).Msg("proactive action panicked")
				}
			}()
			switch {
			case action.Confidence >= e.config.AutoExecuteThreshold && action.AutoExecutable && e.proactiveEnabled.Load():
				if err := e.executeAction(ctx, userId, action); err != nil {
					l.Warn().Err(err).Str("actionType", string(action.Type)).Msg("proactive action failed")
				}
			case action.Confidence >= e.config.SuggestThreshold:
				if err := e.persistSuggestion(ctx, userId, action); err != nil {
					l.Warn().Err(err).Str("actionType", string(action.Type)).Msg("failed to persist suggestion")
				}
			default:
				l.Debug().Str("actionType", string(action.Type)).Float64("confidence", action.Confidence).Msg("discarding low-confidence action")
			}
		}()
	}
}

// CurrentAnalysis returns the most recent analysis, or nil when no cycle has
// completed yet.
func (e *Engine) CurrentAnalysis() *domain.TimelineAnalysis {
	return e.latest.Load()
}

// TriggerAnalysis forces an out-of-band analysis cycle. A trigger while one
// is already queued is a no-op.
func (e *Engine) TriggerAnalysis() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// RecentActions returns the most recent proactive-action audit records,
// newest first.
func (e *Engine) RecentActions(ctx context.Context, limit int) ([]domain.ProactiveActionRecord, error) {
	sc, ok := e.gate.CurrentContext()
	if !ok {
		return nil, auth.ErrNotAuthenticated
	}
	if limit <= 0 || limit > e.config.MaxRecentActions {
		limit = e.config.MaxRecentActions
	}
	return e.storage.GetRecentActionRecords(ctx, sc.UserId, limit)
}

// SetProactiveActionsEnabled toggles auto-execution without disabling
// analysis. When disabled, high-confidence actions are recorded as
// suggestions instead of being applied.
func (e *Engine) SetProactiveActionsEnabled(enabled bool) {
	e.proactiveEnabled.Store(enabled)
}

func (e *Engine) ProactiveActionsEnabled() bool {
	return e.proactiveEnabled.Load()
}

func (e *Engine) safeLearningRefresh() {
	l := logger.Get()
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("learning refresh panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()
	if err := e.runLearningRefresh(ctx); err != nil {
		l.Warn().Err(err).Msg("learning refresh failed")
	}
}

// runLearningRefresh feeds recently executed high-confidence outcomes back
// into the learning profile as timing signals for the slots where proactive
// changes stuck.
func (e *Engine) runLearningRefresh(ctx context.Context) error {
	sc, ok := e.gate.CurrentContext()
	if !ok || !sc.CanUseGateway() {
		return nil
	}
	userId := sc.UserId

	e.mu.Lock()
	since := e.lastLearning
	e.lastLearning = time.Now().UTC()
	e.mu.Unlock()
	e.sinceLearning.Store(0)

	records, err := e.storage.GetRecentActionRecords(ctx, userId, e.config.MaxRecentActions)
	if err != nil {
		return fmt.Errorf("failed to fetch action records: %w", err)
	}

	for _, record := range records {
		if !record.Success || record.Confidence < e.config.AutoExecuteThreshold {
			continue
		}
		if !record.ExecutedAt.After(since) {
			continue
		}
		_, err := e.sessions.RecordCorrection(ctx, userId, domain.Correction{
			Type:       domain.CorrectionTypeTiming,
			Slot:       record.ExecutedAt.Format("15"),
			OccurredAt: record.ExecutedAt,
		})
		if err != nil {
			l := logger.Get()
			l.Warn().Err(err).Msg("failed to record learning signal")
		}
	}
	return nil
}
