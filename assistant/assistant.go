package assistant

import (
	"context"
	"errors"
	"fmt"

	"dayflow/auth"
	"dayflow/domain"
	"dayflow/skill"
)

var (
	// ErrGatewayUnavailable means the gateway is disconnected or out of
	// reconnect budget; it is distinct from "the analysis ran and found
	// nothing".
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrNoAnalysis means no analysis cycle has completed yet.
	ErrNoAnalysis = errors.New("no analysis available yet")
)

// Gate is the slice of the auth bridge the assistant routes requests through.
type Gate interface {
	CurrentContext() (*auth.SecurityContext, bool)
	ExecuteSkillWithAuth(ctx context.Context, name string, params map[string]interface{}) (skill.Result, error)
}

// Analyzer is the slice of the intelligence engine the assistant queries.
type Analyzer interface {
	CurrentAnalysis() *domain.TimelineAnalysis
	TriggerAnalysis()
	PendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error)
}

// Connection reports gateway transport availability.
type Connection interface {
	IsConnected() bool
}

// Recommendations bundles everything the UI surfaces for user review.
type Recommendations struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	Suggestions   []domain.Suggestion  `json:"suggestions"`
}

// Assistant is the thin façade unifying ad-hoc natural-language requests and
// insight queries over the gateway client subsystem.
type Assistant struct {
	gate   Gate
	engine Analyzer
	conn   Connection
}

func NewAssistant(gate Gate, engine Analyzer, conn Connection) *Assistant {
	return &Assistant{gate: gate, engine: engine, conn: conn}
}

// ProcessRequest routes a natural-language request through the
// permission-gated executor and returns the response text.
func (a *Assistant) ProcessRequest(ctx context.Context, text string, requestContext map[string]interface{}) (string, error) {
	if !a.conn.IsConnected() {
		return "", ErrGatewayUnavailable
	}

	params := map[string]interface{}{"text": text}
	if len(requestContext) > 0 {
		params["context"] = requestContext
	}
	result, err := a.gate.ExecuteSkillWithAuth(ctx, skill.SkillNaturalLanguageRequest, params)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	return result.Text, nil
}

// Insights returns the aggregate scores from the most recent analysis. A
// missing analysis is reported as gateway unavailability when the transport
// is down, and as ErrNoAnalysis otherwise.
func (a *Assistant) Insights(ctx context.Context) (domain.Insights, error) {
	analysis := a.engine.CurrentAnalysis()
	if analysis == nil {
		if !a.conn.IsConnected() {
			return domain.Insights{}, ErrGatewayUnavailable
		}
		a.engine.TriggerAnalysis()
		return domain.Insights{}, ErrNoAnalysis
	}
	return analysis.Insights, nil
}

// Recommendations returns the latest analysis's opportunities together with
// the pending suggestions awaiting review.
func (a *Assistant) Recommendations(ctx context.Context) (Recommendations, error) {
	sc, ok := a.gate.CurrentContext()
	if !ok {
		return Recommendations{}, auth.ErrNotAuthenticated
	}

	analysis := a.engine.CurrentAnalysis()
	if analysis == nil && !a.conn.IsConnected() {
		return Recommendations{}, ErrGatewayUnavailable
	}

	recommendations := Recommendations{}
	if analysis != nil {
		recommendations.Opportunities = analysis.Opportunities
	}
	suggestions, err := a.engine.PendingSuggestions(ctx, sc.UserId)
	if err != nil {
		return Recommendations{}, fmt.Errorf("failed to load pending suggestions: %w", err)
	}
	recommendations.Suggestions = suggestions
	return recommendations, nil
}
