package domain

import (
	"context"
	"time"
)

// SchedulePattern is a recurring structure the analysis skill observed in the
// user's timeline.
type SchedulePattern struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Weight      float64 `json:"weight"`
}

type OpportunityType string

const (
	OpportunityTypeBuffer     OpportunityType = "buffer"
	OpportunityTypeConflict   OpportunityType = "conflict"
	OpportunityTypeFocusBlock OpportunityType = "focus_block"
	OpportunityTypeReorder    OpportunityType = "reorder"
)

// Opportunity is a schedule improvement the analysis surfaced without
// proposing a concrete change yet.
type Opportunity struct {
	Type        OpportunityType `json:"type"`
	Description string          `json:"description"`
	EventIds    []string        `json:"eventIds,omitempty"`
	Score       float64         `json:"score"`
}

// Insights are aggregate schedule scores, each in [0,1].
type Insights struct {
	HealthScore       float64 `json:"healthScore"`
	StressScore       float64 `json:"stressScore"`
	ProductivityScore float64 `json:"productivityScore"`
}

// TimelineAnalysis is the structured result of one analysis cycle. Each cycle
// fully replaces the previous one; only the latest is queryable in memory,
// while history is persisted append-only.
type TimelineAnalysis struct {
	UserId           string            `json:"userId"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Patterns         []SchedulePattern `json:"patterns,omitempty"`
	Opportunities    []Opportunity     `json:"opportunities,omitempty"`
	ProactiveActions []ProactiveAction `json:"proactiveActions,omitempty"`
	Insights         Insights          `json:"insights"`
}

// AnalysisStorage defines the interface for the append-only analysis history.
type AnalysisStorage interface {
	AppendAnalysis(ctx context.Context, analysis TimelineAnalysis) error
	GetRecentAnalyses(ctx context.Context, userId string, limit int) ([]TimelineAnalysis, error)
}
