package domain

import (
	"context"
	"fmt"
	"time"
)

type ProactiveActionType string

const (
	ActionTypeAddBuffer        ProactiveActionType = "add_buffer"
	ActionTypeResolveConflict  ProactiveActionType = "resolve_conflict"
	ActionTypeCreateFocusBlock ProactiveActionType = "create_focus_block"
	ActionTypeReorderSchedule  ProactiveActionType = "reorder_schedule"
)

var AllProactiveActionTypes []ProactiveActionType = []ProactiveActionType{
	ActionTypeAddBuffer,
	ActionTypeResolveConflict,
	ActionTypeCreateFocusBlock,
	ActionTypeReorderSchedule,
}

func StringToProactiveActionType(s string) (ProactiveActionType, error) {
	switch s {
	case "add_buffer":
		return ActionTypeAddBuffer, nil
	case "resolve_conflict":
		return ActionTypeResolveConflict, nil
	case "create_focus_block":
		return ActionTypeCreateFocusBlock, nil
	case "reorder_schedule":
		return ActionTypeReorderSchedule, nil
	default:
		return "", fmt.Errorf("invalid ProactiveActionType: \"%s\"", s)
	}
}

// EntityChange is one proposed mutation to the user's timeline. A change with
// an EventId patches that event; a change without one inserts a new event.
type EntityChange struct {
	EventId string        `json:"eventId,omitempty"`
	Event   TimelineEvent `json:"event"`
}

// ProactiveAction is a system-proposed change to the user's timeline,
// classified by confidence.
type ProactiveAction struct {
	Id             string                 `json:"id"`
	Type           ProactiveActionType    `json:"type"`
	Description    string                 `json:"description"`
	Confidence     float64                `json:"confidence"`
	AutoExecutable bool                   `json:"autoExecutable"`
	SkillName      string                 `json:"skillName,omitempty"` // optional skill executed as part of the action
	Params         map[string]interface{} `json:"params,omitempty"`
	Changes        []EntityChange         `json:"changes,omitempty"`
}

// ProactiveActionRecord is the append-only audit record of an executed
// proactive action.
type ProactiveActionRecord struct {
	Id            string              `json:"id"`
	UserId        string              `json:"userId"`
	Type          ProactiveActionType `json:"type"`
	Description   string              `json:"description"`
	Confidence    float64             `json:"confidence"`
	ExecutedAt    time.Time           `json:"executedAt"`
	Success       bool                `json:"success"`
	DurationMs    int64               `json:"durationMs"`
	ChangedEvents int                 `json:"changedEvents"`
}

// ActionRecordStorage defines the interface for proactive-action audit
// records.
type ActionRecordStorage interface {
	PersistActionRecord(ctx context.Context, record ProactiveActionRecord) error
	GetRecentActionRecords(ctx context.Context, userId string, limit int) ([]ProactiveActionRecord, error)
}

// ActionRecordStreamer defines the interface for proactive-action change
// feeds.
type ActionRecordStreamer interface {
	AddActionRecordChange(ctx context.Context, record ProactiveActionRecord) error
	GetActionRecordChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]ProactiveActionRecord, string, error)
}

type SuggestionStatus string

const (
	SuggestionStatusPending   SuggestionStatus = "pending"
	SuggestionStatusApproved  SuggestionStatus = "approved"
	SuggestionStatusDismissed SuggestionStatus = "dismissed"
	SuggestionStatusStale     SuggestionStatus = "stale"
)

// Suggestion is a medium-confidence proactive action held for user review
// instead of being applied automatically. TargetUpdated snapshots the target
// event's Updated timestamp at suggestion time so that approval can detect a
// concurrent user edit.
type Suggestion struct {
	Id            string           `json:"id"`
	UserId        string           `json:"userId"`
	Action        ProactiveAction  `json:"action"`
	TargetUpdated *time.Time       `json:"targetUpdated,omitempty"`
	Status        SuggestionStatus `json:"status"`
	Created       time.Time        `json:"created"`
	Updated       time.Time        `json:"updated"`
}

// SuggestionStorage defines the interface for pending-suggestion database
// operations.
type SuggestionStorage interface {
	PersistSuggestion(ctx context.Context, suggestion Suggestion) error
	GetSuggestion(ctx context.Context, userId, suggestionId string) (Suggestion, error)
	GetPendingSuggestions(ctx context.Context, userId string) ([]Suggestion, error)
}

// SuggestionStreamer defines the interface for suggestion change feeds.
type SuggestionStreamer interface {
	AddSuggestionChange(ctx context.Context, suggestion Suggestion) error
	GetSuggestionChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]Suggestion, string, error)
}
