package domain

import (
	"context"
	"time"
)

// ModifiedByProactive tags timeline events that were created or patched by
// the proactive intelligence loop rather than the user.
const ModifiedByProactive = "dayflow:proactive"

// TimelineEvent represents a single entry on a user's timeline: a meeting, a
// focus block, a break, or any other scheduled item.
type TimelineEvent struct {
	Id              string    `json:"id"`
	UserId          string    `json:"userId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"` // e.g. "meeting", "focus", "break"
	Start           time.Time `json:"start"`
	End             time.Time `json:"end,omitempty"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Source          string    `json:"source,omitempty"`     // "user" or "assistant"
	ModifiedBy      string    `json:"modifiedBy,omitempty"` // provenance tag for system writes
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
}

// EventStorage defines the interface for timeline-event database operations.
type EventStorage interface {
	PersistEvent(ctx context.Context, event TimelineEvent) error
	GetEvent(ctx context.Context, userId, eventId string) (TimelineEvent, error)
	GetEventsInWindow(ctx context.Context, userId string, from, to time.Time) ([]TimelineEvent, error)
	DeleteEvent(ctx context.Context, userId, eventId string) error
}
