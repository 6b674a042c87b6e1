package skill

import (
	"encoding/json"
	"fmt"
	"time"

	"dayflow/domain"
	"dayflow/gateway"
)

// Result is a validated skill response. Category-specific fields are
// populated according to the skill's declared category; Raw always carries
// the original payload.
type Result struct {
	SkillName     string
	Confidence    float64
	ExecutionTime time.Duration
	Raw           json.RawMessage
	// Events is populated for timeline_extraction skills.
	Events []ExtractedEvent
	// Schedule is populated for schedule_optimization skills.
	Schedule []ScheduleEntry
	// Analysis is populated for timeline_analysis skills.
	Analysis *domain.TimelineAnalysis
	// Text is populated for general skills.
	Text string
}

// ExtractedEvent is one event parsed out of a timeline-extraction response,
// with its start time normalized.
type ExtractedEvent struct {
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Category        string    `json:"category,omitempty"`
}

// ScheduleEntry is one slot of an optimized schedule.
type ScheduleEntry struct {
	EventId         string    `json:"eventId,omitempty"`
	Title           string    `json:"title,omitempty"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
}

func validateResponse(def Definition, resp gateway.InboundMessage) (Result, error) {
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return Result{}, InvalidSkillResponseError{Name: def.Name, Reason: fmt.Sprintf("confidence %v out of range [0,1]", resp.Confidence)}
	}

	result := Result{
		SkillName:     def.Name,
		Confidence:    resp.Confidence,
		ExecutionTime: time.Duration(resp.ExecutionTime) * time.Millisecond,
		Raw:           resp.Data,
	}

	switch def.Category {
	case CategoryTimelineExtraction:
		events, err := parseExtractedEvents(resp.Data)
		if err != nil {
			return Result{}, InvalidSkillResponseError{Name: def.Name, Reason: err.Error()}
		}
		result.Events = events
	case CategoryScheduleOptimization:
		schedule, err := parseSchedule(resp.Data)
		if err != nil {
			return Result{}, InvalidSkillResponseError{Name: def.Name, Reason: err.Error()}
		}
		result.Schedule = schedule
	case CategoryTimelineAnalysis:
		analysis, err := parseAnalysis(resp.Data)
		if err != nil {
			return Result{}, InvalidSkillResponseError{Name: def.Name, Reason: err.Error()}
		}
		result.Analysis = analysis
	case CategoryGeneral:
		result.Text = parseText(resp.Data)
	default:
		// uncategorized skills pass raw data through unvalidated
	}

	return result, nil
}

// parseExtractedEvents accepts either {"events": [...]} or a bare array.
// Every event needs a non-empty title and a parseable start time; string
// dates are normalized to UTC timestamps.
func parseExtractedEvents(data json.RawMessage) ([]ExtractedEvent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing events payload")
	}

	var rawEvents []map[string]interface{}
	if err := json.Unmarshal(data, &rawEvents); err != nil {
		var wrapper struct {
			Events []map[string]interface{} `json:"events"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Events == nil {
			return nil, fmt.Errorf("payload does not contain an event sequence")
		}
		rawEvents = wrapper.Events
	}

	events := make([]ExtractedEvent, 0, len(rawEvents))
	for i, raw := range rawEvents {
		title, _ := raw["title"].(string)
		if title == "" {
			return nil, fmt.Errorf("event %d has an empty title", i)
		}

		start, err := parseTimeValue(raw["start"])
		if err != nil {
			return nil, fmt.Errorf("event %d: %v", i, err)
		}

		event := ExtractedEvent{Title: title, Start: start}
		if duration, ok := numberValue(raw["durationMinutes"]); ok {
			event.DurationMinutes = int(duration)
		} else if duration, ok := numberValue(raw["duration"]); ok {
			event.DurationMinutes = int(duration)
		}
		if category, ok := raw["category"].(string); ok {
			event.Category = category
		}
		events = append(events, event)
	}
	return events, nil
}

// parseSchedule accepts {"schedule": [...]} or {"optimizedSchedule": [...]}.
func parseSchedule(data json.RawMessage) ([]ScheduleEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing schedule payload")
	}

	var wrapper struct {
		Schedule          []map[string]interface{} `json:"schedule"`
		OptimizedSchedule []map[string]interface{} `json:"optimizedSchedule"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("payload is not an object: %v", err)
	}
	rawEntries := wrapper.Schedule
	if rawEntries == nil {
		rawEntries = wrapper.OptimizedSchedule
	}
	if rawEntries == nil {
		return nil, fmt.Errorf("payload does not contain an optimized schedule sequence")
	}

	entries := make([]ScheduleEntry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		start, err := parseTimeValue(raw["start"])
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %v", i, err)
		}
		entry := ScheduleEntry{Start: start}
		if id, ok := raw["eventId"].(string); ok {
			entry.EventId = id
		}
		if title, ok := raw["title"].(string); ok {
			entry.Title = title
		}
		if duration, ok := numberValue(raw["durationMinutes"]); ok {
			entry.DurationMinutes = int(duration)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// analysisPayload mirrors the analysis skill's response shape.
type analysisPayload struct {
	Patterns         []domain.SchedulePattern `json:"patterns"`
	Opportunities    []domain.Opportunity     `json:"opportunities"`
	ProactiveActions []domain.ProactiveAction `json:"proactiveActions"`
	Insights         domain.Insights          `json:"insights"`
}

func parseAnalysis(data json.RawMessage) (*domain.TimelineAnalysis, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing analysis payload")
	}

	var payload analysisPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed analysis payload: %v", err)
	}

	for i, action := range payload.ProactiveActions {
		if action.Confidence < 0 || action.Confidence > 1 {
			return nil, fmt.Errorf("proactive action %d confidence %v out of range [0,1]", i, action.Confidence)
		}
	}

	return &domain.TimelineAnalysis{
		Patterns:         payload.Patterns,
		Opportunities:    payload.Opportunities,
		ProactiveActions: payload.ProactiveActions,
		Insights:         payload.Insights,
	}, nil
}

func parseText(data json.RawMessage) string {
	var wrapper struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Text != "" {
		return wrapper.Text
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return ""
}

// parseTimeValue normalizes a start time that may arrive as an RFC3339-ish
// string or as unix seconds.
func parseTimeValue(v interface{}) (time.Time, error) {
	switch value := v.(type) {
	case string:
		return domain.ParseEventTime(value)
	case float64:
		return time.Unix(int64(value), 0).UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing start time")
	default:
		return time.Time{}, fmt.Errorf("unsupported start time type %T", v)
	}
}

func numberValue(v interface{}) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}
