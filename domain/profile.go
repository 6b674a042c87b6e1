package domain

import (
	"context"
	"fmt"
	"time"

	"dayflow/common"
)

// MaxCorrectionHistory bounds the rolling history of past corrections kept in
// a learning profile.
const MaxCorrectionHistory = 100

// Preferences are the user-stated scheduling preferences.
type Preferences struct {
	WorkingHours         []common.WorkingHoursWindow `json:"workingHours,omitempty"`
	BreakCadenceMinutes  int                         `json:"breakCadenceMinutes"`
	FocusBlockMinutes    int                         `json:"focusBlockMinutes"`
	MeetingBufferMinutes int                         `json:"meetingBufferMinutes"`
}

// Patterns are behavioral statistics observed from the user's timeline and
// corrections.
type Patterns struct {
	// AverageDurations maps a task category to the observed average duration
	// in minutes.
	AverageDurations map[string]float64 `json:"averageDurations,omitempty"`
	// PeakSlots maps an "HH" hour slot to a productivity weight.
	PeakSlots map[string]float64 `json:"peakSlots,omitempty"`
	// Corrections is a rolling history of past user corrections, most recent
	// last, capped at MaxCorrectionHistory.
	Corrections []Correction `json:"corrections,omitempty"`
}

// Adaptations are derived adjustment factors applied when scheduling.
type Adaptations struct {
	// DurationMultipliers maps a task category to a multiplicative adjustment
	// (corrected/original) from the most recent duration correction.
	DurationMultipliers map[string]float64 `json:"durationMultipliers,omitempty"`
	// SlotWeights maps an "HH" hour slot to a preference weight nudged up by
	// timing corrections.
	SlotWeights map[string]float64 `json:"slotWeights,omitempty"`
	// ContextSwitchPenalty estimates the cost, in minutes, of switching task
	// categories back to back.
	ContextSwitchPenalty float64 `json:"contextSwitchPenalty"`
}

// LearningProfile is the persisted per-user personalization state fed into
// analysis and scheduling skills.
type LearningProfile struct {
	UserId      string      `json:"userId"`
	Preferences Preferences `json:"preferences"`
	Patterns    Patterns    `json:"patterns"`
	Adaptations Adaptations `json:"adaptations"`
	Created     time.Time   `json:"created"`
	Updated     time.Time   `json:"updated"`
}

// DefaultLearningProfile returns the profile created for a user's first
// session.
func DefaultLearningProfile(userId string) LearningProfile {
	now := time.Now().UTC()
	return LearningProfile{
		UserId: userId,
		Preferences: Preferences{
			WorkingHours: []common.WorkingHoursWindow{
				{Days: []string{"monday", "tuesday", "wednesday", "thursday", "friday"}, Start: "09:00", End: "17:00"},
			},
			BreakCadenceMinutes:  90,
			FocusBlockMinutes:    50,
			MeetingBufferMinutes: 10,
		},
		Patterns: Patterns{
			AverageDurations: map[string]float64{},
			PeakSlots:        map[string]float64{},
		},
		Adaptations: Adaptations{
			DurationMultipliers:  map[string]float64{},
			SlotWeights:          map[string]float64{},
			ContextSwitchPenalty: 5,
		},
		Created: now,
		Updated: now,
	}
}

type CorrectionType string

const (
	CorrectionTypeDuration CorrectionType = "duration"
	CorrectionTypeTiming   CorrectionType = "timing"
)

func StringToCorrectionType(s string) (CorrectionType, error) {
	switch s {
	case "duration":
		return CorrectionTypeDuration, nil
	case "timing":
		return CorrectionTypeTiming, nil
	default:
		return "", fmt.Errorf("invalid CorrectionType: \"%s\"", s)
	}
}

// Correction is a user edit to a previously system-produced value, used as a
// training signal for the learning profile.
type Correction struct {
	Type     CorrectionType `json:"type"`
	Category string         `json:"category,omitempty"`
	// OriginalMinutes and CorrectedMinutes apply to duration corrections.
	OriginalMinutes  float64 `json:"originalMinutes,omitempty"`
	CorrectedMinutes float64 `json:"correctedMinutes,omitempty"`
	// Slot applies to timing corrections, as an "HH" hour of day.
	Slot       string    `json:"slot,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ProfileStorage defines the interface for learning-profile database
// operations.
type ProfileStorage interface {
	PersistProfile(ctx context.Context, profile LearningProfile) error
	GetProfile(ctx context.Context, userId string) (LearningProfile, error)
}
