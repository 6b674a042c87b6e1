package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayflow/domain"
)

func TestRecordCorrection_DurationFirstObservation(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	profile, err := m.RecordCorrection(ctx, "user1", domain.Correction{
		Type:             domain.CorrectionTypeDuration,
		Category:         "meeting",
		OriginalMinutes:  30,
		CorrectedMinutes: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, 45.0, profile.Patterns.AverageDurations["meeting"])
	assert.InDelta(t, 1.5, profile.Adaptations.DurationMultipliers["meeting"], 1e-9)
	require.Len(t, profile.Patterns.Corrections, 1)
	assert.False(t, profile.Patterns.Corrections[0].OccurredAt.IsZero())
}

func TestRecordCorrection_DurationBlendsRollingAverage(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.RecordCorrection(ctx, "user1", domain.Correction{
		Type: domain.CorrectionTypeDuration, Category: "meeting", OriginalMinutes: 30, CorrectedMinutes: 40,
	})
	require.NoError(t, err)
	profile, err := m.RecordCorrection(ctx, "user1", domain.Correction{
		Type: domain.CorrectionTypeDuration, Category: "meeting", OriginalMinutes: 40, CorrectedMinutes: 60,
	})
	require.NoError(t, err)

	// 40*0.8 + 60*0.2
	assert.InDelta(t, 44.0, profile.Patterns.AverageDurations["meeting"], 1e-9)
	assert.InDelta(t, 1.5, profile.Adaptations.DurationMultipliers["meeting"], 1e-9)
}

func TestRecordCorrection_BlendNeverOvershootsObservation(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	// Repeated identical corrections converge toward the corrected value and
	// never move past it.
	previous := 0.0
	for i := 0; i < 20; i++ {
		profile, err := m.RecordCorrection(ctx, "user1", domain.Correction{
			Type: domain.CorrectionTypeDuration, Category: "deep-work", OriginalMinutes: 50, CorrectedMinutes: 90,
		})
		require.NoError(t, err)
		avg := profile.Patterns.AverageDurations["deep-work"]
		assert.LessOrEqual(t, avg, 90.0)
		assert.GreaterOrEqual(t, avg, previous)
		previous = avg
	}
	assert.InDelta(t, 90.0, previous, 1.0)
}

func TestRecordCorrection_TimingNudgesSlotWeights(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.RecordCorrection(ctx, "user1", domain.Correction{
			Type: domain.CorrectionTypeTiming, Slot: "09",
		})
		require.NoError(t, err)
	}
	profile, err := m.GetProfile(ctx, "user1")
	require.NoError(t, err)

	assert.InDelta(t, 0.3, profile.Adaptations.SlotWeights["09"], 1e-9)
	assert.InDelta(t, 0.3, profile.Patterns.PeakSlots["09"], 1e-9)
}

func TestRecordCorrection_HistoryCapped(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	var profile domain.LearningProfile
	var err error
	for i := 0; i < domain.MaxCorrectionHistory+10; i++ {
		profile, err = m.RecordCorrection(ctx, "user1", domain.Correction{
			Type: domain.CorrectionTypeTiming, Slot: fmt.Sprintf("%02d", i%24),
		})
		require.NoError(t, err)
	}

	assert.Len(t, profile.Patterns.Corrections, domain.MaxCorrectionHistory)
	// oldest entries were dropped
	assert.Equal(t, fmt.Sprintf("%02d", 10%24), profile.Patterns.Corrections[0].Slot)
}

func TestRecordCorrection_InvalidInputs(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		correction domain.Correction
	}{
		{"unknown type", domain.Correction{Type: "unknown"}},
		{"duration without category", domain.Correction{Type: domain.CorrectionTypeDuration, OriginalMinutes: 30, CorrectedMinutes: 45}},
		{"duration without minutes", domain.Correction{Type: domain.CorrectionTypeDuration, Category: "meeting"}},
		{"timing without slot", domain.Correction{Type: domain.CorrectionTypeTiming}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.RecordCorrection(ctx, "user1", tc.correction)
			assert.Error(t, err)
		})
	}
}

func TestRecordCorrection_SyncsProfileWhenSessionActive(t *testing.T) {
	t.Parallel()
	m, _, gw := newTestManager(t)
	ctx := context.Background()

	_, err := m.GetOrCreateSession(ctx, "user1")
	require.NoError(t, err)
	before := gw.syncCount()

	_, err = m.RecordCorrection(ctx, "user1", domain.Correction{
		Type: domain.CorrectionTypeTiming, Slot: "14",
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, gw.syncCount())
}

func TestUpdatePreferences(t *testing.T) {
	t.Parallel()
	m, storage, _ := newTestManager(t)
	ctx := context.Background()

	profile, err := m.UpdatePreferences(ctx, "user1", domain.Preferences{
		BreakCadenceMinutes:  60,
		FocusBlockMinutes:    25,
		MeetingBufferMinutes: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, profile.Preferences.BreakCadenceMinutes)

	stored, err := storage.GetProfile(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Preferences.FocusBlockMinutes)
}
