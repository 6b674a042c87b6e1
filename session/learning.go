package session

import (
	"context"
	"fmt"
	"time"

	"dayflow/domain"
	"dayflow/logger"
)

// durationBlendWeight is how much a new duration observation shifts the
// rolling category average.
const durationBlendWeight = 0.2

// slotWeightIncrement is how much one timing correction nudges a slot's
// preference weight.
const slotWeightIncrement = 0.1

// RecordCorrection folds a user correction into the learning profile,
// persists it, and best-effort syncs the updated profile to the user's
// gateway workspace.
func (m *Manager) RecordCorrection(ctx context.Context, userId string, correction domain.Correction) (domain.LearningProfile, error) {
	profile, err := m.loadOrCreateProfile(ctx, userId)
	if err != nil {
		return domain.LearningProfile{}, err
	}

	if correction.OccurredAt.IsZero() {
		correction.OccurredAt = time.Now().UTC()
	}

	switch correction.Type {
	case domain.CorrectionTypeDuration:
		if err := applyDurationCorrection(&profile, correction); err != nil {
			return domain.LearningProfile{}, err
		}
	case domain.CorrectionTypeTiming:
		if err := applyTimingCorrection(&profile, correction); err != nil {
			return domain.LearningProfile{}, err
		}
	default:
		return domain.LearningProfile{}, fmt.Errorf("invalid correction type: %q", correction.Type)
	}

	profile.Patterns.Corrections = append(profile.Patterns.Corrections, correction)
	if overflow := len(profile.Patterns.Corrections) - domain.MaxCorrectionHistory; overflow > 0 {
		profile.Patterns.Corrections = profile.Patterns.Corrections[overflow:]
	}
	profile.Updated = time.Now().UTC()

	if err := m.storage.PersistProfile(ctx, profile); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to persist profile: %w", err)
	}

	m.syncProfileBestEffort(ctx, userId, profile)
	return profile, nil
}

// UpdatePreferences replaces the user's stated preferences and re-syncs the
// profile.
func (m *Manager) UpdatePreferences(ctx context.Context, userId string, prefs domain.Preferences) (domain.LearningProfile, error) {
	profile, err := m.loadOrCreateProfile(ctx, userId)
	if err != nil {
		return domain.LearningProfile{}, err
	}
	profile.Preferences = prefs
	profile.Updated = time.Now().UTC()
	if err := m.storage.PersistProfile(ctx, profile); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to persist profile: %w", err)
	}
	m.syncProfileBestEffort(ctx, userId, profile)
	return profile, nil
}

// GetProfile loads the user's learning profile, creating the default on first
// contact.
func (m *Manager) GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	return m.loadOrCreateProfile(ctx, userId)
}

func (m *Manager) syncProfileBestEffort(ctx context.Context, userId string, profile domain.LearningProfile) {
	session, ok := m.GetSession(userId)
	if !ok {
		return
	}
	if err := m.conn.SyncProfile(ctx, session.WorkspaceId, profile); err != nil {
		l := logger.Get()
		l.Warn().Err(err).Str("userId", userId).Msg("profile sync failed")
	}
}

// applyDurationCorrection blends the corrected duration into the category's
// rolling average (80% history, 20% observation) and sets the category's
// duration multiplier to corrected/original.
func applyDurationCorrection(profile *domain.LearningProfile, correction domain.Correction) error {
	if correction.Category == "" {
		return fmt.Errorf("duration correction requires a category")
	}
	if correction.OriginalMinutes <= 0 || correction.CorrectedMinutes <= 0 {
		return fmt.Errorf("duration correction requires positive original and corrected minutes")
	}

	if profile.Patterns.AverageDurations == nil {
		profile.Patterns.AverageDurations = map[string]float64{}
	}
	if profile.Adaptations.DurationMultipliers == nil {
		profile.Adaptations.DurationMultipliers = map[string]float64{}
	}

	if avg, ok := profile.Patterns.AverageDurations[correction.Category]; ok {
		profile.Patterns.AverageDurations[correction.Category] = avg*(1-durationBlendWeight) + correction.CorrectedMinutes*durationBlendWeight
	} else {
		profile.Patterns.AverageDurations[correction.Category] = correction.CorrectedMinutes
	}

	profile.Adaptations.DurationMultipliers[correction.Category] = correction.CorrectedMinutes / correction.OriginalMinutes
	return nil
}

// applyTimingCorrection nudges the corrected slot's weight up by a fixed
// increment in both observed patterns and scheduling adaptations.
func applyTimingCorrection(profile *domain.LearningProfile, correction domain.Correction) error {
	if correction.Slot == "" {
		return fmt.Errorf("timing correction requires a slot")
	}

	if profile.Patterns.PeakSlots == nil {
		profile.Patterns.PeakSlots = map[string]float64{}
	}
	if profile.Adaptations.SlotWeights == nil {
		profile.Adaptations.SlotWeights = map[string]float64{}
	}

	profile.Patterns.PeakSlots[correction.Slot] += slotWeightIncrement
	profile.Adaptations.SlotWeights[correction.Slot] += slotWeightIncrement
	return nil
}
