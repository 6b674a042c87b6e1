package intelligence

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"dayflow/domain"
)

// executeAction runs a high-confidence auto-executable action: the optional
// skill call first, then its proposed entity changes, then an append-only
// audit record.
func (e *Engine) executeAction(ctx context.Context, userId string, action domain.ProactiveAction) error {
	start := time.Now()

	var execErr error
	if action.SkillName != "" {
		_, execErr = e.gate.ExecuteSkillWithAuth(ctx, action.SkillName, action.Params)
	}

	var changed int
	if execErr == nil {
		changed, execErr = e.applyChanges(ctx, userId, action.Changes)
	}

	record := domain.ProactiveActionRecord{
		Id:            "pa_" + ksuid.New().String(),
		UserId:        userId,
		Type:          action.Type,
		Description:   action.Description,
		Confidence:    action.Confidence,
		ExecutedAt:    time.Now().UTC(),
		Success:       execErr == nil,
		DurationMs:    time.Since(start).Milliseconds(),
		ChangedEvents: changed,
	}
	if err := e.storage.PersistActionRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to persist action record: %w", err)
	}

	if execErr != nil {
		return execErr
	}
	e.sinceLearning.Add(1)
	return nil
}

// applyChanges writes an action's proposed entity changes to storage. A
// change with an event id patches that event; a change without one inserts a
// new event. Every write carries the proactive provenance tag.
func (e *Engine) applyChanges(ctx context.Context, userId string, changes []domain.EntityChange) (int, error) {
	now := time.Now().UTC()
	changed := 0
	for _, change := range changes {
		if change.EventId != "" {
			existing, err := e.storage.GetEvent(ctx, userId, change.EventId)
			if err != nil {
				return changed, fmt.Errorf("failed to load event %s: %w", change.EventId, err)
			}
			patchEvent(&existing, change.Event)
			existing.ModifiedBy = domain.ModifiedByProactive
			existing.Updated = now
			if err := e.storage.PersistEvent(ctx, existing); err != nil {
				return changed, fmt.Errorf("failed to patch event %s: %w", change.EventId, err)
			}
		} else {
			event := change.Event
			event.Id = "evt_" + ksuid.New().String()
			event.UserId = userId
			event.Source = "assistant"
			event.ModifiedBy = domain.ModifiedByProactive
			event.Created = now
			event.Updated = now
			if err := e.storage.PersistEvent(ctx, event); err != nil {
				return changed, fmt.Errorf("failed to insert event: %w", err)
			}
		}
		changed++
	}
	return changed, nil
}

// patchEvent overlays the non-zero fields of patch onto target.
func patchEvent(target *domain.TimelineEvent, patch domain.TimelineEvent) {
	if patch.Title != "" {
		target.Title = patch.Title
	}
	if patch.Description != "" {
		target.Description = patch.Description
	}
	if patch.Category != "" {
		target.Category = patch.Category
	}
	if !patch.Start.IsZero() {
		target.Start = patch.Start
	}
	if !patch.End.IsZero() {
		target.End = patch.End
	}
	if patch.DurationMinutes != 0 {
		target.DurationMinutes = patch.DurationMinutes
	}
}

// persistSuggestion stores a medium-confidence action for user review,
// snapshotting the first patch target's Updated timestamp so that approval
// can detect a concurrent user edit.
func (e *Engine) persistSuggestion(ctx context.Context, userId string, action domain.ProactiveAction) error {
	if action.Id == "" {
		action.Id = "act_" + ksuid.New().String()
	}
	now := time.Now().UTC()
	suggestion := domain.Suggestion{
		Id:      "sug_" + ksuid.New().String(),
		UserId:  userId,
		Action:  action,
		Status:  domain.SuggestionStatusPending,
		Created: now,
		Updated: now,
	}

	for _, change := range action.Changes {
		if change.EventId == "" {
			continue
		}
		target, err := e.storage.GetEvent(ctx, userId, change.EventId)
		if err != nil {
			return fmt.Errorf("failed to snapshot suggestion target %s: %w", change.EventId, err)
		}
		updated := target.Updated
		suggestion.TargetUpdated = &updated
		break
	}

	return e.storage.PersistSuggestion(ctx, suggestion)
}

// PendingSuggestions lists the user's suggestions awaiting review.
func (e *Engine) PendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error) {
	return e.storage.GetPendingSuggestions(ctx, userId)
}

// ApproveSuggestion applies a pending suggestion's changes. If the target
// event was modified after the suggestion was created, the suggestion is
// marked stale and ErrSuggestionStale is returned instead of clobbering the
// user's edit.
func (e *Engine) ApproveSuggestion(ctx context.Context, userId, suggestionId string) error {
	suggestion, err := e.storage.GetSuggestion(ctx, userId, suggestionId)
	if err != nil {
		return err
	}
	if suggestion.Status != domain.SuggestionStatusPending {
		return ErrSuggestionNotPending
	}

	if suggestion.TargetUpdated != nil {
		for _, change := range suggestion.Action.Changes {
			if change.EventId == "" {
				continue
			}
			target, err := e.storage.GetEvent(ctx, userId, change.EventId)
			if err != nil {
				return fmt.Errorf("failed to load suggestion target %s: %w", change.EventId, err)
			}
			if !target.Updated.Equal(*suggestion.TargetUpdated) {
				suggestion.Status = domain.SuggestionStatusStale
				suggestion.Updated = time.Now().UTC()
				if persistErr := e.storage.PersistSuggestion(ctx, suggestion); persistErr != nil {
					return persistErr
				}
				return ErrSuggestionStale
			}
			break
		}
	}

	changed, err := e.applyChanges(ctx, userId, suggestion.Action.Changes)
	if err != nil {
		return err
	}

	record := domain.ProactiveActionRecord{
		Id:            "pa_" + ksuid.New().String(),
		UserId:        userId,
		Type:          suggestion.Action.Type,
		Description:   suggestion.Action.Description,
		Confidence:    suggestion.Action.Confidence,
		ExecutedAt:    time.Now().UTC(),
		Success:       true,
		ChangedEvents: changed,
	}
	if err := e.storage.PersistActionRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to persist action record: %w", err)
	}

	suggestion.Status = domain.SuggestionStatusApproved
	suggestion.Updated = time.Now().UTC()
	return e.storage.PersistSuggestion(ctx, suggestion)
}

// DismissSuggestion marks a pending suggestion as reviewed without applying
// it.
func (e *Engine) DismissSuggestion(ctx context.Context, userId, suggestionId string) error {
	suggestion, err := e.storage.GetSuggestion(ctx, userId, suggestionId)
	if err != nil {
		return err
	}
	if suggestion.Status != domain.SuggestionStatusPending {
		return ErrSuggestionNotPending
	}
	suggestion.Status = domain.SuggestionStatusDismissed
	suggestion.Updated = time.Now().UTC()
	return e.storage.PersistSuggestion(ctx, suggestion)
}
