package srv

import (
	"context"
	"time"

	"dayflow/domain"
)

/* Delegates calls, but also decorates storage with streaming for change
 * tracking of proactive actions and suggestions */
type Delegator struct {
	storage  Storage
	streamer Streamer
}

func NewDelegator(storage Storage, streamer Streamer) *Delegator {
	return &Delegator{
		storage:  storage,
		streamer: streamer,
	}
}

/* implements Storage interface */
func (d Delegator) CheckConnection(ctx context.Context) error {
	return d.storage.CheckConnection(ctx)
}

/* implements KeyValueStorage interface */
func (d Delegator) MGet(ctx context.Context, userId string, keys []string) ([][]byte, error) {
	return d.storage.MGet(ctx, userId, keys)
}

/* implements KeyValueStorage interface */
func (d Delegator) MSet(ctx context.Context, userId string, values map[string]interface{}) error {
	return d.storage.MSet(ctx, userId, values)
}

/* implements EventStorage interface */
func (d Delegator) PersistEvent(ctx context.Context, event domain.TimelineEvent) error {
	return d.storage.PersistEvent(ctx, event)
}

/* implements EventStorage interface */
func (d Delegator) GetEvent(ctx context.Context, userId, eventId string) (domain.TimelineEvent, error) {
	return d.storage.GetEvent(ctx, userId, eventId)
}

/* implements EventStorage interface */
func (d Delegator) GetEventsInWindow(ctx context.Context, userId string, from, to time.Time) ([]domain.TimelineEvent, error) {
	return d.storage.GetEventsInWindow(ctx, userId, from, to)
}

/* implements EventStorage interface */
func (d Delegator) DeleteEvent(ctx context.Context, userId, eventId string) error {
	return d.storage.DeleteEvent(ctx, userId, eventId)
}

/* implements ProfileStorage interface */
func (d Delegator) PersistProfile(ctx context.Context, profile domain.LearningProfile) error {
	return d.storage.PersistProfile(ctx, profile)
}

/* implements ProfileStorage interface */
func (d Delegator) GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	return d.storage.GetProfile(ctx, userId)
}

/* implements ActionRecordStorage interface */
func (d Delegator) PersistActionRecord(ctx context.Context, record domain.ProactiveActionRecord) error {
	err := d.storage.PersistActionRecord(ctx, record)
	if err != nil {
		return err
	}
	return d.AddActionRecordChange(ctx, record)
}

/* implements ActionRecordStorage interface */
func (d Delegator) GetRecentActionRecords(ctx context.Context, userId string, limit int) ([]domain.ProactiveActionRecord, error) {
	return d.storage.GetRecentActionRecords(ctx, userId, limit)
}

/* implements ActionRecordStreamer interface */
func (d Delegator) AddActionRecordChange(ctx context.Context, record domain.ProactiveActionRecord) error {
	return d.streamer.AddActionRecordChange(ctx, record)
}

/* implements ActionRecordStreamer interface */
func (d Delegator) GetActionRecordChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]domain.ProactiveActionRecord, string, error) {
	return d.streamer.GetActionRecordChanges(ctx, userId, streamMessageStartId, maxCount, blockDuration)
}

/* implements SuggestionStorage interface */
func (d Delegator) PersistSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	err := d.storage.PersistSuggestion(ctx, suggestion)
	if err != nil {
		return err
	}
	return d.AddSuggestionChange(ctx, suggestion)
}

/* implements SuggestionStorage interface */
func (d Delegator) GetSuggestion(ctx context.Context, userId, suggestionId string) (domain.Suggestion, error) {
	return d.storage.GetSuggestion(ctx, userId, suggestionId)
}

/* implements SuggestionStorage interface */
func (d Delegator) GetPendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error) {
	return d.storage.GetPendingSuggestions(ctx, userId)
}

/* implements SuggestionStreamer interface */
func (d Delegator) AddSuggestionChange(ctx context.Context, suggestion domain.Suggestion) error {
	return d.streamer.AddSuggestionChange(ctx, suggestion)
}

/* implements SuggestionStreamer interface */
func (d Delegator) GetSuggestionChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]domain.Suggestion, string, error) {
	return d.streamer.GetSuggestionChanges(ctx, userId, streamMessageStartId, maxCount, blockDuration)
}

/* implements AnalysisStorage interface */
func (d Delegator) AppendAnalysis(ctx context.Context, analysis domain.TimelineAnalysis) error {
	return d.storage.AppendAnalysis(ctx, analysis)
}

/* implements AnalysisStorage interface */
func (d Delegator) GetRecentAnalyses(ctx context.Context, userId string, limit int) ([]domain.TimelineAnalysis, error) {
	return d.storage.GetRecentAnalyses(ctx, userId, limit)
}

/* implements AuditStorage interface */
func (d Delegator) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	return d.storage.AppendAuditEvent(ctx, event)
}

/* implements AuditStorage interface */
func (d Delegator) GetAuditEvents(ctx context.Context, userId string, limit int) ([]domain.AuditEvent, error) {
	return d.storage.GetAuditEvents(ctx, userId, limit)
}

var _ Service = (*Delegator)(nil)
