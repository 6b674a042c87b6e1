package sqlite

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dayflow/domain"
)

var actionTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.ActionRecordStorage = (*Storage)(nil)

// PersistActionRecord appends a proactive-action audit record.
func (s *Storage) PersistActionRecord(ctx context.Context, record domain.ProactiveActionRecord) error {
	ctx, span := actionTracer.Start(ctx, "Storage.PersistActionRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", record.UserId),
		attribute.String("record_id", record.Id),
	)

	query := `
		INSERT OR REPLACE INTO action_records (
			user_id, id, type, description, confidence, executed_at, success, duration_ms, changed_events
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.UserId, record.Id, record.Type, record.Description, record.Confidence,
		formatTime(record.ExecutedAt), record.Success, record.DurationMs, record.ChangedEvents,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to persist action record: %w", err)
	}
	return nil
}

// GetRecentActionRecords retrieves the user's most recent action records,
// newest first.
func (s *Storage) GetRecentActionRecords(ctx context.Context, userId string, limit int) ([]domain.ProactiveActionRecord, error) {
	ctx, span := actionTracer.Start(ctx, "Storage.GetRecentActionRecords")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	query := `SELECT user_id, id, type, description, confidence, executed_at, success, duration_ms, changed_events
			  FROM action_records WHERE user_id = ? ORDER BY executed_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userId, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query action records: %w", err)
	}
	defer rows.Close()

	var records []domain.ProactiveActionRecord
	for rows.Next() {
		var record domain.ProactiveActionRecord
		var executedAtStr string
		err := rows.Scan(
			&record.UserId, &record.Id, &record.Type, &record.Description, &record.Confidence,
			&executedAtStr, &record.Success, &record.DurationMs, &record.ChangedEvents,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan action record row: %w", err)
		}
		if record.ExecutedAt, err = parseTime(executedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse executed_at: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating over action record rows: %w", err)
	}
	return records, nil
}
