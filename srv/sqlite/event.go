package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dayflow/domain"
	"dayflow/srv"
)

var eventTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.EventStorage = (*Storage)(nil)

// PersistEvent inserts or updates a TimelineEvent.
func (s *Storage) PersistEvent(ctx context.Context, event domain.TimelineEvent) error {
	ctx, span := eventTracer.Start(ctx, "Storage.PersistEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", event.UserId),
		attribute.String("event_id", event.Id),
	)

	query := `
		INSERT OR REPLACE INTO events (
			user_id, id, title, description, category, start, end_time,
			duration_minutes, source, modified_by, created, updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endStr *string
	if !event.End.IsZero() {
		formatted := formatTime(event.End)
		endStr = &formatted
	}

	_, err := s.db.ExecContext(ctx, query,
		event.UserId, event.Id, event.Title, event.Description, event.Category,
		formatTime(event.Start), endStr, event.DurationMinutes, event.Source,
		event.ModifiedBy, formatTime(event.Created), formatTime(event.Updated),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to persist event: %w", err)
	}
	return nil
}

// GetEvent retrieves a single TimelineEvent.
func (s *Storage) GetEvent(ctx context.Context, userId, eventId string) (domain.TimelineEvent, error) {
	ctx, span := eventTracer.Start(ctx, "Storage.GetEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
		attribute.String("event_id", eventId),
	)

	query := `SELECT user_id, id, title, description, category, start, end_time, duration_minutes, source, modified_by, created, updated
			  FROM events WHERE user_id = ? AND id = ?`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, userId, eventId))
	if err != nil {
		if err == sql.ErrNoRows {
			span.RecordError(srv.ErrNotFound)
			span.SetStatus(codes.Error, srv.ErrNotFound.Error())
			return domain.TimelineEvent{}, srv.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.TimelineEvent{}, err
	}
	return event, nil
}

// GetEventsInWindow retrieves the user's events starting within [from, to),
// ordered by start time.
func (s *Storage) GetEventsInWindow(ctx context.Context, userId string, from, to time.Time) ([]domain.TimelineEvent, error) {
	ctx, span := eventTracer.Start(ctx, "Storage.GetEventsInWindow")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	query := `SELECT user_id, id, title, description, category, start, end_time, duration_minutes, source, modified_by, created, updated
			  FROM events WHERE user_id = ? AND start >= ? AND start < ? ORDER BY start ASC`
	rows, err := s.db.QueryContext(ctx, query, userId, formatTime(from), formatTime(to))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating over event rows: %w", err)
	}
	return events, nil
}

// DeleteEvent removes a TimelineEvent.
func (s *Storage) DeleteEvent(ctx context.Context, userId, eventId string) error {
	ctx, span := eventTracer.Start(ctx, "Storage.DeleteEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "DELETE"),
		attribute.String("user_id", userId),
		attribute.String("event_id", eventId),
	)

	result, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE user_id = ? AND id = ?", userId, eventId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		span.RecordError(srv.ErrNotFound)
		span.SetStatus(codes.Error, srv.ErrNotFound.Error())
		return srv.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (domain.TimelineEvent, error) {
	var event domain.TimelineEvent
	var startStr, createdStr, updatedStr string
	var endStr *string

	err := row.Scan(
		&event.UserId, &event.Id, &event.Title, &event.Description, &event.Category,
		&startStr, &endStr, &event.DurationMinutes, &event.Source, &event.ModifiedBy,
		&createdStr, &updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.TimelineEvent{}, err
		}
		return domain.TimelineEvent{}, fmt.Errorf("failed to scan event row: %w", err)
	}

	if event.Start, err = parseTime(startStr); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("failed to parse event start: %w", err)
	}
	if endStr != nil {
		if event.End, err = parseTime(*endStr); err != nil {
			return domain.TimelineEvent{}, fmt.Errorf("failed to parse event end: %w", err)
		}
	}
	if event.Created, err = parseTime(createdStr); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("failed to parse event created: %w", err)
	}
	if event.Updated, err = parseTime(updatedStr); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("failed to parse event updated: %w", err)
	}
	return event, nil
}
