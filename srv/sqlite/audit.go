package sqlite

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dayflow/domain"
)

var auditTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.AuditStorage = (*Storage)(nil)

// AppendAuditEvent appends one security audit event.
func (s *Storage) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	ctx, span := auditTracer.Start(ctx, "Storage.AppendAuditEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", event.UserId),
	)

	query := "INSERT INTO audit_events (user_id, id, action, detail, success, created) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := s.db.ExecContext(ctx, query,
		event.UserId, event.Id, event.Action, event.Detail, event.Success, formatTime(event.Created),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// GetAuditEvents retrieves the user's most recent audit events, newest first.
func (s *Storage) GetAuditEvents(ctx context.Context, userId string, limit int) ([]domain.AuditEvent, error) {
	ctx, span := auditTracer.Start(ctx, "Storage.GetAuditEvents")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	query := `SELECT user_id, id, action, detail, success, created
			  FROM audit_events WHERE user_id = ? ORDER BY created DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userId, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var createdStr string
		if err := rows.Scan(&event.UserId, &event.Id, &event.Action, &event.Detail, &event.Success, &createdStr); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan audit event row: %w", err)
		}
		if event.Created, err = parseTime(createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse audit created: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating over audit event rows: %w", err)
	}
	return events, nil
}
