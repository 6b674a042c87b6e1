package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dayflow/domain"
	"dayflow/srv"
)

var suggestionTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.SuggestionStorage = (*Storage)(nil)

// PersistSuggestion inserts or updates a Suggestion.
func (s *Storage) PersistSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	ctx, span := suggestionTracer.Start(ctx, "Storage.PersistSuggestion")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", suggestion.UserId),
		attribute.String("suggestion_id", suggestion.Id),
	)

	actionJSON, err := json.Marshal(suggestion.Action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}

	var targetUpdatedStr *string
	if suggestion.TargetUpdated != nil {
		formatted := formatTime(*suggestion.TargetUpdated)
		targetUpdatedStr = &formatted
	}

	query := `
		INSERT OR REPLACE INTO suggestions (user_id, id, action, target_updated, status, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		suggestion.UserId, suggestion.Id, actionJSON, targetUpdatedStr,
		suggestion.Status, formatTime(suggestion.Created), formatTime(suggestion.Updated),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to persist suggestion: %w", err)
	}
	return nil
}

// GetSuggestion retrieves a single Suggestion.
func (s *Storage) GetSuggestion(ctx context.Context, userId, suggestionId string) (domain.Suggestion, error) {
	ctx, span := suggestionTracer.Start(ctx, "Storage.GetSuggestion")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
		attribute.String("suggestion_id", suggestionId),
	)

	query := `SELECT user_id, id, action, target_updated, status, created, updated
			  FROM suggestions WHERE user_id = ? AND id = ?`
	suggestion, err := scanSuggestion(s.db.QueryRowContext(ctx, query, userId, suggestionId))
	if err != nil {
		if err == sql.ErrNoRows {
			span.RecordError(srv.ErrNotFound)
			span.SetStatus(codes.Error, srv.ErrNotFound.Error())
			return domain.Suggestion{}, srv.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Suggestion{}, err
	}
	return suggestion, nil
}

// GetPendingSuggestions retrieves the user's suggestions awaiting review,
// oldest first.
func (s *Storage) GetPendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error) {
	ctx, span := suggestionTracer.Start(ctx, "Storage.GetPendingSuggestions")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	query := `SELECT user_id, id, action, target_updated, status, created, updated
			  FROM suggestions WHERE user_id = ? AND status = ? ORDER BY created ASC`
	rows, err := s.db.QueryContext(ctx, query, userId, domain.SuggestionStatusPending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []domain.Suggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating over suggestion rows: %w", err)
	}
	return suggestions, nil
}

func scanSuggestion(row rowScanner) (domain.Suggestion, error) {
	var suggestion domain.Suggestion
	var actionJSON []byte
	var targetUpdatedStr *string
	var createdStr, updatedStr string

	err := row.Scan(
		&suggestion.UserId, &suggestion.Id, &actionJSON, &targetUpdatedStr,
		&suggestion.Status, &createdStr, &updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Suggestion{}, err
		}
		return domain.Suggestion{}, fmt.Errorf("failed to scan suggestion row: %w", err)
	}

	if err := json.Unmarshal(actionJSON, &suggestion.Action); err != nil {
		return domain.Suggestion{}, fmt.Errorf("failed to unmarshal action: %w", err)
	}
	if targetUpdatedStr != nil {
		targetUpdated, err := parseTime(*targetUpdatedStr)
		if err != nil {
			return domain.Suggestion{}, fmt.Errorf("failed to parse target_updated: %w", err)
		}
		suggestion.TargetUpdated = &targetUpdated
	}
	if suggestion.Created, err = parseTime(createdStr); err != nil {
		return domain.Suggestion{}, fmt.Errorf("failed to parse suggestion created: %w", err)
	}
	if suggestion.Updated, err = parseTime(updatedStr); err != nil {
		return domain.Suggestion{}, fmt.Errorf("failed to parse suggestion updated: %w", err)
	}
	return suggestion, nil
}
