package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dayflow/domain"
)

var analysisTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.AnalysisStorage = (*Storage)(nil)

// AppendAnalysis appends one analysis result to the user's history.
func (s *Storage) AppendAnalysis(ctx context.Context, analysis domain.TimelineAnalysis) error {
	ctx, span := analysisTracer.Start(ctx, "Storage.AppendAnalysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", analysis.UserId),
	)

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := "INSERT INTO analyses (user_id, generated_at, analysis) VALUES (?, ?, ?)"
	_, err = s.db.ExecContext(ctx, query, analysis.UserId, formatTime(analysis.GeneratedAt), analysisJSON)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to append analysis: %w", err)
	}
	return nil
}

// GetRecentAnalyses retrieves the user's most recent analyses, newest first.
func (s *Storage) GetRecentAnalyses(ctx context.Context, userId string, limit int) ([]domain.TimelineAnalysis, error) {
	ctx, span := analysisTracer.Start(ctx, "Storage.GetRecentAnalyses")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	query := "SELECT analysis FROM analyses WHERE user_id = ? ORDER BY generated_at DESC LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, userId, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []domain.TimelineAnalysis
	for rows.Next() {
		var analysisJSON []byte
		if err := rows.Scan(&analysisJSON); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		var analysis domain.TimelineAnalysis
		if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating over analysis rows: %w", err)
	}
	return analyses, nil
}
