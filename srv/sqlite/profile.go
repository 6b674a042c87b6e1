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

var profileTracer = otel.Tracer("dayflow/srv/sqlite")

var _ domain.ProfileStorage = (*Storage)(nil)

// PersistProfile inserts or updates a LearningProfile.
func (s *Storage) PersistProfile(ctx context.Context, profile domain.LearningProfile) error {
	ctx, span := profileTracer.Start(ctx, "Storage.PersistProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("user_id", profile.UserId),
	)

	preferencesJSON, err := json.Marshal(profile.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	patternsJSON, err := json.Marshal(profile.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}
	adaptationsJSON, err := json.Marshal(profile.Adaptations)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptations: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO profiles (user_id, preferences, patterns, adaptations, created, updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		profile.UserId, preferencesJSON, patternsJSON, adaptationsJSON,
		formatTime(profile.Created), formatTime(profile.Updated),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a user's LearningProfile.
func (s *Storage) GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	ctx, span := profileTracer.Start(ctx, "Storage.GetProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("user_id", userId),
	)

	var profile domain.LearningProfile
	var preferencesJSON, patternsJSON, adaptationsJSON []byte
	var createdStr, updatedStr string

	query := `SELECT user_id, preferences, patterns, adaptations, created, updated FROM profiles WHERE user_id = ?`
	err := s.db.QueryRowContext(ctx, query, userId).Scan(
		&profile.UserId, &preferencesJSON, &patternsJSON, &adaptationsJSON, &createdStr, &updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			span.RecordError(srv.ErrNotFound)
			span.SetStatus(codes.Error, srv.ErrNotFound.Error())
			return domain.LearningProfile{}, srv.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.LearningProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal(preferencesJSON, &profile.Preferences); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	if err := json.Unmarshal(patternsJSON, &profile.Patterns); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to unmarshal patterns: %w", err)
	}
	if err := json.Unmarshal(adaptationsJSON, &profile.Adaptations); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to unmarshal adaptations: %w", err)
	}
	if profile.Created, err = parseTime(createdStr); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to parse profile created: %w", err)
	}
	if profile.Updated, err = parseTime(updatedStr); err != nil {
		return domain.LearningProfile{}, fmt.Errorf("failed to parse profile updated: %w", err)
	}
	return profile, nil
}
