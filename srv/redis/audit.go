package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
)

func auditIndexKey(userId string) string {
	return fmt.Sprintf("%s:audit_events", userId)
}

func (s Storage) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	eventJson, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return s.Client.ZAdd(ctx, auditIndexKey(event.UserId), redis.Z{
		Score:  float64(event.Created.UnixNano()),
		Member: eventJson,
	}).Err()
}

func (s Storage) GetAuditEvents(ctx context.Context, userId string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		return []domain.AuditEvent{}, nil
	}
	eventJsons, err := s.Client.ZRevRange(ctx, auditIndexKey(userId), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range audit events: %w", err)
	}
	events := make([]domain.AuditEvent, 0, len(eventJsons))
	for _, eventJson := range eventJsons {
		var event domain.AuditEvent
		err = json.Unmarshal([]byte(eventJson), &event)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
