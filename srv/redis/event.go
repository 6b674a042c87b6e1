package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
	"dayflow/srv"
)

func eventStartIndexKey(userId string) string {
	return fmt.Sprintf("%s:events_by_start", userId)
}

func (s Storage) PersistEvent(ctx context.Context, event domain.TimelineEvent) error {
	eventJson, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline event: %w", err)
	}

	key := fmt.Sprintf("%s:%s", event.UserId, event.Id)
	err = s.Client.Set(ctx, key, eventJson, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to persist timeline event: %w", err)
	}

	// ZAdd updates the score in place when the event moves, so the index
	// stays consistent across reschedules.
	err = s.Client.ZAdd(ctx, eventStartIndexKey(event.UserId), redis.Z{
		Score:  float64(event.Start.UnixNano()),
		Member: event.Id,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index timeline event by start: %w", err)
	}
	return nil
}

func (s Storage) GetEvent(ctx context.Context, userId, eventId string) (domain.TimelineEvent, error) {
	key := fmt.Sprintf("%s:%s", userId, eventId)
	eventJson, err := s.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TimelineEvent{}, srv.ErrNotFound
		}
		return domain.TimelineEvent{}, err
	}
	var event domain.TimelineEvent
	err = json.Unmarshal([]byte(eventJson), &event)
	if err != nil {
		return domain.TimelineEvent{}, err
	}
	return event, nil
}

// GetEventsInWindow returns the user's events with from <= start < to, in
// start order.
func (s Storage) GetEventsInWindow(ctx context.Context, userId string, from, to time.Time) ([]domain.TimelineEvent, error) {
	eventIds, err := s.Client.ZRangeByScore(ctx, eventStartIndexKey(userId), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixNano(), 10),
		Max: "(" + strconv.FormatInt(to.UnixNano(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range timeline events by start: %w", err)
	}
	if len(eventIds) == 0 {
		return []domain.TimelineEvent{}, nil
	}

	eventJsons, err := s.MGet(ctx, userId, eventIds)
	if err != nil {
		return nil, err
	}
	events := make([]domain.TimelineEvent, 0, len(eventJsons))
	for _, eventJson := range eventJsons {
		if eventJson == nil {
			continue
		}
		var event domain.TimelineEvent
		err = json.Unmarshal(eventJson, &event)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s Storage) DeleteEvent(ctx context.Context, userId, eventId string) error {
	key := fmt.Sprintf("%s:%s", userId, eventId)
	deleted, err := s.Client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete timeline event: %w", err)
	}
	if deleted == 0 {
		return srv.ErrNotFound
	}
	return s.Client.ZRem(ctx, eventStartIndexKey(userId), eventId).Err()
}
