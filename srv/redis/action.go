package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
)

func actionRecordIndexKey(userId string) string {
	return fmt.Sprintf("%s:action_records", userId)
}

// PersistActionRecord appends to the proactive-action history. Records are
// immutable, so the serialized record itself is the sorted-set member, scored
// by execution time for recency queries.
func (s Storage) PersistActionRecord(ctx context.Context, record domain.ProactiveActionRecord) error {
	recordJson, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}
	return s.Client.ZAdd(ctx, actionRecordIndexKey(record.UserId), redis.Z{
		Score:  float64(record.ExecutedAt.UnixNano()),
		Member: recordJson,
	}).Err()
}

func (s Storage) GetRecentActionRecords(ctx context.Context, userId string, limit int) ([]domain.ProactiveActionRecord, error) {
	if limit <= 0 {
		return []domain.ProactiveActionRecord{}, nil
	}
	recordJsons, err := s.Client.ZRevRange(ctx, actionRecordIndexKey(userId), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range action records: %w", err)
	}
	records := make([]domain.ProactiveActionRecord, 0, len(recordJsons))
	for _, recordJson := range recordJsons {
		var record domain.ProactiveActionRecord
		err = json.Unmarshal([]byte(recordJson), &record)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// AddActionRecordChange persists an action record to the changes stream.
func (s Streamer) AddActionRecordChange(ctx context.Context, record domain.ProactiveActionRecord) error {
	recordJson, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("AddActionRecordChange - failed to marshal action record: %w", err)
	}
	streamKey := fmt.Sprintf("%s:action_record_changes", record.UserId)
	err = s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"record": string(recordJson)},
	}).Err()
	if err != nil {
		return fmt.Errorf("AddActionRecordChange - failed to append record to changes stream: %w", err)
	}
	return nil
}

func (s Streamer) GetActionRecordChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]domain.ProactiveActionRecord, string, error) {
	streamKey := fmt.Sprintf("%s:action_record_changes", userId)
	if streamMessageStartId == "" {
		streamMessageStartId = "$"
	}
	if maxCount == 0 {
		maxCount = 100
	}
	streams, err := s.Client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamKey, streamMessageStartId},
		Count:   maxCount,
		Block:   blockDuration,
	}).Result()
	if err != nil {
		return nil, "", err
	}
	if len(streams) == 0 {
		return nil, "", fmt.Errorf("no streams returned for stream key %s", streamKey)
	}

	var records []domain.ProactiveActionRecord
	for _, message := range streams[0].Messages {
		recordJson, ok := message.Values["record"].(string)
		if !ok {
			continue
		}
		var record domain.ProactiveActionRecord
		err = json.Unmarshal([]byte(recordJson), &record)
		if err != nil {
			return nil, "", err
		}
		records = append(records, record)
	}

	// Return the last message id value to continue from
	lastMessageId := streams[0].Messages[len(streams[0].Messages)-1].ID

	return records, lastMessageId, nil
}
