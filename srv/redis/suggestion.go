package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
	"dayflow/srv"
)

func pendingSuggestionsKey(userId string) string {
	return fmt.Sprintf("%s:pending_suggestions", userId)
}

func (s Storage) PersistSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	suggestionJson, err := json.Marshal(suggestion)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}

	key := fmt.Sprintf("%s:%s", suggestion.UserId, suggestion.Id)
	err = s.Client.Set(ctx, key, suggestionJson, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to persist suggestion: %w", err)
	}

	// The pending set tracks review-queue membership across status changes.
	if suggestion.Status == domain.SuggestionStatusPending {
		return s.Client.SAdd(ctx, pendingSuggestionsKey(suggestion.UserId), suggestion.Id).Err()
	}
	return s.Client.SRem(ctx, pendingSuggestionsKey(suggestion.UserId), suggestion.Id).Err()
}

func (s Storage) GetSuggestion(ctx context.Context, userId, suggestionId string) (domain.Suggestion, error) {
	key := fmt.Sprintf("%s:%s", userId, suggestionId)
	suggestionJson, err := s.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Suggestion{}, srv.ErrNotFound
		}
		return domain.Suggestion{}, err
	}
	var suggestion domain.Suggestion
	err = json.Unmarshal([]byte(suggestionJson), &suggestion)
	if err != nil {
		return domain.Suggestion{}, err
	}
	return suggestion, nil
}

func (s Storage) GetPendingSuggestions(ctx context.Context, userId string) ([]domain.Suggestion, error) {
	suggestionIds, err := s.Client.SMembers(ctx, pendingSuggestionsKey(userId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending suggestion ids: %w", err)
	}
	if len(suggestionIds) == 0 {
		return []domain.Suggestion{}, nil
	}

	suggestionJsons, err := s.MGet(ctx, userId, suggestionIds)
	if err != nil {
		return nil, err
	}
	suggestions := make([]domain.Suggestion, 0, len(suggestionJsons))
	for _, suggestionJson := range suggestionJsons {
		if suggestionJson == nil {
			continue
		}
		var suggestion domain.Suggestion
		err = json.Unmarshal(suggestionJson, &suggestion)
		if err != nil {
			return nil, err
		}
		if suggestion.Status != domain.SuggestionStatusPending {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Created.Before(suggestions[j].Created)
	})
	return suggestions, nil
}

// AddSuggestionChange persists a suggestion to the changes stream.
func (s Streamer) AddSuggestionChange(ctx context.Context, suggestion domain.Suggestion) error {
	suggestionJson, err := json.Marshal(suggestion)
	if err != nil {
		return fmt.Errorf("AddSuggestionChange - failed to marshal suggestion: %w", err)
	}
	streamKey := fmt.Sprintf("%s:suggestion_changes", suggestion.UserId)
	err = s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"record": string(suggestionJson)},
	}).Err()
	if err != nil {
		return fmt.Errorf("AddSuggestionChange - failed to append suggestion to changes stream: %w", err)
	}
	return nil
}

func (s Streamer) GetSuggestionChanges(ctx context.Context, userId, streamMessageStartId string, maxCount int64, blockDuration time.Duration) ([]domain.Suggestion, string, error) {
	streamKey := fmt.Sprintf("%s:suggestion_changes", userId)
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

	var suggestions []domain.Suggestion
	for _, message := range streams[0].Messages {
		suggestionJson, ok := message.Values["record"].(string)
		if !ok {
			continue
		}
		var suggestion domain.Suggestion
		err = json.Unmarshal([]byte(suggestionJson), &suggestion)
		if err != nil {
			return nil, "", err
		}
		suggestions = append(suggestions, suggestion)
	}

	lastMessageId := streams[0].Messages[len(streams[0].Messages)-1].ID

	return suggestions, lastMessageId, nil
}
