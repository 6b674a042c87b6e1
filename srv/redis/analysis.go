package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
)

func analysisIndexKey(userId string) string {
	return fmt.Sprintf("%s:analyses", userId)
}

// AppendAnalysis adds to the append-only analysis history, scored by
// generation time.
func (s Storage) AppendAnalysis(ctx context.Context, analysis domain.TimelineAnalysis) error {
	analysisJson, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline analysis: %w", err)
	}
	return s.Client.ZAdd(ctx, analysisIndexKey(analysis.UserId), redis.Z{
		Score:  float64(analysis.GeneratedAt.UnixNano()),
		Member: analysisJson,
	}).Err()
}

func (s Storage) GetRecentAnalyses(ctx context.Context, userId string, limit int) ([]domain.TimelineAnalysis, error) {
	if limit <= 0 {
		return []domain.TimelineAnalysis{}, nil
	}
	analysisJsons, err := s.Client.ZRevRange(ctx, analysisIndexKey(userId), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range analyses: %w", err)
	}
	analyses := make([]domain.TimelineAnalysis, 0, len(analysisJsons))
	for _, analysisJson := range analysisJsons {
		var analysis domain.TimelineAnalysis
		err = json.Unmarshal([]byte(analysisJson), &analysis)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, nil
}
