package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dayflow/domain"
	"dayflow/srv"
)

func (s Storage) PersistProfile(ctx context.Context, profile domain.LearningProfile) error {
	profileJson, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal learning profile: %w", err)
	}
	key := fmt.Sprintf("%s:profile", profile.UserId)
	return s.Client.Set(ctx, key, profileJson, 0).Err()
}

func (s Storage) GetProfile(ctx context.Context, userId string) (domain.LearningProfile, error) {
	key := fmt.Sprintf("%s:profile", userId)
	profileJson, err := s.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.LearningProfile{}, srv.ErrNotFound
		}
		return domain.LearningProfile{}, err
	}
	var profile domain.LearningProfile
	err = json.Unmarshal([]byte(profileJson), &profile)
	if err != nil {
		return domain.LearningProfile{}, err
	}
	return profile, nil
}
