package redis

import (
	"context"
	"fmt"

	"github.com/kelindar/binary"
	"github.com/redis/go-redis/v9"

	"dayflow/srv"
)

var _ srv.Storage = (*Storage)(nil)

type Storage struct {
	Client *redis.Client
}

func NewStorage(address string) *Storage {
	return &Storage{Client: setupClient(address)}
}

func NewStorageWithClient(client *redis.Client) *Storage {
	return &Storage{Client: client}
}

func (s *Storage) CheckConnection(ctx context.Context) error {
	_, err := s.Client.Ping(ctx).Result()
	return err
}

func (s *Storage) MGet(ctx context.Context, userId string, keys []string) ([][]byte, error) {
	prefixedKeys := make([]string, len(keys))
	for i, key := range keys {
		prefixedKeys[i] = fmt.Sprintf("%s:%s", userId, key)
	}
	values, err := s.Client.MGet(ctx, prefixedKeys...).Result()
	if err != nil {
		return nil, err
	}
	byteValues := make([][]byte, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		byteValues[i] = []byte(value.(string))
	}
	return byteValues, nil
}

func (s *Storage) MSet(ctx context.Context, userId string, values map[string]interface{}) error {
	prefixedValues := make(map[string]interface{})
	for key, value := range values {
		bytes, err := binary.Marshal(value)
		if err != nil {
			return fmt.Errorf("redis mset failed to marshal value: %w", err)
		}
		prefixedValues[fmt.Sprintf("%s:%s", userId, key)] = bytes
	}
	return s.Client.MSet(ctx, prefixedValues).Err()
}
