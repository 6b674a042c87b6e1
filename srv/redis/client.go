package redis

import (
	"os"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

func NewClient(opt *Options) *redis.Client {
	return redis.NewClient(opt)
}

type Options = redis.Options

// setupClient resolves the redis address from the configured value, the
// DAYFLOW_REDIS_ADDRESS environment variable, then the default, in that order.
func setupClient(address string) *redis.Client {
	redisAddr := address
	if redisAddr == "" {
		redisAddr = os.Getenv("DAYFLOW_REDIS_ADDRESS")
	}
	if redisAddr == "" {
		zlog.Info().Msg("Redis address defaulting to localhost:6379")
		redisAddr = "localhost:6379" // Default address
	}

	return redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
}
