package redis

import (
	"github.com/redis/go-redis/v9"

	"dayflow/srv"
)

var _ srv.Streamer = (*Streamer)(nil)

type Streamer struct {
	Client *redis.Client
}

func NewStreamer(address string) *Streamer {
	return &Streamer{Client: setupClient(address)}
}

func NewStreamerWithClient(client *redis.Client) *Streamer {
	return &Streamer{Client: client}
}
