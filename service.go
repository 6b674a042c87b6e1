package dayflow

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"dayflow/common"
	"dayflow/srv"
	"dayflow/srv/redis"
	"dayflow/srv/sqlite"
)

// GetService builds the storage service selected by the storage config,
// decorated with change streaming. The streamer is always redis; only the
// record storage is swappable.
func GetService(config common.StorageConfig) (srv.Service, error) {
	var storage srv.Storage
	var err error

	switch config.Type {
	case "redis":
		storage = redis.NewStorage(config.RedisAddress)
		log.Info().Msg("Using Redis storage")
	case "sqlite", "":
		dbPath := config.DatabasePath
		if dbPath == "" {
			stateHome, err := common.GetDayflowStateHome()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve state home: %w", err)
			}
			dbPath = filepath.Join(stateHome, "dayflow.db")
		}
		storage, err = sqlite.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		log.Info().Msg("Using SQLite storage")
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	streamer := redis.NewStreamer(config.RedisAddress)
	return srv.NewDelegator(storage, streamer), nil
}
