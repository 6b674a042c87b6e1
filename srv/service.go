package srv

import (
	"context"

	"dayflow/domain"
)

type Service interface {
	Storage
	Streamer
}

type KeyValueStorage interface {
	MGet(ctx context.Context, userId string, keys []string) ([][]byte, error)
	MSet(ctx context.Context, userId string, values map[string]interface{}) error
}

type Storage interface {
	domain.EventStorage
	domain.ProfileStorage
	domain.ActionRecordStorage
	domain.SuggestionStorage
	domain.AnalysisStorage
	domain.AuditStorage
	KeyValueStorage

	CheckConnection(ctx context.Context) error
}

type Streamer interface {
	domain.ActionRecordStreamer
	domain.SuggestionStreamer
}
