package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/platform/blob"
	"github.com/brightloop/geoscore-backend/internal/platform/openai"
	"github.com/brightloop/geoscore-backend/internal/platform/rediscache"
)

type Clients struct {
	OpenAI openai.Client
	Blob   blob.Store
	Redis  *redis.Client
}

// wireClients builds the external clients. Redis is always optional; the
// model and blob clients are only required when this instance runs the
// in-process pipeline.
func wireClients(ctx context.Context, log *logger.Logger, runnerEnabled bool) (Clients, error) {
	log.Info("Wiring clients...")
	clients := Clients{
		Redis: rediscache.NewClient(log),
	}
	if !runnerEnabled {
		return clients, nil
	}
	ai, err := openai.NewClient(log)
	if err != nil {
		return clients, fmt.Errorf("init openai client: %w", err)
	}
	store, err := blob.NewGCSStore(ctx, log)
	if err != nil {
		return clients, fmt.Errorf("init blob store: %w", err)
	}
	clients.OpenAI = ai
	clients.Blob = store
	return clients, nil
}
