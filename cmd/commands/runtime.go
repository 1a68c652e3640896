package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nclamvn/prismy-ultimate/config"
	"github.com/nclamvn/prismy-ultimate/internal/chunk"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/extract"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/notify"
	"github.com/nclamvn/prismy-ultimate/internal/queue"
	"github.com/nclamvn/prismy-ultimate/internal/services"
	"github.com/nclamvn/prismy-ultimate/internal/translate"
)

// runtime bundles the shared infrastructure both the server and the
// standalone worker processes need.
type runtime struct {
	cfg     *config.Config
	redis   *redis.Client
	store   *repos.RedisStore
	queues  queue.Queue
	manager *services.Manager
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	store := repos.NewRedisStore(client)
	queues := queue.NewRedisQueue(client)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(cfg.AMQPURL)
		logger.Info("AMQP notifications enabled")
	}

	manager := services.NewManager(store, store, queues, notifier)
	return &runtime{
		cfg:     cfg,
		redis:   client,
		store:   store,
		queues:  queues,
		manager: manager,
	}, nil
}

func (r *runtime) Close() {
	if err := r.redis.Close(); err != nil {
		logger.Errorf("closing redis client: %v", err)
	}
}

// processors builds the per-stage processors driven by the worker pools.
func (r *runtime) processors() []services.Processor {
	var translator translate.Translator = translate.Mock{}
	if r.cfg.OpenAIAPIKey != "" {
		translator = translate.NewOpenAI(r.cfg.OpenAIAPIKey)
		logger.Info("OpenAI translation enabled")
	}

	return []services.Processor{
		services.NewExtractionProcessor(r.manager, extract.Selector{}),
		services.NewChunkingProcessor(r.manager, chunk.NewSplitter(r.cfg.ChunkSize)),
		services.NewTranslationProcessor(r.manager, translator, services.DefaultBatchThreshold),
		services.NewReconstructionProcessor(r.manager, r.cfg.OutputDir),
	}
}
