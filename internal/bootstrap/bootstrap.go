package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/lexhelp/precedent-search/internal/config"
	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
	"github.com/lexhelp/precedent-search/internal/core/usecase"
	"github.com/lexhelp/precedent-search/internal/infrastructure/cache"
	"github.com/lexhelp/precedent-search/internal/infrastructure/llm/ollama"
	"github.com/lexhelp/precedent-search/internal/infrastructure/queue/nats"
	"github.com/lexhelp/precedent-search/internal/infrastructure/repository/postgres"
	"github.com/lexhelp/precedent-search/internal/infrastructure/resilience"
	"github.com/lexhelp/precedent-search/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Events     ports.FeedbackEventStore
	Aggregates ports.AggregateStore
	Cache      *cache.ExclusionCache

	SearchUC   ports.PrecedentSearcher
	FeedbackUC ports.FeedbackRecorder
	UpdaterUC  ports.AggregateRecomputer

	closeFn func()
}

type Options struct {
	// ExclusionObserver receives cache refresh events, typically the metrics
	// struct of the hosting process.
	ExclusionObserver cache.Observer
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	return NewWithOptions(ctx, cfg, Options{})
}

func NewWithOptions(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	events := postgres.NewFeedbackEventRepository(db)
	aggregates := postgres.NewAggregateRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	retriever := qdrant.NewRetriever(embedder, qdrant.New(cfg.QdrantURL, cfg.QdrantCollection))

	exclusions := cache.NewWithOptions(aggregates, cache.Options{
		TTL:            time.Duration(cfg.ExclusionCacheTTLSeconds) * time.Second,
		RefreshTimeout: time.Duration(cfg.ExclusionRefreshTimeoutSeconds) * time.Second,
		Executor:       executor,
		Observer:       options.ExclusionObserver,
	})

	policy := domain.ExclusionPolicy{
		MinFeedbackCount: cfg.FeedbackMinCount,
		Threshold:        cfg.FeedbackExclusionThreshold,
	}

	searchUC := usecase.NewSearchUseCase(
		exclusions,
		retriever,
		usecase.NewOverfetchPlanner(cfg.SearchOverfetchMultiplier),
		cfg.SearchTopK,
	)
	feedbackUC := usecase.NewRecordFeedbackUseCase(events, queue)
	updaterUC := usecase.NewAggregateUpdater(events, aggregates, policy)

	return &App{
		Config: cfg,

		Queue:      queue,
		Events:     events,
		Aggregates: aggregates,
		Cache:      exclusions,

		SearchUC:   searchUC,
		FeedbackUC: feedbackUC,
		UpdaterUC:  updaterUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
