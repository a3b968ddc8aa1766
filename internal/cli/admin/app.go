package admin

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/cache"
	"github.com/cloo-solutions/campusguide/internal/config"
	"github.com/cloo-solutions/campusguide/internal/conversation"
	"github.com/cloo-solutions/campusguide/internal/database"
	"github.com/cloo-solutions/campusguide/internal/ingest"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/openai"
	"github.com/cloo-solutions/campusguide/internal/repository"
	"github.com/cloo-solutions/campusguide/internal/retrieval"
	"github.com/cloo-solutions/campusguide/internal/service"
	"github.com/cloo-solutions/campusguide/internal/storage"
)

// app holds the components shared by serve, crawl and retrieve.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	registry *prometheus.Registry
	metrics  *observability.Metrics

	knowledgeRepo    *repository.KnowledgeRepository
	embeddingJobRepo *repository.EmbeddingJobRepository
	messageRepo      *repository.MessageRepository

	ai        *openai.Client
	knowledge *service.KnowledgeService
	retrieval *service.RetrievalService
	answers   *service.AnswerService
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:              cfg,
		logger:           logger,
		pool:             pool,
		registry:         registry,
		metrics:          observability.NewMetrics(registry),
		knowledgeRepo:    repository.NewKnowledgeRepository(pool),
		embeddingJobRepo: repository.NewEmbeddingJobRepository(pool),
		messageRepo:      repository.NewMessageRepository(pool),
	}

	if cfg.HasOpenAI() {
		a.ai = openai.NewClientWithConfig(cfg.OpenAIConfig())
		logger.Info("openai configured: embeddings and answers enabled")
	} else {
		logger.Info("openai not configured: knowledge search is keyword-only and /answer is disabled")
	}

	a.knowledge = service.NewKnowledgeService(a.knowledgeRepo, repository.NewTxRunner(pool))

	aggregator, err := a.newAggregator()
	if err != nil {
		pool.Close()
		return nil, err
	}

	builder := conversation.NewBuilder(a.messageRepo, cfg.ConversationConfig(), logger)
	a.retrieval = service.NewRetrievalService(
		builder,
		aggregator,
		repository.NewSearchLogRepository(pool),
		cfg.RetrievalConfig(),
		logger,
		a.metrics,
	)

	var generator service.Generator
	if a.ai != nil {
		generator = a.ai
	}
	a.answers = service.NewAnswerService(a.retrieval, generator, a.messageRepo, logger)

	return a, nil
}

func (a *app) newAggregator() (*retrieval.Aggregator, error) {
	catalogue := retrieval.DefaultLinkCatalogue()
	if a.cfg.LinksFile != "" {
		data, err := os.ReadFile(a.cfg.LinksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read links file: %w", err)
		}
		catalogue, err = retrieval.ParseLinkCatalogue(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse links file: %w", err)
		}
	}

	client := &http.Client{Timeout: a.cfg.SearchDeadline}

	var embedder retrieval.Embedder
	if a.ai != nil {
		embedder = a.ai
	}

	strategies := []retrieval.Strategy{
		retrieval.NewKnowledgeSearch(a.knowledgeRepo, embedder, a.logger),
		retrieval.NewSiteScraper(a.cfg.ScrapeConfig(), client, a.logger),
	}
	if a.cfg.HasWebSearch() {
		strategies = append(strategies, retrieval.NewWebSearch(a.cfg.WebSearchConfig(), client))
	} else {
		a.logger.Info("web search not configured: strategy disabled")
	}

	return retrieval.NewAggregator(
		a.cfg.AggregatorConfig(),
		strategies,
		retrieval.NewStaticLinks(catalogue),
		retrieval.WithCache(cache.NewTTLCache(a.cfg.CacheConfig())),
		retrieval.WithLogger(a.logger),
		retrieval.WithMetrics(a.metrics),
	), nil
}

func (a *app) newCrawler(cfg ingest.Config) *ingest.Crawler {
	return ingest.NewCrawler(cfg, a.knowledge, nil, a.logger, a.metrics)
}

// snapshotStore returns S3 when configured, else a local directory. An empty
// dir with no S3 disables snapshots.
func (a *app) snapshotStore(ctx context.Context, dir string) (ingest.SnapshotStore, error) {
	if a.cfg.HasS3() {
		client, err := storage.NewS3Client(ctx, a.cfg.S3Config())
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		a.logger.Info("snapshots stored in S3", zap.String("bucket", client.Bucket()))
		return client, nil
	}
	if dir == "" {
		return nil, nil
	}
	a.logger.Info("snapshots stored locally", zap.String("dir", dir))
	return storage.NewLocalDir(dir), nil
}

func (a *app) close() {
	a.pool.Close()
}
