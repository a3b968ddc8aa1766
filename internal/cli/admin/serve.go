package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/api/handlers"
	"github.com/cloo-solutions/campusguide/internal/jobs"
	"github.com/cloo-solutions/campusguide/internal/server"
	"github.com/cloo-solutions/campusguide/internal/service"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the campusguide API server with the embedding worker and, when CAMPUSGUIDE_CRAWL_INTERVAL is set, the periodic crawler",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides CAMPUSGUIDE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations-dir", defaultMigrationsDir, "Migrations directory")
	cmd.Flags().Bool("crawl-on-start", false, "Run the periodic crawler once immediately instead of waiting one interval")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg, logger := rt.cfg, rt.logger

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		dir, _ := cmd.Flags().GetString("migrations-dir")
		if err := runMigrations(cfg.DatabaseURL, dir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	logger.Info("connected to database")

	var workers []*jobs.Worker
	if a.ai != nil {
		embeddingSvc := service.NewEmbeddingService(a.ai, a.knowledgeRepo)
		processor := jobs.NewEmbeddingWorker(a.embeddingJobRepo, embeddingSvc, logger)
		workers = append(workers, jobs.NewWorker("embedding", processor, cfg.EmbeddingPollInterval, logger))
	}
	if cfg.HasPeriodicCrawl() {
		snapshots, err := a.snapshotStore(ctx, cfg.SnapshotDir)
		if err != nil {
			return err
		}
		processor := jobs.NewCrawlProcessor(a.newCrawler(cfg.CrawlConfig()), snapshots, cfg.SnapshotPrefix, logger)
		var opts []jobs.WorkerOption
		if onStart, _ := cmd.Flags().GetBool("crawl-on-start"); onStart {
			opts = append(opts, jobs.WithRunOnStart())
		}
		workers = append(workers, jobs.NewWorker("crawl", processor, cfg.CrawlInterval, logger, opts...))
	}
	for _, w := range workers {
		go w.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		APIKeys:          cfg.APIKeys,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		Logger:           logger,
		Gatherer:         a.registry,
		KnowledgeHandler: handlers.NewKnowledgeHandler(a.knowledge),
		RetrievalHandler: handlers.NewRetrievalHandler(a.retrieval, a.answers),
	})
	if len(cfg.APIKeys) == 0 {
		logger.Warn("no API keys configured: retrieval routes are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
