package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/ingest"
)

// CrawlCmd returns the one-shot crawl command
func CrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the institution website into the knowledge base",
		Long: `Crawl the institution website once, upserting every page into the knowledge base
and writing a JSON snapshot (S3 when configured, else --snapshot-dir).`,
		RunE: runCrawl,
	}

	cmd.Flags().Int("workers", 0, "Concurrent fetchers (overrides CAMPUSGUIDE_CRAWL_WORKERS)")
	cmd.Flags().Int("max-pages", 0, "Maximum pages to visit")
	cmd.Flags().Int("max-items", 0, "Stop after storing this many items")
	cmd.Flags().Int("max-depth", 0, "Maximum link depth from the seeds")
	cmd.Flags().String("snapshot-dir", "", "Local snapshot directory (overrides CAMPUSGUIDE_SNAPSHOT_DIR)")
	cmd.Flags().Bool("no-snapshot", false, "Skip writing the snapshot")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer a.close()

	crawlCfg := crawlConfigFromFlags(cmd, rt.cfg.CrawlConfig())

	var snapshots ingest.SnapshotStore
	if noSnapshot, _ := cmd.Flags().GetBool("no-snapshot"); !noSnapshot {
		dir := rt.cfg.SnapshotDir
		if flagDir, _ := cmd.Flags().GetString("snapshot-dir"); flagDir != "" {
			dir = flagDir
		}
		snapshots, err = a.snapshotStore(ctx, dir)
		if err != nil {
			return err
		}
	}

	report, runErr := a.newCrawler(crawlCfg).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("crawl failed: %w", runErr)
	}
	if report == nil {
		return runErr
	}

	if snapshots != nil {
		dir, err := ingest.WriteSnapshot(context.WithoutCancel(ctx), snapshots, rt.cfg.SnapshotPrefix, report)
		if err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		rt.logger.Info("snapshot written", zap.String("location", dir))
	}

	if err := writeReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return runErr
}

func crawlConfigFromFlags(cmd *cobra.Command, cfg ingest.Config) ingest.Config {
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := cmd.Flags().GetInt("max-pages"); v > 0 {
		cfg.MaxPages = v
	}
	if v, _ := cmd.Flags().GetInt("max-items"); v > 0 {
		cfg.MaxItems = v
	}
	if v, _ := cmd.Flags().GetInt("max-depth"); v > 0 {
		cfg.MaxDepth = v
	}
	return cfg
}

func writeReport(w io.Writer, report *ingest.Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal crawl report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
