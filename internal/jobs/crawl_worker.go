package jobs

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/ingest"
)

// CrawlRunner runs one crawl.
type CrawlRunner interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// CrawlProcessor runs a full crawl per tick and writes a snapshot of what it
// stored. Ticks that arrive while a crawl is running are skipped.
type CrawlProcessor struct {
	crawler   CrawlRunner
	snapshots ingest.SnapshotStore
	prefix    string
	logger    *zap.Logger
	running   atomic.Bool
}

// NewCrawlProcessor creates a CrawlProcessor. snapshots may be nil to skip
// snapshot export.
func NewCrawlProcessor(crawler CrawlRunner, snapshots ingest.SnapshotStore, prefix string, logger *zap.Logger) *CrawlProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrawlProcessor{crawler: crawler, snapshots: snapshots, prefix: prefix, logger: logger}
}

// ProcessJobs implements the JobProcessor interface
func (p *CrawlProcessor) ProcessJobs(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Info("crawl already running, skipping tick")
		return nil
	}
	defer p.running.Store(false)

	report, err := p.crawler.Run(ctx)
	if err != nil && report == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if err != nil {
		p.logger.Warn("crawl ended early", zap.Error(err))
	}

	if p.snapshots == nil || report == nil {
		return nil
	}
	dir, serr := ingest.WriteSnapshot(context.WithoutCancel(ctx), p.snapshots, p.prefix, report)
	if serr != nil {
		return fmt.Errorf("writing crawl snapshot: %w", serr)
	}
	p.logger.Info("crawl snapshot written", zap.String("location", dir), zap.Int("records", len(report.Records)))
	return nil
}
