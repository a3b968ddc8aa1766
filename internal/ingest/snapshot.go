package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

// Snapshot object names below the per-run prefix
const (
	SnapshotItemsFile   = "knowledge_base.json"
	SnapshotSummaryFile = "crawl_summary.json"
)

// SnapshotStore is implemented by storage.S3Client and storage.LocalDir.
type SnapshotStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type snapshotSummary struct {
	*Report
	Total int `json:"total_items"`
}

// WriteSnapshot stores the crawl records and a summary under
// prefix/<finished-at>/ and returns that directory key.
func WriteSnapshot(ctx context.Context, store SnapshotStore, prefix string, report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("no crawl report")
	}
	stamp := report.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	dir := path.Join(prefix, stamp.UTC().Format("20060102T150405Z"))

	records := report.Records
	if records == nil {
		records = []Record{}
	}
	items, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot records: %w", err)
	}
	if err := store.Put(ctx, path.Join(dir, SnapshotItemsFile), items, "application/json"); err != nil {
		return "", err
	}

	summary, err := json.MarshalIndent(snapshotSummary{Report: report, Total: len(records)}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot summary: %w", err)
	}
	if err := store.Put(ctx, path.Join(dir, SnapshotSummaryFile), summary, "application/json"); err != nil {
		return "", err
	}
	return dir, nil
}
