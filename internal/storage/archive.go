package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// ReportArchive stores completed analysis reports as JSON objects so they
// outlive database retention and can be served without recomputation.
type ReportArchive struct {
	store ObjectStorage
}

// NewReportArchive creates a ReportArchive over the given object storage.
func NewReportArchive(store ObjectStorage) *ReportArchive {
	return &ReportArchive{store: store}
}

// StoreReport uploads one job's report and returns the object key.
// Keys are date-partitioned so buckets stay browsable.
func (a *ReportArchive) StoreReport(ctx context.Context, jobID string, report []byte) (string, error) {
	key := fmt.Sprintf("reports/%s/%s.json", time.Now().UTC().Format("2006/01/02"), jobID)

	err := a.store.Upload(ctx, key, bytes.NewReader(report), int64(len(report)), "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to archive report for job %s: %w", jobID, err)
	}
	return key, nil
}

// FetchReport downloads an archived report by its object key.
func (a *ReportArchive) FetchReport(ctx context.Context, key string) ([]byte, error) {
	body, err := a.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report %s: %w", key, err)
	}
	defer body.Close()
	return io.ReadAll(body)
}

// ReportURL returns the public URL of an archived report key.
func (a *ReportArchive) ReportURL(key string) string {
	return a.store.GetURL(key)
}
