// Package ingest drives a collection run: every vendor collector is invoked
// for the target date, the combined records are persisted one at a time, and
// the run is archived and optionally mirrored.
package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-metrics/internal/domain"
	"github.com/ignite/newsletter-metrics/internal/storage"
)

// VendorCollector is one platform's collector.
type VendorCollector interface {
	Collect(ctx context.Context, target time.Time) ([]domain.MetricRecord, domain.SearchStatus, error)
}

// NamedCollector pairs a collector with its log label.
type NamedCollector struct {
	Name      string
	Collector VendorCollector
}

// Store persists canonical records.
type Store interface {
	Upsert(ctx context.Context, rec domain.MetricRecord) error
}

// Archiver snapshots a finished run.
type Archiver interface {
	SaveRunSnapshot(ctx context.Context, snap storage.RunSnapshot) (string, error)
}

// Mirror replicates records into the warehouse.
type Mirror interface {
	MirrorRecords(ctx context.Context, records []domain.MetricRecord) (int, int)
}

// VendorResult is one collector's contribution to a run.
type VendorResult struct {
	Name    string              `json:"name"`
	Records int                 `json:"records"`
	Status  domain.SearchStatus `json:"-"`
	Error   string              `json:"error,omitempty"`
}

// Summary reports one run's outcome.
type Summary struct {
	RunID     string         `json:"run_id"`
	Date      time.Time      `json:"date"`
	Collected int            `json:"collected"`
	Stored    int            `json:"stored"`
	Failed    int            `json:"failed"`
	Vendors   []VendorResult `json:"vendors"`
	Duration  time.Duration  `json:"duration"`
}

// Runner executes collection runs. Archive and mirror are optional; a nil
// value disables the step.
type Runner struct {
	collectors []NamedCollector
	store      Store
	archive    Archiver
	mirror     Mirror
}

// NewRunner creates a run driver over the given collectors and store.
func NewRunner(collectors []NamedCollector, store Store, archive Archiver, mirror Mirror) *Runner {
	return &Runner{
		collectors: collectors,
		store:      store,
		archive:    archive,
		mirror:     mirror,
	}
}

// Run collects the target date from every vendor concurrently and persists
// the combined records. A failed vendor costs only its own contribution; a
// failed record costs only that record. The run itself succeeds either way
// and the summary carries the counts.
func (r *Runner) Run(ctx context.Context, target time.Time) (*Summary, error) {
	target = domain.DateOnly(target)
	start := time.Now()

	summary := &Summary{
		RunID: uuid.New().String(),
		Date:  target,
	}
	log.Printf("ingest: run %s collecting %s from %d vendor(s)",
		summary.RunID, target.Format("2006-01-02"), len(r.collectors))

	type vendorOutcome struct {
		name    string
		records []domain.MetricRecord
		status  domain.SearchStatus
		err     error
	}

	var wg sync.WaitGroup
	results := make(chan vendorOutcome, len(r.collectors))

	for _, nc := range r.collectors {
		wg.Add(1)
		go func(nc NamedCollector) {
			defer wg.Done()
			records, status, err := nc.Collector.Collect(ctx, target)
			results <- vendorOutcome{name: nc.Name, records: records, status: status, err: err}
		}(nc)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []domain.MetricRecord
	for outcome := range results {
		vr := VendorResult{
			Name:    outcome.name,
			Records: len(outcome.records),
			Status:  outcome.status,
		}
		if outcome.err != nil {
			vr.Error = outcome.err.Error()
			log.Printf("ingest: %s collection error: %v", outcome.name, outcome.err)
		}
		summary.Vendors = append(summary.Vendors, vr)
		all = append(all, outcome.records...)
	}
	summary.Collected = len(all)

	for _, rec := range all {
		if err := r.store.Upsert(ctx, rec); err != nil {
			log.Printf("ingest: failed to store %s: %v", rec.Key(), err)
			summary.Failed++
			continue
		}
		log.Printf("ingest: stored %s | %s | %d sends", rec.Date.Format("2006-01-02"), rec.Brand, rec.Sends)
		summary.Stored++
	}

	if r.archive != nil && len(all) > 0 {
		snap := storage.RunSnapshot{
			RunID:       summary.RunID,
			Date:        target.Format("2006-01-02"),
			CollectedAt: time.Now().UTC(),
			Records:     all,
			Stored:      summary.Stored,
			Failed:      summary.Failed,
		}
		if _, err := r.archive.SaveRunSnapshot(ctx, snap); err != nil {
			log.Printf("ingest: snapshot archive failed: %v", err)
		}
	}

	if r.mirror != nil && len(all) > 0 {
		mirrored, failed := r.mirror.MirrorRecords(ctx, all)
		log.Printf("ingest: mirrored %d record(s) to warehouse (%d failed)", mirrored, failed)
	}

	summary.Duration = time.Since(start)
	log.Printf("ingest: run %s done in %v: %d collected, %d stored, %d failed",
		summary.RunID, summary.Duration, summary.Collected, summary.Stored, summary.Failed)
	return summary, nil
}

// RunRange runs one collection per day over the inclusive date range and
// returns the per-day summaries.
func (r *Runner) RunRange(ctx context.Context, start, end time.Time) ([]*Summary, error) {
	var summaries []*Summary
	for day := domain.DateOnly(start); !day.After(domain.DateOnly(end)); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}
		summary, err := r.Run(ctx, day)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
