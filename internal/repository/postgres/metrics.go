package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/newsletter-metrics/internal/domain"
)

// ErrNotFound is returned when no record exists for the requested key.
var ErrNotFound = errors.New("metric record not found")

// MetricsRepo stores canonical metric records in PostgreSQL, keyed on
// (date, brand, campaign_type). Writes are upserts; re-collecting a date
// overwrites in place and never duplicates.
type MetricsRepo struct{ db *sql.DB }

// NewMetricsRepo creates a Postgres-backed metrics repository.
func NewMetricsRepo(db *sql.DB) *MetricsRepo { return &MetricsRepo{db: db} }

// EnsureSchema creates the metrics table and its natural-key constraint if
// they do not exist yet.
func (r *MetricsRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS newsletter_metrics (
			id               BIGSERIAL PRIMARY KEY,
			date             DATE NOT NULL,
			brand            TEXT NOT NULL,
			platform         TEXT NOT NULL,
			campaign_type    TEXT NOT NULL,
			sends            BIGINT NOT NULL DEFAULT 0,
			delivered        DOUBLE PRECISION NOT NULL DEFAULT 0,
			opens            BIGINT NOT NULL DEFAULT 0,
			open_rate        DOUBLE PRECISION NOT NULL DEFAULT 0,
			unique_opens     BIGINT NOT NULL DEFAULT 0,
			unique_open_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			clicks           BIGINT NOT NULL DEFAULT 0,
			ctr              DOUBLE PRECISION NOT NULL DEFAULT 0,
			unique_clicks    BIGINT NOT NULL DEFAULT 0,
			uctr             DOUBLE PRECISION NOT NULL DEFAULT 0,
			brand_list_size  BIGINT NOT NULL DEFAULT 0,
			list_growth      BIGINT NOT NULL DEFAULT 0,
			unsubscribes     BIGINT NOT NULL DEFAULT 0,
			unsubscribe_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			spam_reports     BIGINT NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (date, brand, campaign_type)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts the record or, when its natural key already exists,
// overwrites the stored counters and refreshes updated_at.
func (r *MetricsRepo) Upsert(ctx context.Context, rec domain.MetricRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_metrics
			(date, brand, platform, campaign_type, sends, delivered,
			 opens, open_rate, unique_opens, unique_open_rate,
			 clicks, ctr, unique_clicks, uctr,
			 brand_list_size, list_growth, unsubscribes, unsubscribe_rate,
			 spam_reports, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		ON CONFLICT (date, brand, campaign_type) DO UPDATE SET
			platform = EXCLUDED.platform,
			sends = EXCLUDED.sends,
			delivered = EXCLUDED.delivered,
			opens = EXCLUDED.opens,
			open_rate = EXCLUDED.open_rate,
			unique_opens = EXCLUDED.unique_opens,
			unique_open_rate = EXCLUDED.unique_open_rate,
			clicks = EXCLUDED.clicks,
			ctr = EXCLUDED.ctr,
			unique_clicks = EXCLUDED.unique_clicks,
			uctr = EXCLUDED.uctr,
			brand_list_size = EXCLUDED.brand_list_size,
			list_growth = EXCLUDED.list_growth,
			unsubscribes = EXCLUDED.unsubscribes,
			unsubscribe_rate = EXCLUDED.unsubscribe_rate,
			spam_reports = EXCLUDED.spam_reports,
			updated_at = NOW()
	`,
		rec.Date, rec.Brand, string(rec.Platform), string(rec.CampaignType),
		rec.Sends, rec.DeliveredRate,
		rec.Opens, rec.OpenRate, rec.UniqueOpens, rec.UniqueOpenRate,
		rec.Clicks, rec.CTR, rec.UniqueClicks, rec.UCTR,
		rec.ListSize, rec.ListGrowth, rec.Unsubscribes, rec.UnsubscribeRate,
		rec.SpamReports,
	)
	if err != nil {
		return fmt.Errorf("upsert metric %s: %w", rec.Key(), err)
	}
	return nil
}

const selectColumns = `
	date, brand, platform, campaign_type, sends, delivered,
	opens, open_rate, unique_opens, unique_open_rate,
	clicks, ctr, unique_clicks, uctr,
	brand_list_size, list_growth, unsubscribes, unsubscribe_rate, spam_reports`

func scanRecord(scan func(dest ...interface{}) error) (domain.MetricRecord, error) {
	var rec domain.MetricRecord
	var platform, campaignType string
	err := scan(
		&rec.Date, &rec.Brand, &platform, &campaignType, &rec.Sends, &rec.DeliveredRate,
		&rec.Opens, &rec.OpenRate, &rec.UniqueOpens, &rec.UniqueOpenRate,
		&rec.Clicks, &rec.CTR, &rec.UniqueClicks, &rec.UCTR,
		&rec.ListSize, &rec.ListGrowth, &rec.Unsubscribes, &rec.UnsubscribeRate,
		&rec.SpamReports,
	)
	rec.Platform = domain.Platform(platform)
	rec.CampaignType = domain.CampaignType(campaignType)
	return rec, err
}

// Get fetches one record by its natural key.
func (r *MetricsRepo) Get(ctx context.Context, date time.Time, brand string, campaignType domain.CampaignType) (*domain.MetricRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM newsletter_metrics
		WHERE date = $1 AND brand = $2 AND campaign_type = $3
	`, domain.DateOnly(date), brand, string(campaignType))

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metric: %w", err)
	}
	return &rec, nil
}

// ListRange returns all records in the inclusive date range ordered by date
// then brand, the order the exporter consumes.
func (r *MetricsRepo) ListRange(ctx context.Context, start, end time.Time) ([]domain.MetricRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM newsletter_metrics
		WHERE date >= $1 AND date <= $2
		ORDER BY date, brand
	`, domain.DateOnly(start), domain.DateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// ListRangeByPlatform returns one platform's records in the inclusive date
// range ordered by date then brand.
func (r *MetricsRepo) ListRangeByPlatform(ctx context.Context, start, end time.Time, platform domain.Platform) ([]domain.MetricRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM newsletter_metrics
		WHERE platform = $1 AND date >= $2 AND date <= $3
		ORDER BY date, brand
	`, string(platform), domain.DateOnly(start), domain.DateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("list metrics by platform: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

func collectRows(rows *sql.Rows) ([]domain.MetricRecord, error) {
	var out []domain.MetricRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return out, nil
}
