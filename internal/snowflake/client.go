// Package snowflake mirrors canonical metric records into the analytics
// warehouse so BI dashboards can join newsletter performance against the
// rest of the data lake. The mirror is best-effort and disabled unless
// configured; Postgres remains the system of record.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

// Client provides access to the Snowflake warehouse
type Client struct {
	config config.SnowflakeConfig
	db     *sql.DB
}

// NewClient creates a new Snowflake client
func NewClient(cfg config.SnowflakeConfig) (*Client, error) {
	// DSN format: user:password@account/database/schema?warehouse=xxx
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)

	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{
		config: cfg,
		db:     db,
	}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// MirrorRecord upserts one canonical record into NEWSLETTER_METRICS with a
// MERGE on the natural key.
func (c *Client) MirrorRecord(ctx context.Context, rec domain.MetricRecord) error {
	_, err := c.db.ExecContext(ctx, `
		MERGE INTO NEWSLETTER_METRICS t
		USING (SELECT ? AS DATE, ? AS BRAND, ? AS CAMPAIGN_TYPE) s
		ON t.DATE = s.DATE AND t.BRAND = s.BRAND AND t.CAMPAIGN_TYPE = s.CAMPAIGN_TYPE
		WHEN MATCHED THEN UPDATE SET
			PLATFORM = ?, SENDS = ?, DELIVERED = ?, OPENS = ?, OPEN_RATE = ?,
			UNIQUE_OPENS = ?, UNIQUE_OPEN_RATE = ?, CLICKS = ?, CTR = ?,
			UNIQUE_CLICKS = ?, UCTR = ?, BRAND_LIST_SIZE = ?, LIST_GROWTH = ?,
			UNSUBSCRIBES = ?, UNSUBSCRIBE_RATE = ?, SPAM_REPORTS = ?,
			UPDATED_AT = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT
			(DATE, BRAND, CAMPAIGN_TYPE, PLATFORM, SENDS, DELIVERED, OPENS,
			 OPEN_RATE, UNIQUE_OPENS, UNIQUE_OPEN_RATE, CLICKS, CTR,
			 UNIQUE_CLICKS, UCTR, BRAND_LIST_SIZE, LIST_GROWTH, UNSUBSCRIBES,
			 UNSUBSCRIBE_RATE, SPAM_REPORTS, CREATED_AT, UPDATED_AT)
		VALUES (s.DATE, s.BRAND, s.CAMPAIGN_TYPE, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP(), CURRENT_TIMESTAMP())
	`,
		rec.Date.Format("2006-01-02"), rec.Brand, string(rec.CampaignType),
		// matched update
		string(rec.Platform), rec.Sends, rec.DeliveredRate, rec.Opens, rec.OpenRate,
		rec.UniqueOpens, rec.UniqueOpenRate, rec.Clicks, rec.CTR,
		rec.UniqueClicks, rec.UCTR, rec.ListSize, rec.ListGrowth,
		rec.Unsubscribes, rec.UnsubscribeRate, rec.SpamReports,
		// not matched insert
		string(rec.Platform), rec.Sends, rec.DeliveredRate, rec.Opens, rec.OpenRate,
		rec.UniqueOpens, rec.UniqueOpenRate, rec.Clicks, rec.CTR,
		rec.UniqueClicks, rec.UCTR, rec.ListSize, rec.ListGrowth,
		rec.Unsubscribes, rec.UnsubscribeRate, rec.SpamReports,
	)
	if err != nil {
		return fmt.Errorf("mirror metric %s: %w", rec.Key(), err)
	}
	return nil
}

// MirrorRecords mirrors a batch, counting failures instead of aborting.
func (c *Client) MirrorRecords(ctx context.Context, records []domain.MetricRecord) (int, int) {
	success, failed := 0, 0
	for _, rec := range records {
		if err := c.MirrorRecord(ctx, rec); err != nil {
			failed++
			continue
		}
		success++
	}
	return success, failed
}
