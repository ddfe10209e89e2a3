package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter-metrics/internal/domain"
)

func sampleRecord() domain.MetricRecord {
	return domain.MetricRecord{
		Date:            time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Brand:           "Conservatives Daily AM",
		Platform:        domain.PlatformTinyEmail,
		CampaignType:    domain.CampaignAM,
		Sends:           100000,
		DeliveredRate:   95.0,
		Opens:           40000,
		OpenRate:        40.0,
		UniqueOpens:     30000,
		UniqueOpenRate:  30.0,
		Clicks:          5000,
		CTR:             5.0,
		UniqueClicks:    4000,
		UCTR:            4.0,
		ListSize:        100000,
		ListGrowth:      500,
		Unsubscribes:    120,
		UnsubscribeRate: 0.12,
		SpamReports:     3,
	}
}

func recordColumns() []string {
	return []string{
		"date", "brand", "platform", "campaign_type", "sends", "delivered",
		"opens", "open_rate", "unique_opens", "unique_open_rate",
		"clicks", "ctr", "unique_clicks", "uctr",
		"brand_list_size", "list_growth", "unsubscribes", "unsubscribe_rate", "spam_reports",
	}
}

func recordValues(rec domain.MetricRecord) []driver.Value {
	return []driver.Value{
		rec.Date, rec.Brand, string(rec.Platform), string(rec.CampaignType), rec.Sends, rec.DeliveredRate,
		rec.Opens, rec.OpenRate, rec.UniqueOpens, rec.UniqueOpenRate,
		rec.Clicks, rec.CTR, rec.UniqueClicks, rec.UCTR,
		rec.ListSize, rec.ListGrowth, rec.Unsubscribes, rec.UnsubscribeRate, rec.SpamReports,
	}
}

func TestUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := sampleRecord()
	mock.ExpectExec("INSERT INTO newsletter_metrics").
		WithArgs(
			rec.Date, rec.Brand, "TinyEmail", "AM",
			rec.Sends, rec.DeliveredRate,
			rec.Opens, rec.OpenRate, rec.UniqueOpens, rec.UniqueOpenRate,
			rec.Clicks, rec.CTR, rec.UniqueClicks, rec.UCTR,
			rec.ListSize, rec.ListGrowth, rec.Unsubscribes, rec.UnsubscribeRate,
			rec.SpamReports,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMetricsRepo(db)
	require.NoError(t, repo.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertConflictClause(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// The statement must resolve duplicates on the natural key, not fail.
	mock.ExpectExec(`ON CONFLICT \(date, brand, campaign_type\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMetricsRepo(db)
	require.NoError(t, repo.Upsert(context.Background(), sampleRecord()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(recordColumns()))

	repo := NewMetricsRepo(db)
	_, err = repo.Get(context.Background(), time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), "Unknown", domain.CampaignAM)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := sampleRecord()
	mock.ExpectQuery("SELECT").
		WithArgs(rec.Date, rec.Brand, "AM").
		WillReturnRows(sqlmock.NewRows(recordColumns()).AddRow(recordValues(rec)...))

	repo := NewMetricsRepo(db)
	got, err := repo.Get(context.Background(), rec.Date, rec.Brand, rec.CampaignType)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec1 := sampleRecord()
	rec2 := sampleRecord()
	rec2.Brand = "Conservatives Daily PM"
	rec2.CampaignType = domain.CampaignPM

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow(recordValues(rec1)...).
			AddRow(recordValues(rec2)...))

	repo := NewMetricsRepo(db)
	got, err := repo.ListRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rec1, got[0])
	assert.Equal(t, rec2, got[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRangeByPlatform(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := sampleRecord()
	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WithArgs("TinyEmail", start, start).
		WillReturnRows(sqlmock.NewRows(recordColumns()).AddRow(recordValues(rec)...))

	repo := NewMetricsRepo(db)
	got, err := repo.ListRangeByPlatform(context.Background(), start, start, domain.PlatformTinyEmail)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS newsletter_metrics").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewMetricsRepo(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
