// The export binary renders stored newsletter metrics into the
// sheet-compatible CSV layout, writes the file, and optionally emails it
// through SES.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
	"github.com/ignite/newsletter-metrics/internal/export"
	"github.com/ignite/newsletter-metrics/internal/repository/postgres"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	dateFlag := flag.String("date", "", "single date to export (YYYY-MM-DD, default yesterday)")
	startFlag := flag.String("start", "", "range start (YYYY-MM-DD, requires -end)")
	endFlag := flag.String("end", "", "range end (YYYY-MM-DD, requires -start)")
	platformFlag := flag.String("platform", "all", "platform to export: TinyEmail, Beehiiv, or all")
	outputFlag := flag.String("output", "", "output file path (default derived under the export dir)")
	emailFlag := flag.String("email", "", "email address to send the report to")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not configured")
	}

	start, end, err := resolveDates(*dateFlag, *startFlag, *endFlag)
	if err != nil {
		log.Fatalf("Invalid date flags: %v", err)
	}
	platform, err := resolvePlatform(*platformFlag)
	if err != nil {
		log.Fatalf("Invalid platform flag: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	exporter := export.NewExporter(postgres.NewMetricsRepo(db), cfg.Export)
	path, err := exporter.ExportToFile(ctx, start, end, *outputFlag, platform)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if *emailFlag != "" {
		reportCfg := cfg.Report
		reportCfg.Recipients = []string{*emailFlag}
		if reportCfg.FromEmail == "" {
			log.Fatal("Email not configured: report from_email is not set")
		}

		mailer, err := export.NewMailer(ctx, reportCfg)
		if err != nil {
			log.Fatalf("Failed to initialize mailer: %v", err)
		}
		if err := mailer.SendReport(ctx, path, start, end); err != nil {
			log.Fatalf("Failed to send report: %v", err)
		}
	}
}

func resolveDates(date, start, end string) (time.Time, time.Time, error) {
	switch {
	case date != "" && (start != "" || end != ""):
		return time.Time{}, time.Time{}, errDateConflict
	case date != "":
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return d, d, nil
	case start != "" || end != "":
		if start == "" || end == "" {
			return time.Time{}, time.Time{}, errRangeIncomplete
		}
		s, err := time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		e, err := time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if e.Before(s) {
			return time.Time{}, time.Time{}, errRangeInverted
		}
		return s, e, nil
	default:
		yesterday := time.Now().AddDate(0, 0, -1)
		y := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
		return y, y, nil
	}
}

// resolvePlatform maps the -platform flag to a platform filter; "all" means
// no filter.
func resolvePlatform(v string) (domain.Platform, error) {
	switch v {
	case "all", "":
		return "", nil
	case string(domain.PlatformTinyEmail):
		return domain.PlatformTinyEmail, nil
	case string(domain.PlatformBeehiiv):
		return domain.PlatformBeehiiv, nil
	default:
		return "", flagError("platform must be TinyEmail, Beehiiv, or all")
	}
}

var (
	errDateConflict    = flagError("-date cannot be combined with -start/-end")
	errRangeIncomplete = flagError("-start and -end must be given together")
	errRangeInverted   = flagError("-end precedes -start")
)

type flagError string

func (e flagError) Error() string { return string(e) }
