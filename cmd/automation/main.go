// The automation binary runs the full daily workflow in one shot: collect the
// target date from every vendor, store the records, export the combined CSV,
// and email the report. Meant to run from cron each morning.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/export"
	"github.com/ignite/newsletter-metrics/internal/ingest"
	"github.com/ignite/newsletter-metrics/internal/pkg/distlock"
	"github.com/ignite/newsletter-metrics/internal/repository/postgres"
	"github.com/ignite/newsletter-metrics/internal/snowflake"
	"github.com/ignite/newsletter-metrics/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const automationLockKey = "newsletter-metrics:collect"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	dateFlag := flag.String("date", "", "date to process (YYYY-MM-DD, default yesterday)")
	emailFlag := flag.String("email", "", "report recipient (overrides configured recipients)")
	noEmail := flag.Bool("no-email", false, "skip the report email")
	exportOnly := flag.Bool("export-only", false, "skip collection, only export and email")
	flag.Parse()

	log.Println("Starting daily newsletter automation...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	target, err := resolveDate(*dateFlag)
	if err != nil {
		log.Fatalf("Invalid -date: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	repo := postgres.NewMetricsRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if !*exportOnly {
		if err := runCollection(ctx, cfg, db, repo, target); err != nil {
			log.Fatalf("Collection failed: %v", err)
		}
	}

	exporter := export.NewExporter(repo, cfg.Export)
	path, err := exporter.ExportToFile(ctx, target, target, "", "")
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if *noEmail {
		log.Println("Email skipped (-no-email)")
		return
	}

	reportCfg := cfg.Report
	if *emailFlag != "" {
		reportCfg.Recipients = []string{*emailFlag}
		reportCfg.Enabled = true
	}
	if !reportCfg.Enabled || len(reportCfg.Recipients) == 0 || reportCfg.FromEmail == "" {
		log.Println("Email not configured, skipping report delivery")
		return
	}

	mailer, err := export.NewMailer(ctx, reportCfg)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}
	if err := mailer.SendReport(ctx, path, target, target); err != nil {
		log.Fatalf("Failed to send report: %v", err)
	}

	log.Println("Daily automation complete")
}

// runCollection acquires the run lock and collects the target date from every
// configured vendor.
func runCollection(ctx context.Context, cfg *config.Config, db *sql.DB, repo *postgres.MetricsRepo, target time.Time) error {
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	lock := distlock.New(redisClient, db, automationLockKey, 30*time.Minute)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		log.Println("Another collection run holds the lock, skipping collection")
		return nil
	}
	defer lock.Release(context.Background())

	collectors := ingest.BuildCollectors(ctx, cfg)
	if len(collectors) == 0 {
		log.Println("No collectors available, skipping collection")
		return nil
	}

	var archive ingest.Archiver
	if cfg.Archive.Enabled {
		a, err := storage.NewArchive(ctx, cfg.Archive)
		if err != nil {
			log.Printf("Archive disabled: %v", err)
		} else {
			archive = a
		}
	}

	var mirror ingest.Mirror
	if cfg.Snowflake.Enabled {
		sf, err := snowflake.NewClient(cfg.Snowflake)
		if err != nil {
			log.Printf("Snowflake mirror disabled: %v", err)
		} else {
			defer sf.Close()
			mirror = sf
		}
	}

	runner := ingest.NewRunner(collectors, repo, archive, mirror)
	_, err = runner.Run(ctx, target)
	return err
}

func resolveDate(date string) (time.Time, error) {
	if date == "" {
		yesterday := time.Now().AddDate(0, 0, -1)
		return time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", date)
}
