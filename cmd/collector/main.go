// The collector binary runs one newsletter metrics collection: every
// configured TinyEmail account and Beehiiv group is collected for the target
// date (or range), normalized, and upserted into Postgres. A distributed lock
// keeps concurrent runs from double-collecting.
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
	"github.com/ignite/newsletter-metrics/internal/ingest"
	"github.com/ignite/newsletter-metrics/internal/pkg/distlock"
	"github.com/ignite/newsletter-metrics/internal/repository/postgres"
	"github.com/ignite/newsletter-metrics/internal/snowflake"
	"github.com/ignite/newsletter-metrics/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const collectLockKey = "newsletter-metrics:collect"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	dateFlag := flag.String("date", "", "single date to collect (YYYY-MM-DD, default yesterday)")
	startFlag := flag.String("start-date", "", "range start (YYYY-MM-DD, requires -end-date)")
	endFlag := flag.String("end-date", "", "range end (YYYY-MM-DD, requires -start-date)")
	validateOnly := flag.Bool("validate-only", false, "validate configuration and exit")
	flag.Parse()

	log.Println("Starting newsletter metrics collector...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *validateOnly {
		log.Println("Configuration OK")
		return
	}

	start, end, err := resolveDates(*dateFlag, *startFlag, *endFlag)
	if err != nil {
		log.Fatalf("Invalid date flags: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	repo := postgres.NewMetricsRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	lock := distlock.New(redisClient, db, collectLockKey, 30*time.Minute)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Fatalf("Failed to acquire collection lock: %v", err)
	}
	if !acquired {
		log.Println("Another collection run holds the lock, exiting")
		return
	}
	defer lock.Release(context.Background())

	collectors := ingest.BuildCollectors(ctx, cfg)
	if len(collectors) == 0 {
		log.Fatal("No collectors available, nothing to do")
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

	if start.Equal(end) {
		if _, err := runner.Run(ctx, start); err != nil {
			log.Fatalf("Collection run failed: %v", err)
		}
		return
	}
	if _, err := runner.RunRange(ctx, start, end); err != nil {
		log.Fatalf("Collection range failed: %v", err)
	}
}

// resolveDates turns the date flags into an inclusive range. With no flags the
// range is yesterday. -date and -start-date/-end-date are mutually exclusive.
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

var (
	errDateConflict    = flagError("-date cannot be combined with -start-date/-end-date")
	errRangeIncomplete = flagError("-start-date and -end-date must be given together")
	errRangeInverted   = flagError("-end-date precedes -start-date")
)

type flagError string

func (e flagError) Error() string { return string(e) }
