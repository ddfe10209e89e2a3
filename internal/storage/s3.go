// Package storage archives each collection run's canonical records to S3.
// The archive is an audit trail: the vendor APIs only retain listings so
// long, and a snapshot per run makes historical re-exports reproducible.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/domain"
)

// RunSnapshot is the archived result of one collection run.
type RunSnapshot struct {
	RunID       string                `json:"run_id"`
	Date        string                `json:"date"`
	CollectedAt time.Time             `json:"collected_at"`
	Records     []domain.MetricRecord `json:"records"`
	Stored      int                   `json:"stored"`
	Failed      int                   `json:"failed"`
}

// s3API is the slice of the S3 client the archive needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes run snapshots to an S3 bucket.
type Archive struct {
	client s3API
	bucket string
}

// NewArchive creates an S3-backed archive using the default credential
// chain, or the configured shared profile when set.
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Archive{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
	}, nil
}

// SaveRunSnapshot uploads the snapshot as JSON under a date-partitioned key
// and returns the key.
func (a *Archive) SaveRunSnapshot(ctx context.Context, snap RunSnapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize run snapshot: %w", err)
	}

	key := fmt.Sprintf("runs/%s/%s.json", snap.Date, snap.RunID)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"records":      fmt.Sprintf("%d", len(snap.Records)),
			"collected_at": snap.CollectedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload run snapshot: %w", err)
	}

	log.Printf("storage: saved run snapshot to s3://%s/%s (%d bytes)", a.bucket, key, len(data))
	return key, nil
}
