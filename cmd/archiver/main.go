// The archiver is a one-shot job: it exports recordings older than the
// retention window to S3 as CSV and removes them from the database. It is
// meant to be run on a cron alongside the long-running pipeline service.
package main

import (
	"context"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"github.com/lnhm/plant-sensor-pipeline/internal/archive"
	"github.com/lnhm/plant-sensor-pipeline/internal/config"
	"github.com/lnhm/plant-sensor-pipeline/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}
	uploader := s3.NewFromConfig(awsCfg)

	count, err := archive.Run(ctx, st.Pool(), uploader, archive.Config{
		Bucket:    cfg.S3Bucket,
		Prefix:    cfg.S3Prefix,
		Retention: cfg.ArchiveRetention,
	})
	if err != nil {
		log.Fatalf("archive run failed: %v", err)
	}

	log.Printf("archiver finished: %d recordings archived", count)
}
