// Package archive moves recordings older than the retention window to cold
// storage: it exports them as CSV to S3 and deletes them from the fact
// table. The export and the delete share one transaction, and the delete is
// only committed after a successful upload.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jszwec/csvutil"
)

// Uploader is the slice of the S3 client the archiver needs.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds archival settings.
type Config struct {
	Bucket    string
	Prefix    string
	Retention time.Duration
}

// archivedRecording mirrors the recording table's column order for the CSV
// export.
type archivedRecording struct {
	PlantID          int        `csv:"plant_id"`
	BotanistID       int        `csv:"botanist_id"`
	OriginLocationID int        `csv:"origin_location_id"`
	LastWatered      *time.Time `csv:"last_watered"`
	ImageID          int        `csv:"image_id"`
	RecordingTaken   *time.Time `csv:"recording_taken"`
	SoilMoisture     *float64   `csv:"soil_moisture"`
	Temperature      *float64   `csv:"temperature"`
}

// Run archives all recordings taken before now minus the retention window.
// It returns the number of rows archived. When nothing is old enough the
// store and bucket are left untouched.
func Run(ctx context.Context, pool *pgxpool.Pool, uploader Uploader, cfg Config) (int, error) {
	if cfg.Bucket == "" {
		return 0, fmt.Errorf("archive bucket is required")
	}

	cutoff := time.Now().UTC().Add(-cfg.Retention)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT plant_id, botanist_id, origin_location_id, last_watered,
		       image_id, recording_taken, soil_moisture, temperature
		FROM recording
		WHERE recording_taken < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("select old recordings: %w", err)
	}

	var old []archivedRecording
	for rows.Next() {
		var r archivedRecording
		if err := rows.Scan(
			&r.PlantID, &r.BotanistID, &r.OriginLocationID, &r.LastWatered,
			&r.ImageID, &r.RecordingTaken, &r.SoilMoisture, &r.Temperature,
		); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan recording: %w", err)
		}
		old = append(old, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read old recordings: %w", err)
	}

	if len(old) == 0 {
		log.Println("archive: no recordings older than retention window")
		return 0, nil
	}

	data, err := exportCSV(old)
	if err != nil {
		return 0, err
	}

	key := objectKey(cfg.Prefix, time.Now().UTC())
	log.Printf("archive: uploading %d recordings to s3://%s/%s", len(old), cfg.Bucket, key)

	if _, err := uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return 0, fmt.Errorf("upload archive: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recording WHERE recording_taken < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("delete archived recordings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	log.Printf("archive: archived and deleted %d recordings", len(old))
	return len(old), nil
}

func exportCSV(recordings []archivedRecording) ([]byte, error) {
	data, err := csvutil.Marshal(recordings)
	if err != nil {
		return nil, fmt.Errorf("encode archive csv: %w", err)
	}
	return data, nil
}

func objectKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%spast_data_%s.csv", prefix, now.Format("2006-01-02"))
}
