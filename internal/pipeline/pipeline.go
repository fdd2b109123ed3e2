// Package pipeline sequences the extract, transform, and load stages.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lnhm/plant-sensor-pipeline/internal/plants"
)

// Extractor fetches all raw records from the source.
type Extractor interface {
	FetchAll(ctx context.Context, batchSize int) ([]plants.RawRecord, error)
}

// Loader persists cleaned readings.
type Loader interface {
	Load(ctx context.Context, readings []plants.Reading) error
}

// Runner executes one full pipeline pass per invocation. Stages run
// strictly in sequence; each consumes the full output of the one before it.
type Runner struct {
	extractor Extractor
	loader    Loader
	batchSize int
}

// New creates a Runner.
func New(extractor Extractor, loader Loader, batchSize int) *Runner {
	return &Runner{
		extractor: extractor,
		loader:    loader,
		batchSize: batchSize,
	}
}

// Run performs extract, transform, load. A stage failure stops the run and
// is wrapped with the stage name; the store is never left partially updated
// because the load stage is a single transaction.
func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	start := time.Now()
	log.Printf("pipeline %s: starting run", runID)

	records, err := r.extractor.FetchAll(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(records) == 0 {
		log.Printf("pipeline %s: source returned no records", runID)
		return nil
	}

	readings, err := plants.Clean(records)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if err := r.loader.Load(ctx, readings); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	log.Printf("pipeline %s: loaded %d of %d extracted records in %s",
		runID, len(readings), len(records), time.Since(start))
	return nil
}
