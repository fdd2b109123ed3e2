package plants

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// FetchAll retrieves every known plant record. Identifiers are tried from 1
// upward in batches of batchSize fully concurrent requests; the next batch
// only starts once the whole previous batch has resolved. Extraction ends
// normally the first time an entire batch yields zero records, since
// identifiers are dense-with-gaps up to the end of the valid range.
//
// A "not found" answer for one identifier is skipped; a transient failure
// that survives the retry layer aborts the run rather than being mistaken
// for the end of the range.
func (c *Client) FetchAll(ctx context.Context, batchSize int) ([]RawRecord, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}

	var all []RawRecord

	for start := 1; ; start += batchSize {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		records := make([]*RawRecord, batchSize)
		errs := make([]error, batchSize)

		var wg sync.WaitGroup
		for i := 0; i < batchSize; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, err := c.FetchPlant(ctx, start+i)
				if err != nil {
					errs[i] = err
					return
				}
				records[i] = &rec
			}()
		}
		wg.Wait()

		// Results keep identifier order within the batch.
		found := 0
		for i := 0; i < batchSize; i++ {
			if errs[i] != nil {
				if errors.Is(errs[i], ErrPlantNotFound) {
					continue
				}
				return nil, fmt.Errorf("fetch plant %d: %w", start+i, errs[i])
			}
			all = append(all, *records[i])
			found++
		}

		log.Printf("extract: batch %d-%d yielded %d records", start, start+batchSize-1, found)

		if found == 0 {
			return all, nil
		}
	}
}
