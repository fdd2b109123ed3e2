package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"

	"github.com/lnhm/plant-sensor-pipeline/internal/plants"
)

// recordingColumns is the fact insert order; the archival job exports the
// same columns.
var recordingColumns = []string{
	"plant_id", "botanist_id", "origin_location_id", "last_watered",
	"image_id", "recording_taken", "soil_moisture", "temperature",
}

// loadTx is the slice of pgx.Tx the loader uses, separated so tests can
// substitute a fake transaction.
type loadTx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Loader writes cleaned readings into the normalized schema.
type Loader struct {
	store *Store
}

// NewLoader creates a Loader backed by the given store.
func NewLoader(s *Store) *Loader {
	return &Loader{store: s}
}

// Load resolves dimensions and inserts fact rows for the whole batch inside
// one transaction. Dimension rows are created at most once per natural key;
// fact rows are append-only, so re-running with overlapping input adds facts
// but never duplicates dimensions. Any failure rolls the run back entirely.
func (l *Loader) Load(ctx context.Context, readings []plants.Reading) error {
	if len(readings) == 0 {
		log.Println("load: no readings to insert")
		return nil
	}

	tx, err := l.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := loadInto(ctx, tx, readings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("load: inserted %d recordings", len(readings))
	return nil
}

func loadInto(ctx context.Context, tx loadTx, readings []plants.Reading) error {
	cache := NewDimensionCache()
	facts := make([][]any, 0, len(readings))

	for _, r := range readings {
		countryID, err := resolveCountry(ctx, tx, cache, r.OriginCountry)
		if err != nil {
			return err
		}
		botanistID, err := resolveBotanist(ctx, tx, cache, r.BotanistName, r.BotanistEmail, r.BotanistPhone)
		if err != nil {
			return err
		}
		plantID, err := resolvePlant(ctx, tx, cache, r.PlantName, r.ScientificName)
		if err != nil {
			return err
		}
		locationID, err := resolveLocation(ctx, tx, cache, r.OriginCity, countryID, r.Longitude, r.Latitude)
		if err != nil {
			return err
		}
		imageID, err := resolveImage(ctx, tx, cache, r.License, r.LicenseName, r.LicenseURL, r.Thumbnail)
		if err != nil {
			return err
		}

		facts = append(facts, []any{
			plantID, botanistID, locationID, r.LastWatered,
			imageID, r.RecordingTaken, r.SoilMoisture, r.Temperature,
		})
	}

	// All dimension ids exist before any fact row is written, within the
	// same transaction, so the inserts can never dangle.
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"recording"}, recordingColumns, pgx.CopyFromRows(facts)); err != nil {
		return fmt.Errorf("insert recordings: %w", err)
	}
	return nil
}

// getOrCreate runs the shared resolution path: a lookup by natural key
// first, then an atomic insert-or-return-existing. The upsert form keeps two
// concurrent pipeline runs from ever minting two surrogate ids for one key.
func getOrCreate(ctx context.Context, tx loadTx, selectSQL string, selectArgs []any, insertSQL string, insertArgs []any) (int, error) {
	var id int
	err := tx.QueryRow(ctx, selectSQL, selectArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func resolveCountry(ctx context.Context, tx loadTx, cache *DimensionCache, name string) (int, error) {
	if id, ok := cache.countries[name]; ok {
		return id, nil
	}
	id, err := getOrCreate(ctx, tx,
		`SELECT country_id FROM country WHERE country_name = $1`, []any{name},
		`INSERT INTO country (country_name) VALUES ($1)
		 ON CONFLICT (country_name) DO UPDATE SET country_name = EXCLUDED.country_name
		 RETURNING country_id`, []any{name})
	if err != nil {
		return 0, fmt.Errorf("resolve country %q: %w", name, err)
	}
	cache.countries[name] = id
	return id, nil
}

func resolveBotanist(ctx context.Context, tx loadTx, cache *DimensionCache, name, email, phone string) (int, error) {
	if id, ok := cache.botanists[email]; ok {
		return id, nil
	}
	id, err := getOrCreate(ctx, tx,
		`SELECT botanist_id FROM botanist WHERE email = $1`, []any{email},
		`INSERT INTO botanist (botanist_name, email, phone) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING botanist_id`, []any{name, email, phone})
	if err != nil {
		return 0, fmt.Errorf("resolve botanist %q: %w", email, err)
	}
	cache.botanists[email] = id
	return id, nil
}

func resolvePlant(ctx context.Context, tx loadTx, cache *DimensionCache, commonName, scientificName string) (int, error) {
	if id, ok := cache.plants[commonName]; ok {
		return id, nil
	}
	id, err := getOrCreate(ctx, tx,
		`SELECT plant_id FROM plant WHERE common_name = $1`, []any{commonName},
		`INSERT INTO plant (common_name, scientific_name) VALUES ($1, $2)
		 ON CONFLICT (common_name) DO UPDATE SET common_name = EXCLUDED.common_name
		 RETURNING plant_id`, []any{commonName, scientificName})
	if err != nil {
		return 0, fmt.Errorf("resolve plant %q: %w", commonName, err)
	}
	cache.plants[commonName] = id
	return id, nil
}

func resolveLocation(ctx context.Context, tx loadTx, cache *DimensionCache, city string, countryID int, longitude, latitude *float64) (int, error) {
	key := locationKey{city: city, countryID: countryID}
	if id, ok := cache.locations[key]; ok {
		return id, nil
	}
	id, err := getOrCreate(ctx, tx,
		`SELECT origin_location_id FROM origin_location
		 WHERE origin_city_name = $1 AND country_id = $2`, []any{city, countryID},
		`INSERT INTO origin_location (origin_city_name, country_id, longitude, latitude)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (origin_city_name, country_id) DO UPDATE SET origin_city_name = EXCLUDED.origin_city_name
		 RETURNING origin_location_id`, []any{city, countryID, longitude, latitude})
	if err != nil {
		return 0, fmt.Errorf("resolve location %q: %w", city, err)
	}
	cache.locations[key] = id
	return id, nil
}

func resolveImage(ctx context.Context, tx loadTx, cache *DimensionCache, licence int, licenceName, licenceURL, thumbnail string) (int, error) {
	if id, ok := cache.images[licence]; ok {
		return id, nil
	}
	id, err := getOrCreate(ctx, tx,
		`SELECT image_id FROM plant_image WHERE licence = $1`, []any{licence},
		`INSERT INTO plant_image (licence, licence_name, licence_url, thumbnail)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (licence) DO UPDATE SET licence = EXCLUDED.licence
		 RETURNING image_id`, []any{licence, licenceName, licenceURL, thumbnail})
	if err != nil {
		return 0, fmt.Errorf("resolve image licence %d: %w", licence, err)
	}
	cache.images[licence] = id
	return id, nil
}
