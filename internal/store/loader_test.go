package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lnhm/plant-sensor-pipeline/internal/plants"
)

// fakeTx implements loadTx over in-memory dimension tables so the get-or-
// create path and the fact insert can be exercised without a database.
type fakeTx struct {
	countries map[string]int
	botanists map[string]int
	plants    map[string]int
	images    map[int]int
	locations map[string]int

	nextID int
	facts  [][]any
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		countries: make(map[string]int),
		botanists: make(map[string]int),
		plants:    make(map[string]int),
		images:    make(map[int]int),
		locations: make(map[string]int),
	}
}

type fakeRow struct {
	id  int
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = r.id
	return nil
}

func (f *fakeTx) lookup(table map[string]int, key string, insert bool) fakeRow {
	if id, ok := table[key]; ok {
		return fakeRow{id: id}
	}
	if !insert {
		return fakeRow{err: pgx.ErrNoRows}
	}
	f.nextID++
	table[key] = f.nextID
	return fakeRow{id: f.nextID}
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	insert := strings.HasPrefix(strings.TrimSpace(sql), "INSERT")

	switch {
	case strings.Contains(sql, " country "):
		return f.lookup(f.countries, args[0].(string), insert)
	case strings.Contains(sql, " botanist "):
		// Natural key is the email: args are (email) on select,
		// (name, email, phone) on insert.
		key := args[0].(string)
		if insert {
			key = args[1].(string)
		}
		return f.lookup(f.botanists, key, insert)
	case strings.Contains(sql, " plant "):
		return f.lookup(f.plants, args[0].(string), insert)
	case strings.Contains(sql, " plant_image "):
		licence := args[0].(int)
		if id, ok := f.images[licence]; ok {
			return fakeRow{id: id}
		}
		if !insert {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.nextID++
		f.images[licence] = f.nextID
		return fakeRow{id: f.nextID}
	case strings.Contains(sql, " origin_location"):
		key := fmt.Sprintf("%s:%d", args[0], args[1])
		return f.lookup(f.locations, key, insert)
	default:
		return fakeRow{err: fmt.Errorf("unexpected query: %s", sql)}
	}
}

func (f *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	var n int64
	for rowSrc.Next() {
		vals, err := rowSrc.Values()
		if err != nil {
			return n, err
		}
		f.facts = append(f.facts, vals)
		n++
	}
	return n, rowSrc.Err()
}

func testReadings() []plants.Reading {
	lat, lon := -42.99, -123.05
	soil, temp := 94.9, 15.4
	taken := time.Date(2026, 1, 27, 16, 8, 5, 0, time.UTC)

	shared := plants.Reading{
		BotanistName:   "Anna Davis",
		BotanistEmail:  "anna.davis@lnhm.co.uk",
		BotanistPhone:  "123",
		OriginCity:     "South Tina",
		OriginCountry:  "Nauru",
		Latitude:       &lat,
		Longitude:      &lon,
		License:        451,
		LicenseName:    "Universal",
		LicenseURL:     "license.com",
		Thumbnail:      "thumbnail.com",
		RecordingTaken: &taken,
		SoilMoisture:   &soil,
		Temperature:    &temp,
	}

	first := shared
	first.PlantID = 1
	first.PlantName = "Bird of paradise"
	first.ScientificName = "Heliconia schiedeana"

	second := shared
	second.PlantID = 2
	second.PlantName = "Cactus"
	second.ScientificName = "Pereskia grandifolia"

	return []plants.Reading{first, second}
}

func TestLoadIntoResolvesDimensionsOnce(t *testing.T) {
	tx := newFakeTx()
	readings := testReadings()

	if err := loadInto(context.Background(), tx, readings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tx.countries) != 1 || len(tx.botanists) != 1 || len(tx.locations) != 1 || len(tx.images) != 1 {
		t.Errorf("shared dimensions duplicated: countries=%d botanists=%d locations=%d images=%d",
			len(tx.countries), len(tx.botanists), len(tx.locations), len(tx.images))
	}
	if len(tx.plants) != 2 {
		t.Errorf("got %d plant rows, want 2", len(tx.plants))
	}
	if len(tx.facts) != 2 {
		t.Fatalf("got %d fact rows, want 2", len(tx.facts))
	}

	// Fact rows reference the resolved surrogate ids.
	if tx.facts[0][0] != tx.plants["Bird of paradise"] {
		t.Errorf("fact plant id = %v, want %d", tx.facts[0][0], tx.plants["Bird of paradise"])
	}
	if tx.facts[1][1] != tx.botanists["anna.davis@lnhm.co.uk"] {
		t.Errorf("fact botanist id = %v, want %d", tx.facts[1][1], tx.botanists["anna.davis@lnhm.co.uk"])
	}
}

func TestLoadIntoIsIdempotentForDimensions(t *testing.T) {
	tx := newFakeTx()
	readings := testReadings()

	for run := 0; run < 2; run++ {
		if err := loadInto(context.Background(), tx, readings); err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
	}

	// Dimension counts are stable across runs; fact counts are additive.
	if len(tx.plants) != 2 || len(tx.botanists) != 1 || len(tx.countries) != 1 {
		t.Errorf("dimensions duplicated on second run: plants=%d botanists=%d countries=%d",
			len(tx.plants), len(tx.botanists), len(tx.countries))
	}
	if len(tx.facts) != 4 {
		t.Errorf("got %d fact rows, want 4", len(tx.facts))
	}
}

func TestLoadIntoReusesCacheWithinARun(t *testing.T) {
	tx := newFakeTx()

	// Same plant twice in one batch: the second row must come from the
	// cache, so the fake still holds exactly one id per natural key.
	readings := testReadings()
	readings[1] = readings[0]

	if err := loadInto(context.Background(), tx, readings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tx.plants) != 1 {
		t.Errorf("got %d plant rows, want 1", len(tx.plants))
	}
	if len(tx.facts) != 2 {
		t.Errorf("got %d fact rows, want 2", len(tx.facts))
	}
}
