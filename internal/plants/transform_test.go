package plants

import (
	"strings"
	"testing"
	"time"
)

func fullRecord() RawRecord {
	return RawRecord{
		PlantID:        8,
		Name:           "Bird of paradise",
		ScientificName: []string{"Heliconia schiedeana 'Fire and Ice'"},
		Botanist: &Botanist{
			Name:  "Anna Davis",
			Email: "anna.davis@lnhm.co.uk",
			Phone: "(601)561-8163x5240",
		},
		OriginLocation: &OriginLocation{
			City:      "South Tina",
			Country:   "United Arab Emirates",
			Latitude:  "-60.9363685",
			Longitude: "-152.763324",
		},
		Images: &Images{
			License:     float64(451),
			LicenseName: "Universal",
			LicenseURL:  "license.com",
			Thumbnail:   "thumbnail.com",
		},
		LastWatered:    "2026-01-27T14:47:07",
		RecordingTaken: "2026-01-27T16:04:39.600475",
		SoilMoisture:   95.0,
		Temperature:    16.0,
	}
}

func bareRecord() RawRecord {
	return RawRecord{
		PlantID: 9,
		Name:    "Cactus",
		Botanist: &Botanist{
			Name: "Virginia Phillips",
		},
		OriginLocation: &OriginLocation{
			City:      "Gambleshire",
			Country:   "Nauru",
			Latitude:  "-42.9962205",
			Longitude: "-123.053507",
		},
		LastWatered:    "2026-01-27T14:38:15",
		RecordingTaken: "2026-01-27T16:08:05.093205",
		SoilMoisture:   94.9,
		Temperature:    15.4,
	}
}

func TestFlattenPromotesNestedFields(t *testing.T) {
	row, err := flatten(fullRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if row.PlantID != 8 || row.PlantName != "Bird of paradise" {
		t.Errorf("unexpected plant identity: %+v", row)
	}
	if row.ScientificName != "Heliconia schiedeana 'Fire and Ice'" {
		t.Errorf("unexpected scientific name %q", row.ScientificName)
	}
	if row.BotanistName != "Anna Davis" || row.BotanistEmail != "anna.davis@lnhm.co.uk" {
		t.Errorf("unexpected botanist: %+v", row)
	}
	if row.OriginCity != "South Tina" || row.OriginCountry != "United Arab Emirates" {
		t.Errorf("unexpected origin: %+v", row)
	}
	if row.Latitude == nil || *row.Latitude != -60.9363685 {
		t.Errorf("latitude not coerced: %v", row.Latitude)
	}
	if row.License != 451 || row.LicenseName != "Universal" {
		t.Errorf("unexpected image fields: %+v", row)
	}

	wantWatered := time.Date(2026, 1, 27, 14, 47, 7, 0, time.UTC)
	if row.LastWatered == nil || !row.LastWatered.Equal(wantWatered) {
		t.Errorf("last watered = %v, want %v", row.LastWatered, wantWatered)
	}
	if row.RecordingTaken == nil || row.RecordingTaken.Nanosecond() != 600475000 {
		t.Errorf("recording taken lost fractional seconds: %v", row.RecordingTaken)
	}
}

func TestFlattenFillsSentinels(t *testing.T) {
	row, err := flatten(bareRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, got := range map[string]string{
		"scientific name": row.ScientificName,
		"email":           row.BotanistEmail,
		"phone":           row.BotanistPhone,
		"licence name":    row.LicenseName,
		"licence url":     row.LicenseURL,
		"thumbnail":       row.Thumbnail,
	} {
		if got != Sentinel {
			t.Errorf("%s = %q, want %q", name, got, Sentinel)
		}
	}
	if row.License != 0 {
		t.Errorf("licence id = %d, want 0", row.License)
	}
}

func TestFlattenAbsorbsMalformedValues(t *testing.T) {
	rec := fullRecord()
	rec.OriginLocation.Latitude = "not-a-number"
	rec.Temperature = "warm"
	rec.LastWatered = "yesterday"

	row, err := flatten(rec)
	if err != nil {
		t.Fatalf("malformed fields should not fail flatten: %v", err)
	}
	if row.Latitude != nil {
		t.Errorf("latitude = %v, want nil", *row.Latitude)
	}
	if row.Temperature != nil {
		t.Errorf("temperature = %v, want nil", *row.Temperature)
	}
	if row.LastWatered != nil {
		t.Errorf("last watered = %v, want nil", *row.LastWatered)
	}
}

func TestFlattenDropsNegativeSoilMoisture(t *testing.T) {
	rec := fullRecord()
	rec.SoilMoisture = -3.5

	row, err := flatten(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.SoilMoisture != nil {
		t.Errorf("negative soil moisture kept: %v", *row.SoilMoisture)
	}
}

func TestFlattenRequiresStructuralFields(t *testing.T) {
	rec := fullRecord()
	rec.Botanist = nil
	if _, err := flatten(rec); err == nil || !strings.Contains(err.Error(), "botanist") {
		t.Errorf("expected missing-botanist error, got %v", err)
	}

	rec = fullRecord()
	rec.OriginLocation = nil
	if _, err := flatten(rec); err == nil {
		t.Error("expected missing-origin error")
	}

	rec = fullRecord()
	rec.Name = ""
	if _, err := flatten(rec); err == nil {
		t.Error("expected missing-name error")
	}
}

func TestDropOutliersExcludesDistantRows(t *testing.T) {
	rows := make([]Reading, 0, 11)
	for i := 0; i < 10; i++ {
		v := 1.0
		rows = append(rows, Reading{PlantID: i + 1, SoilMoisture: &v, Temperature: &v})
	}
	outlier := 50.0
	rows = append(rows, Reading{PlantID: 11, SoilMoisture: &outlier, Temperature: &outlier})

	kept := dropOutliers(rows)

	if len(kept) != 10 {
		t.Fatalf("kept %d rows, want 10", len(kept))
	}
	for i, r := range kept {
		if r.PlantID != i+1 {
			t.Errorf("row %d has plant id %d; order not preserved", i, r.PlantID)
		}
	}
}

func TestDropOutliersDropsMissingMeasurements(t *testing.T) {
	v := 1.0
	rows := []Reading{
		{PlantID: 1, SoilMoisture: &v, Temperature: &v},
		{PlantID: 2, SoilMoisture: nil, Temperature: &v},
		{PlantID: 3, SoilMoisture: &v, Temperature: &v},
	}

	kept := dropOutliers(rows)
	if len(kept) != 2 {
		t.Fatalf("kept %d rows, want 2", len(kept))
	}
	if kept[0].PlantID != 1 || kept[1].PlantID != 3 {
		t.Errorf("wrong rows kept: %+v", kept)
	}
}

func TestDropOutliersPassesTinyBatches(t *testing.T) {
	v := 42.0
	rows := []Reading{{PlantID: 1, SoilMoisture: &v, Temperature: &v}}

	kept := dropOutliers(rows)
	if len(kept) != 1 {
		t.Fatalf("kept %d rows, want 1: deviation is undefined for a single value", len(kept))
	}
}

func TestCleanEndToEnd(t *testing.T) {
	rows, err := Clean([]RawRecord{fullRecord(), bareRecord()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].PlantName != "Bird of paradise" || rows[1].PlantName != "Cactus" {
		t.Errorf("rows out of order: %+v", rows)
	}
}

func TestCleanPropagatesStructuralErrors(t *testing.T) {
	rec := fullRecord()
	rec.Botanist = nil
	if _, err := Clean([]RawRecord{rec}); err == nil {
		t.Error("expected error for structurally invalid record")
	}
}
