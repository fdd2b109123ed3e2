package plants

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
)

// Source timestamps are timezone-naive; time.Parse accepts the fractional
// seconds some records carry even though the layout omits them.
const timestampLayout = "2006-01-02T15:04:05"

// Clean turns a batch of raw records into loadable readings: it flattens the
// nested payload, coerces types, fills sentinels for absent optional fields,
// and drops statistical outliers. Malformed individual values never fail the
// batch; a record missing its structurally required fields does.
func Clean(records []RawRecord) ([]Reading, error) {
	start := time.Now()

	rows := make([]Reading, 0, len(records))
	for _, rec := range records {
		row, err := flatten(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	kept := dropOutliers(rows)

	log.Printf("transform: cleaned %d records into %d rows in %s",
		len(records), len(kept), time.Since(start))

	return kept, nil
}

// flatten projects one raw record into a Reading. Optional nested objects
// are treated as empty so their fields default to sentinels; the botanist
// and origin-location objects are schema-required and have no such fallback.
func flatten(rec RawRecord) (Reading, error) {
	if rec.Name == "" {
		return Reading{}, fmt.Errorf("plant %d: missing name", rec.PlantID)
	}
	if rec.Botanist == nil {
		return Reading{}, fmt.Errorf("plant %d: missing botanist", rec.PlantID)
	}
	if rec.OriginLocation == nil {
		return Reading{}, fmt.Errorf("plant %d: missing origin location", rec.PlantID)
	}

	images := rec.Images
	if images == nil {
		images = &Images{}
	}

	soil := toFloat(rec.SoilMoisture)
	if soil != nil && *soil < 0 {
		// Negative soil moisture is physically impossible; treat as missing
		// rather than clamping to zero.
		soil = nil
	}

	return Reading{
		PlantID:        rec.PlantID,
		PlantName:      rec.Name,
		ScientificName: orSentinel(strings.Join(rec.ScientificName, "; ")),
		BotanistName:   rec.Botanist.Name,
		BotanistEmail:  orSentinel(rec.Botanist.Email),
		BotanistPhone:  orSentinel(rec.Botanist.Phone),
		OriginCity:     rec.OriginLocation.City,
		OriginCountry:  rec.OriginLocation.Country,
		Latitude:       toFloat(rec.OriginLocation.Latitude),
		Longitude:      toFloat(rec.OriginLocation.Longitude),
		License:        toInt(images.License),
		LicenseName:    orSentinel(images.LicenseName),
		LicenseURL:     orSentinel(images.LicenseURL),
		Thumbnail:      orSentinel(images.Thumbnail),
		LastWatered:    toTime(rec.LastWatered),
		RecordingTaken: toTime(rec.RecordingTaken),
		SoilMoisture:   soil,
		Temperature:    toFloat(rec.Temperature),
	}, nil
}

// dropOutliers retains rows whose soil moisture and temperature both fall
// within two sample standard deviations of the batch mean, inclusive. The
// thresholds are batch-relative by design; rows missing either measurement
// are dropped. Order is preserved.
func dropOutliers(rows []Reading) []Reading {
	soilMean, soilStd, soilOK := meanStd(rows, func(r Reading) *float64 { return r.SoilMoisture })
	tempMean, tempStd, tempOK := meanStd(rows, func(r Reading) *float64 { return r.Temperature })

	kept := make([]Reading, 0, len(rows))
	for _, r := range rows {
		if within(r.SoilMoisture, soilMean, soilStd, soilOK) &&
			within(r.Temperature, tempMean, tempStd, tempOK) {
			kept = append(kept, r)
		}
	}
	return kept
}

// meanStd returns the mean and sample standard deviation over the present
// values of one measure. ok is false when fewer than two values are present,
// where the deviation is undefined and the filter passes values through.
func meanStd(rows []Reading, value func(Reading) *float64) (mean, std float64, ok bool) {
	var vals []float64
	for _, r := range rows {
		if v := value(r); v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) < 2 {
		return 0, 0, false
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	std = math.Sqrt(sq / float64(len(vals)-1))

	return mean, std, true
}

func within(v *float64, mean, std float64, ok bool) bool {
	if v == nil {
		return false
	}
	if !ok {
		return true
	}
	return *v >= mean-2*std && *v <= mean+2*std
}

// orSentinel substitutes the placeholder for absent optional text.
func orSentinel(s string) string {
	if s == "" {
		return Sentinel
	}
	return s
}

// toFloat coerces a loosely typed source value to a float, returning nil for
// anything unparseable rather than failing the batch.
func toFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// toInt coerces the licence id, defaulting to 0 when absent or malformed.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// toTime parses a timezone-naive timestamp, returning nil when malformed.
func toTime(s string) *time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
