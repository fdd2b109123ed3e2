package store

import (
	"context"
	"fmt"
	"time"
)

// RecordingRow is one fact row joined to its dimensions, as served to the
// dashboard-facing read API.
type RecordingRow struct {
	PlantID        int        `json:"plantId"`
	PlantName      string     `json:"plantName"`
	ScientificName string     `json:"scientificName"`
	BotanistName   string     `json:"botanistName"`
	BotanistEmail  string     `json:"botanistEmail"`
	OriginCity     string     `json:"originCity"`
	OriginCountry  string     `json:"originCountry"`
	LastWatered    *time.Time `json:"lastWatered"`
	RecordingTaken *time.Time `json:"recordingTaken"`
	SoilMoisture   *float64   `json:"soilMoisture"`
	Temperature    *float64   `json:"temperature"`
}

const recordingColumnsSQL = `
	       p.plant_id, p.common_name, p.scientific_name,
	       b.botanist_name, b.email,
	       ol.origin_city_name, c.country_name,
	       r.last_watered, r.recording_taken, r.soil_moisture, r.temperature`

const recordingJoinsSQL = `
	FROM recording r
	JOIN plant p ON p.plant_id = r.plant_id
	JOIN botanist b ON b.botanist_id = r.botanist_id
	JOIN origin_location ol ON ol.origin_location_id = r.origin_location_id
	JOIN country c ON c.country_id = ol.country_id`

// LatestRecordings returns the most recent recording for every plant.
func (s *Store) LatestRecordings(ctx context.Context) ([]RecordingRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (p.plant_id)`+recordingColumnsSQL+recordingJoinsSQL+`
		ORDER BY p.plant_id, r.recording_taken DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("query latest recordings: %w", err)
	}
	defer rows.Close()

	return scanRecordings(rows)
}

// PlantRecordings returns one plant's recordings between from and to,
// inclusive, oldest first.
func (s *Store) PlantRecordings(ctx context.Context, plantID int, from, to time.Time) ([]RecordingRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+recordingColumnsSQL+recordingJoinsSQL+`
		WHERE p.plant_id = $1 AND r.recording_taken BETWEEN $2 AND $3
		ORDER BY r.recording_taken`, plantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query plant recordings: %w", err)
	}
	defer rows.Close()

	return scanRecordings(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecordings(rows rowScanner) ([]RecordingRow, error) {
	var result []RecordingRow
	for rows.Next() {
		var r RecordingRow
		if err := rows.Scan(
			&r.PlantID, &r.PlantName, &r.ScientificName,
			&r.BotanistName, &r.BotanistEmail,
			&r.OriginCity, &r.OriginCountry,
			&r.LastWatered, &r.RecordingTaken, &r.SoilMoisture, &r.Temperature,
		); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
