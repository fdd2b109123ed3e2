package plants

import (
	"time"
)

// Sentinel is the placeholder stored for optional text fields that are
// absent from the source payload, so downstream inserts never see NULL text.
const Sentinel = "None"

// Botanist is the nested botanist object on a raw record.
type Botanist struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// OriginLocation is the nested origin-location object on a raw record.
// Latitude and longitude arrive as strings (and occasionally garbage), so
// they stay loosely typed until coercion.
type OriginLocation struct {
	City      string `json:"city"`
	Country   string `json:"country"`
	Latitude  any    `json:"latitude"`
	Longitude any    `json:"longitude"`
}

// Images is the nested image/license object on a raw record.
type Images struct {
	License     any    `json:"license"`
	LicenseName string `json:"license_name"`
	LicenseURL  string `json:"license_url"`
	Thumbnail   string `json:"thumbnail"`
}

// RawRecord is one entity as returned by the plant API. The optional nested
// objects decode to nil when absent; measurement fields are loosely typed
// because the source occasionally emits them as strings.
type RawRecord struct {
	PlantID        int             `json:"plant_id"`
	Name           string          `json:"name"`
	ScientificName []string        `json:"scientific_name"`
	Botanist       *Botanist       `json:"botanist"`
	OriginLocation *OriginLocation `json:"origin_location"`
	Images         *Images         `json:"images"`
	LastWatered    string          `json:"last_watered"`
	RecordingTaken string          `json:"recording_taken"`
	SoilMoisture   any             `json:"soil_moisture"`
	Temperature    any             `json:"temperature"`

	// Error is set by the source when the identifier does not exist.
	Error string `json:"error"`
}

// Reading is one flattened, coerced row ready for loading. Nil pointers mark
// values that were absent or failed coercion; optional text carries the
// Sentinel instead of being empty.
type Reading struct {
	PlantID        int
	PlantName      string
	ScientificName string
	BotanistName   string
	BotanistEmail  string
	BotanistPhone  string
	OriginCity     string
	OriginCountry  string
	Latitude       *float64
	Longitude      *float64
	License        int
	LicenseName    string
	LicenseURL     string
	Thumbnail      string
	LastWatered    *time.Time
	RecordingTaken *time.Time
	SoilMoisture   *float64
	Temperature    *float64
}
