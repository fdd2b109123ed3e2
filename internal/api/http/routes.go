package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/lnhm/plant-sensor-pipeline/internal/store"
)

var validate = validator.New()

// RecordingSource is the read-only view of the store the API serves. The
// pipeline owns all writes; these routes exist for dashboard-style
// consumers of the same schema.
type RecordingSource interface {
	LatestRecordings(ctx context.Context) ([]store.RecordingRow, error)
	PlantRecordings(ctx context.Context, plantID int, from, to time.Time) ([]store.RecordingRow, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, src RecordingSource) {
	v1 := app.Group("/api/v1")

	v1.Get("/recordings/latest", func(c *fiber.Ctx) error {
		rows, err := src.LatestRecordings(c.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no recordings available")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch recordings")
		}
		return c.JSON(fiber.Map{"recordings": rows})
	})

	v1.Get("/plants/:id/recordings", func(c *fiber.Ctx) error {
		plantID, err := c.ParamsInt("id")
		if err != nil || plantID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "plant id must be a positive integer")
		}

		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := src.PlantRecordings(c.Context(), plantID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no recordings for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch recordings")
		}

		return c.JSON(fiber.Map{
			"plantId":    plantID,
			"from":       req.From,
			"to":         req.To,
			"recordings": rows,
		})
	})
}

// rangeQuery holds query parameters for the per-plant history endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
