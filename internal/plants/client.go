package plants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultEndpoint is the plant sensor API; individual entities live at
// <endpoint><integer-id>.
const DefaultEndpoint = "https://tools.sigmalabs.co.uk/api/plants/"

// ErrPlantNotFound marks a definitive "no such identifier" answer from the
// source. It is the only fetch outcome that counts toward extraction
// termination; transient failures surface as ordinary errors instead.
var ErrPlantNotFound = errors.New("plant not found")

// Client fetches raw plant records from the sensor API.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client against the given endpoint. An empty baseURL
// falls back to DefaultEndpoint.
func NewClient(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plant-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// FetchPlant retrieves the raw record for a single identifier. It returns
// ErrPlantNotFound when the source signals absence, either with a 404 or
// with an `error` field in the payload.
func (c *Client) FetchPlant(ctx context.Context, id int) (RawRecord, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s%d", c.baseURL, id), nil)
	}

	resp, err := doRequestWithRetry(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return RawRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return RawRecord{}, ErrPlantNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RawRecord{}, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	var rec RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return RawRecord{}, fmt.Errorf("decode plant %d: %w", id, err)
	}
	if rec.Error != "" {
		return RawRecord{}, ErrPlantNotFound
	}

	return rec, nil
}
