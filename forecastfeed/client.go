// Package forecastfeed fetches the solar production forecast (C17) that
// OptimizerService consumes as its forecast DataFrame. It is an HTTP client
// with the same request/decode idiom as the teacher's MET Norway client
// (meteo.Client), but domain-agnostic: it performs no irradiance physics —
// that precomputation is the out-of-scope external collaborator from the
// spec's §1 — and decodes a flat JSON time series rather than a weather
// symbol taxonomy.
package forecastfeed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/devskill-org/wh-mpc/service"
)

// Location is the latitude/longitude/altitude the forecast is requested
// for.
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  *int
}

// APIError represents an error response from the forecast feed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forecast feed error %d: %s", e.StatusCode, e.Message)
}

// sample is the wire shape of one point in the feed's JSON array.
type sample struct {
	Time   time.Time `json:"time"`
	ValueW float64   `json:"value_w"`
}

// Client fetches a solar-production time series from a configured HTTP
// endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient builds a Client against baseURL with a 30s request timeout,
// mirroring meteo.NewClient's defaults.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

// NewClientWithHTTPClient builds a Client with a caller-supplied http.Client
// (useful for tests and custom transports/timeouts).
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL, userAgent: userAgent}
}

// Fetch retrieves the solar production forecast for loc over
// [start, start+horizon] and returns it as a service.ForecastSeries ready
// for OptimizerService.
func (c *Client) Fetch(loc Location, start time.Time, horizon time.Duration) (service.ForecastSeries, error) {
	reqURL, err := c.buildURL(loc, start, horizon)
	if err != nil {
		return service.ForecastSeries{}, fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return service.ForecastSeries{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.ForecastSeries{}, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return service.ForecastSeries{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return service.ForecastSeries{}, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var samples []sample
	if err := json.Unmarshal(body, &samples); err != nil {
		return service.ForecastSeries{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	series := service.ForecastSeries{
		Times:  make([]time.Time, len(samples)),
		Values: make([]float64, len(samples)),
	}
	for i, s := range samples {
		series.Times[i] = s.Time
		series.Values[i] = s.ValueW
	}
	return series, nil
}

func (c *Client) buildURL(loc Location, start time.Time, horizon time.Duration) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	query.Set("lat", formatFloat(loc.Latitude))
	query.Set("lon", formatFloat(loc.Longitude))
	if loc.Altitude != nil {
		query.Set("altitude", strconv.Itoa(*loc.Altitude))
	}
	query.Set("start", start.UTC().Format(time.RFC3339))
	query.Set("end", start.Add(horizon).UTC().Format(time.RFC3339))
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ValidateLocation checks that a Location's coordinates are physically
// valid.
func ValidateLocation(loc Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", loc.Longitude)
	}
	if loc.Altitude != nil && *loc.Altitude < 0 {
		return fmt.Errorf("altitude must be non-negative, got %d", *loc.Altitude)
	}
	return nil
}
