package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultFREDEndpoint is the FRED series observations API.
	DefaultFREDEndpoint = "https://api.stlouisfed.org/fred/series/observations"
	// DefaultSeriesID is the 3-month Treasury constant maturity rate.
	DefaultSeriesID = "DGS3MO"

	defaultTimeout = 10 * time.Second
	// FRED publishes "." for days without data, so look back a few observations.
	observationLimit = 10
)

// APIError is a non-200 response from the rate source.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// FREDClient fetches the latest observation of a FRED series.
type FREDClient struct {
	client   *http.Client
	logger   *logrus.Logger
	endpoint string
	apiKey   string
	seriesID string
}

var _ Provider = (*FREDClient)(nil)

// NewFREDClient creates a FRED client. Empty endpoint or seriesID use the defaults;
// a nil client gets a client with a 10s timeout.
func NewFREDClient(apiKey, endpoint, seriesID string, client *http.Client, logger *logrus.Logger) *FREDClient {
	if endpoint == "" {
		endpoint = DefaultFREDEndpoint
	}
	if seriesID == "" {
		seriesID = DefaultSeriesID
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FREDClient{
		client:   client,
		logger:   logger,
		endpoint: endpoint,
		apiKey:   apiKey,
		seriesID: seriesID,
	}
}

// SeriesID returns the series being tracked.
func (f *FREDClient) SeriesID() string {
	return f.seriesID
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Rate implements Provider. FRED reports percent; the returned rate is decimal.
func (f *FREDClient) Rate(ctx context.Context) (RateInfo, error) {
	params := url.Values{}
	params.Set("series_id", f.seriesID)
	params.Set("api_key", f.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", strconv.Itoa(observationLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return RateInfo{}, fmt.Errorf("building FRED request: %w", err)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "options-calculator/1.0 (+fred)")

	resp, err := f.client.Do(req)
	if err != nil {
		return RateInfo{}, fmt.Errorf("requesting FRED series %s: %w", f.seriesID, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.WithError(err).Warn("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return RateInfo{}, &APIError{Status: resp.StatusCode, Body: "failed to read error body"}
		}
		return RateInfo{}, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return RateInfo{}, fmt.Errorf("decoding FRED response: %w", err)
	}

	for _, obs := range parsed.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		pct, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			f.logger.WithFields(logrus.Fields{
				"series": f.seriesID,
				"date":   obs.Date,
				"value":  obs.Value,
			}).Warn("Skipping unparseable observation")
			continue
		}
		info := newRateInfo(pct/100, SourceFRED, time.Now())
		info.SeriesID = f.seriesID
		info.ObservedOn = obs.Date
		return info, nil
	}

	return RateInfo{}, fmt.Errorf("series %s: %w", f.seriesID, ErrNoObservation)
}
