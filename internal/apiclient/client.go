package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polymarket-edge/internal/model"
	"polymarket-edge/internal/version"
)

const (
	// DefaultBaseURL is the local development endpoint.
	DefaultBaseURL = "http://localhost:8000"

	opportunitiesPath = "api/opportunities"
	feedPath          = "api/opportunities/meta"
	oddsPath          = "api/odds/"
	tracePath         = "api/debug/opportunity/"
	healthPath        = "health"

	maxBodyBytes = 32 << 20
)

// OpportunityFetcher is what the list view-model needs from the API.
type OpportunityFetcher interface {
	FetchOpportunities(ctx context.Context) ([]model.Opportunity, error)
}

// Options parameterise the client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// DefaultOptions returns two retries 300ms apart and a 15s per-attempt timeout.
func DefaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		Timeout:    15 * time.Second,
		Retries:    2,
		RetryDelay: 300 * time.Millisecond,
	}
}

// Client fetches opportunities and odds from the edge API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL *url.URL
}

// New constructs a client. An unparsable base URL is reported here rather
// than on the first request.
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "polyedge/" + version.Version
	}

	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", raw)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	// Copy so the per-attempt timeout never leaks into a shared client.
	hc := *httpClient
	hc.Timeout = opts.Timeout

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "api_client").Logger(),
		client:  &hc,
		baseURL: base,
	}, nil
}

// BaseURL reports the resolved base URL.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

// FetchOpportunities returns GET /api/opportunities.
func (c *Client) FetchOpportunities(ctx context.Context) ([]model.Opportunity, error) {
	var out []model.Opportunity
	if err := c.get(ctx, opportunitiesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchOpportunitiesMeta returns the opportunities together with feed freshness.
func (c *Client) FetchOpportunitiesMeta(ctx context.Context) (model.Feed, error) {
	var out model.Feed
	if err := c.get(ctx, feedPath, &out); err != nil {
		return model.Feed{}, err
	}
	return out, nil
}

// FetchOdds returns GET /api/odds/{sport}.
func (c *Client) FetchOdds(ctx context.Context, sport string) ([]model.EventLines, error) {
	sport = strings.TrimSpace(sport)
	if sport == "" {
		return nil, fmt.Errorf("sport is required")
	}
	var out []model.EventLines
	if err := c.get(ctx, oddsPath+url.PathEscape(sport), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchOpportunityTrace returns the debug trace of one opportunity.
// A missing id yields an error matching ErrNotFound.
func (c *Client) FetchOpportunityTrace(ctx context.Context, id string) (model.Trace, error) {
	if strings.TrimSpace(id) == "" {
		return model.Trace{}, fmt.Errorf("opportunity id is required")
	}
	var out model.Trace
	if err := c.get(ctx, tracePath+url.PathEscape(id), &out); err != nil {
		return model.Trace{}, err
	}
	return out, nil
}

// Health returns GET /health.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	var out model.Health
	if err := c.get(ctx, healthPath, &out); err != nil {
		return model.Health{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With().Str("path", "/"+path).Str("request_id", requestID).Logger()

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		payload, err := c.do(req)
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("request attempt failed")
			return nil, err
		}
		return payload, nil
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("retrying request")
	}

	payload, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryDelay)),
		backoff.WithMaxTries(uint(c.opts.Retries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		logger.Error().Err(err).Int("attempts", attempt).Msg("request failed")
		return err
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		logger.Error().Err(err).Msg("response did not match schema")
		return &DecodeError{Path: "/" + path, Err: err}
	}
	logger.Debug().Int("attempts", attempt).Int("bytes", len(payload)).Msg("request succeeded")
	return nil
}

// do performs one attempt. Transport and status failures are returned as
// retryable errors; a cancelled caller context stops the loop.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

var _ OpportunityFetcher = (*Client)(nil)
