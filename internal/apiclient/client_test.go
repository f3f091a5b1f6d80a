package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-edge/internal/devserver"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.BaseURL = baseURL
	opts.RetryDelay = time.Millisecond
	opts.Timeout = 2 * time.Second
	c, err := New(opts, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func flakyServer(t *testing.T, failures int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if int(n) <= failures {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"detail":"upstream unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchOpportunitiesDecodesOptionalFields(t *testing.T) {
	srv, _ := flakyServer(t, 0, `[
		{"id":"1","source":"polymarket","title":"a","sport":"NFL","ev_percent":0.1,"price":0.5,"is_stale":false},
		{"id":"2","source":"polymarket","title":"b","ev_percent":null}
	]`)

	opps, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 2)

	assert.Equal(t, "NFL", opps[0].SportTag())
	require.NotNil(t, opps[0].EVPercent)
	assert.InDelta(t, 0.1, *opps[0].EVPercent, 1e-9)
	require.NotNil(t, opps[0].IsStale)
	assert.False(t, *opps[0].IsStale)

	assert.Nil(t, opps[1].Sport)
	assert.Nil(t, opps[1].EVPercent, "null must stay absent, not zero")
	assert.Nil(t, opps[1].Price)
}

func TestFetchOpportunitiesRecoversAfterTwoFailures(t *testing.T) {
	srv, calls := flakyServer(t, 2, `[{"id":"1","source":"s","title":"t"}]`)

	opps, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.NoError(t, err)
	assert.Len(t, opps, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchOpportunitiesSurfacesLastErrorAfterThreeFailures(t *testing.T) {
	srv, calls := flakyServer(t, 3, `[]`)

	_, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream unavailable", statusErr.Message)
}

func TestDecodeErrorFailsFast(t *testing.T) {
	srv, calls := flakyServer(t, 0, `{"not":"a list"}`)

	_, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "/api/opportunities", decodeErr.Path)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTransportErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	opps, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opps)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetriesReuseTheSameRequest(t *testing.T) {
	var mu sync.Mutex
	var ids, paths []string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(t, srv.URL).FetchOpportunities(context.Background())
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, []string{"/api/opportunities", "/api/opportunities"}, paths)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv, calls := flakyServer(t, 100, `[]`)

	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	opts.RetryDelay = time.Hour
	c, err := New(opts, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.FetchOpportunities(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL+"/edge/")
	_, err := c.FetchOdds(context.Background(), "basketball_nba")
	require.NoError(t, err)
	assert.Equal(t, "/edge/api/odds/basketball_nba", got)
	assert.Equal(t, srv.URL+"/edge", c.BaseURL())
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	opts := DefaultOptions()
	opts.BaseURL = "ftp://example.com"
	_, err := New(opts, zerolog.Nop())
	assert.Error(t, err)
}

func TestAgainstDevServer(t *testing.T) {
	fixtures := devserver.SampleFixtures(time.Now())
	dev := devserver.New(fixtures, devserver.Options{FailFirst: 2}, zerolog.Nop())
	srv := httptest.NewServer(dev.Handler())
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL)
	ctx := context.Background()

	opps, err := c.FetchOpportunities(ctx)
	require.NoError(t, err, "two injected failures fit in the retry budget")
	assert.Len(t, opps, len(fixtures.Opportunities))
	for _, opp := range opps {
		assert.NotNil(t, opp.IsStale)
	}

	feed, err := c.FetchOpportunitiesMeta(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, feed.AsOf)
	assert.NotNil(t, feed.StalenessSeconds)
	assert.Len(t, feed.Items, len(fixtures.Opportunities))

	lines, err := c.FetchOdds(ctx, "americanfootball_nfl")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Lines, 2)
	require.NotNil(t, lines[0].Lines[0].AmericanOdds)
	assert.Equal(t, -130, *lines[0].Lines[0].AmericanOdds)

	trace, err := c.FetchOpportunityTrace(ctx, "polymarket:nfl-kc-buf")
	require.NoError(t, err)
	assert.Equal(t, "polymarket:nfl-kc-buf", trace.ID)
	assert.Equal(t, "draftkings", trace.TraceInfo["fair_source"])

	_, err = c.FetchOpportunityTrace(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 15*time.Second, opts.Timeout)
	assert.Equal(t, 2, opts.Retries)
	assert.Equal(t, 300*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, DefaultBaseURL, opts.BaseURL)
}

func TestSlowAttemptTimesOutAndIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","source":"s","title":"t"}]`))
	}))
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	opts.Timeout = 100 * time.Millisecond
	opts.RetryDelay = time.Millisecond
	c, err := New(opts, zerolog.Nop())
	require.NoError(t, err)

	start := time.Now()
	opps, err := c.FetchOpportunities(context.Background())
	require.NoError(t, err)
	assert.Len(t, opps, 1)
	assert.EqualValues(t, 2, calls.Load())
	assert.Less(t, time.Since(start), time.Second, "first attempt must be cut off by the per-attempt timeout")
}
