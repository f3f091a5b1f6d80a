package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-edge/internal/config"
	"polymarket-edge/internal/devserver"
	"polymarket-edge/internal/model"
)

type testApp struct {
	*App
	out  *bytes.Buffer
	logs *bytes.Buffer
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	return newTestAppWith(t, devserver.SampleFixtures(time.Now()))
}

func newTestAppWith(t *testing.T, fixtures *devserver.Fixtures) testApp {
	t.Helper()
	srv := httptest.NewServer(devserver.New(fixtures, devserver.Options{}, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL:    srv.URL,
			Timeout:    2 * time.Second,
			RetryDelay: 10 * time.Millisecond,
		},
		Settings: config.SettingsConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(t.TempDir(), "settings.yaml"),
		},
		Watch:    config.WatchConfig{AlertCooldown: time.Minute},
		Alerting: config.AlertingConfig{Enabled: true, Channels: []string{"log"}},
		Export:   config.ExportConfig{MaxRows: 1000},
	}

	logs := &bytes.Buffer{}
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.New(logs))
	a.Out = out
	return testApp{App: a, out: out, logs: logs}
}

func TestShowPrintsSortedTable(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Show(context.Background(), ShowOptions{}))
	out := a.out.String()
	assert.Contains(t, out, "4 of 4 opportunities (sport: All, min EV: 0%)")
	masters := bytes.Index(a.out.Bytes(), []byte("Scheffler wins the Masters?"))
	chiefs := bytes.Index(a.out.Bytes(), []byte("Chiefs beat Bills?"))
	warriors := bytes.Index(a.out.Bytes(), []byte("Warriors beat Nuggets?"))
	require.True(t, masters > 0 && chiefs > 0 && warriors > 0)
	assert.Less(t, masters, chiefs)
	assert.Less(t, chiefs, warriors)
	assert.Contains(t, out, "17.65%")
	assert.NotContains(t, out, "sportsbook_fair", "basis column is developer-only")
}

func TestShowFiltersBySportAndThreshold(t *testing.T) {
	a := newTestApp(t)
	minEV := 5.0

	require.NoError(t, a.Show(context.Background(), ShowOptions{Sport: "NBA", MinEVPercent: &minEV}))
	assert.Contains(t, a.out.String(), "no opportunities match")

	a.out.Reset()
	require.NoError(t, a.Show(context.Background(), ShowOptions{MinEVPercent: &minEV, Limit: 1}))
	assert.Contains(t, a.out.String(), "1 of 4 opportunities")
	assert.Contains(t, a.out.String(), "Scheffler")
	assert.NotContains(t, a.out.String(), "Chiefs")
}

func TestSettingsPersistAcrossCommands(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.SettingsSet(ctx, "default_ev_percent", "10"))
	assert.Equal(t, "default_ev_percent = 10\n", a.out.String())

	a.out.Reset()
	require.NoError(t, a.SettingsGet(ctx, "default_ev_percent"))
	assert.Equal(t, "10\n", a.out.String())

	a.out.Reset()
	require.NoError(t, a.Show(ctx, ShowOptions{}))
	assert.Contains(t, a.out.String(), "2 of 4 opportunities (sport: All, min EV: 10%)")

	assert.Error(t, a.SettingsSet(ctx, "fee_cushion", "0.5"))
	assert.Error(t, a.SettingsSet(ctx, "colour", "blue"))

	a.out.Reset()
	require.NoError(t, a.SettingsList(ctx))
	assert.Contains(t, a.out.String(), "refresh_interval")
	assert.Contains(t, a.out.String(), "60..3600 step 60")
}

func TestTraceRequiresDeveloperMode(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.Trace(ctx, "polymarket:nfl-kc-buf"), ErrDeveloperModeOff)

	require.NoError(t, a.SettingsSet(ctx, "developer_mode", "true"))
	a.out.Reset()
	require.NoError(t, a.Trace(ctx, "polymarket:nfl-kc-buf"))
	assert.Contains(t, a.out.String(), `"fair_source": "draftkings"`)

	assert.ErrorContains(t, a.Trace(ctx, "missing"), "not found")
}

func TestOddsAndStatus(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.Odds(ctx, "americanfootball_nfl"))
	assert.Contains(t, a.out.String(), "+110")
	assert.Contains(t, a.out.String(), "-130")

	a.out.Reset()
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, a.out.String(), "(ok)")
	assert.Contains(t, a.out.String(), "opportunities: 4")
}

func TestExportWritesCSVAndPNG(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "edges.csv")
	pngPath := filepath.Join(dir, "out", "edges.png")
	minEV := 1.0

	require.NoError(t, a.Export(context.Background(), ExportOptions{
		CSVPath:      csvPath,
		PNGPath:      pngPath,
		MinEVPercent: &minEV,
	}))

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "polymarket:pga-masters", records[1][0])
	assert.Equal(t, "polymarket:nfl-kc-buf", records[2][0])
	assert.Equal(t, "polymarket:nba-bos-lal", records[3][0])

	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportNeedsATarget(t *testing.T) {
	a := newTestApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestSimulateAlertLogsNotification(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	err := a.SimulateAlert(ctx, SimulateOptions{Title: "Test market", EVPercent: 12})
	assert.ErrorContains(t, err, "positive threshold")

	require.NoError(t, a.SettingsSet(ctx, "default_ev_percent", "5"))
	require.NoError(t, a.SimulateAlert(ctx, SimulateOptions{Title: "Test market", Sport: "NFL", EVPercent: 12, Price: 0.4}))
	assert.Contains(t, a.logs.String(), "Test market")
	assert.Contains(t, a.logs.String(), "12.00%")
}

func TestSimulateAlertNeedsAlerting(t *testing.T) {
	a := newTestApp(t)
	a.Config.Alerting.Enabled = false
	assert.Error(t, a.SimulateAlert(context.Background(), SimulateOptions{EVPercent: 10}))
}

func TestSnapshotExportNeedsDatabase(t *testing.T) {
	a := newTestApp(t)
	err := a.Export(context.Background(), ExportOptions{CSVPath: filepath.Join(t.TempDir(), "x.csv"), FromSnapshots: true})
	assert.ErrorContains(t, err, "database not configured")
}

func TestShowLimitPagesPastFirstWindow(t *testing.T) {
	fixtures := &devserver.Fixtures{}
	for i := 0; i < 180; i++ {
		fixtures.Opportunities = append(fixtures.Opportunities, model.Opportunity{
			ID: fmt.Sprintf("opp-%03d", i), Source: "polymarket", Title: fmt.Sprintf("Market %03d", i),
			EVPercent: model.Float(float64(500-i) / 1000),
		})
	}
	a := newTestAppWith(t, fixtures)
	ctx := context.Background()

	require.NoError(t, a.Show(ctx, ShowOptions{Limit: 120}))
	assert.Contains(t, a.out.String(), "120 of 180 opportunities")
	assert.Contains(t, a.out.String(), "Market 119")
	assert.NotContains(t, a.out.String(), "Market 120")

	a.out.Reset()
	require.NoError(t, a.Show(ctx, ShowOptions{}))
	assert.Contains(t, a.out.String(), "50 of 180 opportunities")

	a.out.Reset()
	require.NoError(t, a.Show(ctx, ShowOptions{Limit: 500}))
	assert.Contains(t, a.out.String(), "180 of 180 opportunities")
}
