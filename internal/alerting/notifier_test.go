package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-edge/internal/model"
)

func sampleNote() Notification {
	return Notification{
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Opportunity: model.Opportunity{
			ID:        "polymarket:nfl-kc-buf",
			Title:     "Chiefs to beat Bills",
			Sport:     model.String("NFL"),
			Price:     model.Float(0.52),
			EVPercent: model.Float(0.1154),
		},
		EVPercent:    decimal.RequireFromString("0.1154"),
		ThresholdPct: decimal.NewFromInt(5),
		Channels:     []string{"telegram"},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	require.NoError(t, notifier.Notify(context.Background(), sampleNote()))

	assert.Equal(t, "chat", received["chat_id"])
	assert.Contains(t, received["text"], "Chiefs to beat Bills")
	assert.Contains(t, received["text"], "EV: 11.54% (threshold 5.00%)")
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	assert.Error(t, notifier.Notify(context.Background(), sampleNote()))
}

func TestTelegramNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	err := notifier.Notify(context.Background(), sampleNote())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, Notification) error {
	c.calls++
	return c.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &countingNotifier{err: errors.New("boom")}
	ok := &countingNotifier{}
	err := Multi{failing, ok, NewLogNotifier(zerolog.Nop())}.Notify(context.Background(), sampleNote())

	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestRenderMessageMissingFields(t *testing.T) {
	note := sampleNote()
	note.Opportunity.Sport = nil
	note.Opportunity.Price = nil
	msg := renderMessage(note)
	assert.Contains(t, msg, "Sport: -")
	assert.Contains(t, msg, "Price: -")
	assert.Contains(t, msg, "Observed: 2026-03-01T12:00:00Z UTC")
}
