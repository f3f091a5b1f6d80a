package model

import (
	"time"
)

// DefaultStaleAfter is how old updated_at may be before a record without an
// explicit is_stale flag counts as stale.
const DefaultStaleAfter = 15 * time.Minute

// Opportunity is a per-market expected-value edge as served by the edge API.
type Opportunity struct {
	ID              string   `json:"id" yaml:"id"`
	Source          string   `json:"source" yaml:"source"`
	Title           string   `json:"title" yaml:"title"`
	Sport           *string  `json:"sport,omitempty" yaml:"sport,omitempty"`
	EventID         *string  `json:"event_id,omitempty" yaml:"event_id,omitempty"`
	MarketID        *string  `json:"market_id,omitempty" yaml:"market_id,omitempty"`
	YesProbability  *float64 `json:"yes_probability,omitempty" yaml:"yes_probability,omitempty"`
	Price           *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	EVUSDPerShare   *float64 `json:"ev_usd_per_share,omitempty" yaml:"ev_usd_per_share,omitempty"`
	EVPercent       *float64 `json:"ev_percent,omitempty" yaml:"ev_percent,omitempty"`
	UpdatedAt       *string  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	ComparisonBasis *string  `json:"comparison_basis,omitempty" yaml:"comparison_basis,omitempty"`
	IsStale         *bool    `json:"is_stale,omitempty" yaml:"is_stale,omitempty"`
}

// SportTag returns the sport or "" when the server did not tag one.
func (o Opportunity) SportTag() string {
	if o.Sport == nil {
		return ""
	}
	return *o.Sport
}

// Updated parses updated_at. ok is false when it is missing or not ISO-8601.
func (o Opportunity) Updated() (time.Time, bool) {
	if o.UpdatedAt == nil {
		return time.Time{}, false
	}
	return ParseTimestamp(*o.UpdatedAt)
}

// Stale prefers the server's is_stale flag and otherwise derives staleness
// from updated_at. A record without a usable timestamp is stale.
func (o Opportunity) Stale(now time.Time, maxAge time.Duration) bool {
	if o.IsStale != nil {
		return *o.IsStale
	}
	ts, ok := o.Updated()
	if !ok {
		return true
	}
	return now.Sub(ts) > maxAge
}

// CompareEV orders two optional EV values descending with absent values last.
// It returns -1 when a ranks before b, 1 when after and 0 when they tie.
func CompareEV(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	default:
		return 0
	}
}

// ParseTimestamp accepts RFC 3339 with or without fractional seconds.
func ParseTimestamp(v string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Float returns a pointer to v. Handy for fixtures and tests.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
