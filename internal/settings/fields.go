package settings

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Persisted keys.
const (
	KeyFeeCushion       = "fee_cushion"
	KeyRefreshInterval  = "refresh_interval"
	KeyDefaultEVPercent = "default_ev_percent"
	KeyDeveloperMode    = "developer_mode"
)

// Kind distinguishes numeric settings from toggles.
type Kind int

const (
	KindNumber Kind = iota
	KindToggle
)

// Field describes one setting: its key, bounds and the step the UI uses to
// adjust it.
type Field struct {
	Key     string
	Label   string
	Kind    Kind
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

var fields = []Field{
	{Key: KeyFeeCushion, Label: "Fee cushion", Kind: KindNumber, Min: 0, Max: 0.1, Step: 0.001, Default: 0.025},
	{Key: KeyRefreshInterval, Label: "Refresh interval (s)", Kind: KindNumber, Min: 60, Max: 3600, Step: 60, Default: 600},
	{Key: KeyDefaultEVPercent, Label: "Default EV threshold (%)", Kind: KindNumber, Min: 0, Max: 50, Step: 0.5, Default: 0},
	{Key: KeyDeveloperMode, Label: "Developer mode", Kind: KindToggle},
}

// Fields lists every setting in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup finds the field for key.
func Lookup(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Clamp bounds v to the field's range.
func (f Field) Clamp(v float64) float64 {
	return math.Min(f.Max, math.Max(f.Min, v))
}

// Nudge moves v by steps increments of Step, snapped to the step grid and
// clamped to the range.
func (f Field) Nudge(v float64, steps int) float64 {
	if f.Step <= 0 {
		return f.Clamp(v)
	}
	next := math.Round(v/f.Step+float64(steps)) * f.Step
	return f.Clamp(math.Round(next*1e9) / 1e9)
}

func (f Field) check(v float64) error {
	if math.IsNaN(v) || v < f.Min || v > f.Max {
		return fmt.Errorf("%w: %s must be within [%g, %g], got %g", ErrOutOfRange, f.Key, f.Min, f.Max, v)
	}
	return nil
}

// Values is a snapshot of every setting.
type Values struct {
	FeeCushion             float64 `json:"fee_cushion"`
	RefreshIntervalSeconds float64 `json:"refresh_interval"`
	DefaultEVPercent       float64 `json:"default_ev_percent"`
	DeveloperMode          bool    `json:"developer_mode"`
}

// Defaults returns the values used when nothing is persisted.
func Defaults() Values {
	return Values{
		FeeCushion:             0.025,
		RefreshIntervalSeconds: 600,
		DefaultEVPercent:       0,
		DeveloperMode:          false,
	}
}

// RefreshInterval converts the stored seconds to a duration.
func (v Values) RefreshInterval() time.Duration {
	return time.Duration(v.RefreshIntervalSeconds * float64(time.Second))
}

// Get renders one value in its persisted form.
func (v Values) Get(key string) (string, error) {
	switch key {
	case KeyFeeCushion:
		return formatFloat(v.FeeCushion), nil
	case KeyRefreshInterval:
		return formatFloat(v.RefreshIntervalSeconds), nil
	case KeyDefaultEVPercent:
		return formatFloat(v.DefaultEVPercent), nil
	case KeyDeveloperMode:
		return strconv.FormatBool(v.DeveloperMode), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Number returns a numeric setting. ok is false for toggles and unknown keys.
func (v Values) Number(key string) (value float64, ok bool) {
	switch key {
	case KeyFeeCushion:
		return v.FeeCushion, true
	case KeyRefreshInterval:
		return v.RefreshIntervalSeconds, true
	case KeyDefaultEVPercent:
		return v.DefaultEVPercent, true
	default:
		return 0, false
	}
}

// with returns a copy with key set from its persisted form.
func (v Values) with(key, raw string) (Values, error) {
	field, ok := Lookup(key)
	if !ok {
		return v, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if field.Kind == KindToggle {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, fmt.Errorf("%s: %w", key, err)
		}
		v.DeveloperMode = b
		return v, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return v, fmt.Errorf("%s: %w", key, err)
	}
	if err := field.check(f); err != nil {
		return v, err
	}
	switch key {
	case KeyFeeCushion:
		v.FeeCushion = f
	case KeyRefreshInterval:
		v.RefreshIntervalSeconds = f
	case KeyDefaultEVPercent:
		v.DefaultEVPercent = f
	}
	return v, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
