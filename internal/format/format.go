// Package format renders optional opportunity fields for terminal output.
// Missing or unparsable values render as Missing.
package format

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-edge/internal/model"
)

// Missing is printed in place of an absent value.
const Missing = "-"

// DateTimeLayout is used for timestamps shown to the user.
const DateTimeLayout = "Jan 2, 2006 15:04 UTC"

// Percent renders a fraction as a percentage: 0.1154 with 2 digits is "11.54%".
func Percent(v *float64, digits int32) string {
	if v == nil {
		return Missing
	}
	return decimal.NewFromFloat(*v).Shift(2).StringFixed(digits) + "%"
}

// Decimal renders v with a fixed number of digits.
func Decimal(v *float64, digits int32) string {
	if v == nil {
		return Missing
	}
	return decimal.NewFromFloat(*v).StringFixed(digits)
}

// Fixed renders a decimal with the given digits.
func Fixed(d decimal.Decimal, digits int32) string {
	return d.StringFixed(digits)
}

// DateTime renders an ISO-8601 timestamp in UTC.
func DateTime(iso *string) string {
	if iso == nil {
		return Missing
	}
	ts, ok := model.ParseTimestamp(*iso)
	if !ok {
		return Missing
	}
	return ts.UTC().Format(DateTimeLayout)
}

// Age renders how long ago an ISO-8601 timestamp was, rounded to seconds.
func Age(iso *string, now time.Time) string {
	if iso == nil {
		return Missing
	}
	ts, ok := model.ParseTimestamp(*iso)
	if !ok {
		return Missing
	}
	return now.Sub(ts).Round(time.Second).String()
}

// AmericanOdds renders odds with an explicit sign, e.g. "+110" or "-130".
func AmericanOdds(v *int) string {
	if v == nil {
		return Missing
	}
	if *v > 0 {
		return "+" + strconv.Itoa(*v)
	}
	return strconv.Itoa(*v)
}

// Text returns the string or Missing.
func Text(v *string) string {
	if v == nil || *v == "" {
		return Missing
	}
	return *v
}
