package model

// BookLine is one bookmaker price for one side of a market.
type BookLine struct {
	Bookmaker       string   `json:"bookmaker" yaml:"bookmaker"`
	Market          string   `json:"market" yaml:"market"`
	Side            string   `json:"side" yaml:"side"`
	AmericanOdds    *int     `json:"american_odds,omitempty" yaml:"american_odds,omitempty"`
	DecimalOdds     *float64 `json:"decimal_odds,omitempty" yaml:"decimal_odds,omitempty"`
	Point           *float64 `json:"point,omitempty" yaml:"point,omitempty"`
	FairProbability *float64 `json:"fair_probability,omitempty" yaml:"fair_probability,omitempty"`
	FairDecimalOdds *float64 `json:"fair_decimal_odds,omitempty" yaml:"fair_decimal_odds,omitempty"`
}

// EventLines groups the book lines of a single event.
type EventLines struct {
	Sport   string     `json:"sport" yaml:"sport"`
	EventID string     `json:"event_id" yaml:"event_id"`
	Title   string     `json:"title" yaml:"title"`
	Lines   []BookLine `json:"lines" yaml:"lines"`
}
