package devserver

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"polymarket-edge/internal/model"
)

// Fixtures is the data served by the development API.
type Fixtures struct {
	Opportunities []model.Opportunity           `yaml:"opportunities"`
	Odds          map[string][]model.EventLines `yaml:"odds"`
	Traces        map[string]map[string]any     `yaml:"traces"`
}

// LoadFixtures reads a YAML (or JSON) fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("fixtures %s: %w", path, err)
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	seen := make(map[string]struct{}, len(f.Opportunities))
	for i, opp := range f.Opportunities {
		if opp.ID == "" {
			return fmt.Errorf("opportunity %d has no id", i)
		}
		if _, dup := seen[opp.ID]; dup {
			return fmt.Errorf("duplicate opportunity id %q", opp.ID)
		}
		seen[opp.ID] = struct{}{}
	}
	return nil
}

// SampleFixtures is a small built-in data set used when no fixture file is
// configured.
func SampleFixtures(now time.Time) *Fixtures {
	fresh := now.UTC().Format(time.RFC3339)
	old := now.UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	return &Fixtures{
		Opportunities: []model.Opportunity{
			{
				ID: "polymarket:nfl-kc-buf", Source: "polymarket", Title: "Chiefs beat Bills?",
				Sport: model.String("NFL"), EventID: model.String("nfl-kc-buf"), MarketID: model.String("kc-buf-ml"),
				YesProbability: model.Float(0.58), Price: model.Float(0.52),
				EVUSDPerShare: model.Float(0.06), EVPercent: model.Float(0.1154),
				UpdatedAt: model.String(fresh), ComparisonBasis: model.String("sportsbook_fair"),
			},
			{
				ID: "polymarket:nba-bos-lal", Source: "polymarket", Title: "Celtics beat Lakers?",
				Sport: model.String("NBA"), EventID: model.String("nba-bos-lal"), MarketID: model.String("bos-lal-ml"),
				YesProbability: model.Float(0.61), Price: model.Float(0.6),
				EVUSDPerShare: model.Float(0.01), EVPercent: model.Float(0.0167),
				UpdatedAt: model.String(fresh), ComparisonBasis: model.String("sportsbook_fair"),
			},
			{
				ID: "polymarket:nba-gsw-den", Source: "polymarket", Title: "Warriors beat Nuggets?",
				Sport: model.String("NBA"), EventID: model.String("nba-gsw-den"),
				Price: model.Float(0.44), UpdatedAt: model.String(old), ComparisonBasis: model.String("none"),
			},
			{
				ID: "polymarket:pga-masters", Source: "polymarket", Title: "Scheffler wins the Masters?",
				Sport: model.String("GOLF"), YesProbability: model.Float(0.2), Price: model.Float(0.17),
				EVUSDPerShare: model.Float(0.03), EVPercent: model.Float(0.1765),
				UpdatedAt: model.String(fresh), ComparisonBasis: model.String("sportsbook_fair"),
			},
		},
		Odds: map[string][]model.EventLines{
			"americanfootball_nfl": {
				{
					Sport: "americanfootball_nfl", EventID: "nfl-kc-buf", Title: "Kansas City Chiefs @ Buffalo Bills",
					Lines: []model.BookLine{
						{Bookmaker: "draftkings", Market: "h2h", Side: "Kansas City Chiefs", AmericanOdds: intPtr(-130), DecimalOdds: model.Float(1.77), FairProbability: model.Float(0.55), FairDecimalOdds: model.Float(1.82)},
						{Bookmaker: "draftkings", Market: "h2h", Side: "Buffalo Bills", AmericanOdds: intPtr(110), DecimalOdds: model.Float(2.1), FairProbability: model.Float(0.45), FairDecimalOdds: model.Float(2.22)},
					},
				},
			},
		},
		Traces: map[string]map[string]any{
			"polymarket:nfl-kc-buf": {"fair_source": "draftkings", "fee_cushion": 0.025},
		},
	}
}

func intPtr(v int) *int { return &v }
