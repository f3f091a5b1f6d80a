package viewmodel

import (
	"sort"

	"polymarket-edge/internal/model"
)

// AllSports is the sport-picker sentinel meaning "no sport filter".
const AllSports = "All"

// Filter selects which opportunities are shown.
type Filter struct {
	// Sport keeps only records tagged with this sport. Empty or AllSports
	// disables the filter.
	Sport string
	// MinEVPercent is a percentage (5 means ev_percent >= 0.05). Zero or
	// less disables EV filtering.
	MinEVPercent float64
}

func (f Filter) sport() string {
	if f.Sport == AllSports {
		return ""
	}
	return f.Sport
}

// Matches reports whether opp passes the filter. A missing ev_percent never
// passes a positive threshold.
func (f Filter) Matches(opp model.Opportunity) bool {
	if sport := f.sport(); sport != "" && opp.SportTag() != sport {
		return false
	}
	threshold := f.MinEVPercent / 100
	if threshold > 0 {
		if opp.EVPercent == nil || *opp.EVPercent < threshold {
			return false
		}
	}
	return true
}

// FilterSort filters items, stable-sorts them by ev_percent descending with
// missing values last, and keeps at most limit records. A limit <= 0 keeps
// everything. items is not modified.
func FilterSort(items []model.Opportunity, f Filter, limit int) []model.Opportunity {
	out := make([]model.Opportunity, 0, len(items))
	for _, opp := range items {
		if f.Matches(opp) {
			out = append(out, opp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return model.CompareEV(out[i].EVPercent, out[j].EVPercent) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Sports returns AllSports followed by the sorted distinct sport tags.
func Sports(items []model.Opportunity) []string {
	seen := make(map[string]struct{})
	sports := make([]string, 0)
	for _, opp := range items {
		if opp.Sport == nil {
			continue
		}
		if _, ok := seen[*opp.Sport]; ok {
			continue
		}
		seen[*opp.Sport] = struct{}{}
		sports = append(sports, *opp.Sport)
	}
	sort.Strings(sports)
	return append([]string{AllSports}, sports...)
}
