package viewmodel

import "polymarket-edge/internal/model"

// Detail wraps the opportunity selected for the detail screen.
type Detail struct {
	opportunity model.Opportunity
}

// NewDetail holds opp for read-only display.
func NewDetail(opp model.Opportunity) *Detail {
	return &Detail{opportunity: opp}
}

// Opportunity returns the held record.
func (d *Detail) Opportunity() model.Opportunity {
	return d.opportunity
}
