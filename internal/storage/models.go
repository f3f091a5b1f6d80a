package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-edge/internal/model"
)

// Snapshot is one opportunity as observed by a watch tick.
type Snapshot struct {
	TakenAt       time.Time
	OpportunityID string
	Source        string
	Title         string
	Sport         *string
	EventID       *string
	MarketID      *string
	Price         decimal.NullDecimal
	EVPercent     decimal.NullDecimal
	EVUSD         decimal.NullDecimal
	UpdatedAt     *string
}

// AlertRecord captures an emitted alert for de-duplication and auditing.
type AlertRecord struct {
	ID            int64
	OpportunityID string
	EVPercent     decimal.Decimal
	ThresholdPct  decimal.Decimal
	Channels      []string
	CreatedAt     time.Time
}

// NewSnapshot converts a fetched opportunity into a snapshot row.
func NewSnapshot(takenAt time.Time, opp model.Opportunity) Snapshot {
	return Snapshot{
		TakenAt:       takenAt,
		OpportunityID: opp.ID,
		Source:        opp.Source,
		Title:         opp.Title,
		Sport:         opp.Sport,
		EventID:       opp.EventID,
		MarketID:      opp.MarketID,
		Price:         nullDecimal(opp.Price),
		EVPercent:     nullDecimal(opp.EVPercent),
		EVUSD:         nullDecimal(opp.EVUSDPerShare),
		UpdatedAt:     opp.UpdatedAt,
	}
}

// Opportunity turns the row back into the API shape.
func (s Snapshot) Opportunity() model.Opportunity {
	return model.Opportunity{
		ID:            s.OpportunityID,
		Source:        s.Source,
		Title:         s.Title,
		Sport:         s.Sport,
		EventID:       s.EventID,
		MarketID:      s.MarketID,
		Price:         floatPtr(s.Price),
		EVPercent:     floatPtr(s.EVPercent),
		EVUSDPerShare: floatPtr(s.EVUSD),
		UpdatedAt:     s.UpdatedAt,
	}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}
