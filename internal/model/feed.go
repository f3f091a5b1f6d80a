package model

// Feed is the /api/opportunities/meta envelope.
type Feed struct {
	AsOf             string        `json:"as_of" yaml:"as_of"`
	StalenessSeconds *float64      `json:"staleness_seconds,omitempty" yaml:"staleness_seconds,omitempty"`
	Items            []Opportunity `json:"items" yaml:"items"`
}

// Trace is the developer view of a single opportunity. TraceInfo is
// free-form provenance attached by the server.
type Trace struct {
	Opportunity
	TraceInfo map[string]any `json:"trace_info,omitempty" yaml:"trace_info,omitempty"`
}

// Health is the /health payload.
type Health struct {
	Status string `json:"status"`
}
