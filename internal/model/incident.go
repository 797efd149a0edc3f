package model

import "time"

// BaseType is the count family of an incident
type BaseType string

const (
	BaseCaseCount  BaseType = "caseCount"
	BaseDeathCount BaseType = "deathCount"
)

// Aggregation classifies a count as a point increment or a running total
type Aggregation string

const (
	AggregationNone        Aggregation = ""
	AggregationIncremental Aggregation = "incremental"
	AggregationCumulative  Aggregation = "cumulative"
)

// Count status attributes
const (
	StatusConfirmed = "confirmed"
	StatusSuspected = "suspected"
)

// IncidentType returns the public type name for a base type and aggregation,
// e.g. caseCount or cumulativeCaseCount
func IncidentType(base BaseType, agg Aggregation) string {
	if agg != AggregationCumulative || base == "" {
		return string(base)
	}
	b := string(base)
	return string(AggregationCumulative) + string(b[0]-'a'+'A') + b[1:]
}

// Incident is the public shape of one synthesized case or death count.
// Optional entities are omitted when absent.
type Incident struct {
	Type       string         `json:"type" yaml:"type"`
	Value      float64        `json:"value" yaml:"value"`
	Attributes []string       `json:"attributes" yaml:"attributes"`
	Location   map[string]any `json:"location,omitempty" yaml:"location,omitempty"`
	DateRange  []time.Time    `json:"dateRange,omitempty" yaml:"dateRange,omitempty"`
	Species    map[string]any `json:"species,omitempty" yaml:"species,omitempty"`
}
