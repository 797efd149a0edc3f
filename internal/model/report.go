package model

import "time"

// Report is the result of annotating one document
type Report struct {
	DocumentID  string         `json:"document_id" yaml:"document_id"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	AnnotatedAt time.Time      `json:"annotated_at" yaml:"annotated_at"`
	Tables      int            `json:"tables" yaml:"tables"` // Tables interpreted
	Incidents   []IncidentSpan `json:"incidents" yaml:"incidents"`
}

// IncidentSpan ties an incident to the numeric mention that triggered it
type IncidentSpan struct {
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
	Text     string `json:"text" yaml:"text"`
	Incident `yaml:",inline"`
}

// CountByType tallies incidents per public type
func (r *Report) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, inc := range r.Incidents {
		counts[inc.Type]++
	}
	return counts
}
