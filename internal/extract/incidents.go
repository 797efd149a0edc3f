package extract

import (
	"strings"
	"time"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/model"
	"github.com/ppiankov/epitab/internal/numparse"
)

// Metadata keys read from upstream entity spans
const (
	GeonameKey       = "geoname"
	DateRangeKey     = "datetime_range"
	ResolutionsKey   = "resolutions"
	speciesEntityKey = "species"
)

// IncidentKey is the metadata key holding the model.Incident of an incident span
const IncidentKey = "incident"

// draft is an incident before its row's aggregation is resolved
type draft struct {
	span     *annotation.Span
	base     model.BaseType
	agg      model.Aggregation
	value    float64
	status   string
	location map[string]any
	dates    []time.Time
	species  map[string]any
}

// rowContext is what a row says about all of its counts
type rowContext struct {
	location map[string]any
	dates    []time.Time
	species  map[string]any
	base     model.BaseType
	status   string
}

// Synthesize turns typed tables into incident spans, in table, row and
// column order. The model.Incident is stored under IncidentKey.
func Synthesize(tables []*Table) []*annotation.Span {
	var incidents []*annotation.Span
	for _, table := range tables {
		for _, row := range table.Rows {
			incidents = append(incidents, synthesizeRow(table.Columns, row)...)
		}
	}
	return incidents
}

func synthesizeRow(columns []ColumnDefinition, row []*annotation.Span) []*annotation.Span {
	ctx := scanRow(columns, row)

	var drafts []*draft
	for i, column := range columns {
		if i >= len(row) || row[i] == nil || column.Type != ColumnNumber {
			continue
		}
		if d := newDraft(column, row[i], ctx); d != nil {
			drafts = append(drafts, d)
		}
	}

	resolveAggregation(drafts)

	spans := make([]*annotation.Span, 0, len(drafts))
	for _, d := range drafts {
		spans = append(spans, d.finalize())
	}
	return spans
}

// scanRow collects the row's date, location, species, count family and status
func scanRow(columns []ColumnDefinition, row []*annotation.Span) rowContext {
	var ctx rowContext
	for i, column := range columns {
		if i >= len(row) || row[i] == nil {
			continue
		}
		value := row[i]

		switch column.Type {
		case ColumnDate:
			if r := dateRange(value); r != nil {
				ctx.dates = r
			}
		case ColumnGeoname:
			if g := geoname(value); g != nil {
				ctx.location = g
			}
		case ColumnResolvedKeyword:
			if sp := species(value); sp != nil {
				ctx.species = sp
			}
		case ColumnIncidentType:
			text := strings.ToLower(value.Text())
			if strings.Contains(text, "case") {
				ctx.base = model.BaseCaseCount
			} else if strings.Contains(text, "death") {
				ctx.base = model.BaseDeathCount
			}
		case ColumnIncidentStatus:
			ctx.status = value.Text()
		}
	}
	return ctx
}

// newDraft builds the draft for one number cell, or nil when its text does
// not parse as a number
func newDraft(column ColumnDefinition, value *annotation.Span, ctx rowContext) *draft {
	count, ok := numparse.ParseSpelled(value.Text())
	if !ok {
		return nil
	}

	name := strings.ToLower(column.Name)
	d := &draft{
		span:     value,
		base:     ctx.base,
		status:   ctx.status,
		value:    count,
		location: ctx.location,
		dates:    ctx.dates,
		species:  ctx.species,
	}

	if d.base == "" {
		switch {
		case strings.Contains(name, "cases"):
			d.base = model.BaseCaseCount
		case strings.Contains(name, "deaths"):
			d.base = model.BaseDeathCount
		default:
			d.base = model.BaseCaseCount
		}
	}

	if d.status == "" {
		switch {
		case strings.Contains(name, "suspect"):
			d.status = model.StatusSuspected
		case strings.Contains(name, "confirmed"):
			d.status = model.StatusConfirmed
		}
	}

	switch {
	case strings.Contains(name, "total"):
		d.agg = model.AggregationCumulative
	case strings.Contains(name, "new"):
		d.agg = model.AggregationIncremental
	}
	return d
}

// resolveAggregation marks undetermined drafts cumulative when they exceed
// the largest incremental count of their family in the same row. A family
// without an incremental count leaves them undetermined.
func resolveAggregation(drafts []*draft) {
	maxIncremental := map[model.BaseType]float64{}
	for _, d := range drafts {
		if d.agg != model.AggregationIncremental {
			continue
		}
		if m, ok := maxIncremental[d.base]; !ok || d.value > m {
			maxIncremental[d.base] = d.value
		}
	}

	for _, d := range drafts {
		if d.agg != model.AggregationNone {
			continue
		}
		if m, ok := maxIncremental[d.base]; ok && d.value > m {
			d.agg = model.AggregationCumulative
		}
	}
}

func (d *draft) finalize() *annotation.Span {
	attributes := []string{}
	if d.status != "" {
		attributes = append(attributes, d.status)
	}

	incident := model.Incident{
		Type:       model.IncidentType(d.base, d.agg),
		Value:      d.value,
		Attributes: attributes,
		Location:   d.location,
		DateRange:  d.dates,
		Species:    d.species,
	}

	doc := d.span.Document()
	if doc == nil {
		return &annotation.Span{
			Start:    d.span.Start,
			End:      d.span.End,
			Metadata: map[string]any{IncidentKey: incident},
		}
	}
	return doc.NewSpan(d.span.Start, d.span.End, "", map[string]any{IncidentKey: incident})
}

// IncidentOf returns the incident stored on a span by Synthesize
func IncidentOf(s *annotation.Span) (model.Incident, bool) {
	inc, ok := s.Metadata[IncidentKey].(model.Incident)
	return inc, ok
}

// geoname returns the gazetteer record attached to the first geoname span of
// a cell
func geoname(cell *annotation.Span) map[string]any {
	for _, leaf := range cell.Leaves() {
		if m, ok := leaf.Metadata[GeonameKey].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// dateRange returns the [start, end) range of the first date span of a cell
func dateRange(cell *annotation.Span) []time.Time {
	for _, leaf := range cell.Leaves() {
		if r := toTimeRange(leaf.Metadata[DateRangeKey]); r != nil {
			return r
		}
	}
	return nil
}

// species returns the resolved entity of the first keyword in a cell that
// resolved to a species
func species(cell *annotation.Span) map[string]any {
	for _, leaf := range cell.Leaves() {
		resolutions, ok := leaf.Metadata[ResolutionsKey].([]any)
		if !ok || len(resolutions) == 0 {
			continue
		}
		resolution, ok := resolutions[0].(map[string]any)
		if !ok {
			continue
		}
		entity, ok := resolution["entity"].(map[string]any)
		if !ok {
			continue
		}
		if t, _ := entity["type"].(string); t == speciesEntityKey {
			return entity
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toTimeRange(v any) []time.Time {
	switch r := v.(type) {
	case []time.Time:
		if len(r) == 2 {
			return r
		}
	case []any:
		if len(r) != 2 {
			return nil
		}
		out := make([]time.Time, 0, 2)
		for _, item := range r {
			t, ok := toTime(item)
			if !ok {
				return nil
			}
			out = append(out, t)
		}
		return out
	case []string:
		if len(r) != 2 {
			return nil
		}
		return toTimeRange([]any{r[0], r[1]})
	}
	return nil
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
