package extract

import (
	"strings"

	"github.com/ppiankov/epitab/internal/annotation"
)

// ColumnType is the kind of entity a table column holds
type ColumnType string

const (
	ColumnGeoname         ColumnType = "geoname"
	ColumnDate            ColumnType = "date"
	ColumnResolvedKeyword ColumnType = "resolved_keyword"
	ColumnNumber          ColumnType = "number"
	ColumnIncidentType    ColumnType = "incident_type"
	ColumnIncidentStatus  ColumnType = "incident_status"
	ColumnText            ColumnType = "text"
)

// CandidateTypes is the order column types are tried in. On equal match
// counts the earlier type wins, so the order must not change.
var CandidateTypes = []ColumnType{
	ColumnGeoname,
	ColumnDate,
	ColumnResolvedKeyword,
	ColumnNumber,
	ColumnIncidentType,
	ColumnIncidentStatus,
}

// MatchThreshold is the share of non-null cells a type has to exceed
const MatchThreshold = 0.3

// EntityTiers holds the entity tiers a table is typed against
type EntityTiers struct {
	Geonames         *annotation.Tier
	Dates            *annotation.Tier
	ResolvedKeywords *annotation.Tier
	Numbers          *annotation.Tier
	IncidentTypes    *annotation.Tier
	IncidentStatuses *annotation.Tier
}

func (e EntityTiers) tier(t ColumnType) *annotation.Tier {
	switch t {
	case ColumnGeoname:
		return e.Geonames
	case ColumnDate:
		return e.Dates
	case ColumnResolvedKeyword:
		return e.ResolvedKeywords
	case ColumnNumber:
		return e.Numbers
	case ColumnIncidentType:
		return e.IncidentTypes
	case ColumnIncidentStatus:
		return e.IncidentStatuses
	}
	return nil
}

// ColumnDefinition describes one column of a typed table. Name is the header
// cell text and is empty when the table has no header.
type ColumnDefinition struct {
	Type ColumnType `json:"type" yaml:"type"`
	Name string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// Table is a typed table. Each row is aligned with Columns; a nil cell holds
// no recognized entity.
type Table struct {
	Columns   []ColumnDefinition
	Rows      [][]*annotation.Span
	HasHeader bool
}

// IsNull reports whether a cell's text is empty or a dash
func IsNull(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}

// Interpreter types detected tables against a document's entity tiers
type Interpreter struct {
	entities EntityTiers
	// Numbers that are not part of a date
	countNumbers *annotation.Tier
}

// NewInterpreter creates an interpreter for one document's entities
func NewInterpreter(entities EntityTiers) *Interpreter {
	return &Interpreter{
		entities:     entities,
		countNumbers: entities.Numbers.WithoutOverlaps(entities.Dates),
	}
}

// HasHeader reports whether a first row is a header: none of its cells
// contains a number. A single text-only row is a header too.
func (in *Interpreter) HasHeader(firstRow []*annotation.Span) bool {
	for _, g := range annotation.NewTier(firstRow).GroupByContainingSpan(in.entities.Numbers) {
		if len(g.Inner) > 0 {
			return false
		}
	}
	return true
}

// Interpret types a table given as rows of cell spans. It returns nil for a
// table without rows. Rows longer than the shortest data row are truncated.
func (in *Interpreter) Interpret(rows [][]*annotation.Span) *Table {
	if len(rows) == 0 {
		return nil
	}

	table := &Table{HasHeader: in.HasHeader(rows[0])}
	dataRows := rows
	if table.HasHeader {
		dataRows = rows[1:]
	}

	columns := columnCount(dataRows)
	types := make([]ColumnType, columns)
	entities := make([][]*annotation.Span, columns)
	for c := 0; c < columns; c++ {
		cells := make([]*annotation.Span, len(dataRows))
		for r, row := range dataRows {
			cells[r] = row[c]
		}
		types[c], entities[c] = in.typeColumn(cells)
	}

	if table.HasHeader {
		header := annotation.NewTier(rows[0]).Spans()
		if len(header) < columns {
			columns = len(header)
		}
		for c := 0; c < columns; c++ {
			table.Columns = append(table.Columns, ColumnDefinition{
				Type: types[c],
				Name: header[c].Text(),
			})
		}
	} else {
		for _, t := range types {
			table.Columns = append(table.Columns, ColumnDefinition{Type: t})
		}
	}

	table.Rows = make([][]*annotation.Span, len(dataRows))
	for r := range dataRows {
		row := make([]*annotation.Span, columns)
		for c := 0; c < columns; c++ {
			row[c] = entities[c][r]
		}
		table.Rows[r] = row
	}
	return table
}

// typeColumn picks the candidate type matching the most cells, provided it
// matches more than MatchThreshold of the non-null cells. It returns the
// per-cell entity groups of the winning type, all nil for text columns.
func (in *Interpreter) typeColumn(cells []*annotation.Span) (ColumnType, []*annotation.Span) {
	nonNull := 0
	for _, cell := range cells {
		if !IsNull(cell.Text()) {
			nonNull++
		}
	}

	columnType := ColumnText
	matched := make([]*annotation.Span, len(cells))
	if nonNull == 0 {
		return columnType, matched
	}

	column := annotation.NewPresortedTier(cells)
	maxMatches := 0
	for _, candidate := range CandidateTypes {
		spans := in.entities.tier(candidate)
		if candidate == ColumnNumber {
			spans = in.countNumbers
		}

		groups := column.GroupByContainingSpan(spans)
		cellEntities := make([]*annotation.Span, len(cells))
		matches := 0
		for i, g := range groups {
			if len(g.Inner) > 0 {
				cellEntities[i] = annotation.NewSpanGroup(g.Inner, "")
				matches++
			}
		}

		ratio := float64(matches) / float64(nonNull)
		if ratio > MatchThreshold && matches > maxMatches {
			maxMatches = matches
			columnType = candidate
			matched = cellEntities
		}
	}
	return columnType, matched
}

func columnCount(rows [][]*annotation.Span) int {
	if len(rows) == 0 {
		return 0
	}
	n := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) < n {
			n = len(row)
		}
	}
	return n
}
