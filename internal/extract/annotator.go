package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/logger"
)

// Structured data span metadata
const (
	StructureTypeKey = "type"
	StructureDataKey = "data"
	StructureTable   = "table"
)

// Named entity labels used upstream for counts
const (
	LabelQuantity = "QUANTITY"
	LabelCardinal = "CARDINAL"
)

// StructuredIncidentAnnotator adds the structured_incidents tier
type StructuredIncidentAnnotator struct {
	log *zap.Logger
}

// NewStructuredIncidentAnnotator creates the annotator. A nil logger
// disables logging.
func NewStructuredIncidentAnnotator(log *zap.Logger) *StructuredIncidentAnnotator {
	return &StructuredIncidentAnnotator{log: logger.OrNop(log)}
}

// Name implements annotation.Annotator
func (a *StructuredIncidentAnnotator) Name() string {
	return annotation.TierStructuredIncidents
}

// Requires implements annotation.Annotator
func (a *StructuredIncidentAnnotator) Requires() []string {
	return []string{
		annotation.TierStructuredData,
		annotation.TierGeonames,
		annotation.TierDates,
		annotation.TierResolvedKeywords,
		annotation.TierTokens,
		annotation.TierNamedEntities,
	}
}

// Annotate implements annotation.Annotator
func (a *StructuredIncidentAnnotator) Annotate(ctx context.Context, doc *annotation.Document) (map[string]*annotation.Tier, error) {
	tables, err := a.Tables(ctx, doc)
	if err != nil {
		return nil, err
	}

	incidents := Synthesize(tables)
	a.log.Debug("structured incidents",
		zap.String("document", doc.ID),
		zap.Int("tables", len(tables)),
		zap.Int("incidents", len(incidents)),
	)

	return map[string]*annotation.Tier{
		annotation.TierStructuredIncidents: annotation.NewPresortedTier(incidents),
	}, nil
}

// Tables types every table of the structured_data tier
func (a *StructuredIncidentAnnotator) Tables(ctx context.Context, doc *annotation.Document) ([]*Table, error) {
	tier := func(name string) *annotation.Tier {
		t, _ := doc.Tier(name)
		return t
	}
	if err := doc.Require(a.Requires()...); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}

	tokens := tier(annotation.TierTokens)
	entities := EntityTiers{
		Geonames:         tier(annotation.TierGeonames),
		Dates:            tier(annotation.TierDates),
		ResolvedKeywords: tier(annotation.TierResolvedKeywords),
		Numbers:          NumberSpans(doc, tier(annotation.TierNamedEntities), tokens),
		IncidentTypes:    IncidentTypeSpans(tokens),
		IncidentStatuses: IncidentStatusSpans(tokens),
	}
	interpreter := NewInterpreter(entities)

	var tables []*Table
	for _, span := range tier(annotation.TierStructuredData).Spans() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, ok := TableRows(span)
		if !ok {
			continue
		}
		table := interpreter.Interpret(rows)
		if table == nil {
			continue
		}
		if ce := a.log.Check(zap.DebugLevel, "typed table"); ce != nil {
			ce.Write(
				zap.Int("start", span.Start),
				zap.Bool("header", table.HasHeader),
				zap.Any("columns", table.Columns),
				zap.Int("rows", len(table.Rows)),
			)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// TableRows returns the cell grid of a structured data span that is a table
func TableRows(span *annotation.Span) ([][]*annotation.Span, bool) {
	if t, _ := span.Metadata[StructureTypeKey].(string); t != StructureTable {
		return nil, false
	}
	rows, ok := span.Metadata[StructureDataKey].([][]*annotation.Span)
	return rows, ok
}
