package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/model"
)

// fixture builds a document holding one "/" separated table, with a token
// per whitespace separated word and hand placed entity spans
type fixture struct {
	t     *testing.T
	doc   *annotation.Document
	rows  [][]*annotation.Span
	tiers map[string][]*annotation.Span
}

func newFixture(t *testing.T, lines ...string) *fixture {
	t.Helper()
	doc := annotation.NewDocument("doc-1", strings.Join(lines, "\n"))
	f := &fixture{t: t, doc: doc, tiers: map[string][]*annotation.Span{}}

	offset := 0
	for _, line := range lines {
		var row []*annotation.Span
		start := 0
		for {
			end := len(line)
			idx := strings.IndexByte(line[start:], '/')
			if idx >= 0 {
				end = start + idx
			}
			cs, ce := trimRange(line, start, end)
			row = append(row, doc.NewSpan(offset+cs, offset+ce, "", nil))
			if idx < 0 {
				break
			}
			start = end + 1
		}
		f.rows = append(f.rows, row)
		offset += len(line) + 1
	}

	text := doc.Text
	for i := 0; i < len(text); {
		if text[i] == ' ' || text[i] == '\n' {
			i++
			continue
		}
		j := i
		for j < len(text) && text[j] != ' ' && text[j] != '\n' {
			j++
		}
		if text[i:j] != "/" {
			f.tiers[annotation.TierTokens] = append(f.tiers[annotation.TierTokens], doc.NewSpan(i, j, "", nil))
		}
		i = j
	}
	return f
}

func trimRange(s string, start, end int) (int, int) {
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return start, end
}

// mark adds a span over the n-th occurrence of sub to a tier
func (f *fixture) mark(tier, sub string, n int, label string, meta map[string]any) *fixture {
	f.t.Helper()
	from := 0
	for i := 0; ; i++ {
		idx := strings.Index(f.doc.Text[from:], sub)
		require.GreaterOrEqual(f.t, idx, 0, "substring %q occurrence %d", sub, n)
		if i == n {
			start := from + idx
			f.tiers[tier] = append(f.tiers[tier], f.doc.NewSpan(start, start+len(sub), label, meta))
			return f
		}
		from += idx + len(sub)
	}
}

func (f *fixture) build() *annotation.Document {
	f.t.Helper()
	table := f.doc.NewSpan(0, len(f.doc.Text), "", map[string]any{
		StructureTypeKey: StructureTable,
		StructureDataKey: f.rows,
	})
	require.NoError(f.t, f.doc.AddTier(annotation.TierStructuredData, annotation.NewTier([]*annotation.Span{table})))

	for _, name := range []string{
		annotation.TierTokens,
		annotation.TierNamedEntities,
		annotation.TierGeonames,
		annotation.TierDates,
		annotation.TierResolvedKeywords,
	} {
		require.NoError(f.t, f.doc.AddTier(name, annotation.NewTier(f.tiers[name])))
	}
	return f.doc
}

func (f *fixture) incidents() []model.Incident {
	f.t.Helper()
	doc := f.build()
	require.NoError(f.t, doc.Apply(context.Background(), NewStructuredIncidentAnnotator(nil)))
	return incidentsOf(f.t, doc)
}

func incidentsOf(t *testing.T, doc *annotation.Document) []model.Incident {
	t.Helper()
	tier, err := doc.Tier(annotation.TierStructuredIncidents)
	require.NoError(t, err)

	out := []model.Incident{}
	for _, s := range tier.Spans() {
		inc, ok := IncidentOf(s)
		require.True(t, ok)
		out = append(out, inc)
	}
	return out
}

func count(typ string, value float64, attributes ...string) model.Incident {
	if attributes == nil {
		attributes = []string{}
	}
	return model.Incident{Type: typ, Value: value, Attributes: attributes}
}

func entityTiers(f *fixture) EntityTiers {
	tokens := annotation.NewTier(f.tiers[annotation.TierTokens])
	nes := annotation.NewTier(f.tiers[annotation.TierNamedEntities])
	return EntityTiers{
		Geonames:         annotation.NewTier(f.tiers[annotation.TierGeonames]),
		Dates:            annotation.NewTier(f.tiers[annotation.TierDates]),
		ResolvedKeywords: annotation.NewTier(f.tiers[annotation.TierResolvedKeywords]),
		Numbers:          NumberSpans(f.doc, nes, tokens),
		IncidentTypes:    IncidentTypeSpans(tokens),
		IncidentStatuses: IncidentStatusSpans(tokens),
	}
}
