// Package extract turns detected tables into typed tables and structured
// case and death count incidents.
package extract

import (
	"regexp"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/numparse"
)

// Labels of count-like named entities
var countEntityLabels = map[string]bool{
	LabelQuantity: true,
	LabelCardinal: true,
}

var (
	rangeJoiner = regexp.MustCompile(`\s(?:to|and|or)\s`)

	// Plain digit runs the entity recognizer missed, at most 7 digits
	countToken = regexp.MustCompile(`(?i)^[1-9]\d{0,6}$`)

	incidentTypeToken = regexp.MustCompile(`(?i)^(case|death)s?$`)

	// Anchoring binds to the alternatives separately: tokens starting with
	// "suspected" or equal to "confirmed"
	incidentStatusToken = regexp.MustCompile(`(?i)^(?:suspected|confirmed$)`)
)

const countLabel = "count"

// IsValidNumber reports whether s parses as a single number and does not
// start with a zero unless it is "0"
func IsValidNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '0' && len(s) > 1 {
		return false
	}
	_, ok := numparse.ParseSpelled(s)
	return ok
}

// NumberSpans finds count candidates: quantity and cardinal entities that are
// a single valid number, both ends of "X to Y" style ranges, and digit tokens
// not covered by any named entity
func NumberSpans(doc *annotation.Document, entities, tokens *annotation.Tier) *annotation.Tier {
	var numbers []*annotation.Span

	for _, ne := range entities.Spans() {
		if !countEntityLabels[ne.Label] {
			continue
		}

		text := ne.Text()
		if IsValidNumber(text) {
			numbers = append(numbers, annotation.NewSpanGroup([]*annotation.Span{ne}, countLabel))
			continue
		}

		joiners := rangeJoiner.FindAllStringIndex(text, -1)
		if len(joiners) != 1 {
			continue
		}
		ends := []*annotation.Span{
			doc.NewSpan(ne.Start, ne.Start+joiners[0][0], "", nil),
			doc.NewSpan(ne.Start+joiners[0][1], ne.End, "", nil),
		}
		for _, end := range ends {
			if IsValidNumber(end.Text()) {
				numbers = append(numbers, annotation.NewSpanGroup([]*annotation.Span{end}, countLabel))
			}
		}
	}

	digits := annotation.NewPresortedTier(matchTokens(tokens, countToken, countLabel))
	numbers = append(numbers, digits.WithoutOverlaps(entities).Spans()...)

	return annotation.NewTier(numbers)
}

// IncidentTypeSpans finds "case(s)" and "death(s)" tokens
func IncidentTypeSpans(tokens *annotation.Tier) *annotation.Tier {
	return annotation.NewPresortedTier(matchTokens(tokens, incidentTypeToken, ""))
}

// IncidentStatusSpans finds "suspected" and "confirmed" tokens
func IncidentStatusSpans(tokens *annotation.Tier) *annotation.Tier {
	return annotation.NewPresortedTier(matchTokens(tokens, incidentStatusToken, ""))
}

func matchTokens(tokens *annotation.Tier, re *regexp.Regexp, label string) []*annotation.Span {
	var matched []*annotation.Span
	for _, tok := range tokens.Spans() {
		if re.MatchString(tok.Text()) {
			matched = append(matched, annotation.NewSpanGroup([]*annotation.Span{tok}, label))
		}
	}
	return matched
}
