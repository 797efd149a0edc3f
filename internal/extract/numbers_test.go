package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/epitab/internal/annotation"
)

func TestIsValidNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"7", true},
		{"023", false},
		{"00", false},
		{"1,303,173", true},
		{"twenty one", true},
		{"5 to 10", false},
		{"", false},
		{"many", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidNumber(tt.in))
		})
	}
}

func numberTexts(tier *annotation.Tier) []string {
	texts := []string{}
	for _, s := range tier.Spans() {
		texts = append(texts, s.Text())
	}
	return texts
}

func TestNumberSpansRanges(t *testing.T) {
	f := newFixture(t, "between 5 to 10 cases and 023 or 1 to 2 to 3 deaths").
		mark(annotation.TierNamedEntities, "5 to 10", 0, LabelCardinal, nil).
		mark(annotation.TierNamedEntities, "023", 0, LabelCardinal, nil).
		mark(annotation.TierNamedEntities, "1 to 2 to 3", 0, LabelQuantity, nil)
	nes := annotation.NewTier(f.tiers[annotation.TierNamedEntities])
	tokens := annotation.NewTier(f.tiers[annotation.TierTokens])

	numbers := NumberSpans(f.doc, nes, tokens)

	// 023 has a leading zero and the double range has two joiners. Digit
	// tokens inside entities are not added again.
	assert.Equal(t, []string{"5", "10"}, numberTexts(numbers))
	for _, s := range numbers.Spans() {
		assert.Equal(t, countLabel, s.Label)
	}
}

func TestNumberSpansEntityLabels(t *testing.T) {
	f := newFixture(t, "Report 2 found three cases on 12 March").
		mark(annotation.TierNamedEntities, "2", 0, "ORDINAL", nil).
		mark(annotation.TierNamedEntities, "three", 0, LabelCardinal, nil).
		mark(annotation.TierNamedEntities, "12 March", 0, "DATE", nil)
	nes := annotation.NewTier(f.tiers[annotation.TierNamedEntities])
	tokens := annotation.NewTier(f.tiers[annotation.TierTokens])

	numbers := NumberSpans(f.doc, nes, tokens)

	// Only cardinal and quantity entities count, but any entity hides the
	// digit tokens it covers
	assert.Equal(t, []string{"three"}, numberTexts(numbers))
}

func TestNumberSpansDigitFallback(t *testing.T) {
	f := newFixture(t, "counts 1234567 12345678 0 07 42")
	tokens := annotation.NewTier(f.tiers[annotation.TierTokens])

	numbers := NumberSpans(f.doc, annotation.NewTier(nil), tokens)

	assert.Equal(t, []string{"1234567", "42"}, numberTexts(numbers))
}

func TestKeywordSpans(t *testing.T) {
	f := newFixture(t, "Cases deaths Death casework Confirmed suspected suspectedly probable")
	tokens := annotation.NewTier(f.tiers[annotation.TierTokens])

	assert.Equal(t, []string{"Cases", "deaths", "Death"}, numberTexts(IncidentTypeSpans(tokens)))
	assert.Equal(t, []string{"Confirmed", "suspected", "suspectedly"}, numberTexts(IncidentStatusSpans(tokens)))
}
