package numparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpelled(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"0", 0, true},
		{"12", 12, true},
		{"413", 413, true},
		{"1,303,173", 1303173, true},
		{"6 368 632", 6368632, true},
		{"12 552", 12552, true},
		{"three", 3, true},
		{"Twenty-one", 21, true},
		{"two hundred and five", 205, true},
		{"one thousand two hundred", 1200, true},
		{"1.5 million", 1500000, true},
		{"hundred", 100, true},
		{"(32)", 32, true},
		{"3rd", 3, true},
		{"", 0, false},
		{"and", 0, false},
		{"5 to 10", 0, false},
		{"5 10", 0, false},
		{"100%", 0, false},
		{"five six", 0, false},
		{"million billion", 0, false},
		{"cases", 0, false},
		{"1.5 200", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSpelled(tt.in)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		want float64
	}{
		{"1234", Integer, 1234},
		{" 42 ", Integer, 42},
		{"-7", Integer, -7},
		{"12.5", Float, 12.5},
		{"-33.86785", Float, -33.86785},
		{"", Defaulted, 0},
		{"n/a", Defaulted, 0},
		{"12,000", Defaulted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := ParseField(tt.in, 0)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.want, f.Value)
			assert.Equal(t, tt.kind != Defaulted, f.Parsed())
		})
	}
}

func TestField_Int(t *testing.T) {
	assert.Equal(t, int64(12), ParseField("12.9", 0).Int())
	assert.Equal(t, int64(5), ParseField("bogus", 5).Int())
	assert.Equal(t, "defaulted", ParseField("bogus", 0).Kind.String())
	assert.Equal(t, "float", Float.String())
	assert.Equal(t, "integer", Integer.String())
}
