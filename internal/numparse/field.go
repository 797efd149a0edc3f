package numparse

import (
	"strconv"
	"strings"
)

// Kind tells how a dataset field was read
type Kind int

const (
	Defaulted Kind = iota // Unparsable, default substituted
	Integer
	Float
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "defaulted"
	}
}

// Field is the tagged result of a lenient numeric parse
type Field struct {
	Kind  Kind
	Value float64
}

// Parsed reports whether the text was a number
func (f Field) Parsed() bool {
	return f.Kind != Defaulted
}

// Int returns the value truncated to an integer
func (f Field) Int() int64 {
	return int64(f.Value)
}

// ParseField reads s as an integer, else a float, else returns the default.
// It never fails.
func ParseField(s string, def float64) Field {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Field{Kind: Integer, Value: float64(i)}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Field{Kind: Float, Value: f}
	}
	return Field{Kind: Defaulted, Value: def}
}
