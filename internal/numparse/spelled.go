// Package numparse parses counts written as digits or English words, and
// the numeric fields of the place-name dataset.
package numparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	punctuation   = regexp.MustCompile(`[,()]`)
	ordinalSuffix = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)$`)
	digitToken    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	digitGroup    = regexp.MustCompile(`^\d{3}$`)
)

var wordValues = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var magnitudes = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

type tokenKind int

const (
	kindNone tokenKind = iota
	kindDigits
	kindWord
	kindHundred
	kindMagnitude
)

// ParseSpelled parses strings like "12", "1,303,173", "6 368 632", "twenty-one",
// "two hundred and five" or "1.5 million". It reports false when the text is
// not a single number.
func ParseSpelled(s string) (float64, bool) {
	tokens := tokenize(s)
	if len(tokens) == 0 {
		return 0, false
	}

	var total, current float64
	last := kindNone
	lastTens := false
	lastInteger := false

	for _, tok := range tokens {
		switch {
		case digitToken.MatchString(tok):
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return 0, false
			}
			integer := !strings.Contains(tok, ".")
			switch last {
			case kindNone, kindMagnitude:
				current = v
			case kindDigits:
				// Space separated thousands: "6 368 632"
				if !lastInteger || !integer || !digitGroup.MatchString(tok) {
					return 0, false
				}
				current = current*1000 + v
			case kindHundred:
				if v >= 100 {
					return 0, false
				}
				current += v
			default:
				return 0, false
			}
			last = kindDigits
			lastInteger = integer

		case tok == "hundred":
			switch last {
			case kindNone, kindMagnitude:
				current = 100
			case kindDigits, kindWord:
				current *= 100
			default:
				return 0, false
			}
			last = kindHundred

		case magnitudes[tok] > 0:
			if last == kindMagnitude {
				return 0, false
			}
			if last == kindNone {
				current = 1
			}
			total += current * magnitudes[tok]
			current = 0
			last = kindMagnitude

		default:
			v, ok := wordValues[tok]
			if !ok {
				return 0, false
			}
			switch last {
			case kindNone, kindMagnitude:
				current = v
			case kindHundred:
				current += v
			case kindWord:
				if !lastTens || v >= 10 {
					return 0, false
				}
				current += v
			default:
				return 0, false
			}
			lastTens = v >= 20 && int(v)%10 == 0
			last = kindWord
		}
	}

	return total + current, true
}

// tokenize splits on spaces and hyphens, drops "and", strips punctuation and
// ordinal suffixes, and lowercases
func tokenize(s string) []string {
	var raw []string
	for _, field := range strings.Fields(s) {
		raw = append(raw, strings.Split(field, "-")...)
	}

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(punctuation.ReplaceAllString(t, ""))
		if t == "" || t == "and" {
			continue
		}
		if m := ordinalSuffix.FindStringSubmatch(t); m != nil {
			t = m[1]
		}
		tokens = append(tokens, t)
	}
	return tokens
}
