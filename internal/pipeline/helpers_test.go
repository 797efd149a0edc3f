package pipeline

import (
	"strings"

	"github.com/ppiankov/epitab/internal/annotation"
)

// tableDocument builds a document file holding one "/" separated table with
// a token per word and empty entity tiers
func tableDocument(lines ...string) *DocumentFile {
	text := strings.Join(lines, "\n")
	file := &DocumentFile{
		ID:   "doc-1",
		Text: text,
		Tiers: map[string][]SpanInput{
			annotation.TierTokens:           {},
			annotation.TierNamedEntities:    {},
			annotation.TierGeonames:         {},
			annotation.TierDates:            {},
			annotation.TierResolvedKeywords: {},
		},
	}

	var rows [][]CellInput
	offset := 0
	for _, line := range lines {
		var row []CellInput
		start := 0
		for {
			end := len(line)
			idx := strings.IndexByte(line[start:], '/')
			if idx >= 0 {
				end = start + idx
			}
			cs, ce := start, end
			for cs < ce && line[cs] == ' ' {
				cs++
			}
			for ce > cs && line[ce-1] == ' ' {
				ce--
			}
			row = append(row, CellInput{Start: offset + cs, End: offset + ce})
			if idx < 0 {
				break
			}
			start = end + 1
		}
		rows = append(rows, row)
		offset += len(line) + 1
	}
	file.Tables = &[]TableInput{{Start: 0, End: len(text), Rows: rows}}

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
			file.Tiers[annotation.TierTokens] = append(file.Tiers[annotation.TierTokens], SpanInput{Start: i, End: j})
		}
		i = j
	}
	return file
}

var countTable = []string{
	"Type / New / Confirmed / Probable / Suspect / Total",
	"Cases / 3 / 293 / / 32 / 413",
	"Deaths / 5 / 193 / 82 / 28 / 303",
}
