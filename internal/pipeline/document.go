package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/extract"
)

// ErrUnsupportedFormat is returned for unknown document or offset formats
var ErrUnsupportedFormat = errors.New("unsupported format")

// Document formats
const (
	FormatText = "text"
	FormatHTML = "html"
)

// Offset units
const (
	OffsetsBytes = "bytes"
	OffsetsRunes = "runes"
)

// DocumentFile is an annotated document as read from disk or the network:
// text plus the tiers computed upstream and the detected tables
type DocumentFile struct {
	ID      string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Format  string                 `json:"format,omitempty" yaml:"format,omitempty"`
	Offsets string                 `json:"offsets,omitempty" yaml:"offsets,omitempty"`
	Text    string                 `json:"text" yaml:"text"`
	Tiers   map[string][]SpanInput `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	Tables  *[]TableInput          `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// SpanInput is one upstream span
type SpanInput struct {
	Start    int            `json:"start" yaml:"start"`
	End      int            `json:"end" yaml:"end"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TableInput is one detected table as rows of cell ranges
type TableInput struct {
	Start int           `json:"start" yaml:"start"`
	End   int           `json:"end" yaml:"end"`
	Rows  [][]CellInput `json:"rows" yaml:"rows"`
}

// CellInput is the range of one table cell
type CellInput struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// ParseDocumentFile decodes a JSON or YAML document
func ParseDocumentFile(data []byte) (*DocumentFile, error) {
	var file DocumentFile

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &file); err != nil {
			return nil, fmt.Errorf("decode JSON document: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode YAML document: %w", err)
		}
	}
	return &file, nil
}

// Document builds the annotation context. Rune offsets are converted to byte
// offsets, and HTML is reduced to its visible text before offsets apply.
func (f *DocumentFile) Document() (*annotation.Document, error) {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}

	text := f.Text
	switch f.Format {
	case "", FormatText:
	case FormatHTML:
		visible, err := VisibleText(text)
		if err != nil {
			return nil, err
		}
		text = visible
	default:
		return nil, fmt.Errorf("%w: document format %q", ErrUnsupportedFormat, f.Format)
	}

	conv, err := newOffsetConverter(f.Offsets, text)
	if err != nil {
		return nil, err
	}

	doc := annotation.NewDocument(id, text)
	newSpan := func(start, end int, label string, meta map[string]any) (*annotation.Span, error) {
		s, e := conv.byteOffset(start), conv.byteOffset(end)
		if start < 0 || start > end || e < 0 || e > len(text) {
			return nil, fmt.Errorf("span [%d, %d) outside text of length %d", start, end, conv.length)
		}
		return doc.NewSpan(s, e, label, meta), nil
	}

	for name, inputs := range f.Tiers {
		spans := make([]*annotation.Span, 0, len(inputs))
		for _, in := range inputs {
			s, err := newSpan(in.Start, in.End, in.Label, in.Metadata)
			if err != nil {
				return nil, fmt.Errorf("tier %s: %w", name, err)
			}
			spans = append(spans, s)
		}
		if err := doc.AddTier(name, annotation.NewTier(spans)); err != nil {
			return nil, err
		}
	}

	if f.Tables != nil {
		tables := make([]*annotation.Span, 0, len(*f.Tables))
		for i, table := range *f.Tables {
			rows := make([][]*annotation.Span, 0, len(table.Rows))
			for _, row := range table.Rows {
				cells := make([]*annotation.Span, 0, len(row))
				for _, cell := range row {
					s, err := newSpan(cell.Start, cell.End, "", nil)
					if err != nil {
						return nil, fmt.Errorf("table %d: %w", i, err)
					}
					cells = append(cells, s)
				}
				rows = append(rows, cells)
			}

			span, err := newSpan(table.Start, table.End, "", map[string]any{
				extract.StructureTypeKey: extract.StructureTable,
				extract.StructureDataKey: rows,
			})
			if err != nil {
				return nil, fmt.Errorf("table %d: %w", i, err)
			}
			tables = append(tables, span)
		}
		if err := doc.AddTier(annotation.TierStructuredData, annotation.NewTier(tables)); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// offsetConverter maps input offsets to byte offsets
type offsetConverter struct {
	runeStarts []int // byte offset of each rune, plus len(text)
	length     int   // text length in input units
}

func newOffsetConverter(unit, text string) (*offsetConverter, error) {
	switch unit {
	case "", OffsetsBytes:
		return &offsetConverter{length: len(text)}, nil
	case OffsetsRunes:
		starts := make([]int, 0, utf8.RuneCountInString(text)+1)
		for i := range text {
			starts = append(starts, i)
		}
		starts = append(starts, len(text))
		return &offsetConverter{runeStarts: starts, length: len(starts) - 1}, nil
	default:
		return nil, fmt.Errorf("%w: offsets %q", ErrUnsupportedFormat, unit)
	}
}

// byteOffset returns -1 for a rune offset past the end of the text
func (c *offsetConverter) byteOffset(off int) int {
	if c.runeStarts == nil {
		return off
	}
	if off < 0 || off >= len(c.runeStarts) {
		return -1
	}
	return c.runeStarts[off]
}

// VisibleText extracts text nodes from HTML, skipping scripts and styles.
// Block elements end a line so tables keep one row per line.
func VisibleText(htmlContent string) (string, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] && buf.Len() > 0 &&
			!strings.HasSuffix(buf.String(), "\n") {
			buf.WriteString("\n")
		}
	}

	walk(root)
	return strings.TrimRight(buf.String(), "\n"), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true,
}
