package gazetteer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/epitab/internal/numparse"
)

// Record is one decoded dataset row
type Record struct {
	Place          Place
	AlternateNames []string // As listed in the dataset, may be empty

	// Numeric fields that could not be parsed and were set to 0
	Defaulted []string
}

// Names returns the distinct alternate names of the record plus its
// canonical name. Empty alternate names are skipped.
func (r *Record) Names() []string {
	seen := make(map[string]bool, len(r.AlternateNames)+1)
	names := make([]string, 0, len(r.AlternateNames)+1)
	for _, n := range r.AlternateNames {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if !seen[r.Place.Name] {
		names = append(names, r.Place.Name)
	}
	return names
}

// AlternateNameRows expands the record into alternatenames rows
func (r *Record) AlternateNameRows() []AlternateName {
	names := r.Names()
	rows := make([]AlternateName, 0, len(names))
	for _, n := range names {
		rows = append(rows, AlternateName{
			GeonameID:               r.Place.GeonameID,
			AlternateName:           n,
			AlternateNameLemmatized: Normalize(n),
		})
	}
	return rows
}

// Normalize returns the lookup form of a name
func Normalize(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// Reader decodes the tab-delimited dataset. Fields are never quoted.
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader creates a dataset reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 1<<20)}
}

// Line returns the number of lines consumed so far
func (d *Reader) Line() int {
	return d.line
}

// Next returns the next record, or io.EOF at the end of input
func (d *Reader) Next() (*Record, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", d.line+1, err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		d.line++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			continue
		}
		return ParseRecord(line), nil
	}
}

// ParseRecord decodes one dataset line. Missing trailing fields are empty
// and malformed numeric fields default to 0.
func ParseRecord(line string) *Record {
	values := strings.Split(line, "\t")
	field := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	rec := &Record{}
	number := func(name string, i int) numparse.Field {
		f := numparse.ParseField(field(i), 0)
		if !f.Parsed() {
			rec.Defaulted = append(rec.Defaulted, name)
		}
		return f
	}

	rec.Place = Place{
		GeonameID:    field(0),
		Name:         field(1),
		ASCIIName:    field(2),
		Latitude:     number("latitude", 4).Value,
		Longitude:    number("longitude", 5).Value,
		FeatureClass: field(6),
		FeatureCode:  field(7),
		CountryCode:  field(8),
		CC2:          field(9),
		Admin1Code:   field(10),
		Admin2Code:   field(11),
		Admin3Code:   field(12),
		Admin4Code:   field(13),
		Population:   number("population", 14).Int(),
	}

	if alt := field(3); alt != "" {
		rec.AlternateNames = strings.Split(alt, ",")
	}
	return rec
}
