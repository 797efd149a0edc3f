package annotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Tier names produced by the external collaborators and by this module
const (
	TierTokens              = "spacy.tokens"
	TierNamedEntities       = "spacy.nes"
	TierGeonames            = "geonames"
	TierDates               = "dates"
	TierResolvedKeywords    = "resolved_keywords"
	TierStructuredData      = "structured_data"
	TierStructuredIncidents = "structured_incidents"
)

var (
	// ErrMissingTier is returned when a stage needs a tier nobody added
	ErrMissingTier = errors.New("missing tier")
	// ErrTierExists is returned when a tier name is added twice
	ErrTierExists = errors.New("tier already exists")
)

// Annotator produces new tiers from the tiers it requires
type Annotator interface {
	Name() string
	Requires() []string
	Annotate(ctx context.Context, doc *Document) (map[string]*Tier, error)
}

// Document is the per-document annotation context: the text plus the named
// tiers added so far. Tiers are never replaced once added.
type Document struct {
	ID   string
	Text string

	tiers map[string]*Tier
}

// NewDocument creates an empty annotation context for text
func NewDocument(id, text string) *Document {
	return &Document{
		ID:    id,
		Text:  text,
		tiers: make(map[string]*Tier),
	}
}

// NewSpan creates a span over the document, clamping offsets to the text
func (d *Document) NewSpan(start, end int, label string, metadata map[string]any) *Span {
	start = clamp(start, 0, len(d.Text))
	end = clamp(end, start, len(d.Text))
	return &Span{
		Start:    start,
		End:      end,
		Label:    label,
		Metadata: metadata,
		doc:      d,
	}
}

// AddTier registers a tier under name
func (d *Document) AddTier(name string, tier *Tier) error {
	if _, exists := d.tiers[name]; exists {
		return fmt.Errorf("%w: %s", ErrTierExists, name)
	}
	if tier == nil {
		tier = NewPresortedTier(nil)
	}
	d.tiers[name] = tier
	return nil
}

// Tier returns the named tier
func (d *Document) Tier(name string) (*Tier, error) {
	tier, ok := d.tiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTier, name)
	}
	return tier, nil
}

// HasTier reports whether the named tier was added
func (d *Document) HasTier(name string) bool {
	_, ok := d.tiers[name]
	return ok
}

// TierNames returns the added tier names, sorted
func (d *Document) TierNames() []string {
	names := make([]string, 0, len(d.tiers))
	for name := range d.tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Require checks that every named tier is present
func (d *Document) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if !d.HasTier(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingTier, missing)
	}
	return nil
}

// Apply runs an annotator after checking its declared dependencies and adds
// the tiers it returns
func (d *Document) Apply(ctx context.Context, a Annotator) error {
	if err := d.Require(a.Requires()...); err != nil {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}

	tiers, err := a.Annotate(ctx, d)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}

	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := d.AddTier(name, tiers[name]); err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
	}
	return nil
}

func (d *Document) slice(start, end int) string {
	start = clamp(start, 0, len(d.Text))
	end = clamp(end, start, len(d.Text))
	return d.Text[start:end]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
