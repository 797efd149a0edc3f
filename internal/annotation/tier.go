package annotation

import "sort"

// Tier is an ordered sequence of spans produced by one recognizer.
// Spans are sorted by start offset, then end offset.
type Tier struct {
	spans []*Span
}

// Grouping pairs an outer span with the inner spans it fully contains
type Grouping struct {
	Outer *Span
	Inner []*Span
}

// NewTier sorts spans into a tier. The input slice is not modified.
func NewTier(spans []*Span) *Tier {
	sorted := append([]*Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})
	return &Tier{spans: sorted}
}

// NewPresortedTier wraps spans the caller guarantees to be in ascending start
// order without sorting them
func NewPresortedTier(spans []*Span) *Tier {
	return &Tier{spans: spans}
}

// Spans returns the tier's spans in order
func (t *Tier) Spans() []*Span {
	if t == nil {
		return nil
	}
	return t.spans
}

// Len returns the number of spans
func (t *Tier) Len() int {
	if t == nil {
		return 0
	}
	return len(t.spans)
}

// At returns the i-th span
func (t *Tier) At(i int) *Span {
	return t.spans[i]
}

// GroupByContainingSpan pairs every span of t, in order, with the spans of
// inner it fully contains. Outer spans without contained spans get an empty
// group. Only offsets are compared.
func (t *Tier) GroupByContainingSpan(inner *Tier) []Grouping {
	groups := make([]Grouping, 0, t.Len())
	innerSpans := inner.Spans()

	for _, outer := range t.Spans() {
		// First inner span that could start inside outer
		i := sort.Search(len(innerSpans), func(k int) bool {
			return innerSpans[k].Start >= outer.Start
		})

		contained := []*Span{}
		for ; i < len(innerSpans); i++ {
			s := innerSpans[i]
			if s.Start > outer.End {
				break
			}
			if outer.Contains(s) {
				contained = append(contained, s)
			}
		}
		groups = append(groups, Grouping{Outer: outer, Inner: contained})
	}
	return groups
}

// WithoutOverlaps returns the spans of t that overlap no span of exclude.
// Only offsets are compared.
func (t *Tier) WithoutOverlaps(exclude *Tier) *Tier {
	excluded := exclude.Spans()
	kept := make([]*Span, 0, t.Len())

	for _, s := range t.Spans() {
		if !overlapsAny(s, excluded) {
			kept = append(kept, s)
		}
	}
	return NewPresortedTier(kept)
}

// overlapsAny scans the sorted candidates until none can overlap s
func overlapsAny(s *Span, sorted []*Span) bool {
	for _, other := range sorted {
		if other.Start >= s.End && other.Start > s.Start {
			return false
		}
		if s.Overlaps(other) {
			return true
		}
	}
	return false
}

// Filter returns the spans for which keep returns true, preserving order
func (t *Tier) Filter(keep func(*Span) bool) *Tier {
	var kept []*Span
	for _, s := range t.Spans() {
		if keep(s) {
			kept = append(kept, s)
		}
	}
	return NewPresortedTier(kept)
}

// Concat merges tiers into a new sorted tier
func Concat(tiers ...*Tier) *Tier {
	var all []*Span
	for _, t := range tiers {
		all = append(all, t.Spans()...)
	}
	return NewTier(all)
}
