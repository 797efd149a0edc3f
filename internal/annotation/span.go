// Package annotation holds the span and tier model shared by every
// annotator that runs over a document.
package annotation

// Span is a half-open byte range [Start, End) of a document's text with an
// optional label and metadata. A span built from constituent spans (a span
// group) keeps them in Children.
type Span struct {
	Start    int
	End      int
	Label    string
	Metadata map[string]any
	Children []*Span

	doc *Document
}

// NewSpanGroup builds a span covering all of spans. It returns nil for an
// empty slice.
func NewSpanGroup(spans []*Span, label string) *Span {
	if len(spans) == 0 {
		return nil
	}

	group := &Span{
		Start:    spans[0].Start,
		End:      spans[0].End,
		Label:    label,
		Children: append([]*Span(nil), spans...),
		doc:      spans[0].doc,
	}
	for _, s := range spans[1:] {
		if s.Start < group.Start {
			group.Start = s.Start
		}
		if s.End > group.End {
			group.End = s.End
		}
	}
	return group
}

// WithMetadata returns a copy of s carrying metadata
func (s *Span) WithMetadata(metadata map[string]any) *Span {
	c := *s
	c.Metadata = metadata
	return &c
}

// Document returns the document the span points into
func (s *Span) Document() *Document {
	return s.doc
}

// Text returns the covered text, or "" for a detached span
func (s *Span) Text() string {
	if s.doc == nil {
		return ""
	}
	return s.doc.slice(s.Start, s.End)
}

// Len returns the span length in bytes
func (s *Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the ranges of s and other intersect.
// A zero length span overlaps a span whose range includes its position.
func (s *Span) Overlaps(other *Span) bool {
	return (s.Start >= other.Start && s.Start < other.End) ||
		(other.Start >= s.Start && other.Start < s.End)
}

// Contains reports whether other lies fully within s
func (s *Span) Contains(other *Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Leaves returns the constituent spans of a group, recursively, or the span
// itself when it has no children
func (s *Span) Leaves() []*Span {
	if len(s.Children) == 0 {
		return []*Span{s}
	}
	var leaves []*Span
	for _, c := range s.Children {
		leaves = append(leaves, c.Leaves()...)
	}
	return leaves
}
