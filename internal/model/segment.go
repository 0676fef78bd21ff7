package model

import "strings"

// SegmentKind classifies where a piece of paper text came from
type SegmentKind string

const (
	SegmentBody  SegmentKind = "body"  // Main text of the paper
	SegmentTable SegmentKind = "table" // One extracted table
)

// TextSegment is an immutable chunk of paper text supplied by the document layer
type TextSegment struct {
	ID   string      `json:"id" yaml:"id"`
	Kind SegmentKind `json:"kind" yaml:"kind"`
	Text string      `json:"text" yaml:"text"`
}

// Paper is the unit of one resolution run
type Paper struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Source   string        `json:"source,omitempty" yaml:"source,omitempty"` // File path or URL the paper was loaded from
	Segments []TextSegment `json:"segments" yaml:"segments"`
}

// Body returns the body segment, or an empty one if the paper has none
func (p *Paper) Body() TextSegment {
	for _, s := range p.Segments {
		if s.Kind == SegmentBody {
			return s
		}
	}
	return TextSegment{ID: p.ID + "#body", Kind: SegmentBody}
}

// Tables returns the table segments in document order
func (p *Paper) Tables() []TextSegment {
	var tables []TextSegment
	for _, s := range p.Segments {
		if s.Kind == SegmentTable {
			tables = append(tables, s)
		}
	}
	return tables
}

// Ordered returns the body followed by every table. Discovery merges in this order.
func (p *Paper) Ordered() []TextSegment {
	return append([]TextSegment{p.Body()}, p.Tables()...)
}

// FullText joins every segment, body first
func (p *Paper) FullText() string {
	var b strings.Builder
	for i, s := range p.Ordered() {
		if s.Text == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Text)
	}
	return b.String()
}
