// Package document turns paper sources (files, URLs) into segmented papers.
package document

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/varlens/internal/model"
)

// ParseHTML splits an HTML paper into one body segment (visible text outside tables)
// and one table segment per <table>, in document order. Table rows become
// tab-separated lines, preceded by the caption when there is one.
func ParseHTML(r io.Reader, id string) (*model.Paper, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	p := &htmlPages{}
	p.walk(doc)

	paper := &model.Paper{
		ID:    id,
		Title: strings.TrimSpace(p.title),
		Segments: []model.TextSegment{{
			ID:   id + "#body",
			Kind: model.SegmentBody,
			Text: collapse(p.body.String()),
		}},
	}
	for i, t := range p.tables {
		paper.Segments = append(paper.Segments, model.TextSegment{
			ID:   fmt.Sprintf("%s#table-%d", id, i+1),
			Kind: model.SegmentTable,
			Text: t,
		})
	}
	return paper, nil
}

type htmlPages struct {
	title  string
	body   strings.Builder
	tables []string
}

func (p *htmlPages) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Head:
			if n.DataAtom == atom.Head {
				p.findTitle(n)
			}
			return
		case atom.Table:
			if t := tableText(n); t != "" {
				p.tables = append(p.tables, t)
			}
			return
		}
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			p.body.WriteString(text)
			p.body.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}

	// Block ends keep sentences in separate paragraphs apart
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		p.body.WriteString("\n")
	}
}

func (p *htmlPages) findTitle(head *html.Node) {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			p.title = textOf(c)
			return
		}
	}
}

func tableText(table *html.Node) string {
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Caption:
				if c := textOf(n); c != "" {
					lines = append(lines, c)
				}
				return
			case atom.Tr:
				var cells []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
						cells = append(cells, textOf(c))
					}
				}
				if strings.TrimSpace(strings.Join(cells, "")) != "" {
					lines = append(lines, strings.Join(cells, "\t"))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	return strings.Join(lines, "\n")
}

// textOf returns the whitespace-collapsed text under n
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// collapse trims each line and drops empty ones
func collapse(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Br,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Figcaption, atom.Blockquote:
		return true
	}
	return false
}
