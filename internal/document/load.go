package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/varlens/internal/model"
)

// LoadFile reads a paper from disk. JSON and YAML files are segment manifests,
// HTML files are parsed with ParseHTML, anything else is one body segment.
func LoadFile(path string) (*model.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paper: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var paper *model.Paper
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		paper = &model.Paper{}
		if err := json.Unmarshal(data, paper); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		paper = &model.Paper{}
		if err := yaml.Unmarshal(data, paper); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".html", ".htm":
		paper, err = ParseHTML(bytes.NewReader(data), id)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		paper = &model.Paper{
			Segments: []model.TextSegment{{ID: id + "#body", Kind: model.SegmentBody, Text: string(data)}},
		}
	}

	if paper.ID == "" {
		paper.ID = id
	}
	paper.Source = path
	if err := check(paper); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return paper, nil
}

// check rejects manifests the resolver cannot use
func check(p *model.Paper) error {
	bodies := 0
	seen := make(map[string]bool, len(p.Segments))
	for i, s := range p.Segments {
		switch s.Kind {
		case model.SegmentBody:
			bodies++
		case model.SegmentTable:
		default:
			return fmt.Errorf("segment %d: unknown kind %q", i, s.Kind)
		}
		if s.ID == "" {
			p.Segments[i].ID = fmt.Sprintf("%s#%d", p.ID, i)
		} else if seen[s.ID] {
			return fmt.Errorf("duplicate segment id %q", s.ID)
		}
		seen[p.Segments[i].ID] = true
	}
	if bodies > 1 {
		return fmt.Errorf("paper has %d body segments", bodies)
	}
	return nil
}

// IsURL reports whether source should be fetched rather than read from disk
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Loader loads papers from files, or through a fetcher for URLs
type Loader struct {
	fetcher *Fetcher
}

// NewLoader creates a loader; fetcher may be nil when only files are used
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load reads the paper named by source
func (l *Loader) Load(ctx context.Context, source string) (*model.Paper, error) {
	if !IsURL(source) {
		return LoadFile(source)
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("cannot fetch %s: no fetcher configured", source)
	}

	result, err := l.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, err
	}
	paper, err := ParseHTML(strings.NewReader(result.HTML), result.FinalURL)
	if err != nil {
		return nil, err
	}
	paper.Source = source
	return paper, nil
}
