// Package extract finds variant and patient mentions in paper text and
// validates the ambiguous ones with focused inference calls.
package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/worker"
)

// Mention is a raw substring found in one segment
type Mention struct {
	Text      string
	SegmentID string
}

// discover asks tag once per segment, concurrently, and merges the lists body first,
// then tables in segment order. Exact duplicates (case-sensitive) keep their first position.
func discover(ctx context.Context, asker llm.Asker, limit int, tag llm.PromptTag, key, gene string, paper *model.Paper) ([]Mention, int, error) {
	var segments []model.TextSegment
	for _, seg := range paper.Ordered() {
		if strings.TrimSpace(seg.Text) != "" {
			segments = append(segments, seg)
		}
	}

	answers, err := worker.Gather(ctx, limit, segments, func(ctx context.Context, seg model.TextSegment) (llm.Answer, error) {
		return asker.Ask(ctx, tag, llm.Params{"gene": gene, "text": seg.Text})
	})
	if err != nil {
		return nil, 0, err
	}

	var mentions []Mention
	seen := make(map[string]bool)
	empty := 0
	for i, answer := range answers {
		if answer.Empty() {
			empty++
			continue
		}
		for _, text := range answer.Strings(key) {
			if seen[text] {
				continue
			}
			seen[text] = true
			mentions = append(mentions, Mention{Text: text, SegmentID: segments[i].ID})
		}
	}
	return mentions, empty, nil
}

// segmentText returns the text of the segment a mention came from, or the whole paper
func segmentText(paper *model.Paper, id string) string {
	for _, seg := range paper.Segments {
		if seg.ID == id {
			return seg.Text
		}
	}
	return paper.FullText()
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func diagnostic(stage model.State, kind model.DiagnosticKind, mention, msg string) model.Diagnostic {
	return model.Diagnostic{Stage: stage, Kind: kind, Mention: mention, Message: msg}
}
