package extract

import (
	"strings"

	"github.com/ppiankov/varlens/internal/model"
)

// maxSnippets caps the evidence sentences kept per observation
const maxSnippets = 3

// Snippets returns up to maxSnippets sentences (body) or rows (tables) that contain
// one of the mentions, ignoring whitespace differences, in document order
func Snippets(paper *model.Paper, mentions []string) []string {
	needles := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if n := squash(m); n != "" {
			needles = append(needles, n)
		}
	}
	if len(needles) == 0 {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, seg := range paper.Ordered() {
		var units []string
		if seg.Kind == model.SegmentTable {
			units = strings.Split(seg.Text, "\n")
		} else {
			units = splitSentences(seg.Text)
		}

		for _, unit := range units {
			unit = strings.TrimSpace(unit)
			if unit == "" || seen[unit] {
				continue
			}
			hay := squash(unit)
			for _, n := range needles {
				if strings.Contains(hay, n) {
					seen[unit] = true
					out = append(out, unit)
					break
				}
			}
			if len(out) == maxSnippets {
				return out
			}
		}
	}
	return out
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// splitSentences splits text on sentence terminators followed by whitespace.
// Decimal points and HGVS dots ("c.530") are not followed by whitespace and never split.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				if sentence := strings.TrimSpace(current.String()); sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}
