package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/variant"
	"github.com/ppiankov/varlens/internal/worker"
)

// Candidate is a discovered variant mention and the atomic sub-mentions it splits into.
// An atomic mention has itself as its only atom.
type Candidate struct {
	Mention Mention
	Atoms   []string
}

// Grouped reports whether the mention combined several notations
func (c Candidate) Grouped() bool {
	return len(c.Atoms) > 1
}

// Atom is one parsed sub-mention
type Atom struct {
	Text     string
	Identity *model.VariantIdentity
}

// MentionGroup holds the parsed atoms of one candidate. Its atoms denote one change.
type MentionGroup struct {
	Mention Mention
	Atoms   []Atom
}

// IsGrouped reports whether a mention combines more than one notation, e.g. "c.530C>T (p.Pro177Leu)"
func IsGrouped(mention string) bool {
	return variant.CountNotations(mention) >= 2
}

// IsWeak reports whether a mention is a bare number or bare substitution with neither
// an accession nor a gene prefix, so it may belong to another gene
func IsWeak(mention string) bool {
	accession, gene := variant.Qualifier(mention)
	return accession == "" && gene == "" && variant.IsBareSubstitution(mention)
}

// VariantFinder discovers, splits, confirms and parses variant mentions
type VariantFinder struct {
	asker       llm.Asker
	parser      variant.Parser
	concurrency int
	refseq      map[string]string // gene -> transcript hint
}

// NewVariantFinder creates a finder. concurrency bounds calls in flight per stage.
func NewVariantFinder(asker llm.Asker, parser variant.Parser, concurrency int, refseq map[string]string) *VariantFinder {
	return &VariantFinder{
		asker:       asker,
		parser:      parser,
		concurrency: concurrency,
		refseq:      refseq,
	}
}

// Discover returns the variant mentions of every segment, body first
func (f *VariantFinder) Discover(ctx context.Context, gene string, paper *model.Paper) ([]Mention, []model.Diagnostic, error) {
	mentions, empty, err := discover(ctx, f.asker, f.concurrency, llm.PromptFindVariants, "variants", gene, paper)
	if err != nil {
		return nil, nil, fmt.Errorf("discover variants: %w", err)
	}

	var diags []model.Diagnostic
	if empty > 0 {
		diags = append(diags, diagnostic(model.StateVariantsDiscovered, model.DiagnosticEmptyAnswer, "",
			fmt.Sprintf("%d segment(s) returned no variant list", empty)))
	}
	return mentions, diags, nil
}

// Split breaks grouped mentions into atoms, one call per grouped mention.
// A grouped mention whose split returns nothing stays atomic.
func (f *VariantFinder) Split(ctx context.Context, gene string, mentions []Mention) ([]Candidate, []model.Diagnostic, error) {
	answers, err := worker.Gather(ctx, f.concurrency, mentions, func(ctx context.Context, m Mention) (llm.Answer, error) {
		if !IsGrouped(m.Text) {
			return nil, nil
		}
		return f.asker.Ask(ctx, llm.PromptSplitVariants, llm.Params{"gene": gene, "variant": m.Text})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("split variants: %w", err)
	}

	var diags []model.Diagnostic
	candidates := make([]Candidate, 0, len(mentions))
	for i, m := range mentions {
		atoms := []string{m.Text}
		if answers[i] != nil {
			if parts := dedupe(answers[i].Strings("variants")); len(parts) > 0 {
				atoms = parts
			} else {
				diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticEmptyAnswer, m.Text,
					"split returned nothing, mention kept whole"))
			}
		}
		candidates = append(candidates, Candidate{Mention: m, Atoms: atoms})
	}
	return candidates, diags, nil
}

// Confirm drops candidates that do not belong to gene. Weak candidates (every atom weak)
// need a positive gene-relationship answer; an empty answer rejects. Candidates whose
// explicit gene prefix names another gene are rejected without a call.
func (f *VariantFinder) Confirm(ctx context.Context, gene string, paper *model.Paper, candidates []Candidate) ([]Candidate, []model.Diagnostic, error) {
	type verdict struct {
		asked   bool
		related bool
		empty   bool
	}

	verdicts, err := worker.Gather(ctx, f.concurrency, candidates, func(ctx context.Context, c Candidate) (verdict, error) {
		if !weakCandidate(c) {
			return verdict{}, nil
		}
		answer, err := f.asker.Ask(ctx, llm.PromptConfirmGene, llm.Params{
			"gene":    gene,
			"variant": c.Mention.Text,
			"text":    segmentText(paper, c.Mention.SegmentID),
		})
		if err != nil {
			return verdict{}, err
		}
		related, ok := answer.Bool("related")
		return verdict{asked: true, related: ok && related, empty: !ok}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("confirm gene relationship: %w", err)
	}

	var diags []model.Diagnostic
	accepted := make([]Candidate, 0, len(candidates))
	for i, c := range candidates {
		if other := foreignGene(c, gene); other != "" {
			diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticRejected, c.Mention.Text,
				fmt.Sprintf("gene prefix names %s", other)))
			continue
		}
		v := verdicts[i]
		switch {
		case !v.asked, v.related:
			accepted = append(accepted, c)
		case v.empty:
			diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticRejected, c.Mention.Text,
				"gene relationship not confirmed (no answer)"))
		default:
			diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticRejected, c.Mention.Text,
				"not related to "+gene))
		}
	}
	return accepted, diags, nil
}

func weakCandidate(c Candidate) bool {
	for _, atom := range c.Atoms {
		if !IsWeak(atom) {
			return false
		}
	}
	return true
}

// foreignGene returns the gene named by an atom's prefix when it differs from gene
func foreignGene(c Candidate, gene string) string {
	for _, atom := range c.Atoms {
		if _, prefix := variant.Qualifier(atom); prefix != "" && !strings.EqualFold(prefix, gene) {
			return prefix
		}
	}
	return ""
}

// GenomeBuild asks for the paper's genome build when some atom is an unanchored genomic
// description. It returns "" when no atom needs one or the paper states none.
func (f *VariantFinder) GenomeBuild(ctx context.Context, paper *model.Paper, candidates []Candidate) (string, error) {
	needed := false
	for _, c := range candidates {
		for _, atom := range c.Atoms {
			if variant.NeedsGenomeBuild(atom) {
				needed = true
			}
		}
	}
	if !needed {
		return "", nil
	}

	answer, err := f.asker.Ask(ctx, llm.PromptGenomeBuild, llm.Params{"text": paper.FullText()})
	if err != nil {
		return "", fmt.Errorf("genome build: %w", err)
	}
	build := answer.String("genome_build")
	if strings.EqualFold(build, "null") || strings.EqualFold(build, "unknown") {
		build = ""
	}
	slog.Debug("genome build determined", "paper", paper.ID, "build", build)
	return build, nil
}

// Parse parses every atom independently. Atoms the parser rejects are dropped with a
// diagnostic; invalid identities are kept. Candidates left without atoms are dropped.
func (f *VariantFinder) Parse(ctx context.Context, gene, build string, candidates []Candidate) ([]MentionGroup, []model.Diagnostic, error) {
	var diags []model.Diagnostic
	groups := make([]MentionGroup, 0, len(candidates))

	for _, c := range candidates {
		group := MentionGroup{Mention: c.Mention}
		for _, atom := range c.Atoms {
			id, err := f.parser.Parse(ctx, variant.ParseRequest{
				Text:        atom,
				GeneSymbol:  gene,
				RefSeq:      f.refseq[gene],
				GenomeBuild: build,
			})
			var perr *model.ParseError
			switch {
			case errors.As(err, &perr):
				diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticParseFailure, atom, perr.Reason))
				continue
			case err != nil:
				return nil, nil, fmt.Errorf("parse %q: %w", atom, err)
			}
			if !id.Valid {
				diags = append(diags, diagnostic(model.StateVariantsValidated, model.DiagnosticInvalidParsed, atom, id.ValidationError))
			}
			group.Atoms = append(group.Atoms, Atom{Text: atom, Identity: id})
		}
		if len(group.Atoms) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, diags, nil
}
