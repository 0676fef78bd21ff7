package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/worker"
)

var (
	conjunction    = regexp.MustCompile(`(?i)(?:\band\b|&|,|;|\bto\b|\d\s*[-–]\s*\d)`)
	numericPatient = regexp.MustCompile(`^\d+$`)
	singleLetter   = regexp.MustCompile(`^[A-Za-z]$`)
	romanNumeral   = regexp.MustCompile(`^[IVXLC]+$`)
)

// HasConjunction reports whether a patient mention may name several individuals,
// e.g. "probands 5 and 6" or "patients 1-3"
func HasConjunction(mention string) bool {
	return conjunction.MatchString(mention)
}

// IsAmbiguousPatient reports whether a mention is too bare to stand as an identifier
// on its own: purely numeric, a single letter or a bare roman numeral
func IsAmbiguousPatient(mention string) bool {
	m := strings.TrimSpace(mention)
	return numericPatient.MatchString(m) || singleLetter.MatchString(m) || romanNumeral.MatchString(m)
}

// PatientFinder discovers, splits and validates patient mentions
type PatientFinder struct {
	asker       llm.Asker
	concurrency int
}

// NewPatientFinder creates a finder. concurrency bounds calls in flight per stage.
func NewPatientFinder(asker llm.Asker, concurrency int) *PatientFinder {
	return &PatientFinder{asker: asker, concurrency: concurrency}
}

// Discover returns the patient mentions of every segment, body first
func (f *PatientFinder) Discover(ctx context.Context, gene string, paper *model.Paper) ([]Mention, []model.Diagnostic, error) {
	mentions, empty, err := discover(ctx, f.asker, f.concurrency, llm.PromptFindPatients, "patients", gene, paper)
	if err != nil {
		return nil, nil, fmt.Errorf("discover patients: %w", err)
	}

	var diags []model.Diagnostic
	if empty > 0 {
		diags = append(diags, diagnostic(model.StatePatientsDiscovered, model.DiagnosticEmptyAnswer, "",
			fmt.Sprintf("%d segment(s) returned no patient list", empty)))
	}
	return mentions, diags, nil
}

// Split breaks mentions with a conjunction into atomic mentions, one call each.
// The result keeps first-seen order without duplicates; an empty split keeps the mention.
func (f *PatientFinder) Split(ctx context.Context, mentions []Mention) ([]Mention, []model.Diagnostic, error) {
	answers, err := worker.Gather(ctx, f.concurrency, mentions, func(ctx context.Context, m Mention) (llm.Answer, error) {
		if !HasConjunction(m.Text) {
			return nil, nil
		}
		return f.asker.Ask(ctx, llm.PromptSplitPatients, llm.Params{"patient": m.Text})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("split patients: %w", err)
	}

	var diags []model.Diagnostic
	var out []Mention
	seen := make(map[string]bool)
	add := func(text, segment string) {
		if !seen[text] {
			seen[text] = true
			out = append(out, Mention{Text: text, SegmentID: segment})
		}
	}

	for i, m := range mentions {
		if answers[i] == nil {
			add(m.Text, m.SegmentID)
			continue
		}
		parts := dedupe(answers[i].Strings("patients"))
		if len(parts) == 0 {
			diags = append(diags, diagnostic(model.StatePatientsDiscovered, model.DiagnosticEmptyAnswer, m.Text,
				"split returned nothing, mention kept whole"))
			add(m.Text, m.SegmentID)
			continue
		}
		for _, p := range parts {
			add(p, m.SegmentID)
		}
	}
	return out, diags, nil
}

// Validate drops ambiguous mentions that a patient-existence call does not confirm.
// Every ambiguous mention gets its own call, all issued together; an empty answer drops.
func (f *PatientFinder) Validate(ctx context.Context, paper *model.Paper, mentions []Mention) ([]string, []model.Diagnostic, error) {
	type verdict struct {
		asked bool
		ok    bool
		empty bool
	}

	verdicts, err := worker.Gather(ctx, f.concurrency, mentions, func(ctx context.Context, m Mention) (verdict, error) {
		if !IsAmbiguousPatient(m.Text) {
			return verdict{}, nil
		}
		answer, err := f.asker.Ask(ctx, llm.PromptValidatePatient, llm.Params{
			"patient": m.Text,
			"text":    segmentText(paper, m.SegmentID),
		})
		if err != nil {
			return verdict{}, err
		}
		isPatient, ok := answer.Bool("is_patient")
		return verdict{asked: true, ok: ok && isPatient, empty: !ok}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("validate patients: %w", err)
	}

	var diags []model.Diagnostic
	confirmed := make([]string, 0, len(mentions))
	for i, m := range mentions {
		v := verdicts[i]
		switch {
		case !v.asked, v.ok:
			confirmed = append(confirmed, m.Text)
		case v.empty:
			diags = append(diags, diagnostic(model.StatePatientsValidated, model.DiagnosticRejected, m.Text,
				"patient existence not confirmed (no answer)"))
		default:
			diags = append(diags, diagnostic(model.StatePatientsValidated, model.DiagnosticRejected, m.Text,
				"not an individual"))
		}
	}
	return confirmed, diags, nil
}
