// Package resolve turns the text of one paper into deduplicated
// (variant, individual) observations for one gene.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/varlens/internal/extract"
	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/metrics"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/variant"
)

// Options tune a Resolver
type Options struct {
	Concurrency int               // Inference calls in flight per stage
	RefSeqHints map[string]string // Gene -> transcript used when a mention names none
	Evidence    bool              // Attach supporting sentences to observations
}

// Resolver runs the observation resolution state machine
type Resolver struct {
	asker      llm.Asker
	parser     variant.Parser
	comparator variant.Comparator
	recorder   *metrics.Recorder
	opts       Options
}

// New creates a resolver. recorder may be nil.
func New(asker llm.Asker, parser variant.Parser, comparator variant.Comparator, recorder *metrics.Recorder, opts Options) *Resolver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Resolver{
		asker:      asker,
		parser:     parser,
		comparator: comparator,
		recorder:   recorder,
		opts:       opts,
	}
}

// run carries the state of one resolution
type run struct {
	*Resolver
	paper    *model.Paper
	gene     string
	res      *model.Resolution
	counter  *llm.Counter
	variants *extract.VariantFinder
	patients *extract.PatientFinder
}

// Resolve resolves the observations of gene in paper.
// Early exits are returned as a Resolution with a Reason, not as errors;
// an error means a collaborator failed and the paper has no result.
func (r *Resolver) Resolve(ctx context.Context, paper *model.Paper, gene string) (*model.Resolution, error) {
	counter := llm.NewCounter(r.asker)
	rn := &run{
		Resolver: r,
		paper:    paper,
		gene:     gene,
		counter:  counter,
		variants: extract.NewVariantFinder(counter, r.parser, r.opts.Concurrency, r.opts.RefSeqHints),
		patients: extract.NewPatientFinder(counter, r.opts.Concurrency),
		res: &model.Resolution{
			PaperID:   paper.ID,
			Gene:      gene,
			State:     model.StateStart,
			Trail:     []model.State{model.StateStart},
			StartedAt: time.Now().UTC(),
		},
	}

	if err := rn.execute(ctx); err != nil {
		slog.Error("resolution failed", "paper", paper.ID, "gene", gene, "state", rn.res.State, "error", err)
		return nil, fmt.Errorf("resolve %s/%s: %w", paper.ID, gene, err)
	}

	res := rn.res
	res.Calls = counter.Counts()
	res.Duration = time.Since(res.StartedAt)
	r.recorder.Resolution(string(res.Reason), len(res.Observations))

	slog.Info("paper resolved",
		"paper", paper.ID,
		"gene", gene,
		"reason", res.Reason,
		"observations", len(res.Observations),
		"diagnostics", len(res.Diagnostics),
		"calls", counter.Total(),
	)
	return res, nil
}

func (rn *run) note(diags []model.Diagnostic) {
	for _, d := range diags {
		if d.Kind == model.DiagnosticParseFailure {
			rn.recorder.ParseFailure()
		}
		slog.Debug("diagnostic", "paper", rn.paper.ID, "stage", d.Stage, "kind", d.Kind, "mention", d.Mention, "message", d.Message)
		rn.res.Note(d)
	}
}

func (rn *run) stop(reason model.Reason) {
	rn.res.Finish(reason)
	slog.Info("no observations", "paper", rn.paper.ID, "gene", rn.gene, "reason", reason, "after", rn.res.Trail[len(rn.res.Trail)-2])
}

func (rn *run) execute(ctx context.Context) error {
	// 1. Sanity gate
	relevant, err := rn.sanityCheck(ctx)
	if err != nil {
		return err
	}
	rn.res.Transition(model.StateSanityChecked)
	if !relevant {
		rn.stop(model.ReasonIrrelevant)
		return nil
	}

	// 2. Variant discovery
	mentions, diags, err := rn.variants.Discover(ctx, rn.gene, rn.paper)
	if err != nil {
		return err
	}
	rn.note(diags)
	rn.res.Transition(model.StateVariantsDiscovered)
	if len(mentions) == 0 {
		rn.stop(model.ReasonNoVariants)
		return nil
	}

	// 3. Split, confirm and parse
	groups, reason, err := rn.validateVariants(ctx, mentions)
	if err != nil {
		return err
	}
	rn.res.Transition(model.StateVariantsValidated)
	if reason != "" {
		rn.stop(reason)
		return nil
	}
	idx := buildIndex(rn.comparator, groups)

	// 4. Patient discovery and splitting
	found, diags, err := rn.patients.Discover(ctx, rn.gene, rn.paper)
	if err != nil {
		return err
	}
	rn.note(diags)
	split, diags, err := rn.patients.Split(ctx, found)
	if err != nil {
		return err
	}
	rn.note(diags)
	rn.res.Transition(model.StatePatientsDiscovered)

	// 5. Patient validation
	patients, diags, err := rn.patients.Validate(ctx, rn.paper, split)
	if err != nil {
		return err
	}
	rn.note(diags)
	rn.res.Transition(model.StatePatientsValidated)

	// 6. Linking
	links, err := rn.link(ctx, idx, patients)
	if err != nil {
		return err
	}
	rn.res.Transition(model.StateLinked)

	// 7. Assembly
	rn.res.Observations = rn.assemble(idx, links)
	rn.res.Transition(model.StateAssembled)
	rn.res.Finish(model.ReasonResolved)
	return nil
}

func (rn *run) sanityCheck(ctx context.Context) (bool, error) {
	answer, err := rn.counter.Ask(ctx, llm.PromptGeneRelevance, llm.Params{
		"gene": rn.gene,
		"text": rn.paper.FullText(),
	})
	if err != nil {
		return false, fmt.Errorf("sanity gate: %w", err)
	}
	relevant, ok := answer.Bool("relevant")
	if !ok {
		rn.note([]model.Diagnostic{{
			Stage:   model.StateSanityChecked,
			Kind:    model.DiagnosticEmptyAnswer,
			Message: "relevance check gave no answer, treated as not relevant",
		}})
	}
	return ok && relevant, nil
}

// validateVariants splits grouped mentions, confirms weak ones and parses the rest.
// A non-empty reason means nothing survived.
func (rn *run) validateVariants(ctx context.Context, mentions []extract.Mention) ([]extract.MentionGroup, model.Reason, error) {
	candidates, diags, err := rn.variants.Split(ctx, rn.gene, mentions)
	if err != nil {
		return nil, "", err
	}
	rn.note(diags)

	accepted, diags, err := rn.variants.Confirm(ctx, rn.gene, rn.paper, candidates)
	if err != nil {
		return nil, "", err
	}
	rn.note(diags)
	if len(accepted) == 0 {
		return nil, model.ReasonNoConfirmedVariants, nil
	}

	build, err := rn.variants.GenomeBuild(ctx, rn.paper, accepted)
	if err != nil {
		return nil, "", err
	}

	groups, diags, err := rn.variants.Parse(ctx, rn.gene, build, accepted)
	if err != nil {
		return nil, "", err
	}
	rn.note(diags)
	if len(groups) == 0 {
		return nil, model.ReasonUnparseable, nil
	}
	return groups, "", nil
}
