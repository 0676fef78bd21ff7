// Package fields derives per-observation attributes (study type, phenotype, zygosity...)
// from a paper once its observations are resolved.
package fields

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/varlens/internal/cache"
	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/metrics"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/worker"
)

// Field names
const (
	StudyType       = "study_type"
	VariantType     = "variant_type"
	FunctionalStudy = "functional_study"
	Phenotype       = "phenotype"
	Sex             = "sex"
	Zygosity        = "zygosity"
	Inheritance     = "inheritance"
)

// Unknown is the value of a field the text does not state
const Unknown = "unknown"

// scope is where a field's value is shared; scopeObservation values are never cached
const scopeObservation = "observation"

type field struct {
	name  string
	scope string
	tag   llm.PromptTag
}

// table is the fixed field set, in output order
var table = []field{
	{StudyType, cache.ScopePaper, llm.PromptStudyType},
	{VariantType, cache.ScopeVariant, llm.PromptVariantType},
	{FunctionalStudy, cache.ScopeVariant, llm.PromptFunctionalStudy},
	{Phenotype, cache.ScopeIndividual, llm.PromptPhenotype},
	{Sex, cache.ScopeIndividual, llm.PromptSex},
	{Zygosity, scopeObservation, llm.PromptZygosity},
	{Inheritance, scopeObservation, llm.PromptInheritance},
}

// Names returns the field names in output order
func Names() []string {
	out := make([]string, len(table))
	for i, f := range table {
		out[i] = f.name
	}
	return out
}

// Record is one observation with its derived fields
type Record struct {
	Observation model.Observation `json:"observation"`
	Fields      map[string]string `json:"fields"`
}

// Extractor computes the field table for resolved observations
type Extractor struct {
	asker       llm.Asker
	concurrency int
	recorder    *metrics.Recorder
}

// NewExtractor creates an extractor; recorder may be nil
func NewExtractor(asker llm.Asker, concurrency int, recorder *metrics.Recorder) *Extractor {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Extractor{asker: asker, concurrency: concurrency, recorder: recorder}
}

// Extract computes every field for every observation, concurrently across observations.
// Paper, variant and individual fields are computed once per entity for the whole call,
// however many observations share that entity.
func (e *Extractor) Extract(ctx context.Context, paper *model.Paper, gene string, observations []model.Observation) ([]Record, error) {
	x := &extraction{
		Extractor: e,
		gene:      gene,
		text:      paper.FullText(),
		entities:  cache.NewEntityCache[string](e.recorder),
	}

	records, err := worker.Gather(ctx, e.concurrency, observations, x.record)
	if err != nil {
		return nil, fmt.Errorf("extract fields for %s: %w", paper.ID, err)
	}
	slog.Debug("fields extracted", "paper", paper.ID, "observations", len(records), "entities", x.entities.Len())
	return records, nil
}

type extraction struct {
	*Extractor
	gene     string
	text     string
	entities *cache.EntityCache[string]
}

func (x *extraction) record(ctx context.Context, obs model.Observation) (Record, error) {
	rec := Record{Observation: obs, Fields: make(map[string]string, len(table))}
	for _, f := range table {
		v, err := x.value(ctx, f, obs)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", f.name, err)
		}
		rec.Fields[f.name] = v
	}
	return rec, nil
}

func (x *extraction) value(ctx context.Context, f field, obs model.Observation) (string, error) {
	compute := func(ctx context.Context) (string, error) {
		return x.ask(ctx, f, obs)
	}

	switch f.scope {
	case cache.ScopePaper:
		return x.entities.Get(ctx, cache.PaperField(f.name), compute)
	case cache.ScopeVariant:
		return x.entities.Get(ctx, cache.VariantField(obs.Variant.Key(), f.name), compute)
	case cache.ScopeIndividual:
		if obs.Individual == model.UnknownIndividual {
			return Unknown, nil
		}
		return x.entities.Get(ctx, cache.IndividualField(obs.Individual, f.name), compute)
	default:
		return compute(ctx)
	}
}

// params carries only the entities of the field's scope, so a cached value
// never depends on which observation computed it
func (x *extraction) params(f field, obs model.Observation) llm.Params {
	params := llm.Params{"gene": x.gene, "text": x.text}
	switch f.scope {
	case cache.ScopePaper:
	case cache.ScopeVariant:
		params["variant"] = obs.Variant.Description
	case cache.ScopeIndividual:
		params["individual"] = obs.Individual
	default:
		params["variant"] = obs.Variant.Description
		params["individual"] = obs.Individual
	}
	return params
}

func (x *extraction) ask(ctx context.Context, f field, obs model.Observation) (string, error) {
	answer, err := x.asker.Ask(ctx, f.tag, x.params(f, obs))
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(answer.String("value"))
	if v == "" {
		return Unknown, nil
	}
	return v, nil
}
