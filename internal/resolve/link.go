package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/varlens/internal/extract"
	"github.com/ppiankov/varlens/internal/llm"
	"github.com/ppiankov/varlens/internal/model"
)

const unmatchedKey = "unmatched_variants"

// attribution is one (patient, variant mention) pair from the linking answer
type attribution struct {
	patient   string // Confirmed patient mention, empty when unmatched
	mention   string
	unmatched bool // Listed under the unmatched bucket
}

// link asks which patient carries which variant. With no confirmed patients the call
// is skipped and every variant is left for assembly to report as unknown.
// Named attributions come first, in confirmed-patient order, then the unmatched bucket.
func (rn *run) link(ctx context.Context, idx *index, patients []string) ([]attribution, error) {
	if len(patients) == 0 {
		return nil, nil
	}

	answer, err := rn.counter.Ask(ctx, llm.PromptLink, llm.Params{
		"gene":     rn.gene,
		"patients": patients,
		"variants": idx.lines(),
		"text":     rn.paper.FullText(),
	})
	if err != nil {
		return nil, fmt.Errorf("link observations: %w", err)
	}
	if answer.Empty() {
		rn.note([]model.Diagnostic{{
			Stage:   model.StateLinked,
			Kind:    model.DiagnosticEmptyAnswer,
			Message: "linking gave no answer, every variant reported as unknown",
		}})
		return nil, nil
	}

	confirmed := make(map[string]string, len(patients))
	for _, p := range patients {
		confirmed[p] = p
		if _, ok := confirmed[strings.ToLower(p)]; !ok {
			confirmed[strings.ToLower(p)] = p
		}
	}

	lists := answer.StringLists(unmatchedKey)
	byPatient := make(map[string][]string, len(lists))
	keys := make([]string, 0, len(lists))
	for k := range lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := strings.TrimSpace(k)
		p, ok := confirmed[name]
		if !ok {
			p, ok = confirmed[strings.ToLower(name)]
		}
		if !ok {
			rn.note([]model.Diagnostic{{
				Stage:   model.StateLinked,
				Kind:    model.DiagnosticInconsistent,
				Mention: k,
				Message: "linking named a patient that was not confirmed",
			}})
			continue
		}
		byPatient[p] = append(byPatient[p], lists[k]...)
	}

	var links []attribution
	for _, p := range patients {
		for _, m := range byPatient[p] {
			links = append(links, attribution{patient: p, mention: m})
		}
	}
	for _, m := range answer.Strings(unmatchedKey) {
		links = append(links, attribution{mention: m, unmatched: true})
	}
	return links, nil
}

// assemble builds one observation per (equivalence group, individual) pair in first-seen order.
// Unresolvable mentions are discarded. A group attributed to a named patient is not also
// reported as unknown; a group no attribution reaches becomes an unknown observation.
func (rn *run) assemble(idx *index, links []attribution) []model.Observation {
	type pairKey struct {
		group      int
		individual string
	}

	var order []pairKey
	byKey := make(map[pairKey]*model.Observation)
	named := make(map[int]bool)
	seen := make(map[int]bool)

	add := func(e *entry, individual, patientMention string) {
		seen[e.group] = true
		k := pairKey{group: e.group, individual: individual}
		obs, ok := byKey[k]
		if !ok {
			obs = &model.Observation{
				Variant:         e.identity,
				Individual:      individual,
				PatientMentions: []string{},
			}
			byKey[k] = obs
			order = append(order, k)
		}
		obs.AddVariantMention(e.text)
		obs.AddPatientMention(patientMention)
	}

	var unmatched []*entry
	for _, l := range links {
		e := idx.lookup(l.mention)
		if e == nil {
			rn.note([]model.Diagnostic{{
				Stage:   model.StateLinked,
				Kind:    model.DiagnosticInconsistent,
				Mention: l.mention,
				Message: "linking referenced a variant that matches no accepted mention",
			}})
			continue
		}
		if l.unmatched {
			unmatched = append(unmatched, e)
			continue
		}
		named[e.group] = true
		add(e, l.patient, l.patient)
	}

	for _, e := range unmatched {
		if !named[e.group] {
			add(e, model.UnknownIndividual, "")
		}
	}

	for gid, group := range idx.groups {
		if seen[gid] {
			continue
		}
		for _, e := range group {
			add(e, model.UnknownIndividual, "")
		}
	}

	out := make([]model.Observation, 0, len(order))
	for _, k := range order {
		obs := byKey[k]
		if rn.opts.Evidence {
			obs.Evidence = extract.Snippets(rn.paper, obs.VariantMentions)
		}
		out = append(out, *obs)
	}
	return out
}
