package llm

import (
	"fmt"
	"strings"
	"text/template"
)

// PromptTag names one stage's structured query
type PromptTag string

const (
	PromptGeneRelevance   PromptTag = "gene-relevance"
	PromptFindVariants    PromptTag = "find-variants"
	PromptFindPatients    PromptTag = "find-patients"
	PromptSplitVariants   PromptTag = "split-variants"
	PromptSplitPatients   PromptTag = "split-patients"
	PromptConfirmGene     PromptTag = "confirm-gene-relationship"
	PromptValidatePatient PromptTag = "validate-patient"
	PromptGenomeBuild     PromptTag = "genome-build"
	PromptLink            PromptTag = "link-observations"

	PromptStudyType       PromptTag = "field-study-type"
	PromptVariantType     PromptTag = "field-variant-type"
	PromptFunctionalStudy PromptTag = "field-functional-study"
	PromptPhenotype       PromptTag = "field-phenotype"
	PromptSex             PromptTag = "field-sex"
	PromptZygosity        PromptTag = "field-zygosity"
	PromptInheritance     PromptTag = "field-inheritance"
)

// Params are the template inputs of one prompt
type Params map[string]any

// Prompt is the template and expected response shape for one tag
type Prompt struct {
	System   string
	Template *template.Template
	Schema   string // Example of the JSON object the model must return
}

const curatorSystem = "You are an expert in clinical genetics assisting a curator. " +
	"You only report what the provided text states. You never guess."

var funcs = template.FuncMap{
	"join": strings.Join,
	"bullets": func(items []string) string {
		if len(items) == 0 {
			return "(none)"
		}
		return "- " + strings.Join(items, "\n- ")
	},
}

func mustPrompt(tag PromptTag, schema, body string) Prompt {
	return Prompt{
		System:   curatorSystem,
		Template: template.Must(template.New(string(tag)).Funcs(funcs).Parse(body)),
		Schema:   schema,
	}
}

// prompts is the lookup table from stage tag to prompt definition
var prompts = map[PromptTag]Prompt{
	PromptGeneRelevance: mustPrompt(PromptGeneRelevance, `{"relevant": true}`, `
Does the following paper plausibly discuss genetic variants in the gene {{.gene}}?
Judge relevance only; do not look for specific variants.

Paper:
{{.text}}`),

	PromptFindVariants: mustPrompt(PromptFindVariants, `{"variants": ["c.530C>T", "p.Pro177Leu"]}`, `
List every genetic variant in the gene {{.gene}} mentioned in the text below, exactly as written.
Include HGVS descriptions, protein changes and rsIDs. Keep combined notations such as
"c.530C>T (p.Pro177Leu)" together as one entry. Return an empty list if there are none.

Text:
{{.text}}`),

	PromptFindPatients: mustPrompt(PromptFindPatients, `{"patients": ["proband", "Patient 1"]}`, `
List every human patient, proband or individual described in the text below, using the
identifier the text uses. Include affected family members. Do not list cell lines or animals.
Return an empty list if there are none.

Text:
{{.text}}`),

	PromptSplitVariants: mustPrompt(PromptSplitVariants, `{"variants": ["c.530C>T", "p.Pro177Leu"]}`, `
The variant description "{{.variant}}" in gene {{.gene}} may combine several notations of one change.
Split it into its individual descriptions, each exactly as written. If it is a single
description, return it unchanged as the only entry.`),

	PromptSplitPatients: mustPrompt(PromptSplitPatients, `{"patients": ["proband 5", "proband 6"]}`, `
The text "{{.patient}}" may refer to several individuals at once. List each individual
separately, repeating the shared noun, e.g. "probands 5 and 6" becomes "proband 5", "proband 6".`),

	PromptConfirmGene: mustPrompt(PromptConfirmGene, `{"related": true}`, `
In the text below, does the variant "{{.variant}}" refer to a change in the gene {{.gene}}?
Answer false if it belongs to another gene or is not a variant at all.

Text:
{{.text}}`),

	PromptValidatePatient: mustPrompt(PromptValidatePatient, `{"is_patient": true}`, `
In the text below, is "{{.patient}}" an identifier for a specific human individual, rather than
for example a table column, a figure panel, a variant number or a count?

Text:
{{.text}}`),

	PromptGenomeBuild: mustPrompt(PromptGenomeBuild, `{"genome_build": "GRCh38"}`, `
Which reference genome build (for example GRCh37/hg19 or GRCh38/hg38) does the text below
explicitly state for its genomic coordinates? Return null if no build is stated.

Text:
{{.text}}`),

	PromptLink: mustPrompt(PromptLink, `{"proband": ["c.530C>T"], "unmatched_variants": ["c.540G>A"]}`, `
For each patient below, list the variants in {{.gene}} that the text says this patient carries.
Use the patient identifiers and variant descriptions exactly as listed. Variants that appear
on one line are notations of the same change; use any one of them. Put variants whose carrier
cannot be determined under "unmatched_variants"; that key is reserved and never names a patient.

Patients:
{{bullets .patients}}

Variants:
{{bullets .variants}}

Text:
{{.text}}`),

	PromptStudyType: mustPrompt(PromptStudyType, `{"value": "case report"}`, `
What kind of study is this paper: case report, case series, cohort study, functional study or other?

Text:
{{.text}}`),

	PromptVariantType: mustPrompt(PromptVariantType, `{"value": "missense"}`, `
What type of variant is {{.variant}} in {{.gene}}: missense, nonsense, frameshift, splice region,
synonymous, in-frame indel, copy number variant or other? Use the text below when it says.

Text:
{{.text}}`),

	PromptFunctionalStudy: mustPrompt(PromptFunctionalStudy, `{"value": "true"}`, `
Does the text below report a functional study (in vitro, cell or animal model) of the variant
{{.variant}} in {{.gene}}? Answer "true" or "false".

Text:
{{.text}}`),

	PromptPhenotype: mustPrompt(PromptPhenotype, `{"value": "developmental delay; microcephaly"}`, `
List the phenotypes the text below reports for the individual "{{.individual}}", separated by
semicolons. Answer "unknown" if none are given.

Text:
{{.text}}`),

	PromptSex: mustPrompt(PromptSex, `{"value": "female"}`, `
What is the sex of the individual "{{.individual}}" according to the text below? Answer male,
female or unknown.

Text:
{{.text}}`),

	PromptZygosity: mustPrompt(PromptZygosity, `{"value": "heterozygous"}`, `
What is the zygosity of variant {{.variant}} in individual "{{.individual}}": homozygous,
heterozygous, compound heterozygous, hemizygous or unknown?

Text:
{{.text}}`),

	PromptInheritance: mustPrompt(PromptInheritance, `{"value": "de novo"}`, `
How was variant {{.variant}} inherited by individual "{{.individual}}": de novo, inherited
(paternal or maternal), or unknown?

Text:
{{.text}}`),
}

// Lookup returns the prompt registered for a tag
func Lookup(tag PromptTag) (Prompt, error) {
	p, ok := prompts[tag]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt tag: %s", tag)
	}
	return p, nil
}

// Render fills the prompt template and appends the response schema
func (p Prompt) Render(params Params) (string, error) {
	var b strings.Builder
	if err := p.Template.Execute(&b, map[string]any(params)); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Template.Name(), err)
	}
	body := strings.TrimSpace(b.String())
	return body + "\n\nRespond in JSON shaped like: " + p.Schema, nil
}
