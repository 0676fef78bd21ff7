package model

// UnknownIndividual is the individual of a variant whose possessor could not be determined
const UnknownIndividual = "unknown"

// Observation is one (variant, individual) pair found in a paper
type Observation struct {
	Variant         *VariantIdentity `json:"variant"`
	Individual      string           `json:"individual"`
	VariantMentions []string         `json:"variant_mentions"`
	PatientMentions []string         `json:"patient_mentions"`
	Evidence        []string         `json:"evidence,omitempty"` // Sentences that mention the variant
}

// ObservationKey identifies an observation within one resolution run
type ObservationKey struct {
	Variant    VariantKey
	Individual string
}

// Key returns the dedup key of the observation
func (o *Observation) Key() ObservationKey {
	return ObservationKey{Variant: o.Variant.Key(), Individual: o.Individual}
}

// AddVariantMention appends a mention if it is not already present
func (o *Observation) AddVariantMention(mention string) {
	o.VariantMentions = appendUnique(o.VariantMentions, mention)
}

// AddPatientMention appends a mention if it is not already present
func (o *Observation) AddPatientMention(mention string) {
	o.PatientMentions = appendUnique(o.PatientMentions, mention)
}

func appendUnique(list []string, item string) []string {
	if item == "" {
		return list
	}
	for _, s := range list {
		if s == item {
			return list
		}
	}
	return append(list, item)
}
