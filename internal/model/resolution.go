package model

import "time"

// State is a step of the observation resolution state machine
type State string

const (
	StateStart              State = "START"
	StateSanityChecked      State = "SANITY_CHECKED"
	StateVariantsDiscovered State = "VARIANTS_DISCOVERED"
	StateVariantsValidated  State = "VARIANTS_VALIDATED"
	StatePatientsDiscovered State = "PATIENTS_DISCOVERED"
	StatePatientsValidated  State = "PATIENTS_VALIDATED"
	StateLinked             State = "LINKED"
	StateAssembled          State = "ASSEMBLED"       // Terminal
	StateNoObservations     State = "NO_OBSERVATIONS" // Terminal, early exit
)

// Terminal reports whether no further transition is possible from s
func (s State) Terminal() bool {
	return s == StateAssembled || s == StateNoObservations
}

// Reason explains why a run ended where it did. Early exits are valid outcomes, not errors.
type Reason string

const (
	ReasonResolved            Reason = "resolved"              // Reached ASSEMBLED
	ReasonIrrelevant          Reason = "irrelevant_paper"      // Sanity gate said no
	ReasonNoVariants          Reason = "no_variants"           // Discovery found nothing
	ReasonNoConfirmedVariants Reason = "no_confirmed_variants" // Every candidate was rejected
	ReasonUnparseable         Reason = "unparseable_variants"  // Every candidate failed to parse
)

// Resolution is the outcome of resolving one paper for one gene
type Resolution struct {
	PaperID      string         `json:"paper_id"`
	Gene         string         `json:"gene"`
	State        State          `json:"state"`
	Reason       Reason         `json:"reason"`
	Trail        []State        `json:"trail"` // States visited, in order
	Observations []Observation  `json:"observations"`
	Diagnostics  []Diagnostic   `json:"diagnostics,omitempty"`
	Calls        map[string]int `json:"calls,omitempty"` // Inference calls per prompt tag
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
}

// Transition moves the resolution to the next state and records it in the trail
func (r *Resolution) Transition(next State) {
	r.State = next
	r.Trail = append(r.Trail, next)
}

// Finish marks the run as ended early with the given reason
func (r *Resolution) Finish(reason Reason) {
	if reason != ReasonResolved {
		r.Transition(StateNoObservations)
	}
	r.Reason = reason
	if r.Observations == nil {
		r.Observations = []Observation{}
	}
}

// Note records a recovered problem
func (r *Resolution) Note(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// DiagnosticKind classifies recovered problems
type DiagnosticKind string

const (
	DiagnosticEmptyAnswer   DiagnosticKind = "empty_answer"   // Inference returned no usable answer
	DiagnosticParseFailure  DiagnosticKind = "parse_failure"  // Variant parser rejected a mention
	DiagnosticRejected      DiagnosticKind = "rejected"       // Validation call said no
	DiagnosticInconsistent  DiagnosticKind = "inconsistent"   // Linking referenced something unknown
	DiagnosticInvalidParsed DiagnosticKind = "invalid_parsed" // Parsed but marked invalid, kept
)

// Diagnostic is a recovered, non-fatal problem noted during a run
type Diagnostic struct {
	Stage   State          `json:"stage"`
	Kind    DiagnosticKind `json:"kind"`
	Mention string         `json:"mention,omitempty"`
	Message string         `json:"message"`
}
