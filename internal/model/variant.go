package model

import (
	"fmt"
	"regexp"
	"strings"
)

// VariantIdentity is the normalized form of a variant mention.
// Identities are built once by a variant parser and never mutated afterward.
type VariantIdentity struct {
	Description          string             `json:"description"`                   // HGVS description, e.g. "c.530C>T"
	GeneSymbol           string             `json:"gene_symbol"`                   // e.g. "EXOC2"
	Accession            string             `json:"accession,omitempty"`           // Reference sequence, e.g. "NM_018303.6"
	AccessionIsPredicted bool               `json:"accession_is_predicted"`        // Accession came from a hint, not the text
	Valid                bool               `json:"valid"`                         // Whether the parser could fully validate it
	ValidationError      string             `json:"validation_error,omitempty"`    // Why Valid is false
	ProteinConsequence   *VariantIdentity   `json:"protein_consequence,omitempty"` // p. form of a coding change, if known
	CodingEquivalents    []*VariantIdentity `json:"coding_equivalents,omitempty"`  // c. forms of a genomic change, if known
}

// VariantKey is the comparable identity of a variant. Equality and hashing of
// identities always go through this key, never through the raw mention.
type VariantKey struct {
	Accession   string
	GeneSymbol  string
	Description string // Canonical description
}

func (k VariantKey) String() string {
	if k.Accession != "" {
		return fmt.Sprintf("%s(%s):%s", k.Accession, k.GeneSymbol, k.Description)
	}
	return k.GeneSymbol + ":" + k.Description
}

// Key returns the comparable key for this identity
func (v *VariantIdentity) Key() VariantKey {
	return VariantKey{
		Accession:   v.Accession,
		GeneSymbol:  v.GeneSymbol,
		Description: CanonicalDescription(v.Description),
	}
}

// Equal reports whether two identities denote the same normalized variant
func (v *VariantIdentity) Equal(other *VariantIdentity) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.Key() == other.Key()
}

// IsProtein reports whether the description is a protein-level change
func (v *VariantIdentity) IsProtein() bool {
	return strings.HasPrefix(v.Description, "p.")
}

func (v *VariantIdentity) String() string {
	return v.Key().String()
}

var (
	predictionParens = regexp.MustCompile(`^([a-z])\.\((.*)\)$`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// CanonicalDescription normalizes a variant description for comparison:
// whitespace removed, prediction parentheses dropped ("p.(Arg12Cys)" becomes
// "p.Arg12Cys") and three-letter "Ter" rewritten to "*".
func CanonicalDescription(desc string) string {
	d := whitespace.ReplaceAllString(desc, "")
	if m := predictionParens.FindStringSubmatch(d); m != nil {
		d = m[1] + "." + m[2]
	}
	return strings.ReplaceAll(d, "Ter", "*")
}
