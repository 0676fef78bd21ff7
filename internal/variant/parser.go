// Package variant normalizes variant mentions into identities and groups
// identities that describe the same molecular change.
package variant

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/ppiankov/varlens/internal/model"
)

// Parser turns mention text into a VariantIdentity. Failures are *model.ParseError.
type Parser interface {
	Parse(ctx context.Context, req ParseRequest) (*model.VariantIdentity, error)
	ParseRsid(ctx context.Context, rsid string) (*model.VariantIdentity, error)
}

// ParseRequest carries a mention and the context hints available to the resolver
type ParseRequest struct {
	Text        string
	GeneSymbol  string // Gene of interest used when the mention has no gene prefix
	RefSeq      string // Optional transcript hint
	GenomeBuild string // Build asserted by the paper, empty if none
}

var (
	rsidPattern = regexp.MustCompile(`^rs\d+$`)

	// NM_018303.6:c.530C>T, NM_018303.6(EXOC2):c.530C>T
	accessionPrefix = regexp.MustCompile(`^((?:NM|NP|NC|NG|NR|XM|XP|XR|LRG)_\d+(?:\.\d+)?|ENS[TP]\d+(?:\.\d+)?)(?:\(([A-Za-z0-9-]+)\))?\s*:\s*(.+)$`)

	// EXOC2:c.530C>T, EXOC2 c.530C>T, EXOC2(NM_018303.6):c.530C>T
	genePrefix = regexp.MustCompile(`^([A-Z][A-Z0-9-]{1,15})(?:\(((?:NM|NP|NC|NG|NR|XM|XP)_\d+(?:\.\d+)?)\))?(?:\s*:\s*|\s+)([cgnmp]\..+)$`)

	bareNucleotide   = regexp.MustCompile(`^-?\*?\d+(?:[+-]\d+)?[ACGT]>[ACGT]$`)
	bareOneLetter    = regexp.MustCompile(`^(?:p\.)?\(?([ACDEFGHIKLMNPQRSTVWY])(\d+)([ACDEFGHIKLMNPQRSTVWYX*])\)?$`)
	bareThreeLetter  = regexp.MustCompile(`^\(?[A-Z][a-z]{2}\d+(?:[A-Z][a-z]{2}|\*)\)?$`)
	codingPattern    = regexp.MustCompile(`^[cnm]\.[-*]?\d+(?:[+-]\d+)?(?:_[-*]?\d+(?:[+-]\d+)?)?(?:[ACGT]>[ACGT]|del[ACGT]*|dup[ACGT]*|ins[ACGT]+|delins[ACGT]+|inv|=)$`)
	genomicPattern   = regexp.MustCompile(`^g\.\d+(?:_\d+)?(?:[ACGT]>[ACGT]|del[ACGT]*|dup[ACGT]*|ins[ACGT]+|delins[ACGT]+|inv|=)$`)
	aminoAcid        = `(?:[A-Z][a-z]{2}|\*)`
	proteinPattern   = regexp.MustCompile(`^p\.\(?` + aminoAcid + `\d+(?:_` + aminoAcid + `\d+)?(?:` + aminoAcid + `|=|\?|del|dup|(?:del)?ins(?:` + aminoAcid + `)+|` + aminoAcid + `?fs(?:\*|Ter)?\d*|ext\S*)?\)?$`)
	proteinNullShape = regexp.MustCompile(`^p\.\(?(?:0|\?|=)\)?$`)

	bareNumber          = regexp.MustCompile(`^\d+$`)
	codingSubstitution  = regexp.MustCompile(`^c\.-?\*?\d+(?:[+-]\d+)?[ACGT]>[ACGT]$`)
	proteinSubstitution = regexp.MustCompile(`^p\.\(?[A-Z][a-z]{2}\d+(?:[A-Z][a-z]{2}|\*)\)?$`)
	notationMarker      = regexp.MustCompile(`(?:^|[^A-Za-z])(?:[cgnmp]\.|rs\d)`)
)

var threeLetter = map[byte]string{
	'A': "Ala", 'C': "Cys", 'D': "Asp", 'E': "Glu", 'F': "Phe", 'G': "Gly", 'H': "His",
	'I': "Ile", 'K': "Lys", 'L': "Leu", 'M': "Met", 'N': "Asn", 'P': "Pro", 'Q': "Gln",
	'R': "Arg", 'S': "Ser", 'T': "Thr", 'V': "Val", 'W': "Trp", 'Y': "Tyr",
	'*': "Ter", 'X': "Ter",
}

// HGVSParser is an offline parser for HGVS-like mention text.
// It checks syntax only; it never consults a reference sequence.
type HGVSParser struct {
	rsids map[string]*model.VariantIdentity
}

// NewHGVSParser creates a parser with no rsID table
func NewHGVSParser() *HGVSParser {
	return &HGVSParser{rsids: map[string]*model.VariantIdentity{}}
}

// WithRsids registers identities that rsIDs resolve to
func (p *HGVSParser) WithRsids(table map[string]*model.VariantIdentity) *HGVSParser {
	for k, v := range table {
		p.rsids[strings.ToLower(k)] = v
	}
	return p
}

// ParseRsid resolves an rsID through the registered table
func (p *HGVSParser) ParseRsid(_ context.Context, rsid string) (*model.VariantIdentity, error) {
	key := strings.ToLower(strings.TrimSpace(rsid))
	if !rsidPattern.MatchString(key) {
		return nil, &model.ParseError{Mention: rsid, Reason: "not an rsID"}
	}
	id, ok := p.rsids[key]
	if !ok {
		return nil, &model.ParseError{Mention: rsid, Reason: "rsID not resolvable offline"}
	}
	clone := *id
	return &clone, nil
}

// Parse normalizes a single atomic mention
func (p *HGVSParser) Parse(ctx context.Context, req ParseRequest) (*model.VariantIdentity, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &model.ParseError{Mention: req.Text, Reason: "empty mention"}
	}
	if rsidPattern.MatchString(strings.ToLower(text)) {
		return p.ParseRsid(ctx, text)
	}

	accession, gene, rest := splitPrefix(text)
	accessionFromText := accession != ""

	desc, err := normalizeDescription(rest)
	if err != nil {
		return nil, &model.ParseError{Mention: req.Text, Reason: err.Error()}
	}

	if gene == "" {
		gene = req.GeneSymbol
	}

	id := &model.VariantIdentity{
		Description: desc,
		GeneSymbol:  strings.ToUpper(gene),
		Accession:   accession,
		Valid:       true,
	}

	if !accessionFromText {
		switch {
		case strings.HasPrefix(desc, "g."):
			if req.GenomeBuild == "" {
				id.Valid = false
				id.ValidationError = "genomic variant without reference sequence or genome build"
			} else {
				id.Accession = req.GenomeBuild
				id.AccessionIsPredicted = true
			}
		case req.RefSeq != "" && hintMatches(req.RefSeq, desc):
			id.Accession = req.RefSeq
			id.AccessionIsPredicted = true
		}
	}

	return id, nil
}

// splitPrefix separates a reference sequence or gene prefix from the description
func splitPrefix(text string) (accession, gene, rest string) {
	if m := accessionPrefix.FindStringSubmatch(text); m != nil {
		return m[1], m[2], m[3]
	}
	if m := genePrefix.FindStringSubmatch(text); m != nil {
		return m[2], m[1], m[3]
	}
	return "", "", text
}

// Qualifier returns the accession and gene prefix written in front of a mention, if any
func Qualifier(text string) (accession, gene string) {
	accession, gene, _ = splitPrefix(strings.TrimSpace(text))
	return accession, gene
}

// IsBareSubstitution reports whether text, ignoring whitespace, is a bare number or a
// single substitution with no reference sequence ("530C>T", "c.530C>T", "P177L", "p.Pro177Leu")
func IsBareSubstitution(text string) bool {
	d := strings.Join(strings.Fields(text), "")
	return bareNumber.MatchString(d) ||
		bareNucleotide.MatchString(d) ||
		codingSubstitution.MatchString(d) ||
		bareOneLetter.MatchString(d) ||
		bareThreeLetter.MatchString(d) ||
		proteinSubstitution.MatchString(d)
}

// NeedsGenomeBuild reports whether text is a genomic description without an accession,
// which the parser can only place given a genome build
func NeedsGenomeBuild(text string) bool {
	accession, _, rest := splitPrefix(strings.TrimSpace(text))
	return accession == "" && strings.HasPrefix(strings.TrimSpace(rest), "g.")
}

// CountNotations counts HGVS coordinate markers and rsIDs in text.
// More than one means the text combines several notations.
func CountNotations(text string) int {
	return len(notationMarker.FindAllStringIndex(text, -1))
}

var errUnrecognized = errors.New("unrecognized variant description")

// normalizeDescription strips whitespace and fills in the coordinate prefix for bare forms
func normalizeDescription(rest string) (string, error) {
	d := strings.Join(strings.Fields(rest), "")

	switch {
	case bareNucleotide.MatchString(d):
		d = "c." + d
	case bareOneLetter.MatchString(d):
		m := bareOneLetter.FindStringSubmatch(d)
		d = "p." + threeLetter[m[1][0]] + m[2] + threeLetter[m[3][0]]
	case bareThreeLetter.MatchString(d):
		d = "p." + d
	}

	switch {
	case codingPattern.MatchString(d), genomicPattern.MatchString(d):
		return d, nil
	case proteinPattern.MatchString(d), proteinNullShape.MatchString(d):
		return d, nil
	}
	return "", errUnrecognized
}

// hintMatches reports whether a transcript hint fits the description's coordinate type
func hintMatches(refseq, desc string) bool {
	protein := strings.HasPrefix(refseq, "NP_") || strings.HasPrefix(refseq, "XP_") || strings.HasPrefix(refseq, "ENSP")
	if strings.HasPrefix(desc, "p.") {
		return protein
	}
	return !protein
}
