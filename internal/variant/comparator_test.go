package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/varlens/internal/model"
)

func identity(desc string) *model.VariantIdentity {
	return &model.VariantIdentity{Description: desc, GeneSymbol: "EXOC2", Valid: true}
}

func TestPartition_Reflexive(t *testing.T) {
	a, b := identity("c.530C>T"), identity("c.540G>A")
	p := NewPartition(a, b)

	for _, id := range []*model.VariantIdentity{a, b} {
		group := p.GroupOf(id)
		require.Len(t, group, 1)
		assert.Same(t, id, group[0])
		assert.Same(t, id, p.Representative(id))
	}
	assert.Nil(t, p.GroupOf(identity("c.1A>G")))
}

func TestPartition_EqualKeysCollapse(t *testing.T) {
	p := NewPartition(identity("p.(Arg12Ter)"), identity("p.Arg12*"), identity("p.Arg12 Ter"))
	assert.Equal(t, 1, p.Len())
}

func TestPartition_DifferentAccessionsNeverCollapse(t *testing.T) {
	a := identity("c.530C>T")
	a.Accession = "NM_018303.6"
	b := identity("c.530C>T")
	b.Accession = "NM_001005463.2"

	p := NewPartition(a, b)
	assert.Equal(t, 2, p.Len())
	assert.Len(t, p.Groups(), 2)
}

func TestPartition_MergeKeepsFirstRepresentative(t *testing.T) {
	coding, protein, other := identity("c.530C>T"), identity("p.Pro177Leu"), identity("c.540G>A")
	p := NewPartition(coding, other, protein)

	p.Merge(protein, coding)

	assert.Same(t, coding, p.Representative(protein))
	assert.Equal(t, []*model.VariantIdentity{coding, protein}, p.GroupOf(protein))

	groups := p.Groups()
	require.Len(t, groups, 2)
	assert.Same(t, coding, groups[0][0])
	assert.Same(t, other, groups[1][0])

	mapping := p.Mapping()
	assert.Len(t, mapping[coding.Key()], 2)
	assert.Len(t, mapping[other.Key()], 1)
}

func TestDefaultComparator_UsesParserLinks(t *testing.T) {
	protein := identity("p.Pro177Leu")
	coding := identity("c.530C>T")
	coding.ProteinConsequence = protein

	otherTranscript := identity("c.527C>T")
	otherTranscript.Accession = "NM_001005463.2"
	otherTranscript.ProteinConsequence = identity("p.Pro177Leu")

	genomic := identity("g.12345C>T")
	genomic.CodingEquivalents = []*model.VariantIdentity{identity("c.530C>T")}

	unrelated := identity("c.540G>A")

	p := NewComparator().EquivalenceGroups([]*model.VariantIdentity{coding, protein, otherTranscript, genomic, unrelated})

	group := p.GroupOf(protein)
	assert.ElementsMatch(t, []*model.VariantIdentity{coding, protein, otherTranscript, genomic}, group)
	assert.Len(t, p.GroupOf(unrelated), 1)
}

func TestDefaultComparator_SharedConsequenceOnOneTranscriptStaysApart(t *testing.T) {
	substitution := identity("c.28A>G")
	substitution.ProteinConsequence = identity("p.Arg10Gly")
	delins := identity("c.28_30delinsGGG")
	delins.ProteinConsequence = identity("p.Arg10Gly")

	for name, ids := range map[string][]*model.VariantIdentity{
		"without protein mention": {substitution, delins},
		"with protein mention":    {substitution, delins, identity("p.Arg10Gly")},
	} {
		t.Run(name, func(t *testing.T) {
			p := NewComparator().EquivalenceGroups(ids)
			assert.Len(t, p.GroupOf(substitution), 1)
			assert.Len(t, p.GroupOf(delins), 1)
		})
	}
}

func TestDefaultComparator_UninformativeConsequences(t *testing.T) {
	for _, consequence := range []string{"p.?", "p.(?)", "p.0", "p.=", "p.(Arg10=)", "p.Met1?"} {
		t.Run(consequence, func(t *testing.T) {
			a := identity("c.30G>A")
			a.ProteinConsequence = identity(consequence)
			b := identity("c.30G>A")
			b.Accession = "NM_001005463.2"
			b.ProteinConsequence = identity(consequence)
			b.ProteinConsequence.Accession = "NP_001005463.1"
			a.ProteinConsequence.Accession = "NP_001005463.1"

			p := NewComparator().EquivalenceGroups([]*model.VariantIdentity{a, b, identity(consequence)})
			assert.Len(t, p.Groups(), 3)
		})
	}
}

func TestDefaultComparator_ProteinAccessionLinksTranscripts(t *testing.T) {
	protein := func() *model.VariantIdentity {
		pc := identity("p.Pro177Leu")
		pc.Accession = "NP_060773.3"
		return pc
	}
	a := identity("c.530C>T")
	a.Accession = "NM_018303.6"
	a.ProteinConsequence = protein()
	b := identity("c.527C>T")
	b.Accession = "NM_001005463.2"
	b.ProteinConsequence = protein()

	p := NewComparator().EquivalenceGroups([]*model.VariantIdentity{a, b})
	assert.Equal(t, []*model.VariantIdentity{a, b}, p.GroupOf(b))

	// without a protein accession the shared description alone is not enough
	a.ProteinConsequence.Accession, b.ProteinConsequence.Accession = "", ""
	p = NewComparator().EquivalenceGroups([]*model.VariantIdentity{a, b})
	assert.Len(t, p.Groups(), 2)
}
