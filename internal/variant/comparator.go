package variant

import (
	"strings"

	"github.com/ppiankov/varlens/internal/model"
)

// Comparator partitions identities into equivalence groups
type Comparator interface {
	EquivalenceGroups(ids []*model.VariantIdentity) *Partition
}

// Partition is a set of identities split into equivalence groups.
// Every identity added belongs to exactly one group, which contains itself.
type Partition struct {
	index   map[model.VariantKey]int // insertion order
	parent  map[model.VariantKey]model.VariantKey
	members map[model.VariantKey]*model.VariantIdentity
	order   []model.VariantKey
}

// NewPartition creates a partition with every identity in its own group
func NewPartition(ids ...*model.VariantIdentity) *Partition {
	p := &Partition{
		index:   make(map[model.VariantKey]int),
		parent:  make(map[model.VariantKey]model.VariantKey),
		members: make(map[model.VariantKey]*model.VariantIdentity),
	}
	for _, id := range ids {
		p.Add(id)
	}
	return p
}

// Add inserts an identity as a singleton group. Identities with an equal key collapse.
func (p *Partition) Add(id *model.VariantIdentity) {
	if id == nil {
		return
	}
	key := id.Key()
	if _, ok := p.members[key]; ok {
		return
	}
	p.index[key] = len(p.order)
	p.parent[key] = key
	p.members[key] = id
	p.order = append(p.order, key)
}

// Contains reports whether an identity with the same key was added
func (p *Partition) Contains(id *model.VariantIdentity) bool {
	if id == nil {
		return false
	}
	_, ok := p.members[id.Key()]
	return ok
}

// Merge joins the groups of a and b, adding either if missing.
// The earlier-added root stays the representative.
func (p *Partition) Merge(a, b *model.VariantIdentity) {
	p.Add(a)
	p.Add(b)
	if a == nil || b == nil {
		return
	}
	ra, rb := p.find(a.Key()), p.find(b.Key())
	if ra == rb {
		return
	}
	if p.index[rb] < p.index[ra] {
		ra, rb = rb, ra
	}
	p.parent[rb] = ra
}

func (p *Partition) find(key model.VariantKey) model.VariantKey {
	for p.parent[key] != key {
		p.parent[key] = p.parent[p.parent[key]]
		key = p.parent[key]
	}
	return key
}

// Representative returns the group representative of id, or nil if id is unknown
func (p *Partition) Representative(id *model.VariantIdentity) *model.VariantIdentity {
	if !p.Contains(id) {
		return nil
	}
	return p.members[p.find(id.Key())]
}

// GroupOf returns every member of id's group in insertion order
func (p *Partition) GroupOf(id *model.VariantIdentity) []*model.VariantIdentity {
	if !p.Contains(id) {
		return nil
	}
	root := p.find(id.Key())
	var group []*model.VariantIdentity
	for _, key := range p.order {
		if p.find(key) == root {
			group = append(group, p.members[key])
		}
	}
	return group
}

// Groups returns all groups ordered by their representative's insertion order
func (p *Partition) Groups() [][]*model.VariantIdentity {
	pos := make(map[model.VariantKey]int)
	var groups [][]*model.VariantIdentity
	for _, key := range p.order {
		root := p.find(key)
		i, ok := pos[root]
		if !ok {
			i = len(groups)
			pos[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p.members[key])
	}
	return groups
}

// Mapping returns representative key -> full group, the comparator contract's shape
func (p *Partition) Mapping() map[model.VariantKey][]*model.VariantIdentity {
	out := make(map[model.VariantKey][]*model.VariantIdentity)
	for _, group := range p.Groups() {
		out[group[0].Key()] = group
	}
	return out
}

// Len returns the number of distinct identities
func (p *Partition) Len() int {
	return len(p.order)
}

// DefaultComparator groups identities using the links the parser attached to them:
// equal keys, protein consequences and coding equivalents.
//
// A protein consequence links coding changes only when it names a single change per
// transcript. Distinct changes on one transcript can share a protein description
// (different codons for one residue) and stay apart, as do changes whose consequence
// is unknown, absent or synonymous.
type DefaultComparator struct{}

// NewComparator returns the default comparator
func NewComparator() *DefaultComparator {
	return &DefaultComparator{}
}

// EquivalenceGroups implements Comparator
func (DefaultComparator) EquivalenceGroups(ids []*model.VariantIdentity) *Partition {
	p := NewPartition(ids...)

	var order []model.VariantKey
	claims := make(map[model.VariantKey][]*model.VariantIdentity)
	consequences := make(map[model.VariantKey]*model.VariantIdentity)

	for _, id := range ids {
		if id == nil {
			continue
		}
		if pc := id.ProteinConsequence; pc != nil && informative(pc) {
			key := pc.Key()
			if _, ok := claims[key]; !ok {
				order = append(order, key)
				consequences[key] = pc
			}
			claims[key] = append(claims[key], id)
		}
		for _, eq := range id.CodingEquivalents {
			if p.Contains(eq) {
				p.Merge(id, eq)
			}
		}
	}

	for _, key := range order {
		claimants := claims[key]
		if !onePerTranscript(claimants) {
			continue
		}
		pc := consequences[key]
		switch {
		case p.Contains(pc):
			for _, id := range claimants {
				p.Merge(id, pc)
			}
		case pc.Accession != "":
			for _, id := range claimants[1:] {
				p.Merge(claimants[0], id)
			}
		}
	}
	return p
}

// informative reports whether a protein consequence identifies one change.
// "p.?", "p.0", "p.Met1?" and synonymous "p.Arg10=" do not.
func informative(pc *model.VariantIdentity) bool {
	d := model.CanonicalDescription(pc.Description)
	if d == "p.0" || strings.HasSuffix(d, "?") || strings.HasSuffix(d, "=") {
		return false
	}
	return true
}

// onePerTranscript reports whether no two distinct claimants share a transcript
func onePerTranscript(claimants []*model.VariantIdentity) bool {
	seen := make(map[string]model.VariantKey)
	for _, id := range claimants {
		key := id.Key()
		if prev, ok := seen[id.Accession]; ok && prev != key {
			return false
		}
		seen[id.Accession] = key
	}
	return true
}
