package resolve

import (
	"strings"

	"github.com/ppiankov/varlens/internal/extract"
	"github.com/ppiankov/varlens/internal/model"
	"github.com/ppiankov/varlens/internal/variant"
)

// entry is one accepted atom and the group it belongs to
type entry struct {
	text     string
	identity *model.VariantIdentity
	group    int
}

// index resolves mention strings from the linking answer back to identities.
// Lookup order: exact atom text, canonical form of atoms and parsed descriptions,
// then the original grouped mention, which stands for its first parsed atom.
type index struct {
	partition *variant.Partition
	groups    [][]*entry // in first-seen order
	exact     map[string]*entry
	canonical map[string]*entry
	mentions  map[string]*entry
}

func buildIndex(comparator variant.Comparator, groups []extract.MentionGroup) *index {
	var ids []*model.VariantIdentity
	for _, g := range groups {
		for _, a := range g.Atoms {
			ids = append(ids, a.Identity)
		}
	}

	partition := comparator.EquivalenceGroups(ids)
	// Atoms split from one grouped mention are one group by construction
	for _, g := range groups {
		for _, a := range g.Atoms[1:] {
			partition.Merge(g.Atoms[0].Identity, a.Identity)
		}
	}

	idx := &index{
		partition: partition,
		exact:     make(map[string]*entry),
		canonical: make(map[string]*entry),
		mentions:  make(map[string]*entry),
	}

	groupIDs := make(map[model.VariantKey]int)
	for _, g := range groups {
		var first *entry
		for _, a := range g.Atoms {
			rep := partition.Representative(a.Identity).Key()
			gid, ok := groupIDs[rep]
			if !ok {
				gid = len(idx.groups)
				groupIDs[rep] = gid
				idx.groups = append(idx.groups, nil)
			}

			e := &entry{text: a.Text, identity: a.Identity, group: gid}
			if _, dup := idx.exact[a.Text]; !dup {
				idx.exact[a.Text] = e
				idx.groups[gid] = append(idx.groups[gid], e)
			}
			idx.register(canonicalForm(a.Text), e)
			idx.register(canonicalForm(a.Identity.Description), e)
			if a.Identity.Accession != "" {
				idx.register(canonicalForm(a.Identity.Accession+":"+a.Identity.Description), e)
			}
			if first == nil {
				first = e
			}
		}
		if g.Mention.Text != "" {
			if _, ok := idx.mentions[g.Mention.Text]; !ok {
				idx.mentions[g.Mention.Text] = first
			}
			if _, ok := idx.mentions[canonicalForm(g.Mention.Text)]; !ok {
				idx.mentions[canonicalForm(g.Mention.Text)] = first
			}
		}
	}

	return idx
}

func (idx *index) register(key string, e *entry) {
	if key == "" {
		return
	}
	if _, ok := idx.canonical[key]; !ok {
		idx.canonical[key] = e
	}
}

// lookup returns the atom a mention string denotes, or nil when it matches nothing known
func (idx *index) lookup(mention string) *entry {
	mention = strings.TrimSpace(mention)
	if e := idx.lookupOne(mention); e != nil {
		return e
	}
	// A whole line of the variant list, "c.530C>T | p.Pro177Leu"
	if strings.Contains(mention, lineSeparator) {
		for _, part := range strings.Split(mention, lineSeparator) {
			if e := idx.lookupOne(strings.TrimSpace(part)); e != nil {
				return e
			}
		}
	}
	return nil
}

func (idx *index) lookupOne(mention string) *entry {
	if mention == "" {
		return nil
	}
	if e, ok := idx.exact[mention]; ok {
		return e
	}
	canon := canonicalForm(mention)
	if e, ok := idx.canonical[canon]; ok {
		return e
	}
	if e, ok := idx.mentions[mention]; ok {
		return e
	}
	if e, ok := idx.mentions[canon]; ok {
		return e
	}
	return nil
}

const lineSeparator = " | "

// lines renders each group as one line of its atom texts
func (idx *index) lines() []string {
	out := make([]string, 0, len(idx.groups))
	for _, g := range idx.groups {
		texts := make([]string, len(g))
		for i, e := range g {
			texts[i] = e.text
		}
		out = append(out, strings.Join(texts, lineSeparator))
	}
	return out
}

func canonicalForm(s string) string {
	return model.CanonicalDescription(strings.TrimSpace(s))
}
