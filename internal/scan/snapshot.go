package scan

import "sort"

// Snapshot is the set of unhealthy-resource identities observed in one
// scan cycle. It exists only to be diffed against the next cycle.
type Snapshot map[Identity]struct{}

// NewSnapshot builds a snapshot from a cycle's findings.
func NewSnapshot(findings []Finding) Snapshot {
	snap := make(Snapshot, len(findings))
	for _, f := range findings {
		snap[f.Identity()] = struct{}{}
	}
	return snap
}

// Has reports whether the identity was observed in this cycle.
func (s Snapshot) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

// Diff computes newly appeared and newly resolved identities between two
// consecutive snapshots. added = current − previous, resolved = previous
// − current; the two are disjoint by construction. Results are sorted
// for stable output.
func Diff(previous, current Snapshot) (added, resolved []Identity) {
	for id := range current {
		if !previous.Has(id) {
			added = append(added, id)
		}
	}
	for id := range previous {
		if !current.Has(id) {
			resolved = append(resolved, id)
		}
	}
	sortIdentities(added)
	sortIdentities(resolved)
	return added, resolved
}

func sortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
}
