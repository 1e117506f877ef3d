// Package mergefilter refines the unified timeline: operator-directed speaker
// algebra (merge, rename, drop), gap-based merging of near-consecutive turns,
// duration filtering, aggregate statistics and a cross-speaker segment index.
package mergefilter

import (
	"strings"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/graph"
)

// Algebra holds the three independent speaker rule sets. A label may appear in
// at most one of them, and the merge rules viewed as a source->target graph
// must be acyclic.
type Algebra struct {
	Merge  map[string]string   `json:"merge,omitempty"`
	Rename map[string]string   `json:"rename,omitempty"`
	Drop   map[string]struct{} `json:"drop,omitempty"`
}

// ParseAlgebra reads the operator rule strings:
//
//	merge:  "SRC1+SRC2=TARGET,SRC3=OTHER"
//	rename: "OLD=NEW,OLD2=NEW2"
//	drop:   "A,B"
//
// Grammar errors are configuration errors; nothing is force-continuable here.
func ParseAlgebra(mergeStr, renameStr, dropStr string) (*Algebra, error) {
	a := &Algebra{
		Merge:  map[string]string{},
		Rename: map[string]string{},
		Drop:   map[string]struct{}{},
	}

	for _, pair := range splitRules(mergeStr) {
		sources, target, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, faults.Configf("invalid merge rule %q, want SOURCE=TARGET", pair)
		}
		target = strings.TrimSpace(target)
		if target == "" {
			return nil, faults.Configf("empty merge target in %q", pair)
		}
		any := false
		for _, src := range strings.Split(sources, "+") {
			src = strings.TrimSpace(src)
			if src == "" {
				continue
			}
			if prev, dup := a.Merge[src]; dup && prev != target {
				return nil, faults.Configf("merge source %s defined twice (%s and %s)", src, prev, target)
			}
			a.Merge[src] = target
			any = true
		}
		if !any {
			return nil, faults.Configf("empty merge source in %q", pair)
		}
	}

	for _, pair := range splitRules(renameStr) {
		old, name, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, faults.Configf("invalid rename rule %q, want OLD=NEW", pair)
		}
		old = strings.TrimSpace(old)
		name = strings.TrimSpace(name)
		if old == "" || name == "" {
			return nil, faults.Configf("empty speaker name in rename rule %q", pair)
		}
		a.Rename[old] = name
	}

	for _, sp := range splitRules(dropStr) {
		a.Drop[sp] = struct{}{}
	}

	return a, nil
}

func splitRules(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the algebra for internal consistency and against the
// speakers present in the data. A label in more than one rule set and a cycle
// in the merge graph are fatal; labels referenced by rules but absent from the
// data are warnings.
func (a *Algebra) Validate(available map[string]bool) *faults.Set {
	fs := &faults.Set{}

	for src := range a.Merge {
		if _, ok := a.Rename[src]; ok {
			fs.Errorf("speaker %s appears in both merge and rename rules", src)
		}
		if _, ok := a.Drop[src]; ok {
			fs.Errorf("speaker %s appears in both merge and drop rules", src)
		}
	}
	for old := range a.Rename {
		if _, ok := a.Drop[old]; ok {
			fs.Errorf("speaker %s appears in both rename and drop rules", old)
		}
	}

	if cycle := graph.FindCycle(a.Merge); cycle != nil {
		fs.Errorf("merge rules contain a cycle: %s", strings.Join(cycle, " -> "))
	}

	referenced := map[string]bool{}
	for src, tgt := range a.Merge {
		referenced[src] = true
		referenced[tgt] = true
	}
	for old, name := range a.Rename {
		referenced[old] = true
		referenced[name] = true
	}
	for sp := range a.Drop {
		referenced[sp] = true
	}
	var unknown []string
	for sp := range referenced {
		if !available[sp] {
			unknown = append(unknown, sp)
		}
	}
	if len(unknown) > 0 {
		fs.Warnf("rules reference speakers absent from the data: %s", joinSorted(unknown))
	}

	mergeTargets := map[string]bool{}
	for _, tgt := range a.Merge {
		mergeTargets[tgt] = true
	}
	for old, name := range a.Rename {
		if available[name] && !mergeTargets[name] {
			fs.Warnf("rename %s -> %s: new name is already an existing speaker", old, name)
		}
	}

	return fs
}

// Apply resolves one speaker label through the algebra. The second return is
// false when the label is dropped. Merge applies before rename; rename sets
// the display name without changing the grouping key.
func (a *Algebra) Apply(speaker string) (resolved, display string, keep bool) {
	if target, ok := a.Merge[speaker]; ok {
		speaker = target
	}
	if _, ok := a.Drop[speaker]; ok {
		return speaker, "", false
	}
	return speaker, a.Rename[speaker], true
}

// MergeGroups is the reproducibility view of the merge rules: each target with
// its sorted source list.
func (a *Algebra) MergeGroups() []MergeGroup {
	byTarget := map[string][]string{}
	for src, tgt := range a.Merge {
		byTarget[tgt] = append(byTarget[tgt], src)
	}
	groups := make([]MergeGroup, 0, len(byTarget))
	for tgt, sources := range byTarget {
		groups = append(groups, MergeGroup{From: sortStrings(sources), Into: tgt})
	}
	sortGroups(groups)
	return groups
}

// MergeGroup records the sources folded into one target.
type MergeGroup struct {
	From []string `json:"from"`
	Into string   `json:"into"`
}
