package identity

import (
	"sort"
	"strings"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

// Validate checks a resolved identity map against the speakers that actually
// occur in the segmented data. Shared by both construction paths.
//
//   - map keys absent from the data: warning (stale entry)
//   - data keys absent from the map: error (unmapped speaker)
//   - several local keys resolving to one global name: note (deliberate
//     many-to-one merges are expected, not suspicious)
//
// All findings for the batch are collected before anything is reported.
func Validate(windows []timeline.Window, m timeline.IdentityMap) *faults.Set {
	fs := &faults.Set{}

	data := map[timeline.SpeakerKey]bool{}
	for _, k := range timeline.DataKeys(windows) {
		data[k] = true
	}

	var stale []string
	for _, k := range m.Keys() {
		if !data[k] {
			stale = append(stale, k.String())
		}
	}
	if len(stale) > 0 {
		fs.Warnf("map entries without matching data: %s", strings.Join(stale, ", "))
	}

	var unmapped []string
	for _, k := range timeline.DataKeys(windows) {
		if _, ok := m[k]; !ok {
			unmapped = append(unmapped, k.String())
		}
	}
	if len(unmapped) > 0 {
		fs.Errorf("unmapped speakers: %s", strings.Join(unmapped, ", "))
	}

	byName := map[string][]string{}
	for _, k := range m.Keys() {
		byName[m[k]] = append(byName[m[k]], k.String())
	}
	var merged []string
	for name, keys := range byName {
		if len(keys) > 1 {
			merged = append(merged, name+" <- "+strings.Join(keys, ", "))
		}
	}
	sort.Strings(merged)
	for _, line := range merged {
		fs.Notef("speaker merge: %s", line)
	}

	return fs
}
