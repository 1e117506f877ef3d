package timeline

import (
	"sort"

	"github.com/voxmap/voxmap/faults"
)

// Unify applies a resolved identity map to every window's segments in window
// order, producing one flat list sorted by segment id with the global speaker
// set and the original local label preserved. A local speaker missing from the
// map keeps its original label as the global name and is recorded as a
// warning; the caller is expected to have run validation first, so this only
// happens on a forced continuation. Duplicate segment ids indicate broken
// id-offset bookkeeping upstream and surface as an error.
func Unify(windows []Window, ids IdentityMap) (*Unified, *faults.Set, error) {
	fs := &faults.Set{}

	var segments []Segment
	for _, w := range windows {
		for _, seg := range w.Segments {
			key := SpeakerKey{Window: w.Meta.Index, Local: seg.Speaker}
			mapped, ok := ids[key]
			if !ok {
				fs.Warnf("no identity for %s, keeping local label", key)
				mapped = seg.Speaker
			}
			seg.OriginalSpeaker = key.Local
			seg.Speaker = mapped
			segments = append(segments, seg)
		}
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].ID < segments[j].ID })

	seen := map[int]bool{}
	for _, seg := range segments {
		if seen[seg.ID] {
			fs.Errorf("duplicate segment id %d", seg.ID)
		}
		seen[seg.ID] = true
	}
	if err := fs.Err(); err != nil {
		return nil, fs, err
	}

	speakers := map[string]bool{}
	var confSum float64
	var confN int
	typeCounts := map[SegmentType]int{}
	for _, seg := range segments {
		speakers[seg.Speaker] = true
		typeCounts[seg.Type]++
		if seg.Confidence > 0 {
			confSum += seg.Confidence
			confN++
		}
	}
	meta := UnifiedMeta{
		NumWindows:    len(windows),
		NumSpeakers:   len(speakers),
		TotalSegments: len(segments),
	}
	if confN > 0 {
		meta.AvgConfidence = confSum / float64(confN)
	}

	return &Unified{Meta: meta, Segments: segments, TypeCounts: typeCounts}, fs, nil
}
