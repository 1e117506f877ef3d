package mergefilter

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

// Default thresholds: turns of one speaker closer than MinPause seconds are
// one turn; post-merge segments shorter than MinDuration seconds are noise.
const (
	DefaultMinPause    = 1.5
	DefaultMinDuration = 0.5
)

// Flag records what the engine did to a segment.
type Flag string

const (
	FlagUnmodified Flag = "unmodified"
	FlagAggregated Flag = "aggregated"
	FlagRemoved    Flag = "removed"
)

// MergedSegment is a bucket member with provenance back to the unified
// timeline's segment ids.
type MergedSegment struct {
	ID          int     `json:"id"`
	Speaker     string  `json:"speaker"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Duration    float64 `json:"duration"`
	OriginalIDs []int   `json:"original_ids"`
	Flag        Flag    `json:"processing_flag"`
}

// Bucket holds one global speaker's refined segments plus the pre-merge
// snapshot. Never shared across speakers.
type Bucket struct {
	DisplayName      string          `json:"display_name,omitempty"`
	Segments         []MergedSegment `json:"segments"`
	OriginalSegments []MergedSegment `json:"original_segments"`
	Stats            SpeakerStats    `json:"stats"`
}

// SpeakerStats counts one speaker's segments through the passes.
type SpeakerStats struct {
	PreMerge         int     `json:"segments_pre_merge"`
	PostMerge        int     `json:"segments_post_merge"`
	Merged           int     `json:"segments_merged"`
	Removed          int     `json:"short_segments_removed"`
	Final            int     `json:"segments_final"`
	AvgDurationPre   float64 `json:"avg_duration_pre_merge"`
	AvgDurationPost  float64 `json:"avg_duration_post_merge"`
	SpeakingDuration float64 `json:"speaking_duration"`
}

// Stats aggregates the run across all speakers. The global average covers
// final segments only.
type Stats struct {
	PreMerge    int     `json:"total_segments_pre_merge"`
	PostMerge   int     `json:"total_segments_post_merge"`
	Merged      int     `json:"segments_merged"`
	Removed     int     `json:"short_segments_removed"`
	Final       int     `json:"total_segments_final"`
	AvgDuration float64 `json:"avg_duration_all_speakers"`
}

// IndexEntry locates one kept segment inside its speaker bucket.
type IndexEntry struct {
	Speaker string `json:"speaker"`
	Pos     int    `json:"segment_idx"`
}

// Params drives one engine run.
type Params struct {
	MinPause    float64
	MinDuration float64
	Algebra     *Algebra
}

// ResultMeta records the parameters a result was produced with, for
// reproducibility.
type ResultMeta struct {
	MinPause    float64           `json:"min_pause"`
	MinDuration float64           `json:"min_duration"`
	MergeGroups []MergeGroup      `json:"merge_speakers_groups,omitempty"`
	Rename      map[string]string `json:"rename_speakers,omitempty"`
	Drop        []string          `json:"drop_speakers,omitempty"`
	Stats       Stats             `json:"stats"`
}

// Result is the persisted hand-off to transcription and rendering.
type Result struct {
	Meta     ResultMeta         `json:"metadata"`
	Speakers map[string]*Bucket `json:"speakers"`
	Index    map[int]IndexEntry `json:"segment_index"`
}

// Engine runs the merge/filter passes.
type Engine struct {
	log *logrus.Entry
}

func NewEngine(log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{log: log}
}

// Run refines the unified timeline. Algebra validation errors block the whole
// pass; warnings are returned alongside the result.
func (e *Engine) Run(u *timeline.Unified, p Params) (*Result, *faults.Set, error) {
	if p.MinPause < 0 {
		return nil, nil, faults.Configf("min pause must not be negative, got %.3f", p.MinPause)
	}
	if p.MinDuration < 0 {
		return nil, nil, faults.Configf("min duration must not be negative, got %.3f", p.MinDuration)
	}
	algebra := p.Algebra
	if algebra == nil {
		algebra = &Algebra{Merge: map[string]string{}, Rename: map[string]string{}, Drop: map[string]struct{}{}}
	}

	available := map[string]bool{}
	for _, seg := range u.Segments {
		available[seg.Speaker] = true
	}
	fs := algebra.Validate(available)
	if fs.HasErrors() {
		var msgs []string
		for _, f := range fs.Errors() {
			msgs = append(msgs, f.Message)
		}
		return nil, fs, faults.Configf("speaker algebra rejected: %s", strings.Join(msgs, "; "))
	}

	// Algebra pass, then grouping by resulting speaker.
	buckets := map[string]*Bucket{}
	var stats Stats
	for _, seg := range u.Segments {
		speaker, display, keep := algebra.Apply(seg.Speaker)
		if !keep {
			continue
		}
		b := buckets[speaker]
		if b == nil {
			b = &Bucket{}
			buckets[speaker] = b
		}
		if display != "" {
			b.DisplayName = display
		}
		ms := MergedSegment{
			ID:          seg.ID,
			Speaker:     speaker,
			Start:       seg.Start,
			End:         seg.End,
			Duration:    seg.End - seg.Start,
			OriginalIDs: []int{seg.ID},
			Flag:        FlagUnmodified,
		}
		b.Segments = append(b.Segments, ms)
		b.OriginalSegments = append(b.OriginalSegments, ms)
		b.Stats.PreMerge++
		stats.PreMerge++
	}

	// Merge pass per speaker: adjacent segments under the gap threshold fold
	// into the previous one. A negative gap (overlap) is just a very small
	// gap, not a separate case.
	for speaker, b := range buckets {
		sort.Slice(b.Segments, func(i, j int) bool { return b.Segments[i].Start < b.Segments[j].Start })

		merged := b.Segments[:1]
		for _, seg := range b.Segments[1:] {
			last := &merged[len(merged)-1]
			gap := seg.Start - last.End
			if gap < p.MinPause {
				if seg.End > last.End {
					last.End = seg.End
				}
				last.Duration = last.End - last.Start
				last.OriginalIDs = append(last.OriginalIDs, seg.OriginalIDs...)
				last.Flag = FlagAggregated
			} else {
				merged = append(merged, seg)
			}
		}
		b.Segments = merged

		b.Stats.PostMerge = len(merged)
		b.Stats.Merged = b.Stats.PreMerge - len(merged)
		b.Stats.AvgDurationPre = avgDuration(b.OriginalSegments)
		b.Stats.AvgDurationPost = avgDuration(merged)
		stats.PostMerge += len(merged)
		stats.Merged += b.Stats.Merged

		e.log.WithFields(logrus.Fields{
			"speaker": speaker,
			"pre":     b.Stats.PreMerge,
			"post":    b.Stats.PostMerge,
		}).Debug("merge pass")
	}

	// Filter pass: drop post-merge segments shorter than the threshold.
	for _, b := range buckets {
		kept := b.Segments[:0]
		for _, seg := range b.Segments {
			if seg.Duration >= p.MinDuration {
				kept = append(kept, seg)
				continue
			}
			b.Stats.Removed++
			stats.Removed++
		}
		b.Segments = kept
		b.Stats.Final = len(kept)
		for _, seg := range kept {
			b.Stats.SpeakingDuration += seg.Duration
		}
	}
	stats.Final = stats.PostMerge - stats.Removed

	var finals []MergedSegment
	for _, b := range buckets {
		finals = append(finals, b.Segments...)
	}
	stats.AvgDuration = avgDuration(finals)

	// Cross-speaker index: kept segment id -> bucket position, O(1) lookup
	// regardless of which speaker holds it.
	index := map[int]IndexEntry{}
	for speaker, b := range buckets {
		for i, seg := range b.Segments {
			index[seg.ID] = IndexEntry{Speaker: speaker, Pos: i}
		}
	}

	meta := ResultMeta{
		MinPause:    p.MinPause,
		MinDuration: p.MinDuration,
		MergeGroups: algebra.MergeGroups(),
		Rename:      algebra.Rename,
		Stats:       stats,
	}
	for sp := range algebra.Drop {
		meta.Drop = append(meta.Drop, sp)
	}
	sort.Strings(meta.Drop)

	return &Result{Meta: meta, Speakers: buckets, Index: index}, fs, nil
}

func avgDuration(segs []MergedSegment) float64 {
	if len(segs) == 0 {
		return 0
	}
	var sum float64
	for _, s := range segs {
		sum += s.Duration
	}
	return sum / float64(len(segs))
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}

func sortGroups(groups []MergeGroup) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Into < groups[j].Into })
}

func joinSorted(s []string) string {
	sort.Strings(s)
	return strings.Join(s, ", ")
}
