// Package timeline defines the data model shared by the pipeline stages
// (segments, analysis windows, the identity map, and the unified recording-wide
// timeline) plus the unifier that applies a resolved identity map to every
// window's segments. The persisted JSON artifacts are serializations of these
// types, never ad hoc dictionaries.
package timeline

import (
	"fmt"
	"sort"
)

// SegmentType tags how a segment relates to its neighbours.
type SegmentType string

const (
	SegmentNormal     SegmentType = "normal"
	SegmentOverlapped SegmentType = "overlapped"
)

// Segment is one attributed span of speech on the absolute recording timeline.
// Start and end are always absolute seconds, never window-relative. IDs are
// unique across the whole recording once unification has run.
type Segment struct {
	ID              int         `json:"id"`
	Start           float64     `json:"start"`
	End             float64     `json:"end"`
	Duration        float64     `json:"duration"`
	Speaker         string      `json:"speaker"`
	OriginalSpeaker string      `json:"original_speaker,omitempty"`
	Confidence      float64     `json:"confidence"`
	Type            SegmentType `json:"type"`
	OverlapsWith    []int       `json:"overlaps_with"`
	Includes        []int       `json:"includes"`
	IncludedIn      *int        `json:"included_in"`
}

// WindowMeta is the persisted header of one analysis window.
type WindowMeta struct {
	Index       int     `json:"window_id"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"`
	NumSpeakers int     `json:"num_speakers"`
	NumSegments int     `json:"num_segments"`
}

// Window is the durable artifact produced once per planned window. It is
// immutable after segmentation finishes; later stages only read it.
type Window struct {
	Meta              WindowMeta           `json:"metadata"`
	Segments          []Segment            `json:"segments"`
	SpeakerSamples    map[string]string    `json:"speaker_samples,omitempty"`
	SpeakerEmbeddings map[string][]float64 `json:"speaker_embeddings,omitempty"`
}

// Speakers returns the distinct local speaker labels present in the window's
// segments, sorted.
func (w *Window) Speakers() []string {
	seen := map[string]bool{}
	for _, s := range w.Segments {
		seen[s.Speaker] = true
	}
	out := make([]string, 0, len(seen))
	for sp := range seen {
		out = append(out, sp)
	}
	sort.Strings(out)
	return out
}

// SpeakerKey identifies one window-scoped speaker label. Its string form uses
// the canonical zero-padded spelling, so WINDOW_3.X and WINDOW_03.X collide to
// one key.
type SpeakerKey struct {
	Window int
	Local  string
}

func (k SpeakerKey) String() string {
	return fmt.Sprintf("WINDOW_%02d.%s", k.Window, k.Local)
}

// IdentityMap resolves window-scoped speaker labels to global speaker names.
// Manual parsing and automatic clustering both produce this shape.
type IdentityMap map[SpeakerKey]string

// Keys returns the map's keys sorted by window then local label.
func (m IdentityMap) Keys() []SpeakerKey {
	keys := make([]SpeakerKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Window != keys[j].Window {
			return keys[i].Window < keys[j].Window
		}
		return keys[i].Local < keys[j].Local
	})
	return keys
}

// DataKeys collects every speaker key that actually occurs in the windows'
// segments, sorted.
func DataKeys(windows []Window) []SpeakerKey {
	seen := map[SpeakerKey]bool{}
	for _, w := range windows {
		for _, sp := range w.Speakers() {
			seen[SpeakerKey{Window: w.Meta.Index, Local: sp}] = true
		}
	}
	keys := make([]SpeakerKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Window != keys[j].Window {
			return keys[i].Window < keys[j].Window
		}
		return keys[i].Local < keys[j].Local
	})
	return keys
}

// UnifiedMeta summarises the unified timeline artifact.
type UnifiedMeta struct {
	SourceFile     string  `json:"source_file"`
	WavFile        string  `json:"wav_file"`
	TotalDuration  float64 `json:"total_duration"`
	WindowDuration float64 `json:"window_duration"`
	NumWindows     int     `json:"num_windows"`
	NumSpeakers    int     `json:"num_speakers"`
	TotalSegments  int     `json:"total_segments"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

// Unified is the flat recording-wide segment list after identity resolution,
// the hand-off into the merge/filter stage.
type Unified struct {
	Meta       UnifiedMeta         `json:"metadata"`
	Segments   []Segment           `json:"segments"`
	TypeCounts map[SegmentType]int `json:"segment_type_counts"`
}
