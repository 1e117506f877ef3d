// Package segmenter turns the diarization collaborator's window-local output
// into globally-offset, globally-ID'd segments. Windows are processed strictly
// in order: the boundary policy of one window decides where the next one
// starts, and the id offset is threaded from window to window as an explicit
// accumulator.
package segmenter

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

// DefaultConfidence is assigned when the diarizer reports no per-segment score.
const DefaultConfidence = 0.7

// RawSegment is one window-relative turn reported by the diarizer.
type RawSegment struct {
	Start      float64
	End        float64
	Speaker    string
	Confidence float64
}

// Diarization is the collaborator's answer for one window. Embeddings, when
// present, carry one vector per distinct local speaker in sorted-label order.
type Diarization struct {
	Segments   []RawSegment
	Embeddings [][]float64
}

// Diarizer analyses the audio spanning [start, start+duration] of the
// recording at wavPath. A failure is fatal for the whole run.
type Diarizer interface {
	Diarize(ctx context.Context, wavPath string, start, duration float64) (*Diarization, error)
}

// Result is the outcome of segmenting one window. NextStart and NextIDOffset
// feed the following window.
type Result struct {
	Window       timeline.Window
	NextStart    float64
	NextIDOffset int
	Findings     *faults.Set
}

// Segmenter drives the diarizer over planned windows.
type Segmenter struct {
	diar Diarizer
	log  *logrus.Entry
}

func New(d Diarizer, log *logrus.Entry) *Segmenter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Segmenter{diar: d, log: log}
}

// ProcessWindow diarizes the window starting at t0 with the planned length,
// converts every turn to an absolute segment with ids idOffset, idOffset+1, …
// and applies the boundary policy: unless this is the last window (or close
// enough to the end, or the window yielded at most one segment), the last
// detected turn is dropped from this window's kept output and re-exposed to
// the next window by restarting there.
func (s *Segmenter) ProcessWindow(ctx context.Context, wavPath string, index int, t0, length, totalDuration float64, idOffset int, isLast bool) (*Result, error) {
	fs := &faults.Set{}

	diar, err := s.diar.Diarize(ctx, wavPath, t0, length)
	if err != nil {
		return nil, &faults.CollaboratorError{Op: "diarize", Cause: err}
	}

	segments := make([]timeline.Segment, 0, len(diar.Segments))
	for _, raw := range diar.Segments {
		conf := raw.Confidence
		if conf <= 0 {
			conf = DefaultConfidence
		}
		start := t0 + raw.Start
		end := t0 + raw.End
		if raw.Start < 0 || end > totalDuration {
			fs.Warnf("window %d: segment [%.2f, %.2f] extends outside the recording", index, start, end)
		}
		segments = append(segments, timeline.Segment{
			Start:      start,
			End:        end,
			Duration:   end - start,
			Speaker:    raw.Speaker,
			Confidence: conf,
			Type:       timeline.SegmentNormal,
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	for i := range segments {
		segments[i].ID = idOffset + i
	}
	detectRelations(segments)

	// Boundary policy. Re-exposing the last turn gives the next window full
	// context on both sides of it, avoiding turn-splitting at the time cut.
	remaining := totalDuration - t0
	isFinal := isLast || remaining < length/3

	kept := segments
	var nextStart float64
	switch {
	case len(segments) == 0:
		nextStart = t0 + length
	case isFinal || len(segments) == 1:
		nextStart = segments[len(segments)-1].End
	default:
		deferred := segments[len(segments)-1]
		kept = segments[:len(segments)-1]
		nextStart = deferred.Start
		s.log.WithFields(logrus.Fields{
			"window":   index,
			"deferred": deferred.ID,
			"restart":  nextStart,
		}).Debug("deferring last turn to next window")
	}

	nextIDOffset := idOffset
	if len(kept) > 0 {
		nextIDOffset = kept[len(kept)-1].ID + 1
	}

	w := timeline.Window{
		Meta: timeline.WindowMeta{
			Index:       index,
			StartTime:   t0,
			EndTime:     nextStart,
			Duration:    nextStart - t0,
			NumSegments: len(kept),
		},
		Segments: kept,
	}
	w.Meta.NumSpeakers = len(w.Speakers())
	w.SpeakerEmbeddings = extractEmbeddings(&w, diar.Embeddings, fs)

	return &Result{Window: w, NextStart: nextStart, NextIDOffset: nextIDOffset, Findings: fs}, nil
}

// extractEmbeddings pairs the diarizer's embedding vectors with the kept
// segments' speakers in sorted-local-label order. A shortfall yields an empty
// map and a warning rather than a misaligned pairing.
func extractEmbeddings(w *timeline.Window, embeddings [][]float64, fs *faults.Set) map[string][]float64 {
	if len(embeddings) == 0 || len(w.Segments) == 0 {
		return nil
	}
	speakers := w.Speakers()
	if len(embeddings) < len(speakers) {
		fs.Warnf("window %d: %d embeddings for %d speakers, skipping embedding extraction",
			w.Meta.Index, len(embeddings), len(speakers))
		return nil
	}
	out := make(map[string][]float64, len(speakers))
	for i, sp := range speakers {
		out[sp] = embeddings[i]
	}
	return out
}

// detectRelations annotates overlap and inclusion relations between the
// window's segments, sorted by start. Both members of any relation are tagged
// overlapped.
func detectRelations(segments []timeline.Segment) {
	for i := range segments {
		for j := i + 1; j < len(segments); j++ {
			if segments[j].Start >= segments[i].End {
				break
			}
			if segments[j].End <= segments[i].End {
				segments[i].Includes = append(segments[i].Includes, segments[j].ID)
				id := segments[i].ID
				segments[j].IncludedIn = &id
			} else {
				segments[i].OverlapsWith = append(segments[i].OverlapsWith, segments[j].ID)
				segments[j].OverlapsWith = append(segments[j].OverlapsWith, segments[i].ID)
			}
			segments[i].Type = timeline.SegmentOverlapped
			segments[j].Type = timeline.SegmentOverlapped
		}
	}
}
