package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/voxmap/voxmap/subtitle"
	"github.com/voxmap/voxmap/timeline"
)

// writeWindowReport renders a plain-text summary of one window next to its
// JSON artifact. The report is for the operator deciding on the speaker map;
// nothing downstream reads it.
func (p *Pipeline) writeWindowReport(w *timeline.Window) error {
	var b strings.Builder

	fmt.Fprintf(&b, "WINDOW %02d REPORT\n", w.Meta.Index)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Time range:  %s - %s (%.1fs)\n",
		subtitle.FormatReadableTimestamp(w.Meta.StartTime),
		subtitle.FormatReadableTimestamp(w.Meta.EndTime),
		w.Meta.Duration)
	fmt.Fprintf(&b, "Segments:    %d\n", w.Meta.NumSegments)
	fmt.Fprintf(&b, "Speakers:    %d\n\n", w.Meta.NumSpeakers)

	writeDurationBins(&b, w.Segments)

	fmt.Fprintf(&b, "PER-SPEAKER STATISTICS\n%s\n", strings.Repeat("-", 60))
	for _, sp := range w.Speakers() {
		writeSpeakerStats(&b, sp, w)
	}

	path := filepath.Join(p.windowDir(w.Meta.Index), fmt.Sprintf("report_%02d.txt", w.Meta.Index))
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

var durationBins = []struct {
	label string
	max   float64
}{
	{"< 5s", 5},
	{"5s - 20s", 20},
	{"20s - 1m", 60},
	{"1m - 2m", 120},
	{"> 2m", -1},
}

func writeDurationBins(b *strings.Builder, segments []timeline.Segment) {
	counts := make([]int, len(durationBins))
	for _, s := range segments {
		for i, bin := range durationBins {
			if bin.max < 0 || s.Duration < bin.max {
				counts[i]++
				break
			}
		}
	}
	fmt.Fprintf(b, "SEGMENT DURATION DISTRIBUTION\n%s\n", strings.Repeat("-", 60))
	for i, bin := range durationBins {
		fmt.Fprintf(b, "  %-10s %d\n", bin.label, counts[i])
	}
	fmt.Fprintln(b)
}

func writeSpeakerStats(b *strings.Builder, speaker string, w *timeline.Window) {
	var segs []timeline.Segment
	for _, s := range w.Segments {
		if s.Speaker == speaker {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	total, minDur, maxDur := 0.0, segs[0].Duration, segs[0].Duration
	confSum := 0.0
	overlapped := 0
	for _, s := range segs {
		total += s.Duration
		if s.Duration < minDur {
			minDur = s.Duration
		}
		if s.Duration > maxDur {
			maxDur = s.Duration
		}
		confSum += s.Confidence
		if s.Type == timeline.SegmentOverlapped {
			overlapped++
		}
	}

	gapSum, gaps := 0.0, 0
	for i := 1; i < len(segs); i++ {
		if g := segs[i].Start - segs[i-1].End; g > 0 {
			gapSum += g
			gaps++
		}
	}

	fmt.Fprintf(b, "\n%s\n", speaker)
	fmt.Fprintf(b, "  Segments:       %d\n", len(segs))
	fmt.Fprintf(b, "  Speaking time:  %.1fs (%.1f%% of window)\n",
		total, percent(total, w.Meta.Duration))
	fmt.Fprintf(b, "  Duration:       min %.1fs / avg %.1fs / max %.1fs\n",
		minDur, total/float64(len(segs)), maxDur)
	fmt.Fprintf(b, "  Confidence:     %.2f avg\n", confSum/float64(len(segs)))
	if w.Meta.Duration > 0 {
		fmt.Fprintf(b, "  Fragmentation:  %.1f segments/min\n",
			float64(len(segs))/(w.Meta.Duration/60))
	}
	fmt.Fprintf(b, "  Overlapped:     %.1f%% of segments\n",
		percent(float64(overlapped), float64(len(segs))))
	if gaps > 0 {
		fmt.Fprintf(b, "  Avg turn gap:   %.1fs\n", gapSum/float64(gaps))
	}
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
