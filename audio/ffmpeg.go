// Package audio wraps the external ffmpeg/ffprobe tools for the audio work the
// pipeline needs: normalizing input, probing duration, cutting spans, and
// assembling per-speaker sample and track files.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/voxmap/voxmap/timeline"
)

// The pipeline works on 16 kHz mono PCM throughout, the format the diarization
// and transcription models expect.
const (
	sampleRate = "16000"
	channels   = "1"
)

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ConvertToWAV transcodes any input ffmpeg can read into 16 kHz mono PCM wav.
func ConvertToWAV(ctx context.Context, in, out string) error {
	return run(ctx, "ffmpeg",
		"-y", "-i", in,
		"-acodec", "pcm_s16le", "-ar", sampleRate, "-ac", channels,
		out,
	)
}

// Duration probes the audio duration in seconds via ffprobe.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// ExtractSpan cuts [start, end] seconds of in to out as 16 kHz mono wav.
func ExtractSpan(ctx context.Context, in, out string, start, end float64) error {
	return run(ctx, "ffmpeg",
		"-y", "-i", in,
		"-ss", formatSeconds(start), "-to", formatSeconds(end),
		"-acodec", "pcm_s16le", "-ar", sampleRate, "-ac", channels,
		out,
	)
}

// Span is one time range to assemble into an output file.
type Span struct {
	Start float64
	End   float64
}

// Concat extracts every span from in and concatenates them into out, with a
// short silence gap between consecutive spans.
func Concat(ctx context.Context, in, out string, spans []Span, gapSeconds float64) error {
	if len(spans) == 0 {
		return fmt.Errorf("concat: no spans")
	}
	if len(spans) == 1 {
		return ExtractSpan(ctx, in, out, spans[0].Start, spans[0].End)
	}

	args := []string{"-y"}
	for _, sp := range spans {
		args = append(args, "-ss", formatSeconds(sp.Start), "-to", formatSeconds(sp.End), "-i", in)
	}

	var filter strings.Builder
	var inputs []string
	for i := range spans {
		inputs = append(inputs, fmt.Sprintf("[%d:a]", i))
		if i < len(spans)-1 && gapSeconds > 0 {
			fmt.Fprintf(&filter, "anullsrc=channel_layout=mono:sample_rate=%s:duration=%s[gap%d];",
				sampleRate, formatSeconds(gapSeconds), i)
			inputs = append(inputs, fmt.Sprintf("[gap%d]", i))
		}
	}
	fmt.Fprintf(&filter, "%sconcat=n=%d:v=0:a=1[outa]", strings.Join(inputs, ""), len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outa]",
		"-acodec", "pcm_s16le", "-ar", sampleRate, "-ac", channels,
		out,
	)
	return run(ctx, "ffmpeg", args...)
}

// SampleSpans picks the material for one speaker's identification sample:
// longest segments first, at most maxSlice seconds each taken from the
// segment's middle, until targetDuration is covered. Falls back to the single
// longest segment when nothing qualifies.
func SampleSpans(segments []timeline.Segment, targetDuration, maxSlice float64) []Span {
	if len(segments) == 0 {
		return nil
	}
	ordered := make([]timeline.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Duration != ordered[j].Duration {
			return ordered[i].Duration > ordered[j].Duration
		}
		return ordered[i].Start < ordered[j].Start
	})

	var spans []Span
	var covered float64
	for _, seg := range ordered {
		if covered >= targetDuration {
			break
		}
		available := seg.Duration
		if available > maxSlice {
			available = maxSlice
		}
		take := targetDuration - covered
		if take > available {
			take = available
		}
		if take <= 1.0 {
			continue
		}
		mid := seg.Start + seg.Duration/2
		start := mid - take/2
		end := start + take
		if start < seg.Start {
			start = seg.Start
			end = start + take
		} else if end > seg.End {
			end = seg.End
			start = end - take
		}
		spans = append(spans, Span{Start: start, End: end})
		covered += take
	}

	if len(spans) == 0 {
		longest := ordered[0]
		end := longest.End
		if end > longest.Start+targetDuration {
			end = longest.Start + targetDuration
		}
		spans = append(spans, Span{Start: longest.Start, End: end})
	}
	return spans
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
