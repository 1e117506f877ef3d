package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxmap/voxmap/audio"
	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/mergefilter"
	"github.com/voxmap/voxmap/subtitle"
)

// Split assembles one audio track per refined speaker by concatenating that
// speaker's segments with a short silence gap between them.
func (p *Pipeline) Split(ctx context.Context) error {
	started := time.Now()

	result, err := readJSON[mergefilter.Result](filepath.Join(p.dir, filteredFile))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.tracksDir(), 0o755); err != nil {
		return err
	}

	for _, sp := range sortedSpeakers(result.Speakers) {
		bucket := result.Speakers[sp]
		if len(bucket.Segments) == 0 {
			p.log.Warnf("speaker %s has no segments after refinement, skipping track", sp)
			continue
		}
		spans := make([]audio.Span, 0, len(bucket.Segments))
		speech := 0.0
		for _, seg := range bucket.Segments {
			spans = append(spans, audio.Span{Start: seg.Start, End: seg.End})
			speech += seg.Duration
		}
		out := filepath.Join(p.tracksDir(), trackFileName(sp))
		if err := audio.Concat(ctx, p.wavPath(), out, spans, trackGap); err != nil {
			return &faults.CollaboratorError{Op: "split track " + sp, Cause: err}
		}
		p.log.WithFields(logrus.Fields{
			"speaker":    sp,
			"segments":   len(spans),
			"speech_sec": fmt.Sprintf("%.1f", speech),
		}).Info("track written")
	}

	return p.recordStats("split", started, map[string]any{
		"speakers": len(result.Speakers),
	})
}

// Transcribe sends each refined segment to the speech-to-text service and
// persists one transcript artifact per speaker. Segments are cut from the
// converted wav so the service only ever sees that speaker's audio.
func (p *Pipeline) Transcribe(ctx context.Context) error {
	started := time.Now()

	result, err := readJSON[mergefilter.Result](filepath.Join(p.dir, filteredFile))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.transcriptsDir(), 0o755); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "voxmap_stt_*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	for _, sp := range sortedSpeakers(result.Speakers) {
		bucket := result.Speakers[sp]
		slog := p.log.WithField("speaker", sp)
		slog.WithField("segments", len(bucket.Segments)).Info("transcribing speaker")

		ts := SpeakerTranscript{Speaker: sp, DisplayName: bucket.DisplayName}
		for _, seg := range bucket.Segments {
			cut := filepath.Join(tmpDir, fmt.Sprintf("seg_%06d.wav", seg.ID))
			if err := audio.ExtractSpan(ctx, p.wavPath(), cut, seg.Start, seg.End); err != nil {
				return &faults.CollaboratorError{Op: fmt.Sprintf("cut segment %d", seg.ID), Cause: err}
			}
			tr, err := p.stt.Transcribe(ctx, cut, seg.Start)
			if err != nil {
				return &faults.CollaboratorError{Op: fmt.Sprintf("transcribe segment %d", seg.ID), Cause: err}
			}
			ts.Segments = append(ts.Segments, TranscriptSegment{
				ID:     seg.ID,
				Start:  seg.Start,
				End:    seg.End,
				Text:   strings.TrimSpace(tr.Text),
				Pieces: tr.Segments,
			})
		}

		out := filepath.Join(p.transcriptsDir(), transcriptFileName(sp))
		if err := writeJSON(out, &ts); err != nil {
			return err
		}
		slog.Info("transcript written")
	}

	return p.recordStats("transcribe", started, map[string]any{
		"model":    p.cfg.Transcribe.Model,
		"language": p.cfg.Transcribe.Language,
	})
}

// Render produces per-speaker SRT and TXT subtitles plus a combined,
// speaker-labelled SRT interleaved on the absolute timeline.
func (p *Pipeline) Render(ctx context.Context) error {
	started := time.Now()

	entries, err := os.ReadDir(p.transcriptsDir())
	if err != nil {
		return fmt.Errorf("read transcripts dir: %w", err)
	}
	if err := os.MkdirAll(p.subsDir(), 0o755); err != nil {
		return err
	}

	perSpeaker := map[string][]subtitle.Cue{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_transcript.json") {
			continue
		}
		ts, err := readJSON[SpeakerTranscript](filepath.Join(p.transcriptsDir(), e.Name()))
		if err != nil {
			return err
		}
		label := ts.Speaker
		if ts.DisplayName != "" {
			label = ts.DisplayName
		}
		var cues []subtitle.Cue
		for _, seg := range ts.Segments {
			if seg.Text == "" {
				continue
			}
			cues = append(cues, subtitle.Cue{
				Start:   seg.Start,
				End:     seg.End,
				Speaker: label,
				Text:    seg.Text,
			})
		}
		perSpeaker[ts.Speaker] = cues

		if err := p.writeCueFile(filepath.Join(p.subsDir(), ts.Speaker+".srt"), func(f *os.File) error {
			return subtitle.WriteSRT(f, cues, false)
		}); err != nil {
			return err
		}
		if err := p.writeCueFile(filepath.Join(p.subsDir(), ts.Speaker+".txt"), func(f *os.File) error {
			return subtitle.WriteTXT(f, cues)
		}); err != nil {
			return err
		}
		p.log.WithFields(logrus.Fields{
			"speaker": ts.Speaker,
			"cues":    len(cues),
		}).Info("subtitles written")
	}
	if len(perSpeaker) == 0 {
		return fmt.Errorf("no transcripts in %s, run the transcribe phase first", p.transcriptsDir())
	}

	combined := subtitle.Interleave(perSpeaker)
	if err := p.writeCueFile(filepath.Join(p.subsDir(), "combined.srt"), func(f *os.File) error {
		return subtitle.WriteSRT(f, combined, true)
	}); err != nil {
		return err
	}
	p.log.WithField("cues", len(combined)).Info("combined subtitles written")

	return p.recordStats("render", started, map[string]any{
		"speakers": len(perSpeaker),
	})
}

func (p *Pipeline) writeCueFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

func sortedSpeakers(m map[string]*mergefilter.Bucket) []string {
	out := make([]string, 0, len(m))
	for sp := range m {
		out = append(out, sp)
	}
	sort.Strings(out)
	return out
}

func trackFileName(speaker string) string      { return speaker + ".wav" }
func transcriptFileName(speaker string) string { return speaker + "_transcript.json" }
