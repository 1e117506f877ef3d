// Package orchestrator wires the pipeline phases together over a project
// directory: segment (chunked diarization), unify (identity resolution),
// refine (merge/filter), split, transcribe and render. Phases run strictly
// sequentially and fail fast; completed artifacts on disk are the only resume
// mechanism.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxmap/voxmap/audio"
	"github.com/voxmap/voxmap/config"
	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/identity"
	"github.com/voxmap/voxmap/mergefilter"
	"github.com/voxmap/voxmap/planner"
	"github.com/voxmap/voxmap/segmenter"
	"github.com/voxmap/voxmap/timeline"
)

const (
	sampleMaxSlice = 10.0
	sampleGap      = 0.2
	trackGap       = 0.2
	firstSegmentID = 1
)

type Pipeline struct {
	cfg  *config.Root
	dir  string
	log  *logrus.Entry
	diar segmenter.Diarizer
	stt  Transcriber
}

func New(cfg *config.Root, projectDir string, diar segmenter.Diarizer, stt Transcriber) *Pipeline {
	return &Pipeline{
		cfg:  cfg,
		dir:  projectDir,
		log:  logrus.WithField("project", cfg.Project.Name),
		diar: diar,
		stt:  stt,
	}
}

// Segment converts the input to wav, plans the analysis windows and processes
// them in order, persisting one artifact per window plus the speaker map
// (template or auto-generated) and the project metadata.
func (p *Pipeline) Segment(ctx context.Context, inputPath string) error {
	started := time.Now()

	if err := os.MkdirAll(p.windowsDir(), 0o755); err != nil {
		return err
	}

	p.log.WithField("input", inputPath).Info("converting input audio")
	if err := audio.ConvertToWAV(ctx, inputPath, p.wavPath()); err != nil {
		return err
	}
	total, err := audio.Duration(ctx, p.wavPath())
	if err != nil {
		return err
	}

	plan, windowDur, err := p.planWindows(total)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"total_sec": fmt.Sprintf("%.1f", total),
		"windows":   len(plan),
	}).Info("window plan ready")

	seg := segmenter.New(p.diar, p.log)

	// Sequential by necessity: each window's boundary policy decides where
	// the next window starts, and the id offset threads through.
	var windows []timeline.Window
	t0 := 0.0
	idOffset := firstSegmentID
	totalSegments := 0
	for i, length := range plan {
		wlog := p.log.WithField("window", i)
		wlog.WithFields(logrus.Fields{
			"start": fmt.Sprintf("%.1f", t0),
			"len":   fmt.Sprintf("%.1f", length),
		}).Info("diarizing window")

		res, err := seg.ProcessWindow(ctx, p.wavPath(), i, t0, length, total, idOffset, i == len(plan)-1)
		if err != nil {
			return err
		}
		logFindings(wlog, res.Findings)

		if err := os.MkdirAll(p.windowDir(i), 0o755); err != nil {
			return err
		}
		p.extractSamples(ctx, &res.Window)

		if err := writeJSON(p.windowJSONPath(i), &res.Window); err != nil {
			return err
		}
		if err := p.writeWindowReport(&res.Window); err != nil {
			wlog.Warnf("window report: %v", err)
		}

		wlog.WithFields(logrus.Fields{
			"speakers": res.Window.Meta.NumSpeakers,
			"segments": res.Window.Meta.NumSegments,
			"next":     fmt.Sprintf("%.1f", res.NextStart),
		}).Info("window done")

		windows = append(windows, res.Window)
		totalSegments += len(res.Window.Segments)
		t0 = res.NextStart
		idOffset = res.NextIDOffset
	}

	if err := p.writeSpeakerMap(windows); err != nil {
		return err
	}

	meta := Metadata{
		SourceFile:       inputPath,
		WavFile:          p.wavPath(),
		TotalDuration:    total,
		WindowDuration:   windowDur,
		NumWindows:       len(windows),
		TotalSegments:    totalSegments,
		ResidualDivisor:  p.cfg.Segment.ResidualDivisor,
		PlannedDurations: plan,
		ProcessingTime:   time.Since(started).Seconds(),
	}
	for _, w := range windows {
		meta.ActualDurations = append(meta.ActualDurations, w.Meta.Duration)
	}
	if err := writeJSON(filepath.Join(p.dir, metadataFile), &meta); err != nil {
		return err
	}

	return p.recordStats("segment", started, map[string]any{
		"input":            inputPath,
		"window_duration":  p.cfg.Segment.WindowDuration,
		"num_windows":      p.cfg.Segment.NumWindows,
		"residual_divisor": p.cfg.Segment.ResidualDivisor,
		"auto_map":         p.cfg.Segment.AutoMap,
	})
}

func (p *Pipeline) planWindows(total float64) (planner.Plan, float64, error) {
	if p.cfg.Segment.WindowDuration != "" {
		d, err := planner.ParseDuration(p.cfg.Segment.WindowDuration)
		if err != nil {
			return nil, 0, err
		}
		plan, err := planner.ByDuration(total, d, p.cfg.Segment.ResidualDivisor)
		return plan, d, err
	}
	if p.cfg.Segment.NumWindows > 0 {
		plan, err := planner.ByCount(total, p.cfg.Segment.NumWindows)
		if err != nil {
			return nil, 0, err
		}
		return plan, plan[0], nil
	}
	return nil, 0, faults.Configf("either a window duration or a window count is required")
}

// extractSamples writes one identification sample per local speaker next to
// the window artifact. Failures are warnings; samples only aid the operator.
func (p *Pipeline) extractSamples(ctx context.Context, w *timeline.Window) {
	for _, sp := range w.Speakers() {
		var segs []timeline.Segment
		for _, s := range w.Segments {
			if s.Speaker == sp {
				segs = append(segs, s)
			}
		}
		spans := audio.SampleSpans(segs, p.cfg.Segment.SampleDuration, sampleMaxSlice)
		if len(spans) == 0 {
			continue
		}
		out := filepath.Join(p.windowDir(w.Meta.Index), sp+"_sample.wav")
		if err := audio.Concat(ctx, p.wavPath(), out, spans, sampleGap); err != nil {
			p.log.WithField("window", w.Meta.Index).Warnf("sample for %s: %v", sp, err)
			continue
		}
		if w.SpeakerSamples == nil {
			w.SpeakerSamples = map[string]string{}
		}
		w.SpeakerSamples[sp] = out
	}
}

// writeSpeakerMap emits either the clustering-generated map (auto-map mode
// with more than one window) or the fill-in template. The generated map is
// also copied aside so a manual edit can start from the suggestion.
func (p *Pipeline) writeSpeakerMap(windows []timeline.Window) error {
	if p.cfg.Segment.AutoMap && len(windows) > 1 {
		m, fs, err := identity.AutoMap(windows, identity.ClusterConfig{
			Eps:        p.cfg.Segment.ClusterEps,
			MinSamples: p.cfg.Segment.ClusterMinSamples,
		})
		if err == nil {
			logFindings(p.log, fs)
			if err := p.writeMapFile(p.mapPath(), func(f *os.File) error {
				return identity.WriteGenerated(f, m)
			}); err != nil {
				return err
			}
			return p.writeMapFile(filepath.Join(p.dir, suggestedMapFile), func(f *os.File) error {
				return identity.WriteGenerated(f, m)
			})
		}
		p.log.Warnf("auto-map failed (%v), writing template", err)
	} else if p.cfg.Segment.AutoMap {
		p.log.Info("auto-map needs more than one window, writing template")
	}
	return p.writeMapFile(p.mapPath(), func(f *os.File) error {
		return identity.WriteTemplate(f, windows)
	})
}

func (p *Pipeline) writeMapFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

// Resolve regenerates the speaker map from the persisted window artifacts
// without re-running diarization: clustering when auto-map is on and
// embeddings exist, the manual template otherwise. Useful after tuning the
// clustering parameters.
func (p *Pipeline) Resolve(ctx context.Context) error {
	started := time.Now()

	windows, err := p.loadWindows()
	if err != nil {
		return err
	}
	if err := p.writeSpeakerMap(windows); err != nil {
		return err
	}
	p.log.WithField("map", p.mapPath()).Info("speaker map written")

	return p.recordStats("resolve", started, map[string]any{
		"auto_map":            p.cfg.Segment.AutoMap,
		"cluster_eps":         p.cfg.Segment.ClusterEps,
		"cluster_min_samples": p.cfg.Segment.ClusterMinSamples,
	})
}

// Unify parses and validates the speaker map, applies it to every window and
// persists the flat recording-wide timeline. Validation errors abort unless
// force is set, in which case the run continues with the findings logged.
func (p *Pipeline) Unify(ctx context.Context) error {
	started := time.Now()

	windows, err := p.loadWindows()
	if err != nil {
		return err
	}

	ids, parseFindings, err := identity.ParseMapFile(p.mapPath())
	if err != nil {
		return err
	}
	logFindings(p.log, parseFindings)
	if err := parseFindings.Err(); err != nil && !p.cfg.Force {
		return err
	}

	valFindings := identity.Validate(windows, ids)
	logFindings(p.log, valFindings)
	if err := valFindings.Err(); err != nil && !p.cfg.Force {
		return err
	}
	if parseFindings.HasErrors() || valFindings.HasErrors() {
		p.log.Warn("forcing continuation past validation errors")
	}

	unified, fs, err := timeline.Unify(windows, ids)
	if err != nil {
		return err
	}
	logFindings(p.log, fs)

	if meta, err := readJSON[Metadata](filepath.Join(p.dir, metadataFile)); err == nil {
		unified.Meta.SourceFile = meta.SourceFile
		unified.Meta.WavFile = meta.WavFile
		unified.Meta.TotalDuration = meta.TotalDuration
		unified.Meta.WindowDuration = meta.WindowDuration
	} else {
		p.log.Warnf("project metadata unavailable: %v", err)
	}

	if err := writeJSON(filepath.Join(p.dir, unifiedFile), unified); err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"segments": unified.Meta.TotalSegments,
		"speakers": unified.Meta.NumSpeakers,
	}).Info("timeline unified")

	return p.recordStats("unify", started, map[string]any{
		"speaker_map": p.mapPath(),
		"force":       p.cfg.Force,
	})
}

// Refine runs the merge/filter engine over the unified timeline and persists
// the per-speaker buckets, statistics and segment index. The parameters used
// are recorded back into the project config for reproducibility.
func (p *Pipeline) Refine(ctx context.Context) error {
	started := time.Now()

	unified, err := readJSON[timeline.Unified](filepath.Join(p.dir, unifiedFile))
	if err != nil {
		return err
	}

	algebra, err := mergefilter.ParseAlgebra(
		p.cfg.Refine.MergeSpeakers, p.cfg.Refine.RenameSpeakers, p.cfg.Refine.DropSpeakers)
	if err != nil {
		return err
	}

	engine := mergefilter.NewEngine(p.log)
	result, fs, err := engine.Run(unified, mergefilter.Params{
		MinPause:    p.cfg.Refine.MinPause,
		MinDuration: p.cfg.Refine.MinDuration,
		Algebra:     algebra,
	})
	if err != nil {
		return err
	}
	logFindings(p.log, fs)

	if err := writeJSON(filepath.Join(p.dir, filteredFile), result); err != nil {
		return err
	}

	st := result.Meta.Stats
	p.log.WithFields(logrus.Fields{
		"pre_merge": st.PreMerge,
		"merged":    st.Merged,
		"removed":   st.Removed,
		"final":     st.Final,
	}).Info("merge/filter done")

	p.cfg.RecordRun("refine", map[string]any{
		"min_pause":       p.cfg.Refine.MinPause,
		"min_duration":    p.cfg.Refine.MinDuration,
		"merge_speakers":  p.cfg.Refine.MergeSpeakers,
		"rename_speakers": p.cfg.Refine.RenameSpeakers,
		"drop_speakers":   p.cfg.Refine.DropSpeakers,
	})
	if err := p.cfg.Save(p.dir); err != nil {
		p.log.Warnf("config write-back: %v", err)
	}

	return p.recordStats("refine", started, map[string]any{
		"min_pause":    p.cfg.Refine.MinPause,
		"min_duration": p.cfg.Refine.MinDuration,
	})
}

// Run executes the whole pipeline in order. With no operator in the loop the
// identity map has to come from clustering, so Run forces auto-map mode.
func (p *Pipeline) Run(ctx context.Context, inputPath string) error {
	p.cfg.Segment.AutoMap = true
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"segment", func(ctx context.Context) error { return p.Segment(ctx, inputPath) }},
		{"unify", p.Unify},
		{"refine", p.Refine},
		{"split", p.Split},
		{"transcribe", p.Transcribe},
		{"render", p.Render},
	}
	for _, step := range steps {
		p.log.WithField("phase", step.name).Info("phase start")
		if err := step.fn(ctx); err != nil {
			var ce *faults.CollaboratorError
			if errors.As(err, &ce) {
				p.log.WithField("phase", step.name).Errorf("collaborator failure: %v", ce)
			}
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func logFindings(log *logrus.Entry, fs *faults.Set) {
	if fs == nil {
		return
	}
	for _, f := range fs.All() {
		switch f.Severity {
		case faults.Error:
			log.Error(f.Message)
		case faults.Warning:
			log.Warn(f.Message)
		default:
			log.Info(f.Message)
		}
	}
}
