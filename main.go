package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voxmap/voxmap/clients"
	"github.com/voxmap/voxmap/config"
	"github.com/voxmap/voxmap/orchestrator"
)

var (
	projectDir string
	logLevel   string

	windowDuration  string
	numWindows      int
	residualDivisor int
	autoMap         bool
	clusterEps      float64
	clusterMinSize  int

	force bool

	minPause       float64
	minDuration    float64
	mergeSpeakers  string
	renameSpeakers string
	dropSpeakers   string
)

func main() {
	root := &cobra.Command{
		Use:          "voxmap",
		Short:        "Turn long multi-speaker recordings into speaker-labelled subtitles",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&projectDir, "project-dir", "p", ".", "project directory (artifacts and config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newSegmentCmd(),
		newResolveCmd(),
		newUnifyCmd(),
		newRefineCmd(),
		newSplitCmd(),
		newTranscribeCmd(),
		newRenderCmd(),
		newRunCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the project config, applies flag overrides and builds the
// pipeline with its service clients.
func setup(cmd *cobra.Command) (*orchestrator.Pipeline, *config.Root, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, nil, err
	}
	applyOverrides(cmd, cfg)

	lvl := cfg.Project.LogLvl
	if logLevel != "" {
		lvl = logLevel
	}
	if lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return nil, nil, fmt.Errorf("bad log level %q: %w", lvl, err)
		}
		logrus.SetLevel(parsed)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	h := clients.NewHTTP()
	diar := clients.NewDiarizerService(h, cfg.Services.Diarization.URL, os.TempDir(), clients.DiarizeOpts{
		MinSpeakers: cfg.Segment.MinSpeakers,
		MaxSpeakers: cfg.Segment.MaxSpeakers,
		NumSpeakers: cfg.Segment.NumSpeakers,
	})
	stt := clients.NewTranscriberService(h, cfg.Services.Transcription.URL, clients.TranscribeOpts{
		Model:       cfg.Transcribe.Model,
		Language:    cfg.Transcribe.Language,
		Temperature: cfg.Transcribe.Temperature,
	})

	return orchestrator.New(cfg, projectDir, diar, stt), cfg, nil
}

// applyOverrides copies the flags the user actually set onto the loaded
// config. Unset flags leave the config values alone.
func applyOverrides(cmd *cobra.Command, cfg *config.Root) {
	set := func(name string, apply func()) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("window-duration", func() {
		cfg.Segment.WindowDuration = windowDuration
		cfg.Segment.NumWindows = 0
	})
	set("num-windows", func() {
		cfg.Segment.NumWindows = numWindows
		cfg.Segment.WindowDuration = ""
	})
	set("residual-divisor", func() { cfg.Segment.ResidualDivisor = residualDivisor })
	set("auto-map", func() { cfg.Segment.AutoMap = autoMap })
	set("eps", func() { cfg.Segment.ClusterEps = clusterEps })
	set("min-cluster-size", func() { cfg.Segment.ClusterMinSamples = clusterMinSize })
	set("force", func() { cfg.Force = force })
	set("min-pause", func() { cfg.Refine.MinPause = minPause })
	set("min-duration", func() { cfg.Refine.MinDuration = minDuration })
	set("merge-speakers", func() { cfg.Refine.MergeSpeakers = mergeSpeakers })
	set("rename-speakers", func() { cfg.Refine.RenameSpeakers = renameSpeakers })
	set("drop-speakers", func() { cfg.Refine.DropSpeakers = dropSpeakers })
}

func addSegmentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&windowDuration, "window-duration", "d", "", "window length (seconds or e.g. 30m)")
	cmd.Flags().IntVarP(&numWindows, "num-windows", "n", 0, "split into a fixed number of windows")
	cmd.Flags().IntVar(&residualDivisor, "residual-divisor", 0, "residual fold threshold divisor")
	cmd.Flags().BoolVar(&autoMap, "auto-map", false, "cluster embeddings into a generated speaker map")
	cmd.Flags().Float64Var(&clusterEps, "eps", 0, "clustering neighbourhood radius (cosine distance)")
	cmd.Flags().IntVar(&clusterMinSize, "min-cluster-size", 0, "minimum points per cluster")
	cmd.MarkFlagsMutuallyExclusive("window-duration", "num-windows")
}

func addRefineFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&minPause, "min-pause", 0, "merge same-speaker segments separated by less than this (seconds)")
	cmd.Flags().Float64Var(&minDuration, "min-duration", 0, "drop merged segments shorter than this (seconds)")
	cmd.Flags().StringVar(&mergeSpeakers, "merge-speakers", "", "merge rules, e.g. SPEAKER_A+SPEAKER_B=SPEAKER_A")
	cmd.Flags().StringVar(&renameSpeakers, "rename-speakers", "", "rename rules, e.g. SPEAKER_A=Alice")
	cmd.Flags().StringVar(&dropSpeakers, "drop-speakers", "", "comma-separated speakers to drop")
}

func newSegmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment <audio-file>",
		Short: "Convert, window and diarize a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Segment(cmd.Context(), args[0])
		},
	}
	addSegmentFlags(cmd)
	return cmd
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Regenerate the speaker map from the persisted windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Resolve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&autoMap, "auto-map", false, "cluster embeddings into a generated speaker map")
	cmd.Flags().Float64Var(&clusterEps, "eps", 0, "clustering neighbourhood radius (cosine distance)")
	cmd.Flags().IntVar(&clusterMinSize, "min-cluster-size", 0, "minimum points per cluster")
	return cmd
}

func newUnifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unify",
		Short: "Apply the speaker map and build the unified timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Unify(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "continue past validation errors")
	return cmd
}

func newRefineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Merge close segments and filter out short ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Refine(cmd.Context())
		},
	}
	addRefineFlags(cmd)
	return cmd
}

func newSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split",
		Short: "Assemble one audio track per speaker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Split(cmd.Context())
		},
	}
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe each speaker's refined segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Transcribe(cmd.Context())
		},
	}
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render per-speaker and combined subtitles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Render(cmd.Context())
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <audio-file>",
		Short: "Run every phase end to end with an auto-generated speaker map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup(cmd)
			if err != nil {
				return err
			}
			return p.Run(cmd.Context(), args[0])
		},
	}
	addSegmentFlags(cmd)
	addRefineFlags(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "continue past validation errors")
	return cmd
}
