// Package config loads and persists the per-project configuration. A project
// is a directory holding config.yaml next to the pipeline's artifacts; CLI
// flags override config values, which override defaults, and phase runs write
// their last-used parameters back for reproducibility.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const FileName = "config.yaml"

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}

type Services struct {
	Diarization   Service `yaml:"diarization" mapstructure:"diarization"`
	Transcription Service `yaml:"transcription" mapstructure:"transcription"`
}

type Paths struct {
	ConvertedAudio string `yaml:"converted_audio" mapstructure:"converted_audio"`
	SpeakerMap     string `yaml:"speaker_map" mapstructure:"speaker_map"`
}

// Segment configures the diarization phase.
type Segment struct {
	WindowDuration    string  `yaml:"window_duration,omitempty" mapstructure:"window_duration"`
	NumWindows        int     `yaml:"num_windows,omitempty" mapstructure:"num_windows"`
	ResidualDivisor   int     `yaml:"residual_divisor" mapstructure:"residual_divisor"`
	SampleDuration    float64 `yaml:"sample_duration" mapstructure:"sample_duration"`
	MinSpeakers       int     `yaml:"min_speakers,omitempty" mapstructure:"min_speakers"`
	MaxSpeakers       int     `yaml:"max_speakers,omitempty" mapstructure:"max_speakers"`
	NumSpeakers       int     `yaml:"num_speakers,omitempty" mapstructure:"num_speakers"`
	AutoMap           bool    `yaml:"auto_map" mapstructure:"auto_map"`
	ClusterEps        float64 `yaml:"cluster_eps" mapstructure:"cluster_eps"`
	ClusterMinSamples int     `yaml:"cluster_min_samples" mapstructure:"cluster_min_samples"`
}

// Refine configures the merge/filter phase.
type Refine struct {
	MinPause       float64 `yaml:"min_pause" mapstructure:"min_pause"`
	MinDuration    float64 `yaml:"min_duration" mapstructure:"min_duration"`
	MergeSpeakers  string  `yaml:"merge_speakers,omitempty" mapstructure:"merge_speakers"`
	RenameSpeakers string  `yaml:"rename_speakers,omitempty" mapstructure:"rename_speakers"`
	DropSpeakers   string  `yaml:"drop_speakers,omitempty" mapstructure:"drop_speakers"`
}

// Transcribe configures the speech-to-text phase.
type Transcribe struct {
	Model       string  `yaml:"model" mapstructure:"model"`
	Language    string  `yaml:"language,omitempty" mapstructure:"language"`
	Temperature float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
}

// LastParameters snapshots what a phase actually ran with.
type LastParameters struct {
	Timestamp string         `yaml:"timestamp" mapstructure:"timestamp"`
	Values    map[string]any `yaml:"values" mapstructure:"values"`
}

type Root struct {
	Project struct {
		Name    string `yaml:"name" mapstructure:"name"`
		Created string `yaml:"created" mapstructure:"created"`
		LogLvl  string `yaml:"log_level" mapstructure:"log_level"`
	} `yaml:"project" mapstructure:"project"`
	Paths      Paths      `yaml:"paths" mapstructure:"paths"`
	Services   Services   `yaml:"services" mapstructure:"services"`
	Segment    Segment    `yaml:"segment" mapstructure:"segment"`
	Refine     Refine     `yaml:"refine" mapstructure:"refine"`
	Transcribe Transcribe `yaml:"transcribe" mapstructure:"transcribe"`
	// Force continues past recoverable validation errors (unmapped speakers,
	// map parse errors) instead of aborting. Validation errors are fatal by
	// default.
	Force bool `yaml:"force" mapstructure:"force"`

	LastRuns map[string]LastParameters `yaml:"last_runs,omitempty" mapstructure:"last_runs"`
}

// Load reads projectDir/config.yaml, creating defaults when the file does not
// exist yet. Environment variables prefixed VOXMAP_ override file values.
func Load(projectDir string) (*Root, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(projectDir, FileName))
	v.SetConfigType("yaml")

	v.SetDefault("project.name", filepath.Base(projectDir))
	v.SetDefault("project.log_level", "info")
	v.SetDefault("paths.converted_audio", "audio_converted.wav")
	v.SetDefault("paths.speaker_map", "speakers_map.txt")
	v.SetDefault("segment.residual_divisor", 5)
	v.SetDefault("segment.sample_duration", 60.0)
	v.SetDefault("segment.cluster_eps", 0.3)
	v.SetDefault("segment.cluster_min_samples", 1)
	v.SetDefault("refine.min_pause", 1.5)
	v.SetDefault("refine.min_duration", 0.5)
	v.SetDefault("transcribe.model", "base")

	v.SetEnvPrefix("VOXMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", v.ConfigFileUsed(), err)
	}
	if cfg.Project.Created == "" {
		cfg.Project.Created = time.Now().Format("2006-01-02")
	}
	return &cfg, nil
}

// Save writes the configuration back to projectDir/config.yaml.
func (c *Root) Save(projectDir string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, FileName), out, 0o644)
}

// RecordRun stores the parameters a phase last ran with.
func (c *Root) RecordRun(phase string, values map[string]any) {
	if c.LastRuns == nil {
		c.LastRuns = map[string]LastParameters{}
	}
	c.LastRuns[phase] = LastParameters{
		Timestamp: time.Now().Format(time.RFC3339),
		Values:    values,
	}
}
