package orchestrator

import (
	"context"

	"github.com/voxmap/voxmap/clients"
)

// Transcriber turns one audio segment plus its absolute start offset into
// text. Implemented by clients.TranscriberService.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string, offset float64) (*clients.Transcript, error)
}

// Metadata is the project-level artifact written after segmentation.
type Metadata struct {
	SourceFile       string    `json:"source_file"`
	WavFile          string    `json:"wav_file"`
	TotalDuration    float64   `json:"total_duration"`
	WindowDuration   float64   `json:"window_duration"`
	NumWindows       int       `json:"num_windows"`
	TotalSegments    int       `json:"total_segments"`
	ResidualDivisor  int       `json:"residual_divisor"`
	PlannedDurations []float64 `json:"planned_durations"`
	ActualDurations  []float64 `json:"actual_durations"`
	ProcessingTime   float64   `json:"processing_time_sec"`
}

// TranscriptSegment is one refined segment with its transcription.
type TranscriptSegment struct {
	ID     int                `json:"id"`
	Start  float64            `json:"start"`
	End    float64            `json:"end"`
	Text   string             `json:"text"`
	Pieces []clients.TransSeg `json:"pieces,omitempty"`
}

// SpeakerTranscript is the per-speaker transcription artifact.
type SpeakerTranscript struct {
	Speaker     string              `json:"speaker"`
	DisplayName string              `json:"display_name,omitempty"`
	Segments    []TranscriptSegment `json:"segments"`
}
