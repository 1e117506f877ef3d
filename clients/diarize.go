package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/voxmap/voxmap/audio"
	"github.com/voxmap/voxmap/segmenter"
)

type DiarSeg struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence,omitempty"`
}

type DiarizeResp struct {
	Segments   []DiarSeg   `json:"segments"`
	Embeddings [][]float64 `json:"speaker_embeddings,omitempty"`
}

// DiarizeOpts constrain the model's speaker search.
type DiarizeOpts struct {
	MinSpeakers int
	MaxSpeakers int
	NumSpeakers int
}

// Diarize uploads a wav file to the diarization service and returns the
// window-local segments plus one embedding per distinct speaker when the
// service provides them.
func (h *HTTP) Diarize(ctx context.Context, url, wavPath string, opts DiarizeOpts) (*DiarizeResp, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if opts.NumSpeakers > 0 {
		_ = w.WriteField("num_speakers", strconv.Itoa(opts.NumSpeakers))
	} else {
		if opts.MinSpeakers > 0 {
			_ = w.WriteField("min_speakers", strconv.Itoa(opts.MinSpeakers))
		}
		if opts.MaxSpeakers > 0 {
			_ = w.WriteField("max_speakers", strconv.Itoa(opts.MaxSpeakers))
		}
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/diarize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarize %s: %s", resp.Status, string(body))
	}

	var out DiarizeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}
	return &out, nil
}

// DiarizerService adapts the HTTP diarization endpoint to the segmenter's
// Diarizer interface: it cuts the requested window out of the source wav,
// uploads it and returns the window-relative result.
type DiarizerService struct {
	http   *HTTP
	url    string
	tmpDir string
	opts   DiarizeOpts
}

func NewDiarizerService(h *HTTP, url, tmpDir string, opts DiarizeOpts) *DiarizerService {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &DiarizerService{http: h, url: url, tmpDir: tmpDir, opts: opts}
}

func (d *DiarizerService) Diarize(ctx context.Context, wavPath string, start, duration float64) (*segmenter.Diarization, error) {
	tmp, err := os.CreateTemp(d.tmpDir, "window_*.wav")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := audio.ExtractSpan(ctx, wavPath, tmpPath, start, start+duration); err != nil {
		return nil, err
	}

	resp, err := d.http.Diarize(ctx, d.url, tmpPath, d.opts)
	if err != nil {
		return nil, err
	}

	out := &segmenter.Diarization{Embeddings: resp.Embeddings}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, segmenter.RawSegment{
			Start:      s.Start,
			End:        s.End,
			Speaker:    s.Speaker,
			Confidence: s.Confidence,
		})
	}
	return out, nil
}
