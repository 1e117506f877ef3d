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
)

type TransSeg struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is one segment's transcription, timestamps already shifted onto
// the absolute recording timeline.
type Transcript struct {
	Text     string     `json:"text"`
	Segments []TransSeg `json:"segments"`
	Language string     `json:"language"`
}

// TranscribeOpts tune the speech-to-text model.
type TranscribeOpts struct {
	Model       string
	Language    string
	Temperature float64
}

// Transcribe uploads a wav file to the speech-to-text service.
func (h *HTTP) Transcribe(ctx context.Context, url, wavPath string, opts TranscribeOpts) (*Transcript, error) {
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
	if opts.Model != "" {
		_ = w.WriteField("model", opts.Model)
	}
	if opts.Language != "" {
		_ = w.WriteField("language", opts.Language)
	}
	if opts.Temperature > 0 {
		_ = w.WriteField("temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/transcribe", &b)
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
		return nil, fmt.Errorf("transcribe %s: %s", resp.Status, string(body))
	}

	var out Transcript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("transcribe decode: %w", err)
	}
	return &out, nil
}

// TranscriberService adapts the HTTP endpoint to the orchestrator's
// Transcriber interface. Returned timestamps are segment-relative; the
// adapter shifts them by the segment's absolute offset.
type TranscriberService struct {
	http *HTTP
	url  string
	opts TranscribeOpts
}

func NewTranscriberService(h *HTTP, url string, opts TranscribeOpts) *TranscriberService {
	return &TranscriberService{http: h, url: url, opts: opts}
}

func (t *TranscriberService) Transcribe(ctx context.Context, wavPath string, offset float64) (*Transcript, error) {
	tr, err := t.http.Transcribe(ctx, t.url, wavPath, t.opts)
	if err != nil {
		return nil, err
	}
	for i := range tr.Segments {
		tr.Segments[i].Start += offset
		tr.Segments[i].End += offset
	}
	return tr, nil
}
