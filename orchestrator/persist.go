package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/voxmap/voxmap/timeline"
)

// Project directory layout. Every stage hand-off is a JSON artifact under the
// project dir, the coarse resume mechanism between phases.
const (
	windowsDirName     = "windows"
	metadataFile       = "metadata.json"
	unifiedFile        = "unified.json"
	filteredFile       = "filtered.json"
	suggestedMapFile   = "suggested_speakers_map.txt"
	tracksDirName      = "tracks"
	transcriptsDirName = "transcripts"
	subsDirName        = "subs"
)

func (p *Pipeline) windowsDir() string     { return filepath.Join(p.dir, windowsDirName) }
func (p *Pipeline) tracksDir() string      { return filepath.Join(p.dir, tracksDirName) }
func (p *Pipeline) transcriptsDir() string { return filepath.Join(p.dir, transcriptsDirName) }
func (p *Pipeline) subsDir() string        { return filepath.Join(p.dir, subsDirName) }

func (p *Pipeline) wavPath() string {
	return filepath.Join(p.dir, p.cfg.Paths.ConvertedAudio)
}

func (p *Pipeline) mapPath() string {
	return filepath.Join(p.dir, p.cfg.Paths.SpeakerMap)
}

func windowDirName(index int) string { return fmt.Sprintf("WINDOW_%02d", index) }

func (p *Pipeline) windowDir(index int) string {
	return filepath.Join(p.windowsDir(), windowDirName(index))
}

func (p *Pipeline) windowJSONPath(index int) string {
	return filepath.Join(p.windowDir(index), fmt.Sprintf("window_%02d.json", index))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var v T
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &v, nil
}

// loadWindows reads every persisted window artifact in index order. Gaps in
// the sequence are tolerated with a warning; the windows are processed in the
// numeric order found.
func (p *Pipeline) loadWindows() ([]timeline.Window, error) {
	entries, err := os.ReadDir(p.windowsDir())
	if err != nil {
		return nil, fmt.Errorf("read windows dir: %w", err)
	}

	var indices []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "WINDOW_") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "WINDOW_"))
		if err != nil {
			p.log.Warnf("ignoring window dir with invalid name %s", e.Name())
			continue
		}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("no window artifacts in %s, run the segment phase first", p.windowsDir())
	}
	sort.Ints(indices)
	for i, idx := range indices {
		if idx != i {
			p.log.Warnf("window sequence is not contiguous: %v", indices)
			break
		}
	}

	windows := make([]timeline.Window, 0, len(indices))
	for _, idx := range indices {
		w, err := readJSON[timeline.Window](p.windowJSONPath(idx))
		if err != nil {
			return nil, err
		}
		windows = append(windows, *w)
	}
	return windows, nil
}
