package orchestrator

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const statsFile = "stats.json"

// RunStat is one entry in the project's execution ledger.
type RunStat struct {
	RunID           string         `json:"run_id"`
	Phase           string         `json:"phase"`
	Timestamp       string         `json:"timestamp"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	DurationSeconds float64        `json:"duration_seconds"`
	Parameters      map[string]any `json:"parameters,omitempty"`
}

// recordStats appends one run entry to stats.json. The ledger is advisory,
// so a write failure is logged and swallowed rather than failing the phase.
func (p *Pipeline) recordStats(phase string, started time.Time, params map[string]any) error {
	ended := time.Now()
	entry := RunStat{
		RunID:           uuid.NewString(),
		Phase:           phase,
		Timestamp:       ended.Format(time.RFC3339),
		StartTime:       started.Format(time.RFC3339),
		EndTime:         ended.Format(time.RFC3339),
		DurationSeconds: ended.Sub(started).Seconds(),
		Parameters:      params,
	}

	path := filepath.Join(p.dir, statsFile)
	var ledger []RunStat
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &ledger); err != nil {
			p.log.Warnf("stats ledger %s is corrupt, starting fresh: %v", path, err)
			ledger = nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		p.log.Warnf("stats ledger: %v", err)
		return nil
	}

	ledger = append(ledger, entry)
	if err := writeJSON(path, ledger); err != nil {
		p.log.Warnf("stats ledger: %v", err)
	}
	return nil
}
