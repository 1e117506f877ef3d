// Package identity reconciles window-scoped speaker labels into recording-wide
// speaker names. Two interchangeable strategies produce the same IdentityMap
// shape: an operator-authored map file, or density-based clustering of the
// speaker embeddings collected during segmentation.
package identity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

// Line grammar: WINDOW_<index>.<LOCAL_LABEL> => <GLOBAL_NAME>. Global names
// allow word characters and dashes, matching what the map generator emits.
var lineRe = regexp.MustCompile(`^WINDOW_(\d+)\.(\w+)\s*=>\s*([\w\-]+)$`)

// ParseMap reads an operator-authored identity map. Blank lines and #-comments
// (full-line or trailing) are ignored. Malformed lines and duplicate
// normalized keys are collected as parse errors, never fail-on-first; the
// caller decides whether the batch blocks the run.
func ParseMap(r io.Reader) (timeline.IdentityMap, *faults.Set) {
	fs := &faults.Set{}
	m := timeline.IdentityMap{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sub := lineRe.FindStringSubmatch(line)
		if sub == nil {
			fs.Errorf("line %d: invalid map entry %q", lineNo, line)
			continue
		}
		idx, err := strconv.Atoi(sub[1])
		if err != nil {
			fs.Errorf("line %d: invalid window index %q", lineNo, sub[1])
			continue
		}
		key := timeline.SpeakerKey{Window: idx, Local: sub[2]}
		if prev, ok := m[key]; ok {
			fs.Errorf("line %d: duplicate entry for %s (already mapped to %s)", lineNo, key, prev)
			continue
		}
		m[key] = sub[3]
	}
	if err := scanner.Err(); err != nil {
		fs.Errorf("reading map: %v", err)
	}
	return m, fs
}

// ParseMapFile is ParseMap over a file on disk.
func ParseMapFile(path string) (timeline.IdentityMap, *faults.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open speaker map: %w", err)
	}
	defer f.Close()
	m, fs := ParseMap(f)
	return m, fs, nil
}

const templateHeader = `######################################################################
# SPEAKER MAP
######################################################################
# The diarizer labels speakers independently inside every window. This
# map ties those window-scoped labels to one recording-wide name.
#
# FORMAT: WINDOW_WW.SPEAKER_NN => GLOBAL_NAME
#
# EXAMPLE:
#   WINDOW_03.SPEAKER_00 => HOST
#   WINDOW_03.SPEAKER_01 => GUEST_1
#
# - Use the same global name for the same voice across windows.
# - Names must not contain spaces.
# - Every window speaker must be mapped before the unify step.
# - Listen to the per-window speaker samples to identify voices.
######################################################################

`

// WriteTemplate emits a fill-in map file for the operator: one section per
// window, with auto-suggested names (SPEAKER_A, SPEAKER_B, …) for the first
// window and blank targets everywhere else.
func WriteTemplate(w io.Writer, windows []timeline.Window) error {
	if _, err := io.WriteString(w, templateHeader); err != nil {
		return err
	}

	suggested := map[string]string{}
	if len(windows) > 0 {
		for i, sp := range windows[0].Speakers() {
			suggested[sp] = globalName(i)
		}
	}

	for _, win := range windows {
		_, err := fmt.Fprintf(w, "# WINDOW %02d (%.1fs - %.1fs)\n",
			win.Meta.Index, win.Meta.StartTime, win.Meta.EndTime)
		if err != nil {
			return err
		}
		for _, sp := range win.Speakers() {
			key := timeline.SpeakerKey{Window: win.Meta.Index, Local: sp}
			target := ""
			if win.Meta.Index == windows[0].Meta.Index {
				target = suggested[sp]
			}
			if _, err := fmt.Fprintf(w, "%s => %s\n", key, target); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "# FILL IN EVERY ENTRY, SAVE, THEN RUN THE UNIFY STEP\n")
	return err
}

// WriteGenerated emits a clustering-produced map in the same grammar the
// parser accepts, with a summary of the clusters in the header.
func WriteGenerated(w io.Writer, m timeline.IdentityMap) error {
	if _, err := io.WriteString(w, "######################################################################\n"+
		"# SPEAKER MAP - GENERATED FROM EMBEDDING CLUSTERING\n"+
		"######################################################################\n"+
		"# Produced automatically from voice similarity. Review before unifying.\n"+
		"#\n# CLUSTERS:\n"); err != nil {
		return err
	}

	byName := map[string][]string{}
	for _, k := range m.Keys() {
		byName[m[k]] = append(byName[m[k]], k.String())
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := fmt.Fprintf(w, "#   %s: %s\n", n, strings.Join(byName[n], ", ")); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "######################################################################\n\n"); err != nil {
		return err
	}

	lastWindow := -1
	for _, k := range m.Keys() {
		if k.Window != lastWindow {
			if _, err := fmt.Fprintf(w, "# WINDOW %02d\n", k.Window); err != nil {
				return err
			}
			lastWindow = k.Window
		}
		if _, err := fmt.Fprintf(w, "%s => %s\n", k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// globalName yields SPEAKER_A..SPEAKER_Z, then SPEAKER_27 onwards.
func globalName(i int) string {
	if i < 26 {
		return fmt.Sprintf("SPEAKER_%c", 'A'+i)
	}
	return fmt.Sprintf("SPEAKER_%d", i+1)
}
