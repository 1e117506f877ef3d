// Package subtitle renders transcribed segments as SRT subtitle files and
// plain-text transcripts, per speaker and combined.
package subtitle

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Cue is one subtitle entry on the absolute timeline.
type Cue struct {
	Start   float64
	End     float64
	Speaker string
	Text    string
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatReadableTimestamp renders seconds as [HH:MM:SS.ss] for text output.
func FormatReadableTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := int(seconds) % 3600 / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("[%02d:%02d:%05.2f]", h, m, s)
}

// WriteSRT renders the cues in order, numbered from 1. With withSpeaker the
// text line is prefixed by the speaker name, the form subtitle editors expect
// for multi-speaker material.
func WriteSRT(w io.Writer, cues []Cue, withSpeaker bool) error {
	for i, c := range cues {
		text := strings.TrimSpace(c.Text)
		if withSpeaker && c.Speaker != "" {
			text = c.Speaker + ": " + text
		}
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatSRTTimestamp(c.Start), FormatSRTTimestamp(c.End), text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTXT renders the cues as a readable transcript, one line per cue.
func WriteTXT(w io.Writer, cues []Cue) error {
	for _, c := range cues {
		line := FormatReadableTimestamp(c.Start)
		if c.Speaker != "" {
			line += " " + c.Speaker + ":"
		}
		_, err := fmt.Fprintf(w, "%s %s\n", line, strings.TrimSpace(c.Text))
		if err != nil {
			return err
		}
	}
	return nil
}

// Interleave flattens per-speaker cues into one start-ordered sequence.
func Interleave(perSpeaker map[string][]Cue) []Cue {
	var all []Cue
	for _, cues := range perSpeaker {
		all = append(all, cues...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].Speaker < all[j].Speaker
	})
	return all
}
