package subtitle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSRTTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3661.25, "01:01:01,250"},
		{0.0004, "00:00:00,000"},
		{0.0006, "00:00:00,001"},
		{-5, "00:00:00,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatSRTTimestamp(tc.in), "%.4f", tc.in)
	}
}

func TestFormatReadableTimestamp(t *testing.T) {
	assert.Equal(t, "[00:00:00.00]", FormatReadableTimestamp(0))
	assert.Equal(t, "[00:01:30.50]", FormatReadableTimestamp(90.5))
	assert.Equal(t, "[01:00:05.25]", FormatReadableTimestamp(3605.25))
}

func TestWriteSRT(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 2.5, Speaker: "ALICE", Text: "Hello there."},
		{Start: 3, End: 5, Speaker: "BOB", Text: "  Hi.  "},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, cues, false))

	want := "1\n00:00:00,000 --> 00:00:02,500\nHello there.\n\n" +
		"2\n00:00:03,000 --> 00:00:05,000\nHi.\n\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSRT_WithSpeakerPrefix(t *testing.T) {
	cues := []Cue{{Start: 0, End: 1, Speaker: "ALICE", Text: "Hello."}}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, cues, true))
	assert.Contains(t, buf.String(), "ALICE: Hello.")
}

func TestWriteTXT(t *testing.T) {
	cues := []Cue{
		{Start: 90.5, End: 92, Speaker: "ALICE", Text: "Hello."},
		{Start: 93, End: 94, Text: "unattributed"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTXT(&buf, cues))

	want := "[00:01:30.50] ALICE: Hello.\n[00:01:33.00] unattributed\n"
	assert.Equal(t, want, buf.String())
}

func TestInterleave(t *testing.T) {
	perSpeaker := map[string][]Cue{
		"BOB":   {{Start: 1, Speaker: "BOB"}, {Start: 5, Speaker: "BOB"}},
		"ALICE": {{Start: 0, Speaker: "ALICE"}, {Start: 3, Speaker: "ALICE"}},
	}

	all := Interleave(perSpeaker)
	require.Len(t, all, 4)
	var starts []float64
	for _, c := range all {
		starts = append(starts, c.Start)
	}
	assert.Equal(t, []float64{0, 1, 3, 5}, starts)
}

func TestInterleave_TieBreaksBySpeaker(t *testing.T) {
	perSpeaker := map[string][]Cue{
		"BOB":   {{Start: 2, Speaker: "BOB"}},
		"ALICE": {{Start: 2, Speaker: "ALICE"}},
	}

	all := Interleave(perSpeaker)
	require.Len(t, all, 2)
	assert.Equal(t, "ALICE", all[0].Speaker)
	assert.Equal(t, "BOB", all[1].Speaker)
}
