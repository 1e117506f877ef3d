package identity

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/timeline"
)

func TestParseMap_BasicGrammar(t *testing.T) {
	in := `
# comment line
WINDOW_00.SPEAKER_00 => ALICE
WINDOW_00.SPEAKER_01 => BOB   # trailing comment
WINDOW_01.SPEAKER_00 => ALICE

WINDOW_02.SPEAKER_00 => GUEST-1
`
	m, fs := ParseMap(strings.NewReader(in))
	assert.True(t, fs.Empty())
	require.Len(t, m, 4)
	assert.Equal(t, "ALICE", m[timeline.SpeakerKey{Window: 0, Local: "SPEAKER_00"}])
	assert.Equal(t, "BOB", m[timeline.SpeakerKey{Window: 0, Local: "SPEAKER_01"}])
	assert.Equal(t, "GUEST-1", m[timeline.SpeakerKey{Window: 2, Local: "SPEAKER_00"}])
}

func TestParseMap_PaddingNormalized(t *testing.T) {
	// WINDOW_1 and WINDOW_01 are the same window.
	m, fs := ParseMap(strings.NewReader("WINDOW_1.SPEAKER_00 => ALICE\n"))
	assert.True(t, fs.Empty())
	assert.Equal(t, "ALICE", m[timeline.SpeakerKey{Window: 1, Local: "SPEAKER_00"}])
}

func TestParseMap_DuplicateAfterNormalization(t *testing.T) {
	in := "WINDOW_01.SPEAKER_00 => ALICE\nWINDOW_1.SPEAKER_00 => BOB\n"
	m, fs := ParseMap(strings.NewReader(in))
	require.Len(t, fs.Errors(), 1)
	assert.Contains(t, fs.Errors()[0].Message, "duplicate")
	// First entry wins; the duplicate is rejected.
	assert.Equal(t, "ALICE", m[timeline.SpeakerKey{Window: 1, Local: "SPEAKER_00"}])
}

func TestParseMap_CollectsAllErrors(t *testing.T) {
	in := `
garbage line
WINDOW_00.SPEAKER_00 => ALICE
WINDOW_00 -> BOB
WINDOW_00.SPEAKER_00 => CAROL
`
	m, fs := ParseMap(strings.NewReader(in))
	assert.Len(t, fs.Errors(), 3, "every bad line reported, none fails fast")
	assert.Len(t, m, 1, "valid entries survive alongside the errors")
}

func TestParseMap_NameWithSpacesRejected(t *testing.T) {
	_, fs := ParseMap(strings.NewReader("WINDOW_00.SPEAKER_00 => TWO WORDS\n"))
	assert.True(t, fs.HasErrors())
}

func TestWriteTemplate_SuggestsNamesForFirstWindow(t *testing.T) {
	windows := []timeline.Window{
		testWindow(0, "SPEAKER_00", "SPEAKER_01"),
		testWindow(1, "SPEAKER_00"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, windows))
	out := buf.String()

	assert.Contains(t, out, "WINDOW_00.SPEAKER_00 => SPEAKER_A")
	assert.Contains(t, out, "WINDOW_00.SPEAKER_01 => SPEAKER_B")
	// Later windows are left for the operator to fill in.
	assert.Contains(t, out, "WINDOW_01.SPEAKER_00 => \n")
}

func TestWriteGenerated_RoundTripsThroughParser(t *testing.T) {
	m := timeline.IdentityMap{
		{Window: 0, Local: "SPEAKER_00"}: "SPEAKER_A",
		{Window: 0, Local: "SPEAKER_01"}: "SPEAKER_B",
		{Window: 1, Local: "SPEAKER_00"}: "SPEAKER_B",
		{Window: 1, Local: "SPEAKER_01"}: "SPEAKER_OUTLIER_01_SPEAKER_01",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGenerated(&buf, m))

	parsed, fs := ParseMap(bytes.NewReader(buf.Bytes()))
	assert.True(t, fs.Empty(), "generated file must parse cleanly: %v", fs.All())
	assert.Equal(t, m, parsed)
}

func TestGlobalName(t *testing.T) {
	assert.Equal(t, "SPEAKER_A", globalName(0))
	assert.Equal(t, "SPEAKER_Z", globalName(25))
	assert.Equal(t, "SPEAKER_27", globalName(26))
}

// testWindow builds a window whose segments mention each speaker once.
func testWindow(index int, speakers ...string) timeline.Window {
	var w timeline.Window
	w.Meta.Index = index
	for i, sp := range speakers {
		start := float64(i * 10)
		w.Segments = append(w.Segments, timeline.Segment{
			ID: index*100 + i, Start: start, End: start + 5, Duration: 5,
			Speaker: sp, Confidence: 0.9, Type: timeline.SegmentNormal,
		})
	}
	w.Meta.NumSegments = len(w.Segments)
	w.Meta.NumSpeakers = len(speakers)
	return w
}
