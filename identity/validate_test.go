package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/timeline"
)

func TestValidate_CleanMap(t *testing.T) {
	windows := []timeline.Window{testWindow(0, "SPEAKER_00")}
	m := timeline.IdentityMap{{Window: 0, Local: "SPEAKER_00"}: "ALICE"}

	fs := Validate(windows, m)
	assert.True(t, fs.Empty())
}

func TestValidate_StaleEntryIsWarning(t *testing.T) {
	windows := []timeline.Window{testWindow(0, "SPEAKER_00")}
	m := timeline.IdentityMap{
		{Window: 0, Local: "SPEAKER_00"}: "ALICE",
		{Window: 5, Local: "SPEAKER_09"}: "GHOST",
	}

	fs := Validate(windows, m)
	assert.False(t, fs.HasErrors())
	require.Len(t, fs.Warnings(), 1)
	assert.Contains(t, fs.Warnings()[0].Message, "WINDOW_05.SPEAKER_09")
}

func TestValidate_UnmappedSpeakerIsError(t *testing.T) {
	windows := []timeline.Window{testWindow(0, "SPEAKER_00", "SPEAKER_01")}
	m := timeline.IdentityMap{{Window: 0, Local: "SPEAKER_00"}: "ALICE"}

	fs := Validate(windows, m)
	require.True(t, fs.HasErrors())
	assert.Contains(t, fs.Errors()[0].Message, "WINDOW_00.SPEAKER_01")
}

func TestValidate_ManyToOneIsNote(t *testing.T) {
	windows := []timeline.Window{
		testWindow(0, "SPEAKER_00"),
		testWindow(1, "SPEAKER_00"),
	}
	m := timeline.IdentityMap{
		{Window: 0, Local: "SPEAKER_00"}: "ALICE",
		{Window: 1, Local: "SPEAKER_00"}: "ALICE",
	}

	fs := Validate(windows, m)
	assert.False(t, fs.HasErrors())
	assert.Empty(t, fs.Warnings())
	require.Len(t, fs.Notes(), 1)
	assert.Contains(t, fs.Notes()[0].Message, "ALICE")
}

func TestValidate_CollectsEverySeverityInOneBatch(t *testing.T) {
	windows := []timeline.Window{
		testWindow(0, "SPEAKER_00", "SPEAKER_01"),
		testWindow(1, "SPEAKER_00"),
	}
	m := timeline.IdentityMap{
		{Window: 0, Local: "SPEAKER_00"}: "ALICE",
		{Window: 1, Local: "SPEAKER_00"}: "ALICE",
		{Window: 9, Local: "SPEAKER_00"}: "GHOST",
	}

	fs := Validate(windows, m)
	assert.Len(t, fs.Errors(), 1, "unmapped WINDOW_00.SPEAKER_01")
	assert.Len(t, fs.Warnings(), 1, "stale WINDOW_09 entry")
	assert.Len(t, fs.Notes(), 1, "ALICE many-to-one")
}
