package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/faults"
)

func win(index int, segs ...Segment) Window {
	w := Window{Segments: segs}
	w.Meta.Index = index
	w.Meta.NumSegments = len(segs)
	return w
}

func seg(id int, start, end float64, speaker string) Segment {
	return Segment{
		ID: id, Start: start, End: end, Duration: end - start,
		Speaker: speaker, Confidence: 0.9, Type: SegmentNormal,
	}
}

func TestUnify_AppliesIdentityMap(t *testing.T) {
	windows := []Window{
		win(0, seg(1, 0, 5, "SPEAKER_00"), seg(2, 5, 9, "SPEAKER_01")),
		win(1, seg(3, 9, 14, "SPEAKER_00")),
	}
	ids := IdentityMap{
		{Window: 0, Local: "SPEAKER_00"}: "ALICE",
		{Window: 0, Local: "SPEAKER_01"}: "BOB",
		{Window: 1, Local: "SPEAKER_00"}: "BOB",
	}

	u, fs, err := Unify(windows, ids)
	require.NoError(t, err)
	assert.True(t, fs.Empty())

	require.Len(t, u.Segments, 3)
	assert.Equal(t, "ALICE", u.Segments[0].Speaker)
	assert.Equal(t, "SPEAKER_00", u.Segments[0].OriginalSpeaker)
	assert.Equal(t, "BOB", u.Segments[1].Speaker)
	// Same local label in another window maps independently.
	assert.Equal(t, "BOB", u.Segments[2].Speaker)

	assert.Equal(t, 2, u.Meta.NumSpeakers)
	assert.Equal(t, 3, u.Meta.TotalSegments)
	assert.Equal(t, 2, u.Meta.NumWindows)
	assert.InDelta(t, 0.9, u.Meta.AvgConfidence, 1e-9)
	assert.Equal(t, 3, u.TypeCounts[SegmentNormal])
}

func TestUnify_SortsByID(t *testing.T) {
	windows := []Window{
		win(0, seg(4, 20, 25, "A"), seg(2, 0, 5, "A")),
		win(1, seg(3, 10, 15, "A")),
	}
	ids := IdentityMap{
		{Window: 0, Local: "A"}: "X",
		{Window: 1, Local: "A"}: "X",
	}

	u, _, err := Unify(windows, ids)
	require.NoError(t, err)
	var got []int
	for _, s := range u.Segments {
		got = append(got, s.ID)
	}
	assert.Equal(t, []int{2, 3, 4}, got)
}

func TestUnify_UnmappedSpeakerKeepsLocalLabel(t *testing.T) {
	windows := []Window{win(0, seg(1, 0, 5, "SPEAKER_00"))}

	u, fs, err := Unify(windows, IdentityMap{})
	require.NoError(t, err)
	require.Len(t, fs.Warnings(), 1)
	assert.Equal(t, "SPEAKER_00", u.Segments[0].Speaker)
	assert.Equal(t, "SPEAKER_00", u.Segments[0].OriginalSpeaker)
}

func TestUnify_DuplicateIDsFail(t *testing.T) {
	windows := []Window{
		win(0, seg(1, 0, 5, "A")),
		win(1, seg(1, 5, 10, "A")),
	}
	ids := IdentityMap{
		{Window: 0, Local: "A"}: "X",
		{Window: 1, Local: "A"}: "X",
	}

	_, fs, err := Unify(windows, ids)
	require.Error(t, err)
	assert.IsType(t, &faults.ValidationError{}, err)
	assert.True(t, fs.HasErrors())
}

func TestSpeakerKeyString(t *testing.T) {
	k := SpeakerKey{Window: 3, Local: "SPEAKER_01"}
	assert.Equal(t, "WINDOW_03.SPEAKER_01", k.String())
}

func TestWindowSpeakersSorted(t *testing.T) {
	w := win(0,
		seg(1, 0, 1, "SPEAKER_01"),
		seg(2, 1, 2, "SPEAKER_00"),
		seg(3, 2, 3, "SPEAKER_01"),
	)
	assert.Equal(t, []string{"SPEAKER_00", "SPEAKER_01"}, w.Speakers())
}
