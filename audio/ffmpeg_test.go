package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/timeline"
)

func sampleSeg(start, end float64) timeline.Segment {
	return timeline.Segment{Start: start, End: end, Duration: end - start}
}

func TestSampleSpans_PrefersLongestSegments(t *testing.T) {
	segments := []timeline.Segment{
		sampleSeg(0, 3),
		sampleSeg(10, 18), // longest, picked first
		sampleSeg(30, 34),
	}

	spans := SampleSpans(segments, 6, 10)
	require.NotEmpty(t, spans)
	assert.InDelta(t, 11, spans[0].Start, 1e-9, "slice taken from the segment middle")
	assert.InDelta(t, 17, spans[0].End, 1e-9)
}

func TestSampleSpans_CapsSliceLength(t *testing.T) {
	segments := []timeline.Segment{sampleSeg(0, 120)}

	spans := SampleSpans(segments, 60, 10)
	require.Len(t, spans, 1)
	assert.InDelta(t, 10, spans[0].End-spans[0].Start, 1e-9)
}

func TestSampleSpans_AccumulatesUntilTarget(t *testing.T) {
	segments := []timeline.Segment{
		sampleSeg(0, 8),
		sampleSeg(20, 28),
		sampleSeg(40, 48),
	}

	spans := SampleSpans(segments, 20, 10)
	require.Len(t, spans, 3)
	var total float64
	for _, s := range spans {
		total += s.End - s.Start
	}
	assert.InDelta(t, 20, total, 1e-9)
}

func TestSampleSpans_FallbackToLongest(t *testing.T) {
	// Every candidate slice is at or under 1s, so nothing qualifies; the
	// single longest segment is used as-is.
	segments := []timeline.Segment{
		sampleSeg(0, 0.8),
		sampleSeg(5, 5.5),
	}

	spans := SampleSpans(segments, 60, 10)
	require.Len(t, spans, 1)
	assert.InDelta(t, 0, spans[0].Start, 1e-9)
	assert.InDelta(t, 0.8, spans[0].End, 1e-9)
}

func TestSampleSpans_Empty(t *testing.T) {
	assert.Nil(t, SampleSpans(nil, 60, 10))
}

func TestSampleSpans_SpanStaysInsideSegment(t *testing.T) {
	segments := []timeline.Segment{sampleSeg(100, 107)}

	spans := SampleSpans(segments, 60, 10)
	require.Len(t, spans, 1)
	assert.GreaterOrEqual(t, spans[0].Start, 100.0)
	assert.LessOrEqual(t, spans[0].End, 107.0)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0.000", formatSeconds(0))
	assert.Equal(t, "12.500", formatSeconds(12.5))
	assert.Equal(t, "3600.125", formatSeconds(3600.125))
}
