package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

func TestUnify_UnmappedSpeakerAborts(t *testing.T) {
	p := testPipeline(t)
	persistWindow(t, p, 0)
	require.NoError(t, os.WriteFile(p.mapPath(), nil, 0o644))

	err := p.Unify(context.Background())
	require.Error(t, err)
	var verr *faults.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "WINDOW_00.SPEAKER_00")

	_, statErr := os.Stat(filepath.Join(p.dir, unifiedFile))
	assert.True(t, os.IsNotExist(statErr), "aborted run must not write the timeline")
}

func TestUnify_ForceContinuesPastUnmapped(t *testing.T) {
	p := testPipeline(t)
	p.cfg.Force = true
	persistWindow(t, p, 0)
	require.NoError(t, os.WriteFile(p.mapPath(), nil, 0o644))

	require.NoError(t, p.Unify(context.Background()))

	unified, err := readJSON[timeline.Unified](filepath.Join(p.dir, unifiedFile))
	require.NoError(t, err)
	require.Len(t, unified.Segments, 1)
	assert.Equal(t, "SPEAKER_00", unified.Segments[0].Speaker)
}
