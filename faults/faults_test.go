package faults

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_CollectsBySeverity(t *testing.T) {
	fs := &Set{}
	fs.Notef("a note")
	fs.Warnf("a warning")
	fs.Errorf("an error")
	fs.Warnf("another warning")

	assert.Len(t, fs.All(), 4)
	assert.Len(t, fs.Notes(), 1)
	assert.Len(t, fs.Warnings(), 2)
	assert.Len(t, fs.Errors(), 1)
	assert.True(t, fs.HasErrors())
	assert.False(t, fs.Empty())
}

func TestSet_ErrNilWithoutErrors(t *testing.T) {
	fs := &Set{}
	fs.Warnf("only a warning")
	assert.NoError(t, fs.Err())
}

func TestSet_ErrCarriesOnlyErrorFindings(t *testing.T) {
	fs := &Set{}
	fs.Warnf("noise")
	fs.Errorf("first")
	fs.Errorf("second")

	err := fs.Err()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Findings, 2)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.NotContains(t, err.Error(), "noise")
}

func TestSet_Merge(t *testing.T) {
	a := &Set{}
	a.Notef("from a")
	b := &Set{}
	b.Errorf("from b")

	a.Merge(b)
	a.Merge(nil)
	assert.Len(t, a.All(), 2)
	assert.True(t, a.HasErrors())
}

func TestCollaboratorError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CollaboratorError{Op: "diarize", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "diarize")
}

func TestConfigf(t *testing.T) {
	err := Configf("bad value %d", 42)
	assert.Equal(t, "config: bad value 42", err.Error())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "note", Note.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "error", Error.String())
}
