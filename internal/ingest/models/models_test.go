package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhaseInitializing, true},
		{PhaseInitializing, PhaseInserting, true},
		{PhaseInserting, PhaseInserting, true}, // staying put is allowed
		{PhaseInserting, PhaseVectorizing, true},
		{PhaseVectorizing, PhaseCompleted, true},
		{PhaseInserting, PhaseParsing, false}, // no moving backwards
		{PhaseVectorizing, PhaseInserting, false},
		{PhaseCompleted, PhaseVectorizing, false},
		{PhaseCompleted, PhaseFailed, false},
		{PhaseFailed, PhaseCompleted, false},
		{PhaseIdle, PhaseFailed, true}, // failed absorbs from any live phase
		{PhaseVectorizing, PhaseFailed, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRunAdvance(t *testing.T) {
	run := Run{Phase: PhaseInitializing}

	require.True(t, run.Advance(PhaseInserting))
	assert.Equal(t, PhaseInserting, run.Phase)

	require.False(t, run.Advance(PhaseParsing))
	assert.Equal(t, PhaseInserting, run.Phase)

	require.True(t, run.Advance(PhaseCompleted))
	require.False(t, run.Advance(PhaseFailed))
	assert.Equal(t, PhaseCompleted, run.Phase)
}

func TestRecordErrorCapsTheList(t *testing.T) {
	var run Run
	for i := 0; i < MaxParseErrors+25; i++ {
		run.RecordError(ParseError{Row: i + 1, Message: "bad row"})
	}
	assert.Equal(t, MaxParseErrors+25, run.ParseErrCount)
	assert.Len(t, run.ParseErrors, MaxParseErrors)
}
