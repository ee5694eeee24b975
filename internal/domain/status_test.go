package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/constants"
)

func TestRoutineStatus_Progress(t *testing.T) {
	tests := []struct {
		name   string
		status RoutineStatus
		want   float64
	}{
		{"nothing planned", RoutineStatus{Dispatched: 4}, 0},
		{"half way", RoutineStatus{Dispatched: 5, Planned: 10}, 0.5},
		{"done", RoutineStatus{Dispatched: 10, Planned: 10}, 1},
		{"never above one", RoutineStatus{Dispatched: 11, Planned: 10}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.status.Progress(), 1e-9)
		})
	}
}

func TestSnapshot_Stopping(t *testing.T) {
	assert.True(t, Snapshot{State: constants.RoutineStopping}.Stopping())
	assert.False(t, Snapshot{State: constants.RoutineRunning}.Stopping())
	assert.False(t, Snapshot{State: constants.RoutineComplete}.Stopping())
}

func TestSnapshot_JSONOmitsEmptyReason(t *testing.T) {
	data, err := json.Marshal(Snapshot{State: constants.RoutineRunning, Elapsed: time.Second})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stop_reason")
	assert.Contains(t, string(data), `"state":"running"`)
}
