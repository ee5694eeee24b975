package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/control"
	"github.com/mrz1836/aegir/internal/errors"
)

// stubPrompt replaces the terminal check and confirm prompt for one test.
func stubPrompt(t *testing.T, interactive bool, answer bool, err error) *int {
	t.Helper()

	origCheck, origPrompt := terminalCheck, confirmPrompt
	t.Cleanup(func() {
		terminalCheck, confirmPrompt = origCheck, origPrompt
	})

	calls := 0
	terminalCheck = func() bool { return interactive }
	confirmPrompt = func(string, bool) (bool, error) {
		calls++
		return answer, err
	}
	return &calls
}

func TestExecuteStop_NotRunning(t *testing.T) {
	stubPrompt(t, false, false, nil)
	cfg := testConfig(t)

	err := executeStop(&bytes.Buffer{}, cfg, false, OutputText)
	require.ErrorIs(t, err, errors.ErrRoutineNotRunning)
}

func TestExecuteStop_SendsStop(t *testing.T) {
	calls := stubPrompt(t, false, false, nil)
	cfg := testConfig(t)

	fifo, err := control.OpenFIFO(cfg.Control.InPipe, cfg.Control.OutPipe)
	require.NoError(t, err)
	defer func() { _ = fifo.Close() }()

	var buf bytes.Buffer
	require.NoError(t, executeStop(&buf, cfg, false, OutputJSON))
	assert.Zero(t, *calls)

	msgs, err := fifo.Receive()
	require.NoError(t, err)
	assert.Equal(t, []string{constants.StopCommand}, msgs)

	var res stopResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, "stop_requested", res.Status)
	assert.Equal(t, cfg.Control.InPipe, res.Pipe)
}

func TestExecuteStop_Confirmation(t *testing.T) {
	tests := []struct {
		name       string
		answer     bool
		promptErr  error
		force      bool
		wantPrompt int
		wantSent   bool
		wantOutput string
	}{
		{name: "confirmed", answer: true, wantPrompt: 1, wantSent: true, wantOutput: "Stop requested"},
		{name: "declined", answer: false, wantPrompt: 1, wantOutput: "Stop canceled"},
		{name: "aborted", promptErr: errors.ErrOperationCanceled, wantPrompt: 1, wantOutput: "Stop canceled"},
		{name: "forced", force: true, wantSent: true, wantOutput: "Stop requested"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := stubPrompt(t, true, tc.answer, tc.promptErr)
			cfg := testConfig(t)

			fifo, err := control.OpenFIFO(cfg.Control.InPipe, cfg.Control.OutPipe)
			require.NoError(t, err)
			defer func() { _ = fifo.Close() }()

			var buf bytes.Buffer
			require.NoError(t, executeStop(&buf, cfg, tc.force, OutputText))
			assert.Equal(t, tc.wantPrompt, *calls)
			assert.Contains(t, buf.String(), tc.wantOutput)

			msgs, err := fifo.Receive()
			require.NoError(t, err)
			if tc.wantSent {
				assert.Equal(t, []string{constants.StopCommand}, msgs)
			} else {
				assert.Empty(t, msgs)
			}
		})
	}
}

func TestExecuteStop_PromptFailure(t *testing.T) {
	stubPrompt(t, true, false, errors.ErrNonInteractiveMode)
	cfg := testConfig(t)
	cfg.Control.InPipe = filepath.Join(t.TempDir(), "never-created")

	err := executeStop(&bytes.Buffer{}, cfg, false, OutputText)
	require.ErrorIs(t, err, errors.ErrNonInteractiveMode)
}
