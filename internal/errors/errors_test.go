package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aegirerrors "github.com/mrz1836/aegir/internal/errors"
)

type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func allSentinels() []error {
	return []error{
		aegirerrors.ErrInvalidPlan,
		aegirerrors.ErrUnknownPlanKey,
		aegirerrors.ErrInvalidPlanValue,
		aegirerrors.ErrRoutineNotFound,
		aegirerrors.ErrCaptureFailed,
		aegirerrors.ErrCaptureExhausted,
		aegirerrors.ErrSensorUnavailable,
		aegirerrors.ErrDeviceUnavailable,
		aegirerrors.ErrTickError,
		aegirerrors.ErrTooManyTickErrors,
		aegirerrors.ErrRoutineNotRunning,
		aegirerrors.ErrRoutineAlreadyRunning,
		aegirerrors.ErrBacklogClosed,
		aegirerrors.ErrSessionLocked,
		aegirerrors.ErrSessionCorrupt,
		aegirerrors.ErrControlChannel,
		aegirerrors.ErrNoStatus,
		aegirerrors.ErrMalformedStatus,
		aegirerrors.ErrConfigNil,
		aegirerrors.ErrConfigInvalidData,
		aegirerrors.ErrConfigInvalidControl,
		aegirerrors.ErrConfigInvalidPipeline,
		aegirerrors.ErrConfigInvalidDevice,
		aegirerrors.ErrConfigInvalidLog,
		aegirerrors.ErrInvalidOutputFormat,
		aegirerrors.ErrNonInteractiveMode,
		aegirerrors.ErrOperationCanceled,
		aegirerrors.ErrJSONErrorOutput,
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := allSentinels()
	for i, a := range sentinels {
		require.Error(t, a)
		assert.NotEmpty(t, a.Error())
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "%q should not match %q", a, b)
		}
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, aegirerrors.Wrap(nil, "context"))
		require.NoError(t, aegirerrors.Wrapf(nil, "item %d", 3))
	})

	t.Run("preserves chain", func(t *testing.T) {
		t.Parallel()
		err := aegirerrors.Wrap(aegirerrors.ErrCaptureExhausted, "capture item")
		require.ErrorIs(t, err, aegirerrors.ErrCaptureExhausted)
		assert.Equal(t, "capture item: capture attempts exhausted", err.Error())
	})

	t.Run("formats message", func(t *testing.T) {
		t.Parallel()
		err := aegirerrors.Wrapf(aegirerrors.ErrInvalidPlanValue, "key %q", "gain")
		require.ErrorIs(t, err, aegirerrors.ErrInvalidPlanValue)
		assert.Equal(t, `key "gain": invalid plan value`, err.Error())
	})
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"direct sentinel", aegirerrors.ErrSessionLocked, "Another aegir process"},
		{"wrapped sentinel", fmt.Errorf("open: %w", aegirerrors.ErrRoutineNotFound), "No routine file"},
		{"unknown error", testError{msg: "boom"}, "boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			msg := aegirerrors.UserMessage(tc.err)
			if tc.contains == "" {
				assert.Empty(t, msg)
				return
			}
			assert.Contains(t, msg, tc.contains)
		})
	}
}

func TestActionable(t *testing.T) {
	t.Parallel()

	msg, action := aegirerrors.Actionable(nil)
	assert.Empty(t, msg)
	assert.Empty(t, action)

	msg, action = aegirerrors.Actionable(aegirerrors.Wrap(aegirerrors.ErrNonInteractiveMode, "stop"))
	assert.Contains(t, msg, "terminal")
	assert.Contains(t, action, "--force")

	msg, action = aegirerrors.Actionable(aegirerrors.ErrCaptureFailed)
	assert.NotEmpty(t, msg)
	assert.Empty(t, action)

	msg, action = aegirerrors.Actionable(errors.New("plain")) //nolint:err113 // test-only error
	assert.Equal(t, "plain", msg)
	assert.Empty(t, action)
}
