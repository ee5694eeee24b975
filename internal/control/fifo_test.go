package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
)

func pipePaths(t *testing.T) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), constants.RunDir)
	return filepath.Join(dir, constants.ControlInPipeName), filepath.Join(dir, constants.ControlOutPipeName)
}

func openFIFO(t *testing.T) (*FIFO, string, string) {
	t.Helper()
	in, out := pipePaths(t)
	f, err := OpenFIFO(in, out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, in, out
}

func TestOpenFIFO_CreatesPipes(t *testing.T) {
	t.Parallel()

	_, in, out := openFIFO(t)
	for _, p := range []string{in, out} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&os.ModeNamedPipe, "%s should be a named pipe", p)
	}

	// reopening existing pipes is fine
	f2, err := OpenFIFO(in, out)
	require.NoError(t, err)
	require.NoError(t, f2.Close())
}

func TestEnsureFIFO_RegularFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not_a_pipe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.ErrorIs(t, EnsureFIFO(path), errors.ErrControlChannel)
}

func TestFIFO_ReceiveStop(t *testing.T) {
	t.Parallel()

	f, in, _ := openFIFO(t)

	msgs, err := f.Receive()
	require.NoError(t, err)
	assert.Empty(t, msgs, "nothing written yet")

	require.NoError(t, SendStop(in))
	msgs, err = f.Receive()
	require.NoError(t, err)
	assert.Equal(t, []string{constants.StopCommand}, msgs)
}

func TestFIFO_ReceiveWithoutNewline(t *testing.T) {
	t.Parallel()

	f, in, _ := openFIFO(t)

	w, err := os.OpenFile(in, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.WriteString("STOP")
	require.NoError(t, err)
	msgs, err := f.Receive()
	require.NoError(t, err)
	assert.Equal(t, []string{"STOP"}, msgs, "an open writer without a newline still delivers")

	msgs, err = f.Receive()
	require.NoError(t, err)
	assert.Empty(t, msgs, "each write is delivered once")
}

func TestFIFO_ReceiveBatch(t *testing.T) {
	t.Parallel()

	f, in, _ := openFIFO(t)

	w, err := os.OpenFile(in, os.O_WRONLY, 0)
	require.NoError(t, err)

	_, err = w.WriteString("STOP\nPING\n\n")
	require.NoError(t, err)
	msgs, err := f.Receive()
	require.NoError(t, err)
	assert.Equal(t, []string{"STOP", "PING"}, msgs)

	_, err = w.WriteString("TAIL")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	msgs, err = f.Receive()
	require.NoError(t, err)
	assert.Equal(t, []string{"TAIL"}, msgs)
}

func TestFIFO_SendWithoutReader(t *testing.T) {
	t.Parallel()

	f, _, _ := openFIFO(t)
	require.ErrorIs(t, f.Send("hello"), errors.ErrNoListener)
}

func TestFIFO_Close(t *testing.T) {
	t.Parallel()

	f, _, _ := openFIFO(t)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err := f.Receive()
	require.ErrorIs(t, err, errors.ErrControlChannel)
}

func TestSendStop_NotRunning(t *testing.T) {
	t.Parallel()

	in, _ := pipePaths(t)
	require.ErrorIs(t, SendStop(in), errors.ErrRoutineNotRunning, "missing pipe")

	require.NoError(t, EnsureFIFO(in))
	require.ErrorIs(t, SendStop(in), errors.ErrRoutineNotRunning, "pipe without a reader")
}

func TestStatusReader(t *testing.T) {
	t.Parallel()

	f, _, out := openFIFO(t)
	r, err := OpenStatusReader(out, time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	want := domain.RoutineStatus{Routine: "r", Session: "s", Dispatched: 2, Planned: 5, Elapsed: 3 * time.Second}
	require.NoError(t, f.Send(constants.StoppingMarker))
	require.NoError(t, f.Send(FormatStatus(want)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStatusReader_Timeout(t *testing.T) {
	t.Parallel()

	_, _, out := openFIFO(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := ReadStatus(ctx, out)
	require.ErrorIs(t, err, errors.ErrNoStatus)
}

func TestOpenStatusReader_Missing(t *testing.T) {
	t.Parallel()

	_, out := pipePaths(t)
	_, err := OpenStatusReader(out, 0)
	require.ErrorIs(t, err, errors.ErrRoutineNotRunning)
}

func TestStatusReader_LineWithoutNewline(t *testing.T) {
	t.Parallel()

	_, _, out := openFIFO(t)
	r, err := OpenStatusReader(out, time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	want := domain.RoutineStatus{Routine: "r", Session: "s", Dispatched: 1, Planned: 3, Elapsed: time.Second}
	w, err := os.OpenFile(out, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	_, err = w.WriteString(FormatStatus(want))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
