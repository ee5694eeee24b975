// Package control implements the text control plane of a running routine:
// an inbound STOP command and a once-per-second status line, carried over
// two named pipes.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/domain,
//     internal/errors, std lib, golang.org/x/sys/unix
//   - MUST NOT import: internal/routine, internal/cli
package control

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
)

// Status line keys.
const (
	keyRoutine  = "routine"
	keySession  = "session"
	keyElapsed  = "elapsed"
	keyImages   = "images"
	keyCaptured = "captured"
	keyBacklog  = "backlog"
)

//nolint:gochecknoglobals // immutable replacer
var fieldSanitizer = strings.NewReplacer("\r", " ", "\n", " ", "|", "/")

// FormatStatus renders s as a single newline-free line:
//
//	routine=night | session=2025_06_01__08_00_00 | elapsed=1m2s | images=3/10 | captured=2 | backlog=1 | STOPPING
func FormatStatus(s domain.RoutineStatus) string {
	fields := []string{
		keyRoutine + "=" + fieldSanitizer.Replace(s.Routine),
		keySession + "=" + fieldSanitizer.Replace(s.Session),
		keyElapsed + "=" + s.Elapsed.Truncate(time.Second).String(),
		fmt.Sprintf("%s=%d/%d", keyImages, s.Dispatched, s.Planned),
		keyCaptured + "=" + strconv.Itoa(s.Captured),
		keyBacklog + "=" + strconv.Itoa(s.BacklogDepth),
	}
	if s.Stopping {
		fields = append(fields, constants.StoppingMarker)
	}
	return strings.Join(fields, constants.StatusFieldSeparator)
}

// ParseStatus decodes a line written by FormatStatus. Unknown keys are
// ignored so older clients can read newer servers.
func ParseStatus(line string) (domain.RoutineStatus, error) {
	var s domain.RoutineStatus
	line = strings.TrimSpace(line)
	if line == "" {
		return s, errors.Wrap(errors.ErrMalformedStatus, "empty line")
	}

	seenRoutine := false
	for _, field := range strings.Split(line, strings.TrimSpace(constants.StatusFieldSeparator)) {
		field = strings.TrimSpace(field)
		if field == constants.StoppingMarker {
			s.Stopping = true
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return s, errors.Wrapf(errors.ErrMalformedStatus, "field %q", field)
		}

		var err error
		switch key {
		case keyRoutine:
			s.Routine = value
			seenRoutine = true
		case keySession:
			s.Session = value
		case keyElapsed:
			s.Elapsed, err = time.ParseDuration(value)
		case keyImages:
			s.Dispatched, s.Planned, err = parseRatio(value)
		case keyCaptured:
			s.Captured, err = strconv.Atoi(value)
		case keyBacklog:
			s.BacklogDepth, err = strconv.Atoi(value)
		}
		if err != nil {
			return s, errors.Wrapf(errors.ErrMalformedStatus, "%s: %v", key, err)
		}
	}

	if !seenRoutine {
		return s, errors.Wrap(errors.ErrMalformedStatus, "missing routine field")
	}
	return s, nil
}

func parseRatio(v string) (int, int, error) {
	a, b, ok := strings.Cut(v, "/")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not n/m", v) //nolint:err113 // wrapped by caller
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return n, m, nil
}

// IsStopCommand reports whether msg is the stop command. Surrounding
// whitespace is ignored; the match is exact otherwise.
func IsStopCommand(msg string) bool {
	return strings.TrimSpace(msg) == constants.StopCommand
}
