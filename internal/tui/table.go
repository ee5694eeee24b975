package tui

import (
	"fmt"
	"strconv"

	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/sweep"
)

// SequenceHeaders are the columns of a capture sequence table.
//
//nolint:gochecknoglobals // Fixed column set shared by text and JSON output
var SequenceHeaders = []string{"#", "SWEEP", "EXPOSURE", "GAIN"}

// SequenceTable returns the rows of a capture sequence table, showing at most
// limit items (all of them when limit is not positive). The second return is
// the number of items left out.
func SequenceTable(seq sweep.Sequence, limit int) ([][]string, int) {
	n := seq.Len()
	if limit > 0 {
		n = min(n, limit)
	}

	rows := make([][]string, 0, n)
	for i, s := range seq.Settings[:n] {
		exposure := "auto"
		if !s.Auto() {
			exposure = s.Exposure.String()
		}
		sweepNo := 1
		if seq.BaseLength > 0 {
			sweepNo = i/seq.BaseLength + 1
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(sweepNo),
			exposure,
			strconv.FormatFloat(s.Gain, 'g', -1, 64),
		})
	}
	return rows, seq.Len() - n
}

// StatusHeaders are the columns of a routine status table.
//
//nolint:gochecknoglobals // Fixed column set shared by text and JSON output
var StatusHeaders = []string{"FIELD", "VALUE"}

// StatusTable returns a field/value table describing a routine status.
func StatusTable(s domain.RoutineStatus) [][]string {
	state := "running"
	if s.Stopping {
		state = "stopping"
	}
	return [][]string{
		{"Routine", s.Routine},
		{"Session", s.Session},
		{"State", state},
		{"Elapsed", FormatElapsed(s.Elapsed)},
		{"Images", FormatCounter(s.Dispatched, s.Planned)},
		{"Captured", strconv.Itoa(s.Captured)},
		{"Backlog", strconv.Itoa(s.BacklogDepth)},
		{"Progress", fmt.Sprintf("%.0f%%", s.Progress()*100)},
	}
}
