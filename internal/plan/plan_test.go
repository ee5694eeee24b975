package plan

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/sweep"
)

func TestParse_FullPlan(t *testing.T) {
	t.Parallel()

	src := `
# reef survey
Name: Reef Survey
initial_delay_time: 5
number_limit: 120
time_limit: 2
time_limit_unit: h
repeat: 3
repeat_interval_time: 1
repeat_interval_time_unit: min
interval_mode: CAPTURE_START
interval_time: 30
integration_time: [0.1, 0.2, 0]
integration_time_unit: s
loop_integration_time: yes
gain: [1, 2]
loop_gain: n
all_combinations: false
min_tick_length: 50
min_tick_length_unit: ms
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Reef Survey", p.Name)
	assert.Equal(t, 5*time.Second, p.InitialDelay)
	assert.Equal(t, 120, p.NumberLimit)
	assert.Equal(t, 2*time.Hour, p.TimeLimit)
	assert.Equal(t, 3, p.Repeat)
	assert.Equal(t, time.Minute, p.RepeatInterval)
	assert.Equal(t, constants.IntervalFromCaptureStart, p.IntervalMode)
	assert.Equal(t, 30*time.Second, p.Interval)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 0}, p.Exposures)
	assert.True(t, p.LoopExposure)
	assert.Equal(t, []float64{1, 2}, p.Gains)
	assert.False(t, p.LoopGain)
	assert.False(t, p.AllCombinations)
	assert.Equal(t, 50*time.Millisecond, p.MinTickPeriod)
	require.NoError(t, p.Validate())
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	p, err := Parse(strings.NewReader("name: quick\n"))
	require.NoError(t, err)

	want := Default()
	want.Name = "quick"
	assert.Equal(t, want, p)
}

func TestParse_EmptyInput(t *testing.T) {
	t.Parallel()

	p, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Name)
	require.ErrorIs(t, p.Validate(), errors.ErrInvalidPlanValue)
}

func TestParse_TimeUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want time.Duration
	}{
		{"default seconds", "interval_time: 1.5", 1500 * time.Millisecond},
		{"default unit applies", "default_time_unit: ms\ninterval_time: 250", 250 * time.Millisecond},
		{"key unit beats default", "default_time_unit: ms\ninterval_time_unit: min\ninterval_time: 2", 2 * time.Minute},
		{"secs alias", "default_time_unit: h\ninterval_secs: 4", 4 * time.Second},
		{"go duration string", "interval_time: 1m30s", 90 * time.Second},
		{"microseconds", "interval_time_unit: us\ninterval_time: 1500", 1500 * time.Microsecond},
		{"hours long form", "interval_time_unit: hours\ninterval_time: 0.5", 30 * time.Minute},
		{"alias key", "interval: 3", 3 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := Parse(strings.NewReader("name: x\n" + tc.src))
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Interval)
		})
	}
}

func TestParse_ClampsLimits(t *testing.T) {
	t.Parallel()

	huge, err := Parse(strings.NewReader("name: huge\nnumber_limit: 1e30\n"))
	require.NoError(t, err)
	assert.Equal(t, constants.MaxNumberLimit, huge.NumberLimit)

	p, err := Parse(strings.NewReader("name: long\nnumber_limit: 50000\ntime_limit: 400\ntime_limit_unit: h\n"))
	require.NoError(t, err)
	assert.Equal(t, constants.MaxNumberLimit, p.NumberLimit)
	assert.Equal(t, constants.MaxTimeLimit, p.TimeLimit)
}

func TestParse_ScalarExposureRoundsToMicroseconds(t *testing.T) {
	t.Parallel()

	p, err := Parse(strings.NewReader("name: x\nexposure_time: 0.0000014\n"))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Microsecond}, p.Exposures)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"unknown key", "name: x\nshutter: 3", errors.ErrUnknownPlanKey},
		{"unknown unit key target", "name: x\nflavour_unit: s", errors.ErrUnknownPlanKey},
		{"bad interval mode", "name: x\ninterval_mode: capture_middle", errors.ErrInvalidPlanValue},
		{"bad bool", "name: x\nloop_gain: maybe", errors.ErrInvalidPlanValue},
		{"bad number", "name: x\nnumber_limit: many", errors.ErrInvalidPlanValue},
		{"bad unit", "name: x\ninterval_time_unit: fortnights\ninterval_time: 1", errors.ErrInvalidPlanValue},
		{"bad time", "name: x\ninterval_time: soon", errors.ErrInvalidPlanValue},
		{"bad gain", "name: x\ngain: [1, high]", errors.ErrInvalidPlanValue},
		{"nan gains", "name: x\ngain: [nan, nan, inf]\nall_combinations: true", errors.ErrInvalidPlanValue},
		{"infinite scalar gain", "name: x\ngain: -Inf", errors.ErrInvalidPlanValue},
		{"nan time", "name: x\ninterval_time: NaN", errors.ErrInvalidPlanValue},
		{"infinite time", "name: x\ntime_limit: inf", errors.ErrInvalidPlanValue},
		{"time overflows", "name: x\ninitial_delay_time: 1e30", errors.ErrInvalidPlanValue},
		{"empty exposure list", "name: x\nintegration_time: []", errors.ErrInvalidPlan},
		{"list for scalar key", "name: x\nnumber_limit: [1, 2]", errors.ErrInvalidPlanValue},
		{"not a mapping", "- a\n- b", errors.ErrInvalidPlan},
		{"malformed yaml", "name: [x", errors.ErrInvalidPlan},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tc.src))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlan_Validate(t *testing.T) {
	t.Parallel()

	base := Default()
	base.Name = "ok"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"zero number limit", func(p *Plan) { p.NumberLimit = 0 }},
		{"zero time limit", func(p *Plan) { p.TimeLimit = 0 }},
		{"negative repeat", func(p *Plan) { p.Repeat = -1 }},
		{"negative interval", func(p *Plan) { p.Interval = -time.Second }},
		{"negative exposure", func(p *Plan) { p.Exposures = []time.Duration{-time.Second} }},
		{"zero gain", func(p *Plan) { p.Gains = []float64{0} }},
		{"nan gain", func(p *Plan) { p.Gains = []float64{1, math.NaN()} }},
		{"infinite gain", func(p *Plan) { p.Gains = []float64{math.Inf(1)} }},
		{"bad mode", func(p *Plan) { p.IntervalMode = "sometimes" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := base
			p.Exposures = append([]time.Duration(nil), base.Exposures...)
			p.Gains = append([]float64(nil), base.Gains...)
			tc.mutate(&p)
			require.ErrorIs(t, p.Validate(), errors.ErrInvalidPlanValue)
		})
	}

	empty := base
	empty.Gains = nil
	require.ErrorIs(t, empty.Validate(), errors.ErrInvalidPlan)
}

func TestPlan_SequenceHonorsNumberLimit(t *testing.T) {
	t.Parallel()

	p := Default()
	p.Name = "limited"
	p.NumberLimit = 5
	p.Exposures = []time.Duration{time.Millisecond, 2 * time.Millisecond}
	p.Gains = []float64{1, 2}
	p.Repeat = 10

	seq, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, 5, seq.Len())
	assert.Equal(t, 2, seq.BaseLength)
}

func TestPlan_Estimate(t *testing.T) {
	t.Parallel()

	seq := sweep.Sequence{
		Settings: []sweep.Setting{
			{Exposure: 2 * time.Second, Gain: 1},
			{Exposure: 5 * time.Second, Gain: 1},
		},
		BaseLength: 2,
		Repeat:     1,
	}

	p := Default()
	p.Name = "est"
	p.RepeatInterval = 10 * time.Second
	p.Interval = 5 * time.Second

	p.IntervalMode = constants.IntervalFromCaptureEnd
	// 2 captures + 7s exposure + 10s repeat interval + 2*5s interval
	assert.Equal(t, 29*time.Second, p.Estimate(seq))

	p.IntervalMode = constants.IntervalFromCaptureStart
	// only the 5s capture exceeds interval-1s
	assert.Equal(t, 24*time.Second, p.Estimate(seq))

	p.TimeLimit = 20 * time.Second
	assert.Equal(t, 20*time.Second, p.Estimate(seq))
}

func TestPlan_Summary(t *testing.T) {
	t.Parallel()

	p := Default()
	p.Name = "summary"
	p.Exposures = []time.Duration{0, 1, 2, 3, 4, 5, 6, 7, 8}
	seq, err := p.Sequence()
	require.NoError(t, err)

	lines := p.Summary(seq)
	require.NotEmpty(t, lines)
	assert.Equal(t, "Routine", lines[0].Label)
	assert.Equal(t, "summary", lines[0].Value)

	var exposures string
	for _, l := range lines {
		if l.Label == "Exposures" {
			exposures = l.Value
		}
	}
	assert.True(t, strings.HasPrefix(exposures, "[auto, 1ns"))
	assert.True(t, strings.HasSuffix(exposures, "...]"))
}

func writePlan(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_NameFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePlan(t, dir, "night_watch.txt", "interval_time: 60\n")

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "night_watch", p.Name)

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePlan(t, dir, "a.txt", "name: Reef Survey\n")
	writePlan(t, dir, "calibration.yaml", "interval_time: 1\n")
	writePlan(t, dir, "broken.txt", "name: broken\nshutter: 1\n")
	writePlan(t, dir, "notes.md", "name: notes\n")

	logger := zerolog.Nop()

	tests := []struct {
		name     string
		query    string
		wantName string
		wantErr  error
	}{
		{"by plan name with spaces", "reef survey", "Reef Survey", nil},
		{"by plan name with underscores", "REEF_SURVEY", "Reef Survey", nil},
		{"by file stem", "calibration", "calibration", nil},
		{"by path", filepath.Join(dir, "a.txt"), "Reef Survey", nil},
		{"ignores other extensions", "notes", "", errors.ErrRoutineNotFound},
		{"skips broken files", "broken", "", errors.ErrRoutineNotFound},
		{"missing", "nothing", "", errors.ErrRoutineNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, _, err := Resolve(dir, tc.query, logger)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, p.Name)
		})
	}

	_, _, err := Resolve(filepath.Join(dir, "absent"), "x", logger)
	require.ErrorIs(t, err, errors.ErrRoutineNotFound)
}

func TestList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePlan(t, dir, "b.txt", "name: beta\n")
	writePlan(t, dir, "a.yml", "name: alpha\n")
	writePlan(t, dir, "bad.txt", "nope: 1\n")

	plans, err := List(dir)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "alpha", plans[0].Name)
	assert.Equal(t, "beta", plans[1].Name)
}
