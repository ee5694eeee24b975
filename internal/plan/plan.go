// Package plan defines the routine plan: the declarative description of a
// timed acquisition campaign, and how it is loaded from disk.
package plan

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/sweep"
)

// Plan describes one routine. Treat it as immutable once Validate has passed;
// accessors return copies of the value lists.
type Plan struct {
	Name            string                 `json:"name"`
	InitialDelay    time.Duration          `json:"initial_delay"`
	NumberLimit     int                    `json:"number_limit"`
	TimeLimit       time.Duration          `json:"time_limit"`
	Repeat          int                    `json:"repeat"`
	RepeatInterval  time.Duration          `json:"repeat_interval"`
	IntervalMode    constants.IntervalMode `json:"interval_mode"`
	Interval        time.Duration          `json:"interval"`
	Exposures       []time.Duration        `json:"exposures"`
	Gains           []float64              `json:"gains"`
	LoopExposure    bool                   `json:"loop_exposure"`
	LoopGain        bool                   `json:"loop_gain"`
	AllCombinations bool                   `json:"all_combinations"`
	MinTickPeriod   time.Duration          `json:"min_tick_period"`
}

// Default returns a plan with every optional field at its default: capture
// until the hard limits with automatic exposure at gain 1.
func Default() Plan {
	return Plan{
		NumberLimit:   constants.MaxNumberLimit,
		TimeLimit:     constants.MaxTimeLimit,
		Repeat:        1,
		IntervalMode:  constants.IntervalFromCaptureEnd,
		Exposures:     []time.Duration{0},
		Gains:         []float64{1},
		MinTickPeriod: constants.DefaultMinTickPeriod,
	}
}

// Normalize clamps the limits and rounds exposures to microseconds.
func (p *Plan) Normalize() {
	p.NumberLimit = min(p.NumberLimit, constants.MaxNumberLimit)
	p.TimeLimit = min(p.TimeLimit, constants.MaxTimeLimit)
	for i, e := range p.Exposures {
		p.Exposures[i] = e.Round(time.Microsecond)
	}
}

// Validate checks the plan for values no routine can run with.
func (p Plan) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.Wrap(errors.ErrInvalidPlanValue, "name is required")
	case p.NumberLimit < 1:
		return errors.Wrapf(errors.ErrInvalidPlanValue, "number_limit must be at least 1, got %d", p.NumberLimit)
	case p.TimeLimit <= 0:
		return errors.Wrapf(errors.ErrInvalidPlanValue, "time_limit must be positive, got %s", p.TimeLimit)
	case p.Repeat < 0:
		return errors.Wrapf(errors.ErrInvalidPlanValue, "repeat must not be negative, got %d", p.Repeat)
	case p.InitialDelay < 0, p.Interval < 0, p.RepeatInterval < 0, p.MinTickPeriod < 0:
		return errors.Wrap(errors.ErrInvalidPlanValue, "time values must not be negative")
	case !p.IntervalMode.Valid():
		return errors.Wrapf(errors.ErrInvalidPlanValue, "interval_mode %q", p.IntervalMode)
	case len(p.Exposures) == 0:
		return errors.Wrap(errors.ErrInvalidPlan, "integration_time is empty")
	case len(p.Gains) == 0:
		return errors.Wrap(errors.ErrInvalidPlan, "gain is empty")
	}
	for _, e := range p.Exposures {
		if e < 0 {
			return errors.Wrapf(errors.ErrInvalidPlanValue, "integration_time %s is negative", e)
		}
	}
	for _, g := range p.Gains {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return errors.Wrapf(errors.ErrInvalidPlanValue, "gain %g is not finite", g)
		}
		if g <= 0 {
			return errors.Wrapf(errors.ErrInvalidPlanValue, "gain %g must be positive", g)
		}
	}
	return nil
}

// SweepSpec returns the generator input for this plan.
func (p Plan) SweepSpec() sweep.Spec {
	return sweep.Spec{
		Exposures:       slices.Clone(p.Exposures),
		Gains:           slices.Clone(p.Gains),
		AllCombinations: p.AllCombinations,
		LoopExposure:    p.LoopExposure,
		LoopGain:        p.LoopGain,
		MaxLength:       p.NumberLimit,
		Repeat:          p.Repeat,
	}
}

// Sequence generates the capture sequence for this plan.
func (p Plan) Sequence() (sweep.Sequence, error) {
	if err := p.Validate(); err != nil {
		return sweep.Sequence{}, err
	}
	return sweep.Generate(p.SweepSpec())
}

// Estimate returns the expected run time of seq under this plan, capped by
// the time limit. Each capture is assumed to carry one second of overhead.
func (p Plan) Estimate(seq sweep.Sequence) time.Duration {
	total := time.Duration(seq.Len()) * time.Second
	for _, s := range seq.Settings {
		total += s.Exposure
	}
	total += time.Duration(seq.Repeat) * p.RepeatInterval

	switch p.IntervalMode {
	case constants.IntervalFromCaptureStart:
		// only captures that outlast the interval push the next one back
		for _, s := range seq.Settings {
			if s.Exposure > p.Interval-time.Second {
				total += p.Interval
			}
		}
	case constants.IntervalFromCaptureEnd:
		total += time.Duration(seq.Len()) * p.Interval
	}

	return min(total, p.TimeLimit).Truncate(time.Second)
}

// SummaryLine is one labeled value of a plan summary.
type SummaryLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary describes the plan and its sequence for logs and `aegir plan show`.
func (p Plan) Summary(seq sweep.Sequence) []SummaryLine {
	return []SummaryLine{
		{"Routine", p.Name},
		{"Initial delay", p.InitialDelay.String()},
		{"Number limit", fmt.Sprint(p.NumberLimit)},
		{"Time limit", p.TimeLimit.String()},
		{"Interval", p.Interval.String()},
		{"Interval mode", p.IntervalMode.String()},
		{"Sweep length", fmt.Sprint(seq.BaseLength)},
		{"Repeat", fmt.Sprint(seq.Repeat)},
		{"Repeat interval", p.RepeatInterval.String()},
		{"Exposures", preview(p.Exposures, func(d time.Duration) string {
			if d == 0 {
				return "auto"
			}
			return d.String()
		})},
		{"Gains", preview(p.Gains, func(g float64) string { return fmt.Sprintf("%g", g) })},
		{"Planned images", fmt.Sprint(seq.Len())},
		{"Time estimate", p.Estimate(seq).String()},
		{"Min tick", p.MinTickPeriod.String()},
	}
}

const previewLimit = 7

func preview[T any](values []T, format func(T) string) string {
	parts := make([]string, 0, min(len(values), previewLimit)+1)
	for i, v := range values {
		if i == previewLimit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, format(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
