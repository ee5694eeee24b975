// Package sweep turns a plan's exposure and gain values into the ordered
// list of capture settings a routine dispatches.
package sweep

import (
	"fmt"
	"slices"
	"time"

	"github.com/mrz1836/aegir/internal/errors"
)

// Setting is one (exposure, gain) pair. A zero Exposure selects automatic exposure.
type Setting struct {
	Exposure time.Duration `json:"exposure"`
	Gain     float64       `json:"gain"`
}

// Auto reports whether the setting asks for automatic exposure.
func (s Setting) Auto() bool {
	return s.Exposure == 0
}

// String renders the setting for logs, e.g. "exp=250ms gain=2".
func (s Setting) String() string {
	if s.Auto() {
		return fmt.Sprintf("exp=auto gain=%g", s.Gain)
	}
	return fmt.Sprintf("exp=%s gain=%g", s.Exposure, s.Gain)
}

// Spec is the input to Generate. A list of length one is a scalar.
type Spec struct {
	Exposures       []time.Duration
	Gains           []float64
	AllCombinations bool
	LoopExposure    bool
	LoopGain        bool

	// MaxLength bounds the final sequence and sizes a pair of scalars.
	MaxLength int

	// Repeat tiles the base sweep. Zero fills MaxLength with whole sweeps.
	Repeat int
}

// Sequence is the generated capture order.
type Sequence struct {
	Settings []Setting

	// BaseLength is the length of one sweep before tiling.
	BaseLength int

	// Repeat is the effective number of times the base sweep was tiled.
	Repeat int
}

// Len returns the number of settings in the sequence.
func (s Sequence) Len() int {
	return len(s.Settings)
}

// EndsSweep reports whether dispatching count items completes a whole sweep.
func (s Sequence) EndsSweep(count int) bool {
	return s.BaseLength > 0 && count > 0 && count%s.BaseLength == 0
}

// Generate builds the capture sequence. It is deterministic.
func Generate(spec Spec) (Sequence, error) {
	if len(spec.Exposures) == 0 {
		return Sequence{}, errors.Wrap(errors.ErrInvalidPlan, "no exposure values")
	}
	if len(spec.Gains) == 0 {
		return Sequence{}, errors.Wrap(errors.ErrInvalidPlan, "no gain values")
	}
	if spec.MaxLength < 1 {
		return Sequence{}, errors.Wrapf(errors.ErrInvalidPlan, "max length %d", spec.MaxLength)
	}
	if spec.Repeat < 0 {
		return Sequence{}, errors.Wrapf(errors.ErrInvalidPlan, "repeat %d", spec.Repeat)
	}

	var base []Setting
	if spec.AllCombinations {
		base = combinations(distinct(spec.Exposures), distinct(spec.Gains))
	} else {
		base = pair(spec)
	}

	repeat := spec.Repeat
	if repeat == 0 {
		repeat = max(spec.MaxLength/len(base), 1)
	}

	total := min(len(base)*repeat, spec.MaxLength)
	out := make([]Setting, 0, total)
	for len(out) < total {
		n := min(len(base), total-len(out))
		out = append(out, base[:n]...)
	}

	return Sequence{Settings: out, BaseLength: len(base), Repeat: repeat}, nil
}

func combinations(exposures []time.Duration, gains []float64) []Setting {
	out := make([]Setting, 0, len(exposures)*len(gains))
	for _, e := range exposures {
		for _, g := range gains {
			out = append(out, Setting{Exposure: e, Gain: g})
		}
	}
	return out
}

func pair(spec Spec) []Setting {
	exposures := slices.Clone(spec.Exposures)
	gains := slices.Clone(spec.Gains)

	if len(exposures) == 1 {
		n := len(gains)
		if n == 1 {
			n = spec.MaxLength
		}
		exposures = broadcast(exposures[0], n)
	}
	if len(gains) == 1 {
		gains = broadcast(gains[0], len(exposures))
	}

	switch {
	case len(gains) < len(exposures):
		if spec.LoopGain {
			gains = cycle(gains, len(exposures))
		} else {
			exposures = exposures[:len(gains)]
		}
	case len(exposures) < len(gains):
		if spec.LoopExposure {
			exposures = cycle(exposures, len(gains))
		} else {
			gains = gains[:len(exposures)]
		}
	}

	out := make([]Setting, len(exposures))
	for i := range exposures {
		out[i] = Setting{Exposure: exposures[i], Gain: gains[i]}
	}
	return out
}

func broadcast[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func cycle[T any](values []T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = values[i%len(values)]
	}
	return out
}

// distinct keeps the first occurrence of each value.
func distinct[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
