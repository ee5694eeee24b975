package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/errors"
)

func secs(values ...float64) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

func settings(pairs ...[2]float64) []Setting {
	out := make([]Setting, len(pairs))
	for i, p := range pairs {
		out[i] = Setting{Exposure: time.Duration(p[0] * float64(time.Second)), Gain: p[1]}
	}
	return out
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		spec     Spec
		want     []Setting
		wantBase int
	}{
		{
			name: "all combinations is exposure major",
			spec: Spec{Exposures: secs(1, 2), Gains: []float64{5, 6}, AllCombinations: true, MaxLength: 100, Repeat: 1},
			want: settings(
				[2]float64{1, 5}, [2]float64{1, 6},
				[2]float64{2, 5}, [2]float64{2, 6},
			),
			wantBase: 4,
		},
		{
			name: "all combinations drops duplicates in first-seen order",
			spec: Spec{Exposures: secs(2, 1, 2), Gains: []float64{6, 5, 6}, AllCombinations: true, MaxLength: 100, Repeat: 1},
			want: settings(
				[2]float64{2, 6}, [2]float64{2, 5},
				[2]float64{1, 6}, [2]float64{1, 5},
			),
			wantBase: 4,
		},
		{
			name:     "scalar exposure is broadcast to gains",
			spec:     Spec{Exposures: secs(2), Gains: []float64{1, 2, 3}, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{2, 1}, [2]float64{2, 2}, [2]float64{2, 3}),
			wantBase: 3,
		},
		{
			name:     "equal length lists pair elementwise",
			spec:     Spec{Exposures: secs(1, 2, 3), Gains: []float64{4, 5, 6}, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{1, 4}, [2]float64{2, 5}, [2]float64{3, 6}),
			wantBase: 3,
		},
		{
			name:     "longer list is truncated without loop",
			spec:     Spec{Exposures: secs(1, 2, 3, 4), Gains: []float64{7, 8}, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{1, 7}, [2]float64{2, 8}),
			wantBase: 2,
		},
		{
			name:     "shorter gains cycle with loop gain",
			spec:     Spec{Exposures: secs(1, 2, 3, 4), Gains: []float64{7, 8}, LoopGain: true, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{1, 7}, [2]float64{2, 8}, [2]float64{3, 7}, [2]float64{4, 8}),
			wantBase: 4,
		},
		{
			name:     "loop exposure does not extend when exposures are longer",
			spec:     Spec{Exposures: secs(1, 2, 3), Gains: []float64{7, 8}, LoopExposure: true, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{1, 7}, [2]float64{2, 8}),
			wantBase: 2,
		},
		{
			name:     "shorter exposures cycle with loop exposure",
			spec:     Spec{Exposures: secs(1, 2), Gains: []float64{4, 5, 6}, LoopExposure: true, MaxLength: 100, Repeat: 1},
			want:     settings([2]float64{1, 4}, [2]float64{2, 5}, [2]float64{1, 6}),
			wantBase: 3,
		},
		{
			name:     "two scalars fill max length",
			spec:     Spec{Exposures: secs(0), Gains: []float64{1}, MaxLength: 3, Repeat: 1},
			want:     settings([2]float64{0, 1}, [2]float64{0, 1}, [2]float64{0, 1}),
			wantBase: 3,
		},
		{
			name:     "repeat tiles the sweep",
			spec:     Spec{Exposures: secs(1, 2), Gains: []float64{1, 1}, MaxLength: 100, Repeat: 3},
			want:     settings([2]float64{1, 1}, [2]float64{2, 1}, [2]float64{1, 1}, [2]float64{2, 1}, [2]float64{1, 1}, [2]float64{2, 1}),
			wantBase: 2,
		},
		{
			name:     "tiling is truncated to max length",
			spec:     Spec{Exposures: secs(1, 2, 3), Gains: []float64{1}, MaxLength: 4, Repeat: 5},
			want:     settings([2]float64{1, 1}, [2]float64{2, 1}, [2]float64{3, 1}, [2]float64{1, 1}),
			wantBase: 3,
		},
		{
			name:     "zero repeat fills whole sweeps",
			spec:     Spec{Exposures: secs(1, 2, 3), Gains: []float64{1}, MaxLength: 7, Repeat: 0},
			want:     settings([2]float64{1, 1}, [2]float64{2, 1}, [2]float64{3, 1}, [2]float64{1, 1}, [2]float64{2, 1}, [2]float64{3, 1}),
			wantBase: 3,
		},
		{
			name:     "zero repeat keeps one partial sweep when base exceeds max",
			spec:     Spec{Exposures: secs(1, 2, 3), Gains: []float64{1}, MaxLength: 2, Repeat: 0},
			want:     settings([2]float64{1, 1}, [2]float64{2, 1}),
			wantBase: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			seq, err := Generate(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, seq.Settings)
			assert.Equal(t, tc.wantBase, seq.BaseLength)
			assert.LessOrEqual(t, seq.Len(), tc.spec.MaxLength)
		})
	}
}

func TestGenerate_AllCombinationsUnique(t *testing.T) {
	t.Parallel()

	seq, err := Generate(Spec{
		Exposures:       secs(0.1, 0.2, 0.3, 0.1),
		Gains:           []float64{1, 2, 4, 8, 2},
		AllCombinations: true,
		MaxLength:       1000,
		Repeat:          1,
	})
	require.NoError(t, err)
	require.Equal(t, 12, seq.Len())

	seen := make(map[Setting]bool)
	for _, s := range seq.Settings {
		assert.False(t, seen[s], "duplicate setting %s", s)
		seen[s] = true
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	spec := Spec{Exposures: secs(1, 2, 3), Gains: []float64{1, 2}, LoopGain: true, MaxLength: 50, Repeat: 0}
	a, err := Generate(spec)
	require.NoError(t, err)
	b, err := Generate(spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec Spec
	}{
		{"no exposures", Spec{Gains: []float64{1}, MaxLength: 10}},
		{"no gains", Spec{Exposures: secs(1), MaxLength: 10}},
		{"zero max length", Spec{Exposures: secs(1), Gains: []float64{1}}},
		{"negative repeat", Spec{Exposures: secs(1), Gains: []float64{1}, MaxLength: 10, Repeat: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Generate(tc.spec)
			require.ErrorIs(t, err, errors.ErrInvalidPlan)
		})
	}
}

func TestSequence_EndsSweep(t *testing.T) {
	t.Parallel()

	seq := Sequence{BaseLength: 3}
	assert.False(t, seq.EndsSweep(0))
	assert.False(t, seq.EndsSweep(2))
	assert.True(t, seq.EndsSweep(3))
	assert.True(t, seq.EndsSweep(6))
	assert.False(t, Sequence{}.EndsSweep(3))
}

func TestSetting_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exp=auto gain=2", Setting{Gain: 2}.String())
	assert.Equal(t, "exp=250ms gain=1.5", Setting{Exposure: 250 * time.Millisecond, Gain: 1.5}.String())
}
