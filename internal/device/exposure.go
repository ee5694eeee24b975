package device

import (
	"time"

	"github.com/mrz1836/aegir/internal/constants"
)

// saturatedLevel is the fraction of full scale at which a pixel counts as saturated.
const saturatedLevel = 0.98

// SaturationFraction estimates the fraction of saturated pixels from
// sampleSize evenly strided pixels. A nil or empty frame reports zero.
func SaturationFraction(f *Frame, sampleSize int) float64 {
	if f == nil || len(f.Pixels) == 0 || sampleSize <= 0 {
		return 0
	}
	n := min(sampleSize, len(f.Pixels))
	stride := len(f.Pixels) / n
	threshold := uint16(saturatedLevel * float64(f.FullScale()))

	saturated := 0
	for i := range n {
		if f.Pixels[i*stride] >= threshold {
			saturated++
		}
	}
	return float64(saturated) / float64(n)
}

// InWindow reports whether fraction lies strictly inside the accepted saturation window.
func InWindow(fraction float64) bool {
	return fraction > constants.SaturationMin && fraction < constants.SaturationMax
}

// maxStep bounds a single exposure correction in either direction.
const maxStep = 10.0

// NextExposure proposes the exposure to try after a frame taken at current
// showed the given saturation fraction. The correction is proportional to the
// distance from the window centre. A frame with no saturated pixels doubles
// the exposure.
func NextExposure(current time.Duration, fraction float64) time.Duration {
	if current <= 0 {
		current = time.Millisecond
	}
	factor := 2.0
	if fraction > 0 {
		factor = min(max(constants.SaturationTarget/fraction, 1/maxStep), maxStep)
	}
	next := time.Duration(float64(current) * factor).Round(time.Microsecond)
	return min(max(next, constants.MinExposure), constants.MaxExposure)
}
