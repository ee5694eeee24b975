package device

import "github.com/mrz1836/aegir/internal/constants"

// DepthFromPressure converts an absolute pressure in millibar to metres of
// water of the given density in kg/m^3.
func DepthFromPressure(mbar, density float64) float64 {
	if density <= 0 {
		density = constants.FreshWaterDensity
	}
	pa := mbar * 100
	return (pa - constants.SurfacePressureMbar*100) / (density * constants.StandardGravity)
}

// PressureAtDepth is the inverse of DepthFromPressure.
func PressureAtDepth(depth, density float64) float64 {
	if density <= 0 {
		density = constants.FreshWaterDensity
	}
	return (depth*density*constants.StandardGravity)/100 + constants.SurfacePressureMbar
}
