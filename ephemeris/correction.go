package ephemeris

import (
	"math"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/ssr"
)

// ApplyCorrection attaches an SSR orbit/clock correction pair to a base
// broadcast ephemeris evaluation, per spec.md §4.5: the correction's age is
// measured from its own time (minus half its update interval, if nonzero),
// the orbit delta is extrapolated linearly and rotated from the
// radial/along-track/cross-track (RSW) frame into ECEF using the
// instantaneous velocity vector, and the clock delta is extrapolated to
// second order. Both corrections apply as broadcast-minus-error, matching
// the IGS-SSR sign convention.
func ApplyCorrection(base State, orbit *ssr.OrbitCorrection, clock *ssr.ClockCorrection, evalTime gnsstime.GnssTime) State {
	corrected := base

	if orbit != nil {
		age := correctionAge(evalTime, orbit.Time, ssr.UpdateIntervals[orbit.UpdateIntervalTag])
		deltaRSW := [3]float64{
			orbit.DeltaRSW[0] + orbit.DotDeltaRSW[0]*age,
			orbit.DeltaRSW[1] + orbit.DotDeltaRSW[1]*age,
			orbit.DeltaRSW[2] + orbit.DotDeltaRSW[2]*age,
		}
		deltaECEF := rswToECEF(base.Pos, base.Vel, deltaRSW)
		for i := 0; i < 3; i++ {
			corrected.Pos[i] = base.Pos[i] - deltaECEF[i]
		}
	}

	if clock != nil {
		age := correctionAge(evalTime, clock.Time, ssr.UpdateIntervals[clock.UpdateIntervalTag])
		dClk := clock.DClk + clock.DotDClk*age + 0.5*clock.DotDotDClk*age*age
		corrected.ClockOffset = base.ClockOffset - dClk
	}

	return corrected
}

// correctionAge is evalTime minus the correction's own time, minus half
// its update interval when that interval is nonzero (spec.md §4.5).
func correctionAge(evalTime, correctionTime gnsstime.GnssTime, updateInterval float64) float64 {
	age := evalTime.Sub(correctionTime)
	if updateInterval != 0 {
		age -= updateInterval / 2
	}
	return age
}

// rswToECEF rotates a radial/along-track/cross-track delta into ECEF,
// building the RSW basis from the satellite's own position and velocity:
// R is the radial unit vector, W the orbit-normal (cross-track) unit
// vector, and S completes the right-handed triad (along-track).
func rswToECEF(pos, vel, deltaRSW [3]float64) [3]float64 {
	r := normalize(pos)
	w := normalize(cross(pos, vel))
	s := cross(w, r)

	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = deltaRSW[0]*r[i] + deltaRSW[1]*s[i] + deltaRSW[2]*w[i]
	}
	return out
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}
