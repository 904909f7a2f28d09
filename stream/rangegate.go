package stream

import "github.com/de-bkg/gnsshub/ssr"

// rangeGate holds the closed-interval bounds of Table R: a satellite
// subrecord whose value falls outside its bound is dropped, the rest of
// the batch proceeds. RTCM-SSR and IGS-SSR differ only in the ΔA2 bound.
type rangeGate struct {
	clockA0, clockA1, clockA2     float64 // meters, meters/s, meters/s^2
	radial, along, cross          float64 // meters
	dotRadial, dotAlong, dotCross float64 // meters/second
}

var rtcmSSRGate = rangeGate{
	clockA0: 209.7151, clockA1: 1.048575, clockA2: 1.34217726,
	radial: 209.7151, along: 209.7148, cross: 209.7148,
	dotRadial: 1.048575, dotAlong: 1.048572, dotCross: 1.048572,
}

var igsSSRGate = rangeGate{
	clockA0: 209.7151, clockA1: 1.048575, clockA2: 1.3421772,
	radial: 209.7151, along: 209.7148, cross: 209.7148,
	dotRadial: 1.048575, dotAlong: 1.048572, dotCross: 1.048572,
}

func gateFor(enc ssr.Encoding) rangeGate {
	if enc == ssr.EncodingIGSSSR {
		return igsSSRGate
	}
	return rtcmSSRGate
}

func withinAbs(v, limit float64) bool {
	return v >= -limit && v <= limit
}

func validOrbit(oc *ssr.OrbitCorrection, enc ssr.Encoding) bool {
	g := gateFor(enc)
	return withinAbs(oc.DeltaRSW[0], g.radial) &&
		withinAbs(oc.DeltaRSW[1], g.along) &&
		withinAbs(oc.DeltaRSW[2], g.cross) &&
		withinAbs(oc.DotDeltaRSW[0], g.dotRadial) &&
		withinAbs(oc.DotDeltaRSW[1], g.dotAlong) &&
		withinAbs(oc.DotDeltaRSW[2], g.dotCross)
}

// validClock checks the clock deltas, which OrbitCorrection/ClockCorrection
// already store in seconds (divided by ssr.SpeedOfLight); the Table R
// bounds are given in meters, so they are converted once per call.
func validClock(cc *ssr.ClockCorrection, enc ssr.Encoding) bool {
	g := gateFor(enc)
	return withinAbs(cc.DClk, g.clockA0/ssr.SpeedOfLight) &&
		withinAbs(cc.DotDClk, g.clockA1/ssr.SpeedOfLight) &&
		withinAbs(cc.DotDotDClk, g.clockA2/ssr.SpeedOfLight)
}
