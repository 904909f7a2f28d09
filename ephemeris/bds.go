package ephemeris

import (
	"math"

	"github.com/de-bkg/gnsshub/gnsstime"
)

// bdsGeoInclinationThreshold is spec.md §4.5's i₀ ≤ 10° cutoff that
// selects the GEO-specific coordinate rotation instead of the generic
// Kepler-family transformation.
const bdsGeoInclinationThreshold = 10.0 * math.Pi / 180.0

// BDSEphemeris wraps the generic Kepler propagation with BeiDou's GEO
// satellite special case: i₀ ≤ 10° satellites are computed in a
// quasi-inertial frame and then rotated −5° about X, then Ω_E·t_k about Z,
// per spec.md §4.5.
type BDSEphemeris struct {
	KeplerEphemeris
}

// NewBDSEphemeris configures e with BeiDou constants and wraps it for
// GEO-aware Position evaluation.
func NewBDSEphemeris(e *KeplerEphemeris) *BDSEphemeris {
	e.constants = bdsConstants
	return &BDSEphemeris{KeplerEphemeris: *e}
}

// Position implements Ephemeris, dispatching to the GEO rotation when the
// broadcast inclination is shallow enough to indicate a geostationary
// satellite.
func (e *BDSEphemeris) Position(t gnsstime.GnssTime) (State, error) {
	if math.Abs(e.I0) <= bdsGeoInclinationThreshold {
		return e.geoPosition(t)
	}
	return e.KeplerEphemeris.Position(t)
}

func (e *BDSEphemeris) geoPosition(t gnsstime.GnssTime) (State, error) {
	pos := e.geoPositionRaw(t)

	// Velocity via a symmetric numerical derivative: the analytic rotated
	// velocity expansion is not worth the complexity for the handful of
	// GEO satellites in the constellation.
	const dt = 1.0
	before := e.geoPositionRaw(t.Add(-dt))
	after := e.geoPositionRaw(t.Add(dt))
	vel := [3]float64{
		(after[0] - before[0]) / (2 * dt),
		(after[1] - before[1]) / (2 * dt),
		(after[2] - before[2]) / (2 * dt),
	}

	tk := t.Sub(e.Toc)
	clockOffset := e.ClockBias + e.ClockDrift*tk + e.ClockDriftRate*tk*tk - e.TGD

	return State{
		Pos:            pos,
		Vel:            vel,
		ClockOffset:    clockOffset,
		ClockDrift:     e.ClockDrift + 2*e.ClockDriftRate*tk,
		ClockDriftRate: e.ClockDriftRate,
	}, nil
}

// geoPositionRaw computes the rotated ECEF position only, shared by
// geoPosition's value and its numerical velocity derivative.
func (e *BDSEphemeris) geoPositionRaw(t gnsstime.GnssTime) [3]float64 {
	tk := t.Sub(e.Toe)

	a := e.SqrtA * e.SqrtA
	n0 := math.Sqrt(e.constants.GM / (a * a * a))
	n := n0 + e.DeltaN

	mk := e.M0 + n*tk
	ek := mk
	for i := 0; i < 30; i++ {
		eNext := mk + e.Ecc*math.Sin(ek)
		if math.Abs(eNext-ek) < 1e-14 {
			ek = eNext
			break
		}
		ek = eNext
	}

	sinE, cosE := math.Sin(ek), math.Cos(ek)
	vk := math.Atan2(math.Sqrt(1-e.Ecc*e.Ecc)*sinE, cosE-e.Ecc)
	phik := vk + e.Omega
	sin2phi, cos2phi := math.Sin(2*phik), math.Cos(2*phik)

	duk := e.Cus*sin2phi + e.Cuc*cos2phi
	drk := e.Crs*sin2phi + e.Crc*cos2phi
	dik := e.Cis*sin2phi + e.Cic*cos2phi

	uk := phik + duk
	rk := a*(1-e.Ecc*cosE) + drk
	ik := e.I0 + dik

	xkp := rk * math.Cos(uk)
	ykp := rk * math.Sin(uk)

	omegaK := e.Omega0 + e.OmegaDot*tk - e.constants.OmegaEDot*e.Toe.SecondsOfWeek
	sinOmegaK, cosOmegaK := math.Sin(omegaK), math.Cos(omegaK)
	sinIk, cosIk := math.Sin(ik), math.Cos(ik)

	xg := xkp*cosOmegaK - ykp*cosIk*sinOmegaK
	yg := xkp*sinOmegaK + ykp*cosIk*cosOmegaK
	zg := ykp * sinIk

	const rotX = -5.0 * math.Pi / 180.0
	sinRx, cosRx := math.Sin(rotX), math.Cos(rotX)
	x1 := xg
	y1 := cosRx*yg - sinRx*zg
	z1 := sinRx*yg + cosRx*zg

	phiZ := e.constants.OmegaEDot * tk
	sinPz, cosPz := math.Sin(phiZ), math.Cos(phiZ)
	x := cosPz*x1 - sinPz*y1
	y := sinPz*x1 + cosPz*y1
	z := z1

	return [3]float64{x, y, z}
}
