package ephemeris

import (
	"math"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// keplerConstants are the gravitational/rotation constants that differ in
// their last digit or two between GPS, Galileo, QZSS, BeiDou and NavIC.
type keplerConstants struct {
	GM          float64 // earth gravitational constant, m^3/s^2
	OmegaEDot   float64 // earth rotation rate, rad/s
}

var (
	gpsConstants = keplerConstants{GM: 3.986005e14, OmegaEDot: 7.2921151467e-5}
	galConstants = keplerConstants{GM: 3.986004418e14, OmegaEDot: 7.2921151467e-5}
	bdsConstants = keplerConstants{GM: 3.986004418e14, OmegaEDot: 7.292115e-5}
)

// relativisticConstant is the −4.442807e-10 s/√m factor spec.md §4.5 names
// for the GPS-family relativistic clock correction term.
const relativisticConstant = -4.442807633e-10

// KeplerEphemeris holds the RINEX broadcast orbit parameters shared by the
// Keplerian constellations (GPS, Galileo, QZSS, BeiDou MEO/IGSO, NavIC).
// BeiDou GEO satellites additionally rotate the result, see bds.go.
type KeplerEphemeris struct {
	Prn gnss.PRN

	Toc gnsstime.GnssTime
	Toe gnsstime.GnssTime

	ClockBias     float64
	ClockDrift    float64
	ClockDriftRate float64

	Crs, DeltaN, M0        float64
	Cuc, Ecc, Cus, SqrtA   float64
	Cic, Omega0, Cis       float64
	I0, Crc, Omega, OmegaDot float64
	IDOT                   float64

	IODE, IODC uint32
	URA        float64
	Health     int
	TGD        float64

	constants keplerConstants
}

// PRN implements Ephemeris.
func (e *KeplerEphemeris) PRN() gnss.PRN { return e.Prn }

// TOC implements Ephemeris.
func (e *KeplerEphemeris) TOC() gnsstime.GnssTime { return e.Toc }

// IOD implements Ephemeris.
func (e *KeplerEphemeris) IOD() uint32 { return e.IODE }

// IsHealthy implements Ephemeris: RINEX encodes 0 as "healthy" for every
// GPS-family constellation's SV health / health-code field.
func (e *KeplerEphemeris) IsHealthy() bool { return e.Health == 0 }

// Position implements the standard Kepler propagation spec.md §4.5
// names, including the GPS-family relativistic clock term.
func (e *KeplerEphemeris) Position(t gnsstime.GnssTime) (State, error) {
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
	ik := e.I0 + dik + e.IDOT*tk

	xkp := rk * math.Cos(uk)
	ykp := rk * math.Sin(uk)

	omegaK := e.Omega0 + (e.OmegaDot-e.constants.OmegaEDot)*tk - e.constants.OmegaEDot*e.Toe.SecondsOfWeek

	sinOmegaK, cosOmegaK := math.Sin(omegaK), math.Cos(omegaK)
	sinIk, cosIk := math.Sin(ik), math.Cos(ik)

	x := xkp*cosOmegaK - ykp*cosIk*sinOmegaK
	y := xkp*sinOmegaK + ykp*cosIk*cosOmegaK
	z := ykp * sinIk

	ekDot := n / (1 - e.Ecc*cosE)
	vkDot := ekDot * math.Sqrt(1-e.Ecc*e.Ecc) / (1 - e.Ecc*cosE)
	ukDot := vkDot + 2*(e.Cus*cos2phi-e.Cuc*sin2phi)*vkDot
	rkDot := a*e.Ecc*sinE*ekDot + 2*(e.Crs*cos2phi-e.Crc*sin2phi)*vkDot
	ikDot := e.IDOT + 2*(e.Cis*cos2phi-e.Cic*sin2phi)*vkDot

	xkpDot := rkDot*math.Cos(uk) - rk*ukDot*math.Sin(uk)
	ykpDot := rkDot*math.Sin(uk) + rk*ukDot*math.Cos(uk)
	omegaKDot := e.OmegaDot - e.constants.OmegaEDot

	vx := xkpDot*cosOmegaK - ykpDot*cosIk*sinOmegaK - (xkp*sinOmegaK+ykp*cosIk*cosOmegaK)*omegaKDot + ykp*sinIk*sinOmegaK*ikDot
	vy := xkpDot*sinOmegaK + ykpDot*cosIk*cosOmegaK + (xkp*cosOmegaK-ykp*cosIk*sinOmegaK)*omegaKDot - ykp*sinIk*cosOmegaK*ikDot
	vz := ykpDot*sinIk + ykp*cosIk*ikDot

	dtr := relativisticConstant * e.Ecc * e.SqrtA * sinE

	dtc := t.Sub(e.Toc)
	clockOffset := e.ClockBias + e.ClockDrift*dtc + e.ClockDriftRate*dtc*dtc + dtr - e.TGD

	return State{
		Pos:            [3]float64{x, y, z},
		Vel:            [3]float64{vx, vy, vz},
		ClockOffset:    clockOffset,
		ClockDrift:     e.ClockDrift + 2*e.ClockDriftRate*dtc,
		ClockDriftRate: e.ClockDriftRate,
	}, nil
}
