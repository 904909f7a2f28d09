package ephemeris

import (
	"math"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// GLONASS equations-of-motion constants, per spec.md §4.5: a simple
// J2 + Coriolis model with μ=398.60044e12, a_E=6378136 m,
// Ω=7.292115e-11 rad/s, C20=−1082.6257e-6.
const (
	glonassGM      = 398.60044e12
	glonassAE      = 6378136.0
	glonassOmega   = 7.292115e-11
	glonassC20     = -1082.6257e-6
	glonassStepSeconds = 60.0 // seconds; matches the message's own broadcast cadence
)

// GlonassEphemeris holds one GLONASS FDMA broadcast navigation record, in
// PZ-90 ECEF coordinates (RINEX stores these already in meters/m/s/m/s^2).
type GlonassEphemeris struct {
	Prn gnss.PRN

	Toc gnsstime.GnssTime

	TauN   float64 // clock bias, seconds
	GammaN float64 // relative frequency bias, dimensionless

	Pos [3]float64 // meters
	Vel [3]float64 // meters/second
	Acc [3]float64 // meters/second^2, lunisolar perturbation

	FrequencyNumber int
	Health          int // 0 = healthy
	IODValue        uint32
}

// PRN implements Ephemeris.
func (e *GlonassEphemeris) PRN() gnss.PRN { return e.Prn }

// TOC implements Ephemeris.
func (e *GlonassEphemeris) TOC() gnsstime.GnssTime { return e.Toc }

// IOD implements Ephemeris. GLONASS has no IODE/IODC field; the stream
// decoder's IOD cache uses the message frame time index instead.
func (e *GlonassEphemeris) IOD() uint32 { return e.IODValue }

// IsHealthy implements Ephemeris.
func (e *GlonassEphemeris) IsHealthy() bool { return e.Health == 0 }

func glonassAccel(pos, vel, lunisolar [3]float64) [3]float64 {
	x, y, z := pos[0], pos[1], pos[2]
	vx, vy := vel[0], vel[1]

	r2 := x*x + y*y + z*z
	r := math.Sqrt(r2)
	r3 := r2 * r
	r5 := r3 * r2

	j2term := 1.5 * glonassC20 * glonassGM * glonassAE * glonassAE / r5
	zr2 := z * z / r2

	ax := -glonassGM*x/r3 + j2term*x*(1-5*zr2) + glonassOmega*glonassOmega*x + 2*glonassOmega*vy + lunisolar[0]
	ay := -glonassGM*y/r3 + j2term*y*(1-5*zr2) + glonassOmega*glonassOmega*y - 2*glonassOmega*vx + lunisolar[1]
	az := -glonassGM*z/r3 + j2term*z*(3-5*zr2) + lunisolar[2]

	return [3]float64{ax, ay, az}
}

// glonassState is the 6-vector (position, velocity) the RK4 integrator
// steps forward or backward in time.
type glonassState struct {
	pos, vel [3]float64
}

func glonassDerivative(s glonassState, lunisolar [3]float64) glonassState {
	return glonassState{pos: s.vel, vel: glonassAccel(s.pos, s.vel, lunisolar)}
}

func glonassAddScaled(a, b glonassState, scale float64) glonassState {
	var r glonassState
	for i := 0; i < 3; i++ {
		r.pos[i] = a.pos[i] + b.pos[i]*scale
		r.vel[i] = a.vel[i] + b.vel[i]*scale
	}
	return r
}

// glonassRK4Step advances s by h seconds using 4th-order Runge-Kutta.
func glonassRK4Step(s glonassState, h float64, lunisolar [3]float64) glonassState {
	k1 := glonassDerivative(s, lunisolar)
	k2 := glonassDerivative(glonassAddScaled(s, k1, h/2), lunisolar)
	k3 := glonassDerivative(glonassAddScaled(s, k2, h/2), lunisolar)
	k4 := glonassDerivative(glonassAddScaled(s, k3, h), lunisolar)

	var out glonassState
	for i := 0; i < 3; i++ {
		out.pos[i] = s.pos[i] + h/6*(k1.pos[i]+2*k2.pos[i]+2*k3.pos[i]+k4.pos[i])
		out.vel[i] = s.vel[i] + h/6*(k1.vel[i]+2*k2.vel[i]+2*k3.vel[i]+k4.vel[i])
	}
	return out
}

// Position implements Ephemeris by integrating the GLONASS equations of
// motion from the broadcast reference state at Toc to t, via fixed-step
// RK4, per spec.md §4.5.
func (e *GlonassEphemeris) Position(t gnsstime.GnssTime) (State, error) {
	tk := t.Sub(e.Toc)

	s := glonassState{pos: e.Pos, vel: e.Vel}
	remaining := tk
	step := glonassStepSeconds
	if remaining < 0 {
		step = -glonassStepSeconds
	}
	for (step > 0 && remaining > 0) || (step < 0 && remaining < 0) {
		h := step
		if step > 0 && h > remaining {
			h = remaining
		}
		if step < 0 && h < remaining {
			h = remaining
		}
		s = glonassRK4Step(s, h, e.Acc)
		remaining -= h
	}

	dtc := t.Sub(e.Toc)
	clockOffset := -e.TauN + e.GammaN*dtc

	return State{
		Pos:            s.pos,
		Vel:            s.vel,
		ClockOffset:    clockOffset,
		ClockDrift:     e.GammaN,
		ClockDriftRate: 0,
	}, nil
}
