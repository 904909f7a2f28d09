// Package ephemeris decodes RINEX navigation records into per-constellation
// typed ephemerides and evaluates satellite position, velocity and clock
// state from them, with an optional SSR orbit/clock correction applied.
package ephemeris

import (
	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// State is the result of evaluating an Ephemeris at an instant: ECEF
// position and velocity (meters, meters/second) and satellite clock state
// (seconds, s/s, s/s^2).
type State struct {
	Pos            [3]float64
	Vel            [3]float64
	ClockOffset    float64
	ClockDrift     float64
	ClockDriftRate float64
}

// Ephemeris is implemented by every per-constellation navigation-message
// record. position/isHealthy/iod correspond to spec.md §4.5.
type Ephemeris interface {
	PRN() gnss.PRN
	TOC() gnsstime.GnssTime
	Position(t gnsstime.GnssTime) (State, error)
	IsHealthy() bool
	IOD() uint32
}

// Key identifies one stored ephemeris by (prn, TOC), the dedup key
// spec.md §3's Ephemerides-lifecycle invariant names.
type Key struct {
	PRN gnss.PRN
	TOC gnsstime.GnssTime
}

// KeyOf returns e's dedup key.
func KeyOf(e Ephemeris) Key {
	return Key{PRN: e.PRN(), TOC: e.TOC()}
}
