package ephemeris

import (
	"encoding/binary"
	"math"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/internal/crc24q"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// SbasEphemeris holds one SBAS broadcast navigation record. RINEX encodes
// SBAS orbits as a simple polynomial (position/velocity/acceleration) in
// ECEF meters/m/s/m/s^2, rather than Keplerian elements.
type SbasEphemeris struct {
	Prn gnss.PRN

	Toc gnsstime.GnssTime
	Toe gnsstime.GnssTime

	AGf0 float64 // clock bias, seconds
	AGf1 float64 // clock drift, s/s

	Pos [3]float64
	Vel [3]float64
	Acc [3]float64

	Health    int
	URA       float64
	iodCached uint32
}

// PRN implements Ephemeris.
func (e *SbasEphemeris) PRN() gnss.PRN { return e.Prn }

// TOC implements Ephemeris.
func (e *SbasEphemeris) TOC() gnsstime.GnssTime { return e.Toc }

// IsHealthy implements Ephemeris.
func (e *SbasEphemeris) IsHealthy() bool { return e.Health == 0 }

// IOD implements Ephemeris. SBAS has no IODE/IODC field; spec.md §4.5
// substitutes a CRC-24Q over the bit-packed orbit+clock fields. Since this
// package stores those fields already decoded rather than as raw bits, the
// CRC is computed over their IEEE-754 byte representation instead, which
// preserves the "changes iff the broadcast orbit/clock values change"
// property the stream decoder's IOD cache relies on.
func (e *SbasEphemeris) IOD() uint32 {
	if e.iodCached != 0 {
		return e.iodCached
	}
	buf := make([]byte, 0, 11*8)
	for _, v := range []float64{
		e.Pos[0], e.Pos[1], e.Pos[2],
		e.Vel[0], e.Vel[1], e.Vel[2],
		e.Acc[0], e.Acc[1], e.Acc[2],
		e.AGf0, e.AGf1,
	} {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
		buf = append(buf, b[:]...)
	}
	e.iodCached = crc24q.Checksum(buf)
	return e.iodCached
}

// Position implements Ephemeris via the simple second-order polynomial
// extrapolation spec.md §4.5 names for SBAS.
func (e *SbasEphemeris) Position(t gnsstime.GnssTime) (State, error) {
	dt := t.Sub(e.Toe)

	var pos, vel [3]float64
	for i := 0; i < 3; i++ {
		pos[i] = e.Pos[i] + e.Vel[i]*dt + 0.5*e.Acc[i]*dt*dt
		vel[i] = e.Vel[i] + e.Acc[i]*dt
	}

	dtc := t.Sub(e.Toc)
	return State{
		Pos:            pos,
		Vel:            vel,
		ClockOffset:    e.AGf0 + e.AGf1*dtc,
		ClockDrift:     e.AGf1,
		ClockDriftRate: 0,
	}, nil
}
