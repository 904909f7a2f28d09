package ephemeris

import (
	"math"
	"strings"
	"testing"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/ssr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGPS() *KeplerEphemeris {
	e := &KeplerEphemeris{
		Prn:    gnss.PRN{Sys: gnss.SysGPS, Num: 12},
		Toc:    gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 266400},
		Toe:    gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 266400},
		Crs:    59.71875,
		DeltaN: 4.119457306218e-9,
		M0:     -2.150395402634,
		Cuc:    3.147870302200e-6,
		Ecc:    8.033315883949e-3,
		Cus:    3.485009074211e-6,
		SqrtA:  5153.677604675,
		Cic:    1.061707735062e-7,
		Omega0: 6.666502414356e-1,
		Cis:    -5.774199962616e-8,
		I0:     9.781878686511e-1,
		Crc:    321.75,
		Omega:  1.162895587886,
		OmegaDot: -7.943902323989e-9,
		IDOT:   1.325055193867e-10,
		IODE:   61,
		Health: 0,
		TGD:    -1.210719347e-8,
	}
	return NewGPSEphemeris(e)
}

func TestKeplerPositionAtToeIsConsistent(t *testing.T) {
	e := sampleGPS()
	st, err := e.Position(e.Toe)
	require.NoError(t, err)

	r := math.Sqrt(st.Pos[0]*st.Pos[0] + st.Pos[1]*st.Pos[1] + st.Pos[2]*st.Pos[2])
	assert.InDelta(t, 26560000.0, r, 200000.0, "GPS orbit radius should be roughly 26,560 km")

	speed := math.Sqrt(st.Vel[0]*st.Vel[0] + st.Vel[1]*st.Vel[1] + st.Vel[2]*st.Vel[2])
	assert.InDelta(t, 3874.0, speed, 200.0, "GPS orbital speed should be roughly 3.87 km/s")
}

func TestKeplerHealthAndIOD(t *testing.T) {
	e := sampleGPS()
	assert.True(t, e.IsHealthy())
	assert.Equal(t, uint32(61), e.IOD())

	e.Health = 1
	assert.False(t, e.IsHealthy())
}

func sampleGlonass() *GlonassEphemeris {
	return &GlonassEphemeris{
		Prn:    gnss.PRN{Sys: gnss.SysGLO, Num: 7},
		Toc:    gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 10800},
		TauN:   1.2e-4,
		GammaN: 0,
		Pos:    [3]float64{10000000, 15000000, 18000000},
		Vel:    [3]float64{-1200, 800, -300},
		Acc:    [3]float64{1e-6, -2e-6, 3e-6},
		Health: 0,
	}
}

func TestGlonassRK4PreservesApproximateOrbitRadius(t *testing.T) {
	e := sampleGlonass()
	before, err := e.Position(e.Toc)
	require.NoError(t, err)
	after, err := e.Position(e.Toc.Add(900))
	require.NoError(t, err)

	r0 := math.Sqrt(before.Pos[0]*before.Pos[0] + before.Pos[1]*before.Pos[1] + before.Pos[2]*before.Pos[2])
	r1 := math.Sqrt(after.Pos[0]*after.Pos[0] + after.Pos[1]*after.Pos[1] + after.Pos[2]*after.Pos[2])
	assert.InDelta(t, r0, r1, r0*0.05, "integrated GLONASS orbit radius should not drift far over 15 minutes")
}

func TestGlonassClockModel(t *testing.T) {
	e := sampleGlonass()
	e.GammaN = 1e-11
	st, err := e.Position(e.Toc.Add(100))
	require.NoError(t, err)
	assert.InDelta(t, -e.TauN+e.GammaN*100, st.ClockOffset, 1e-12)
}

func sampleBDSGeo() *BDSEphemeris {
	e := &KeplerEphemeris{
		Prn:    gnss.PRN{Sys: gnss.SysBDS, Num: 3},
		Toc:    gnsstime.GnssTime{Week: 800, SecondsOfWeek: 43200},
		Toe:    gnsstime.GnssTime{Week: 800, SecondsOfWeek: 43200},
		SqrtA:  6493.0,
		Ecc:    0.001,
		I0:     0.01, // shallow inclination selects the GEO path
		Omega0: 1.5,
		Omega:  0.2,
		M0:     0.1,
	}
	return NewBDSEphemeris(e)
}

func TestBDSGeoDispatchesToRotatedFrame(t *testing.T) {
	e := sampleBDSGeo()
	st, err := e.Position(e.Toc.Add(60))
	require.NoError(t, err)

	r := math.Sqrt(st.Pos[0]*st.Pos[0] + st.Pos[1]*st.Pos[1] + st.Pos[2]*st.Pos[2])
	a := 6493.0 * 6493.0
	assert.InDelta(t, a, r, a*0.01, "GEO radius should match semi-major axis within eccentricity bounds")
}

func TestBDSNonGeoUsesKeplerPath(t *testing.T) {
	e := sampleGPS()
	e.Prn = gnss.PRN{Sys: gnss.SysBDS, Num: 20}
	e.I0 = 0.9 // MEO-like inclination, well above the GEO threshold
	bds := NewBDSEphemeris(e)

	st, err := bds.Position(bds.Toe)
	require.NoError(t, err)
	assert.NotZero(t, st.Pos[0])
}

func sampleSBAS() *SbasEphemeris {
	return &SbasEphemeris{
		Prn:  gnss.PRN{Sys: gnss.SysSBAS, Num: 33},
		Toc:  gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 400000},
		Toe:  gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 400000},
		AGf0: 1e-7,
		AGf1: 1e-12,
		Pos:  [3]float64{20000000, 30000000, 100000},
		Vel:  [3]float64{100, -50, 1},
		Acc:  [3]float64{0.001, -0.002, 0},
	}
}

func TestSBASPolynomialExtrapolation(t *testing.T) {
	e := sampleSBAS()
	dt := 30.0
	st, err := e.Position(e.Toe.Add(dt))
	require.NoError(t, err)

	wantX := e.Pos[0] + e.Vel[0]*dt + 0.5*e.Acc[0]*dt*dt
	assert.InDelta(t, wantX, st.Pos[0], 1e-6)
	assert.InDelta(t, e.AGf0+e.AGf1*dt, st.ClockOffset, 1e-15)
}

func TestSBASIODStableAcrossCalls(t *testing.T) {
	e := sampleSBAS()
	first := e.IOD()
	second := e.IOD()
	assert.Equal(t, first, second)

	other := sampleSBAS()
	other.Pos[0] += 1.0
	assert.NotEqual(t, first, other.IOD())
}

const gpsNavRecord = `G12 2020  6 17  2  0  0 1.051961444318E-04-4.433786671143E-12 0.000000000000E+00
     6.100000000000E+01 5.971875000000E+01 4.119457306218E-09-2.150395402634E+00
     3.147870302200E-06 8.033315883949E-03 3.485009074211E-06 5.153677604675E+03
     2.664000000000E+05 1.061707735062E-07 6.666502414356E-01-5.774199962616E-08
     9.781878686511E-01 3.217500000000E+02 1.162895587886E+00-7.943902323989E-09
     1.325055193867E-10 1.000000000000E+00 2.110000000000E+03 0.000000000000E+00
     2.000000000000E+00 0.000000000000E+00-1.210719347000E-08 6.100000000000E+01
     2.592180000000E+05 4.000000000000E+00
`

func TestDecoderParsesGPSRecord(t *testing.T) {
	dec, err := NewDecoder(strings.NewReader(gpsNavRecord))
	require.NoError(t, err)

	require.True(t, dec.Next())
	require.NoError(t, dec.Err())

	eph := dec.Ephemeris()
	assert.Equal(t, gnss.PRN{Sys: gnss.SysGPS, Num: 12}, eph.PRN())
	assert.True(t, eph.IsHealthy())
	assert.Equal(t, uint32(61), eph.IOD())

	assert.False(t, dec.Next())
	assert.NoError(t, dec.Err())
}

func TestRegistryKeepsNewestAndEvaluatesPosition(t *testing.T) {
	reg := NewRegistry()
	older := sampleGPS()
	reg.Put(older)

	newer := sampleGPS()
	newer.Toc = older.Toc.Add(3600)
	newer.Toe = newer.Toc
	newer.IODE = 62
	reg.Put(newer)

	got, ok := reg.Get(older.Prn)
	require.True(t, ok)
	assert.Equal(t, uint32(62), got.IOD())

	st, err := reg.Position(older.Prn, newer.Toe, nil, nil)
	require.NoError(t, err)
	assert.NotZero(t, st.Pos[0])
}

func TestRegistryPruneRemovesOldEntries(t *testing.T) {
	reg := NewRegistry()
	e := sampleGPS()
	reg.Put(e)

	reg.Prune(e.Toc.Add(7200))
	_, ok := reg.Get(e.Prn)
	assert.False(t, ok)
}

func TestApplyCorrectionShiftsPositionAndClock(t *testing.T) {
	e := sampleGPS()
	base, err := e.Position(e.Toe)
	require.NoError(t, err)

	orbit := &ssr.OrbitCorrection{
		PRN:      e.Prn,
		Time:     e.Toe,
		DeltaRSW: [3]float64{1.0, 0, 0},
	}
	clock := &ssr.ClockCorrection{
		PRN:  e.Prn,
		Time: e.Toe,
		DClk: 1e-8,
	}

	corrected := ApplyCorrection(base, orbit, clock, e.Toe)
	assert.NotEqual(t, base.Pos, corrected.Pos)
	assert.InDelta(t, base.ClockOffset-1e-8, corrected.ClockOffset, 1e-15)
}
