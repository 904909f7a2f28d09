// Package gnsstime resolves the system-specific epoch seconds carried by an
// SSR message into a single, unambiguous wall-clock instant, handling the
// GLONASS/BeiDou time-base offsets and GPS week rollover along the way.
package gnsstime

import (
	"fmt"
	"time"

	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// SecondsPerWeek is the length of a GPS week, in seconds.
const SecondsPerWeek = 604800

// GnssTime is a GPS-week/seconds-of-week instant. BeiDou time is always
// normalised to the internal GPS time base (GPS − 14 s); the I/O layer is
// responsible for converting back to BeiDou time on output.
type GnssTime struct {
	Week          int
	SecondsOfWeek float64
}

// Zero reports whether t is the GnssTime zero value, used as the "no time
// resolved yet" sentinel.
func (t GnssTime) Zero() bool {
	return t == GnssTime{}
}

// Normalize brings SecondsOfWeek back into [0, SecondsPerWeek) by carrying
// whole weeks into Week.
func (t GnssTime) Normalize() GnssTime {
	for t.SecondsOfWeek < 0 {
		t.SecondsOfWeek += SecondsPerWeek
		t.Week--
	}
	for t.SecondsOfWeek >= SecondsPerWeek {
		t.SecondsOfWeek -= SecondsPerWeek
		t.Week++
	}
	return t
}

// Add returns t shifted by secs seconds (which may be negative), normalised.
func (t GnssTime) Add(secs float64) GnssTime {
	t.SecondsOfWeek += secs
	return t.Normalize()
}

// Sub returns t-u in seconds.
func (t GnssTime) Sub(u GnssTime) float64 {
	return float64(t.Week-u.Week)*SecondsPerWeek + (t.SecondsOfWeek - u.SecondsOfWeek)
}

// Before reports whether t is strictly earlier than u.
func (t GnssTime) Before(u GnssTime) bool { return t.Sub(u) < 0 }

// After reports whether t is strictly later than u.
func (t GnssTime) After(u GnssTime) bool { return t.Sub(u) > 0 }

// String renders t as "week:seconds".
func (t GnssTime) String() string {
	return fmt.Sprintf("%d:%.3f", t.Week, t.SecondsOfWeek)
}

// gpsEpoch is the start of GPS week 0, 1980-01-06 00:00:00 UTC.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// FromTime converts a UTC wall-clock instant to GnssTime, ignoring the
// leap-second offset (GPS time runs ahead of UTC; callers that need exact
// GPS time from a UTC timestamp should add LeapSeconds(t) seconds first).
func FromTime(t time.Time) GnssTime {
	d := t.UTC().Sub(gpsEpoch)
	weeks := int(d / (SecondsPerWeek * time.Second))
	rem := d - time.Duration(weeks)*SecondsPerWeek*time.Second
	return GnssTime{Week: weeks, SecondsOfWeek: rem.Seconds()}
}

// leapSecondEntry records a historical TAI-UTC/GPS-UTC leap second
// insertion, effective from the given UTC date.
type leapSecondEntry struct {
	effective time.Time
	gpsUTC    int // GPS time minus UTC, in seconds, effective from this date
}

// leapSecondTable holds the announced leap seconds affecting the GPS-UTC
// offset since GPS time began (1980-01-06, offset 0). No leap second has
// been inserted since 2016-12-31 (IERS Bulletin C); the offset has been a
// constant 18 s since 2017-01-01.
var leapSecondTable = []leapSecondEntry{
	{time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC), 0},
	{time.Date(1981, 7, 1, 0, 0, 0, 0, time.UTC), 1},
	{time.Date(1982, 7, 1, 0, 0, 0, 0, time.UTC), 2},
	{time.Date(1983, 7, 1, 0, 0, 0, 0, time.UTC), 3},
	{time.Date(1985, 7, 1, 0, 0, 0, 0, time.UTC), 4},
	{time.Date(1988, 1, 1, 0, 0, 0, 0, time.UTC), 5},
	{time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 6},
	{time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC), 7},
	{time.Date(1992, 7, 1, 0, 0, 0, 0, time.UTC), 8},
	{time.Date(1993, 7, 1, 0, 0, 0, 0, time.UTC), 9},
	{time.Date(1994, 7, 1, 0, 0, 0, 0, time.UTC), 10},
	{time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), 11},
	{time.Date(1997, 7, 1, 0, 0, 0, 0, time.UTC), 12},
	{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 13},
	{time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC), 14},
	{time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), 15},
	{time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC), 16},
	{time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC), 17},
	{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 18},
}

// LeapSeconds returns the GPS-UTC offset, in seconds, effective at t.
func LeapSeconds(t time.Time) int {
	t = t.UTC()
	offset := leapSecondTable[0].gpsUTC
	for _, e := range leapSecondTable {
		if t.Before(e.effective) {
			break
		}
		offset = e.gpsUTC
	}
	return offset
}

// Encoding identifies which SSR wire encoding an epoch was decoded under;
// the GLONASS/BeiDou time-base quirks below differ between the two.
type Encoding int

// Recognised SSR encodings.
const (
	EncodingRTCMSSR Encoding = iota
	EncodingIGSSSR
)

// Options tunes ResolveLastEpoch's behaviour for quirks that are specific
// to particular encoder implementations rather than the ICD itself.
type Options struct {
	// GlonassLeapWorkaround reproduces a known IGS-SSR encoder bug where
	// the GLONASS leap-second offset is only applied when the GLONASS
	// epoch seconds differ from the simultaneously-present GPS epoch
	// seconds. The zero value is false; the stream decoder sets it to true
	// (legacy behaviour). With false, no leap-second offset is added to an
	// IGS-SSR GLONASS epoch.
	GlonassLeapWorkaround bool
}

// EpochCandidate is one system's decoded epoch-seconds-of-week value,
// together with the satellite count that was decoded alongside it. Candidates
// are supplied to ResolveLastEpoch in the priority order spec.md §4.4 names:
// GPS (orbit/clock), GPS code/phase bias, VTEC, GLONASS, Galileo, QZSS, SBAS,
// BeiDou.
type EpochCandidate struct {
	System   gnss.System
	Seconds  float64
	SatCount int
}

// ResolveLastEpoch implements the algorithm of spec.md §4.4: pick the first
// candidate (in the caller-supplied priority order) with a nonzero satellite
// count, apply the GLONASS/BeiDou time-base corrections, and normalise the
// result to within ±12h of currentWall. ok is false if no candidate carried
// any satellites, in which case the caller must drop the whole frame.
func ResolveLastEpoch(candidates []EpochCandidate, currentWall GnssTime, encoding Encoding, opts Options, now time.Time) (t GnssTime, ok bool) {
	chosenIdx := -1
	for i, c := range candidates {
		if c.SatCount > 0 {
			chosenIdx = i
			break
		}
	}
	if chosenIdx < 0 {
		return GnssTime{}, false
	}
	chosen := candidates[chosenIdx]

	lastTime := GnssTime{Week: currentWall.Week, SecondsOfWeek: chosen.Seconds}

	gpsSeconds, gpsPresent := gpsCandidateSeconds(candidates)

	switch chosen.System {
	case gnss.SysGLO:
		leap := float64(LeapSeconds(now))
		switch encoding {
		case EncodingRTCMSSR:
			lastTime = lastTime.Add(-3*3600 + leap)
		case EncodingIGSSSR:
			if opts.GlonassLeapWorkaround && (!gpsPresent || chosen.Seconds != gpsSeconds) {
				lastTime = lastTime.Add(leap)
			}
		}
	case gnss.SysBDS:
		switch encoding {
		case EncodingRTCMSSR:
			lastTime = lastTime.Add(14)
		case EncodingIGSSSR:
			// BNC's own guard here is `epoSecGPS != -1 && epoSecGPS !=
			// epoSecBds`, reached only from the else-if arm that is itself
			// only taken when epoSecGPS == -1 — so the add/wrap is
			// unreachable in the original (flagged there as dead code: "line
			// has to be deleted"). Reproduced as never-fires rather than
			// as unconditional, unlike the GLONASS branch above whose
			// equivalent guard reduces the other way (always true).
		}
	}

	lastTime = normalizeToWindow(lastTime, currentWall)
	return lastTime, true
}

func gpsCandidateSeconds(candidates []EpochCandidate) (float64, bool) {
	for _, c := range candidates {
		if c.System == gnss.SysGPS && c.SatCount > 0 {
			return c.Seconds, true
		}
	}
	return 0, false
}

// normalizeToWindow shifts t by whole 12-hour steps until it falls within
// ±12h of ref, per spec.md §4.4 step 5.
func normalizeToWindow(t, ref GnssTime) GnssTime {
	const halfDay = 12 * 3600
	for t.Sub(ref) > halfDay {
		t = t.Add(-2 * halfDay)
	}
	for t.Sub(ref) < -halfDay {
		t = t.Add(2 * halfDay)
	}
	return t
}
