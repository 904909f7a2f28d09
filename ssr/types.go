// Package ssr decodes the RTCM-SSR and IGS-SSR State-Space
// Representation correction message family: orbit, clock, combined
// orbit+clock, high-rate clock, code bias, phase bias, and VTEC. Of the
// encoding side it has only the common-header writer, encodeHeader.
package ssr

import (
	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// Encoding identifies which of the two wire encodings a message body was
// parsed under. Both share the abstract schema of spec.md §4.3 but differ
// in message numbering and a handful of GLONASS/BeiDou time quirks that
// gnsstime.ResolveLastEpoch accounts for.
type Encoding int

// Recognised SSR encodings.
const (
	// EncodingRTCMSSR is the legacy per-constellation message family
	// (MT 1057-1068, 1240-1270, 1264, 1265).
	EncodingRTCMSSR Encoding = iota
	// EncodingIGSSSR is the common MT 4076 envelope with an 8-bit
	// subtype identifying constellation and correction kind.
	EncodingIGSSSR
)

// MessageKind is the correction kind carried by one SSR message body.
type MessageKind int

// Recognised message kinds.
const (
	KindOrbit MessageKind = iota
	KindClock
	KindCombined
	KindHighRateClock
	KindCodeBias
	KindPhaseBias
	KindVTEC
	KindURA
)

// UpdateIntervals is the lookup table for the 4-bit ssrUpdateInterval
// field, in seconds.
var UpdateIntervals = [16]float64{
	1, 2, 5, 10, 15, 30, 60, 120, 240, 300, 600, 900, 1800, 3600, 7200, 10800,
}

// ProviderId is the (providerId, solutionId, issueOfData) triple a stream
// decoder watches for identity changes.
type ProviderId struct {
	ProviderID  uint32
	SolutionID  uint8
	IssueOfData uint8
}

// Zero reports whether id is the all-zero "not yet observed" value.
func (id ProviderId) Zero() bool {
	return id == ProviderId{}
}

// Header carries the fields common to every SSR message, per spec.md §4.3.
type Header struct {
	System                  gnss.System
	EpochSec                float64
	UpdateInterval          float64
	MultipleMessageIndicator bool
	IOD                     uint8
	Provider                ProviderId
	SatelliteReferenceDatum bool
	NumSatellites           int
}

// OrbitCorrection is a decoded per-satellite orbit correction record.
type OrbitCorrection struct {
	PRN               gnss.PRN
	StaID             string
	Time              gnsstime.GnssTime
	UpdateIntervalTag uint8
	IOD               uint32
	DeltaRSW          [3]float64 // meters
	DotDeltaRSW       [3]float64 // meters/second
}

// ClockCorrection is a decoded per-satellite clock correction record.
type ClockCorrection struct {
	PRN               gnss.PRN
	StaID             string
	Time              gnsstime.GnssTime
	UpdateIntervalTag uint8
	IOD               uint32
	DClk              float64 // seconds
	DotDClk           float64 // s/s
	DotDotDClk        float64 // s/s^2
}

// CodeBiasEntry is one signal's code bias within a SatCodeBias record.
type CodeBiasEntry struct {
	RinexType string
	BiasM     float64
}

// SatCodeBias is a decoded per-satellite code bias record.
type SatCodeBias struct {
	PRN               gnss.PRN
	StaID             string
	Time              gnsstime.GnssTime
	UpdateIntervalTag uint8
	Biases            []CodeBiasEntry
}

// PhaseBiasEntry is one signal's phase bias within a SatPhaseBias record.
type PhaseBiasEntry struct {
	RinexType             string
	BiasM                 float64
	IntegerIndicator      uint8
	WideLaneIndicator     uint8
	DiscontinuityCounter  uint8
}

// SatPhaseBias is a decoded per-satellite phase bias record.
type SatPhaseBias struct {
	PRN                            gnss.PRN
	StaID                          string
	Time                           gnsstime.GnssTime
	UpdateIntervalTag              uint8
	DispersiveBiasConsistency      bool
	MWConsistency                  bool
	YawAngle                       float64 // radians
	YawRate                        float64 // radians/second
	Biases                         []PhaseBiasEntry
}

// VtecLayer is one spherical-harmonic layer of a VtecModel.
type VtecLayer struct {
	HeightM float64
	Degree  int
	Order   int
	C       [][]float64 // C[d][o], 0 <= d <= Degree, 0 <= o <= Order
	S       [][]float64 // S[d][o], 0 <= d <= Degree, 0 <= o <= Order
}

// VtecModel is a decoded ionospheric VTEC correction.
type VtecModel struct {
	StaID             string
	Time              gnsstime.GnssTime
	UpdateIntervalTag uint8
	Quality           float64
	Layers            []VtecLayer
}
