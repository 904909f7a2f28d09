package ssr

import (
	"errors"
	"fmt"
	"math"

	"github.com/de-bkg/gnsshub/internal/bitio"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/rtcm3"
)

// SpeedOfLight is used to convert the wire's meter-scaled clock correction
// fields into seconds, per spec.md §4.3.
const SpeedOfLight = 299792458.0

// ErrDataMismatch is returned when a satellite entry arriving in a later
// block of a multi-message group does not fit the current constellation's
// satelliteId offset window; the whole frame is aborted, per spec.md §4.3.
var ErrDataMismatch = errors.New("ssr: satellite id does not match constellation window")

// State is the per-stream SSR working state: the accumulated per-satellite
// records of a (possibly multi-message) epoch, reset after each emitted
// epoch or decode error, per spec.md §4.6.
type State struct {
	Orbits      map[gnss.PRN]*OrbitCorrection
	Clocks      map[gnss.PRN]*ClockCorrection
	CodeBiases  map[gnss.PRN]*SatCodeBias
	PhaseBiases map[gnss.PRN]*SatPhaseBias
	Vtec        *VtecModel

	// Supplied tracks, per constellation, which correction kinds have been
	// observed in the current multi-message group.
	Supplied map[gnss.System]map[MessageKind]bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		Orbits:      make(map[gnss.PRN]*OrbitCorrection),
		Clocks:      make(map[gnss.PRN]*ClockCorrection),
		CodeBiases:  make(map[gnss.PRN]*SatCodeBias),
		PhaseBiases: make(map[gnss.PRN]*SatPhaseBias),
		Supplied:    make(map[gnss.System]map[MessageKind]bool),
	}
}

// Snapshot returns a deep-enough copy of s for the stream decoder's
// snapshot/restore-on-ShortBuffer discipline.
func (s *State) Snapshot() *State {
	cp := NewState()
	for k, v := range s.Orbits {
		o := *v
		cp.Orbits[k] = &o
	}
	for k, v := range s.Clocks {
		c := *v
		cp.Clocks[k] = &c
	}
	for k, v := range s.CodeBiases {
		c := *v
		cp.CodeBiases[k] = &c
	}
	for k, v := range s.PhaseBiases {
		p := *v
		cp.PhaseBiases[k] = &p
	}
	if s.Vtec != nil {
		v := *s.Vtec
		cp.Vtec = &v
	}
	for sys, kinds := range s.Supplied {
		m := make(map[MessageKind]bool, len(kinds))
		for k, v := range kinds {
			m[k] = v
		}
		cp.Supplied[sys] = m
	}
	return cp
}

func (s *State) markSupplied(sys gnss.System, kind MessageKind) {
	if s.Supplied[sys] == nil {
		s.Supplied[sys] = make(map[MessageKind]bool)
	}
	s.Supplied[sys][kind] = true
}

// ResultKind classifies the outcome of one TryDecode call.
type ResultKind int

// Recognised outcomes, mirroring spec.md §4.6's decode loop contract.
const (
	// ResultShortBuffer means the caller must retain buf unchanged and
	// wait for more bytes.
	ResultShortBuffer ResultKind = iota
	// ResultHardError means the caller must drop BytesUsed bytes (or 1,
	// if BytesUsed is 0) from the head of buf and reset SSR state.
	ResultHardError
	// ResultOk means one complete, self-contained epoch was decoded.
	ResultOk
	// ResultMessageFollows means this message is part of a multi-message
	// group; the caller should not resolve/emit the epoch yet.
	ResultMessageFollows
)

// Result is the outcome of one TryDecode call.
type Result struct {
	Kind        ResultKind
	BytesUsed   int
	Header      Header
	Encoding    Encoding
	MessageKind MessageKind
}

// TryDecode attempts to decode one RTCM3-framed SSR message from the head
// of buf into state, per spec.md §4.2 (framing) and §4.3 (SSR body).
func TryDecode(buf []byte, state *State) (Result, error) {
	payload, consumed, err := rtcm3.Decode(buf)
	if err != nil {
		var fe *rtcm3.FrameError
		if errors.As(err, &fe) {
			if fe.Kind == rtcm3.ShortBuffer || fe.Kind == rtcm3.MessageExceedsBuffer {
				return Result{Kind: ResultShortBuffer}, nil
			}
			return Result{Kind: ResultHardError, BytesUsed: fe.BytesUsed}, nil
		}
		return Result{Kind: ResultHardError}, nil
	}

	r := bitio.NewReader(payload)
	msgNum, err := r.Take(12)
	if err != nil {
		return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
	}

	var sys gnss.System
	var kind MessageKind
	var encoding Encoding

	if int(msgNum) == igsMessageNumber {
		encoding = EncodingIGSSSR
		subtype, err := r.Take(8)
		if err != nil {
			return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
		}
		if subtype == igsVtecSubtype {
			kind = KindVTEC
		} else {
			var ok bool
			sys, kind, ok = igsSubtype(uint8(subtype))
			if !ok {
				return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
			}
		}
	} else {
		info, ok := rtcmMessages[int(msgNum)]
		if !ok {
			return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
		}
		encoding = EncodingRTCMSSR
		sys, kind = info.System, info.Kind
	}

	header, err := decodeBody(r, sys, kind, state)
	if err != nil {
		if errors.Is(err, bitio.ErrShortMessage) {
			// The frame codec already validated the full frame length
			// against the CRC, so a short read here means the body is
			// malformed, not merely incomplete: treat it as a hard error.
			return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
		}
		if errors.Is(err, ErrDataMismatch) {
			return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
		}
		return Result{Kind: ResultHardError, BytesUsed: consumed}, nil
	}

	res := Result{BytesUsed: consumed, Header: header, Encoding: encoding, MessageKind: kind}
	if header.MultipleMessageIndicator {
		res.Kind = ResultMessageFollows
	} else {
		res.Kind = ResultOk
	}
	return res, nil
}

func decodeBody(r *bitio.Reader, sys gnss.System, kind MessageKind, state *State) (Header, error) {
	switch kind {
	case KindVTEC:
		return decodeVtec(r, state)
	case KindOrbit:
		return decodeOrbitMessage(r, sys, state, false)
	case KindClock:
		return decodeClockMessage(r, sys, state)
	case KindCombined:
		return decodeOrbitMessage(r, sys, state, true)
	case KindHighRateClock:
		return decodeHighRateClockMessage(r, sys, state)
	case KindCodeBias:
		return decodeCodeBiasMessage(r, sys, state)
	case KindPhaseBias:
		return decodePhaseBiasMessage(r, sys, state)
	case KindURA:
		return decodeURAMessage(r, sys, state)
	default:
		return Header{}, fmt.Errorf("ssr: unsupported message kind %d", kind)
	}
}

func checkSatId(sys gnss.System, satId int) error {
	if satId < 1 || satId > sys.MaxPRN() {
		return ErrDataMismatch
	}
	return nil
}

func decodeOrbitMessage(r *bitio.Reader, sys gnss.System, state *State, combined bool) (Header, error) {
	h, err := decodeHeader(r, sys, true)
	if err != nil {
		return Header{}, err
	}
	if combined {
		state.markSupplied(sys, KindOrbit)
		state.markSupplied(sys, KindClock)
	} else {
		state.markSupplied(sys, KindOrbit)
	}

	for i := 0; i < h.NumSatellites; i++ {
		satId, err := r.Take(satelliteIdBits(sys))
		if err != nil {
			return Header{}, err
		}
		if err := checkSatId(sys, int(satId)); err != nil {
			return Header{}, err
		}
		prn := gnss.PRN{Sys: sys, Num: int8(satId)}

		iod, err := r.Take(iodBits(sys))
		if err != nil {
			return Header{}, err
		}

		deltaRadial, err := r.TakeSignedScaled(22, 1e-4)
		if err != nil {
			return Header{}, err
		}
		deltaAlong, err := r.TakeSignedScaled(20, 2.5e-4)
		if err != nil {
			return Header{}, err
		}
		deltaCross, err := r.TakeSignedScaled(20, 2.5e-4)
		if err != nil {
			return Header{}, err
		}
		dotRadial, err := r.TakeSignedScaled(21, 1e-6)
		if err != nil {
			return Header{}, err
		}
		dotAlong, err := r.TakeSignedScaled(19, 4e-6)
		if err != nil {
			return Header{}, err
		}
		dotCross, err := r.TakeSignedScaled(19, 4e-6)
		if err != nil {
			return Header{}, err
		}

		state.Orbits[prn] = &OrbitCorrection{
			PRN:               prn,
			UpdateIntervalTag: tagForInterval(h.UpdateInterval),
			IOD:               uint32(iod),
			DeltaRSW:          [3]float64{deltaRadial, deltaAlong, deltaCross},
			DotDeltaRSW:       [3]float64{dotRadial, dotAlong, dotCross},
		}

		if combined {
			dA0, err := r.TakeSignedScaled(22, 1e-4)
			if err != nil {
				return Header{}, err
			}
			dA1, err := r.TakeSignedScaled(21, 1e-6)
			if err != nil {
				return Header{}, err
			}
			dA2, err := r.TakeSignedScaled(27, 2e-8)
			if err != nil {
				return Header{}, err
			}
			state.Clocks[prn] = &ClockCorrection{
				PRN:               prn,
				UpdateIntervalTag: tagForInterval(h.UpdateInterval),
				IOD:               uint32(iod),
				DClk:              dA0 / SpeedOfLight,
				DotDClk:           dA1 / SpeedOfLight,
				DotDotDClk:        dA2 / SpeedOfLight,
			}
		}
	}

	return h, nil
}

func decodeClockMessage(r *bitio.Reader, sys gnss.System, state *State) (Header, error) {
	h, err := decodeHeader(r, sys, false)
	if err != nil {
		return Header{}, err
	}
	state.markSupplied(sys, KindClock)

	for i := 0; i < h.NumSatellites; i++ {
		satId, err := r.Take(satelliteIdBits(sys))
		if err != nil {
			return Header{}, err
		}
		if err := checkSatId(sys, int(satId)); err != nil {
			return Header{}, err
		}
		prn := gnss.PRN{Sys: sys, Num: int8(satId)}

		dA0, err := r.TakeSignedScaled(22, 1e-4)
		if err != nil {
			return Header{}, err
		}
		dA1, err := r.TakeSignedScaled(21, 1e-6)
		if err != nil {
			return Header{}, err
		}
		dA2, err := r.TakeSignedScaled(27, 2e-8)
		if err != nil {
			return Header{}, err
		}

		existing := state.Clocks[prn]
		iod := uint32(0)
		if existing != nil {
			iod = existing.IOD
		}
		state.Clocks[prn] = &ClockCorrection{
			PRN:               prn,
			UpdateIntervalTag: tagForInterval(h.UpdateInterval),
			IOD:               iod,
			DClk:              dA0 / SpeedOfLight,
			DotDClk:           dA1 / SpeedOfLight,
			DotDotDClk:        dA2 / SpeedOfLight,
		}
	}

	return h, nil
}

func decodeHighRateClockMessage(r *bitio.Reader, sys gnss.System, state *State) (Header, error) {
	h, err := decodeHeader(r, sys, false)
	if err != nil {
		return Header{}, err
	}
	state.markSupplied(sys, KindHighRateClock)

	for i := 0; i < h.NumSatellites; i++ {
		satId, err := r.Take(satelliteIdBits(sys))
		if err != nil {
			return Header{}, err
		}
		if err := checkSatId(sys, int(satId)); err != nil {
			return Header{}, err
		}
		prn := gnss.PRN{Sys: sys, Num: int8(satId)}

		hrClock, err := r.TakeSignedScaled(22, 1e-4)
		if err != nil {
			return Header{}, err
		}

		if c, ok := state.Clocks[prn]; ok {
			c.DClk += hrClock / SpeedOfLight
		} else {
			state.Clocks[prn] = &ClockCorrection{
				PRN:               prn,
				UpdateIntervalTag: tagForInterval(h.UpdateInterval),
				DClk:              hrClock / SpeedOfLight,
			}
		}
	}

	return h, nil
}

func decodeCodeBiasMessage(r *bitio.Reader, sys gnss.System, state *State) (Header, error) {
	h, err := decodeHeader(r, sys, false)
	if err != nil {
		return Header{}, err
	}
	state.markSupplied(sys, KindCodeBias)

	for i := 0; i < h.NumSatellites; i++ {
		satId, err := r.Take(satelliteIdBits(sys))
		if err != nil {
			return Header{}, err
		}
		if err := checkSatId(sys, int(satId)); err != nil {
			return Header{}, err
		}
		prn := gnss.PRN{Sys: sys, Num: int8(satId)}

		numBiases, err := r.Take(5)
		if err != nil {
			return Header{}, err
		}

		rec := &SatCodeBias{PRN: prn, UpdateIntervalTag: tagForInterval(h.UpdateInterval)}
		for b := 0; b < int(numBiases); b++ {
			sigId, err := r.Take(5)
			if err != nil {
				return Header{}, err
			}
			bias, err := r.TakeSignedScaled(14, 1e-2)
			if err != nil {
				return Header{}, err
			}
			rnxType := rnxTypeFromId(sys, uint8(sigId))
			if rnxType == "" {
				continue
			}
			rec.Biases = append(rec.Biases, CodeBiasEntry{RinexType: rnxType, BiasM: bias})
		}
		state.CodeBiases[prn] = rec
	}

	return h, nil
}

func decodePhaseBiasMessage(r *bitio.Reader, sys gnss.System, state *State) (Header, error) {
	h, err := decodeHeader(r, sys, false)
	if err != nil {
		return Header{}, err
	}
	state.markSupplied(sys, KindPhaseBias)

	dispersive, err := r.Take(1)
	if err != nil {
		return Header{}, err
	}
	mw, err := r.Take(1)
	if err != nil {
		return Header{}, err
	}

	for i := 0; i < h.NumSatellites; i++ {
		satId, err := r.Take(satelliteIdBits(sys))
		if err != nil {
			return Header{}, err
		}
		if err := checkSatId(sys, int(satId)); err != nil {
			return Header{}, err
		}
		prn := gnss.PRN{Sys: sys, Num: int8(satId)}

		yawAngle, err := r.TakeScaled(9, math.Pi/256)
		if err != nil {
			return Header{}, err
		}
		yawRate, err := r.TakeSignedScaled(8, math.Pi/8192)
		if err != nil {
			return Header{}, err
		}

		numBiases, err := r.Take(5)
		if err != nil {
			return Header{}, err
		}

		rec := &SatPhaseBias{
			PRN:                        prn,
			UpdateIntervalTag:          tagForInterval(h.UpdateInterval),
			DispersiveBiasConsistency:  dispersive != 0,
			MWConsistency:              mw != 0,
			YawAngle:                   yawAngle,
			YawRate:                    yawRate,
		}
		for b := 0; b < int(numBiases); b++ {
			sigId, err := r.Take(5)
			if err != nil {
				return Header{}, err
			}
			integerInd, err := r.Take(1)
			if err != nil {
				return Header{}, err
			}
			wideLaneInd, err := r.Take(2)
			if err != nil {
				return Header{}, err
			}
			discontinuity, err := r.Take(4)
			if err != nil {
				return Header{}, err
			}
			bias, err := r.TakeSignedScaled(20, 1e-4)
			if err != nil {
				return Header{}, err
			}
			rnxType := rnxTypeFromId(sys, uint8(sigId))
			if rnxType == "" {
				continue
			}
			rec.Biases = append(rec.Biases, PhaseBiasEntry{
				RinexType:            rnxType,
				BiasM:                bias,
				IntegerIndicator:     uint8(integerInd),
				WideLaneIndicator:    uint8(wideLaneInd),
				DiscontinuityCounter: uint8(discontinuity),
			})
		}
		state.PhaseBiases[prn] = rec
	}

	return h, nil
}

func decodeURAMessage(r *bitio.Reader, sys gnss.System, state *State) (Header, error) {
	h, err := decodeHeader(r, sys, false)
	if err != nil {
		return Header{}, err
	}
	state.markSupplied(sys, KindURA)

	for i := 0; i < h.NumSatellites; i++ {
		if _, err := r.Take(satelliteIdBits(sys)); err != nil {
			return Header{}, err
		}
		if _, err := r.Take(6); err != nil {
			return Header{}, err
		}
	}

	return h, nil
}

func decodeVtec(r *bitio.Reader, state *State) (Header, error) {
	var h Header
	h.System = gnss.SysMIXED

	epoch, err := r.Take(20)
	if err != nil {
		return Header{}, err
	}
	h.EpochSec = float64(epoch)

	interval, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.UpdateInterval = UpdateIntervals[interval]

	mmi, err := r.Take(1)
	if err != nil {
		return Header{}, err
	}
	h.MultipleMessageIndicator = mmi != 0

	iod, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.IOD = uint8(iod)

	providerID, err := r.Take(16)
	if err != nil {
		return Header{}, err
	}
	solutionID, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.Provider = ProviderId{ProviderID: uint32(providerID), SolutionID: uint8(solutionID), IssueOfData: h.IOD}

	quality, err := r.TakeScaled(9, 1.0/20)
	if err != nil {
		return Header{}, err
	}

	numLayersRaw, err := r.Take(2)
	if err != nil {
		return Header{}, err
	}
	numLayers := int(numLayersRaw) + 1

	model := &VtecModel{
		UpdateIntervalTag: tagForInterval(h.UpdateInterval),
		Quality:           quality,
	}

	for l := 0; l < numLayers; l++ {
		heightRaw, err := r.Take(8)
		if err != nil {
			return Header{}, err
		}
		degreeRaw, err := r.Take(4)
		if err != nil {
			return Header{}, err
		}
		orderRaw, err := r.Take(4)
		if err != nil {
			return Header{}, err
		}
		degree := int(degreeRaw) + 1
		order := int(orderRaw) + 1

		layer := VtecLayer{
			HeightM: float64(heightRaw) * 1e4,
			Degree:  degree,
			Order:   order,
			C:       make([][]float64, degree+1),
			S:       make([][]float64, degree+1),
		}
		for d := range layer.C {
			layer.C[d] = make([]float64, order+1)
			layer.S[d] = make([]float64, order+1)
		}

		for o := 0; o <= order; o++ {
			for d := o; d <= degree; d++ {
				c, err := r.TakeSignedScaled(16, 5e-3)
				if err != nil {
					return Header{}, err
				}
				layer.C[d][o] = c
			}
		}
		for o := 1; o <= order; o++ {
			for d := o; d <= degree; d++ {
				s, err := r.TakeSignedScaled(16, 5e-3)
				if err != nil {
					return Header{}, err
				}
				layer.S[d][o] = s
			}
		}

		model.Layers = append(model.Layers, layer)
	}

	state.Vtec = model
	return h, nil
}

// tagForInterval recovers the 4-bit update-interval index from its decoded
// seconds value, for records that only store the UpdateIntervalTag.
func tagForInterval(seconds float64) uint8 {
	for i, v := range UpdateIntervals {
		if v == seconds {
			return uint8(i)
		}
	}
	return 0
}
