// Package stream implements the per-mountpoint SSR stream decoder: it
// turns an append-only byte stream of RTCM3-framed SSR messages into
// time-ordered batches of orbit, clock, bias and VTEC corrections.
package stream

import (
	"fmt"
	"log"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/ssr"
)

// Listener receives the events a Decoder produces. A provider-identity
// change is always delivered before any artifact batch carrying the new
// identity, matching the ordering guarantee of a single owner thread.
type Listener interface {
	OnProviderChanged(staId string, id ssr.ProviderId)
	OnOrbitCorrections(staId string, batch Batch[*ssr.OrbitCorrection])
	OnClockCorrections(staId string, batch Batch[*ssr.ClockCorrection])
	OnCodeBiases(staId string, batch Batch[*ssr.SatCodeBias])
	OnPhaseBiases(staId string, batch Batch[*ssr.SatPhaseBias])
	OnVtec(staId string, batch Batch[*ssr.VtecModel])
	OnWarning(staId string, msg string)
}

// epochObservation is one system's last-seen epoch seconds and satellite
// count within the multi-message group currently being accumulated.
type epochObservation struct {
	seconds  float64
	satCount int
}

// candidatePriority orders the epoch-candidate buckets the way spec.md
// §4.4/§4.6 name them: GPS (orbit/clock), GPS code/phase bias, VTEC,
// GLONASS, Galileo, QZSS, SBAS, BeiDou.
var candidatePriority = []struct {
	key string
	sys gnss.System
}{
	{"GPS", gnss.SysGPS},
	{"GPS_BIAS", gnss.SysGPS},
	{"VTEC", gnss.SysMIXED},
	{"GLO", gnss.SysGLO},
	{"GAL", gnss.SysGAL},
	{"QZSS", gnss.SysQZSS},
	{"SBAS", gnss.SysSBAS},
	{"BDS", gnss.SysBDS},
}

// emitOrder is the constellation-iteration order emitArtifacts uses.
var emitOrder = []gnss.System{
	gnss.SysGPS, gnss.SysGLO, gnss.SysGAL, gnss.SysQZSS, gnss.SysSBAS, gnss.SysBDS,
}

// Decoder is the per-mountpoint stream decoder state of spec.md §4.6.
// It is not safe for concurrent use: its owner thread is expected to
// drive it from a single blocking-read loop.
type Decoder struct {
	StaID    string
	Listener Listener

	buf   []byte
	state *ssr.State

	iods map[gnss.PRN]uint32

	orbitQ     *epochQueue[*ssr.OrbitCorrection]
	clockQ     *epochQueue[*ssr.ClockCorrection]
	codeBiasQ  *epochQueue[*ssr.SatCodeBias]
	phaseBiasQ *epochQueue[*ssr.SatPhaseBias]
	vtecQ      *epochQueue[*ssr.VtecModel]

	lastClockByPrn map[gnss.PRN]*ssr.ClockCorrection

	lastTime     gnsstime.GnssTime
	lastProvider ssr.ProviderId

	candidates map[string]epochObservation

	opts gnsstime.Options
}

// NewDecoder returns a Decoder for the stream identified by staId. listener
// may be nil, in which case warnings fall back to the standard logger and
// artifact batches are dropped on the floor.
func NewDecoder(staId string, listener Listener) *Decoder {
	return &Decoder{
		StaID:          staId,
		Listener:       listener,
		state:          ssr.NewState(),
		iods:           make(map[gnss.PRN]uint32),
		orbitQ:         newEpochQueue[*ssr.OrbitCorrection](),
		clockQ:         newEpochQueue[*ssr.ClockCorrection](),
		codeBiasQ:      newEpochQueue[*ssr.SatCodeBias](),
		phaseBiasQ:     newEpochQueue[*ssr.SatPhaseBias](),
		vtecQ:          newEpochQueue[*ssr.VtecModel](),
		lastClockByPrn: make(map[gnss.PRN]*ssr.ClockCorrection),
		candidates:     make(map[string]epochObservation),
		opts:           gnsstime.Options{GlonassLeapWorkaround: true},
	}
}

// Decode appends bytes to the stream's internal buffer and drains as many
// complete SSR epochs as it can, per spec.md §4.6's decode loop. currentWall
// anchors the GPS week for time resolution (typically gnsstime.FromTime of
// the owner thread's current wall clock); now feeds the leap-second table.
func (d *Decoder) Decode(bytes []byte, currentWall gnsstime.GnssTime, now time.Time) {
	d.buf = append(d.buf, bytes...)

	for len(d.buf) > 0 {
		snapshot := d.state.Snapshot()

		res, err := ssr.TryDecode(d.buf, d.state)
		if err != nil {
			d.warn(fmt.Sprintf("decode error: %v", err))
			d.advance(1)
			d.resetEpoch()
			continue
		}

		switch res.Kind {
		case ssr.ResultShortBuffer:
			d.state = snapshot
			return

		case ssr.ResultHardError:
			used := res.BytesUsed
			if used < 1 {
				used = 1
			}
			d.advance(used)
			d.resetEpoch()

		case ssr.ResultOk, ssr.ResultMessageFollows:
			d.advance(res.BytesUsed)
			d.recordCandidate(res)

			if res.Kind == ssr.ResultMessageFollows {
				continue
			}

			lastTime, ok := gnsstime.ResolveLastEpoch(d.buildCandidates(), currentWall, encodingFor(res.Encoding), d.opts, now)
			if !ok {
				d.warn("epoch group carried no satellites, dropped")
				d.resetEpoch()
				continue
			}
			d.lastTime = lastTime

			d.checkProvider(res.Header.Provider)
			d.emitArtifacts(res.Encoding)
			d.resetEpoch()
		}
	}
}

func (d *Decoder) advance(n int) {
	if n > len(d.buf) {
		n = len(d.buf)
	}
	d.buf = d.buf[n:]
}

func (d *Decoder) resetEpoch() {
	d.state = ssr.NewState()
	d.candidates = make(map[string]epochObservation)
}

func (d *Decoder) warn(msg string) {
	if d.Listener != nil {
		d.Listener.OnWarning(d.StaID, msg)
		return
	}
	log.Printf("%s: %s", d.StaID, msg)
}

func (d *Decoder) checkProvider(id ssr.ProviderId) {
	if id == d.lastProvider {
		return
	}
	d.lastProvider = id
	if d.Listener != nil {
		d.Listener.OnProviderChanged(d.StaID, id)
	}
}

func candidateKey(sys gnss.System, kind ssr.MessageKind) string {
	switch {
	case kind == ssr.KindVTEC:
		return "VTEC"
	case sys == gnss.SysGPS && (kind == ssr.KindCodeBias || kind == ssr.KindPhaseBias):
		return "GPS_BIAS"
	default:
		return sys.String()
	}
}

func (d *Decoder) recordCandidate(res ssr.Result) {
	key := candidateKey(res.Header.System, res.MessageKind)
	d.candidates[key] = epochObservation{seconds: res.Header.EpochSec, satCount: res.Header.NumSatellites}
}

func (d *Decoder) buildCandidates() []gnsstime.EpochCandidate {
	out := make([]gnsstime.EpochCandidate, 0, len(candidatePriority))
	for _, p := range candidatePriority {
		obs, ok := d.candidates[p.key]
		if !ok {
			continue
		}
		out = append(out, gnsstime.EpochCandidate{System: p.sys, Seconds: obs.seconds, SatCount: obs.satCount})
	}
	return out
}

func encodingFor(e ssr.Encoding) gnsstime.Encoding {
	if e == ssr.EncodingIGSSSR {
		return gnsstime.EncodingIGSSSR
	}
	return gnsstime.EncodingRTCMSSR
}

// emitArtifacts moves the current SSR working state into the EpochBuffer
// queues, applying the Table R range gates, the IOD-cache attach-or-skip
// rule for clocks, and then drains whatever is now ready.
func (d *Decoder) emitArtifacts(encoding ssr.Encoding) {
	for _, sys := range emitOrder {
		for prn, oc := range d.state.Orbits {
			if prn.Sys != sys {
				continue
			}
			if !validOrbit(oc, encoding) {
				d.warn(fmt.Sprintf("orbit correction for %s out of range, dropped", prn))
				continue
			}
			oc.Time = d.lastTime
			oc.StaID = d.StaID
			d.iods[prn] = oc.IOD
			d.orbitQ.add(d.lastTime, oc)
		}

		for prn, cc := range d.state.Clocks {
			if prn.Sys != sys {
				continue
			}
			if !validClock(cc, encoding) {
				d.warn(fmt.Sprintf("clock correction for %s out of range, dropped", prn))
				continue
			}
			iod, known := d.iods[prn]
			if !known {
				// The matching orbit has not been seen yet: per spec.md
				// §4.6 this clock is skipped (neither emitted nor kept)
				// rather than emitted without an IOD to tie it to.
				continue
			}
			cc.IOD = iod
			cc.Time = d.lastTime
			cc.StaID = d.StaID
			d.clockQ.add(d.lastTime, cc)
			d.lastClockByPrn[prn] = cc
		}

		for prn, bias := range d.state.CodeBiases {
			if prn.Sys != sys || len(bias.Biases) == 0 {
				continue
			}
			bias.Time = d.lastTime
			bias.StaID = d.StaID
			d.codeBiasQ.add(d.lastTime, bias)
		}

		for prn, bias := range d.state.PhaseBiases {
			if prn.Sys != sys || len(bias.Biases) == 0 {
				continue
			}
			bias.Time = d.lastTime
			bias.StaID = d.StaID
			d.phaseBiasQ.add(d.lastTime, bias)
		}
	}

	if d.state.Vtec != nil && len(d.state.Vtec.Layers) > 0 {
		d.state.Vtec.Time = d.lastTime
		d.state.Vtec.StaID = d.StaID
		d.vtecQ.add(d.lastTime, d.state.Vtec)
	}

	d.drain()
}

func (d *Decoder) drain() {
	for _, b := range d.orbitQ.drain(d.lastTime) {
		if d.Listener != nil {
			d.Listener.OnOrbitCorrections(d.StaID, b)
		}
	}
	for _, b := range d.clockQ.drain(d.lastTime) {
		if d.Listener != nil {
			d.Listener.OnClockCorrections(d.StaID, b)
		}
	}
	for _, b := range d.codeBiasQ.drain(d.lastTime) {
		if d.Listener != nil {
			d.Listener.OnCodeBiases(d.StaID, b)
		}
	}
	for _, b := range d.phaseBiasQ.drain(d.lastTime) {
		if d.Listener != nil {
			d.Listener.OnPhaseBiases(d.StaID, b)
		}
	}
	for _, b := range d.vtecQ.drain(d.lastTime) {
		if d.Listener != nil {
			d.Listener.OnVtec(d.StaID, b)
		}
	}
}
