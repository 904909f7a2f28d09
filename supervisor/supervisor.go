// Package supervisor implements the per-mountpoint latency and outage
// supervisor of spec.md §4.7: it watches the cadence of decoded batches
// and raw bytes for one stream, computes rolling latency averages over
// several aggregation windows, and raises outage/corrupted advisories
// and reconnect requests.
package supervisor

import (
	"log"
	"sync"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
)

// AggregationInterval is one of the rolling-average windows spec.md
// §4.7 names.
type AggregationInterval int

const (
	Interval2s AggregationInterval = iota
	Interval10s
	Interval1min
	Interval5min
	Interval15min
	Interval1h
	Interval6h
	Interval1day
)

// Intervals lists every AggregationInterval in ascending duration, the
// order Tick reports them in.
var Intervals = []AggregationInterval{
	Interval2s, Interval10s, Interval1min, Interval5min,
	Interval15min, Interval1h, Interval6h, Interval1day,
}

func (i AggregationInterval) Duration() time.Duration {
	switch i {
	case Interval2s:
		return 2 * time.Second
	case Interval10s:
		return 10 * time.Second
	case Interval1min:
		return time.Minute
	case Interval5min:
		return 5 * time.Minute
	case Interval15min:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval6h:
		return 6 * time.Hour
	case Interval1day:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ObservationRate is the user-configured expected rate a stream should
// be producing corrections at (spec.md §4.7/§6's adviseObsRate).
type ObservationRate int

const (
	RateNone ObservationRate = iota
	Rate0_1Hz
	Rate0_2Hz
	Rate0_5Hz
	Rate1Hz
	Rate5Hz
)

// Period returns the nominal inter-observation period implied by the
// rate, or 0 for RateNone (no expectation, no corrupted-rate check).
func (r ObservationRate) Period() time.Duration {
	switch r {
	case Rate0_1Hz:
		return 10 * time.Second
	case Rate0_2Hz:
		return 5 * time.Second
	case Rate0_5Hz:
		return 2 * time.Second
	case Rate1Hz:
		return time.Second
	case Rate5Hz:
		return 200 * time.Millisecond
	default:
		return 0
	}
}

// Thresholds configures the outage/recovery/reconnect timers, with the
// spec.md §4.7 defaults.
type Thresholds struct {
	// FailThreshold: no observation for this long -> BeginOutage.
	FailThreshold time.Duration
	// RecoveryThreshold: observations seen continuously this long
	// after an outage -> EndOutage.
	RecoveryThreshold time.Duration
	// ReconnectTimeout: no raw bytes at all for this long -> request a
	// reconnect from the stream decoder's owner.
	ReconnectTimeout time.Duration
	// CorruptedRate: decode success ratio over the aggregation window
	// below this fraction -> BeginCorrupted; above -> EndCorrupted.
	CorruptedRate float64

	Rate ObservationRate
}

// DefaultThresholds matches spec.md §4.7's stated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailThreshold:     15 * time.Minute,
		RecoveryThreshold: 5 * time.Minute,
		ReconnectTimeout:  10 * time.Second,
		CorruptedRate:     0.5,
		Rate:              RateNone,
	}
}

// Advisories receives the supervisor's outage/corruption/latency events.
// All methods are called from the supervisor's own Tick goroutine.
type Advisories interface {
	OnBeginOutage(staId string)
	OnEndOutage(staId string)
	OnBeginCorrupted(staId string)
	OnEndCorrupted(staId string)
	OnLatencyUpdate(staId string, interval AggregationInterval, avg time.Duration)
}

// Reconnector is called when no bytes have arrived for
// Thresholds.ReconnectTimeout; it is the supervisor's handle back to
// the stream decoder's owner thread.
type Reconnector func(staId string)

type latencySample struct {
	at      time.Time
	latency time.Duration
}

type decodeSample struct {
	at time.Time
	ok bool
}

// Supervisor tracks one mountpoint's observation cadence. It is safe
// for concurrent use: RecordBatch/RecordBytes/RecordDecode are called
// from the stream decoder's owner thread while Tick typically runs on
// its own timer goroutine.
type Supervisor struct {
	StaID       string
	Thresholds  Thresholds
	Advisories  Advisories
	Reconnector Reconnector

	mu sync.Mutex

	lastObservation time.Time
	lastBytes       time.Time
	inOutage        bool
	outageStableSince time.Time
	inCorrupted     bool

	latencies []latencySample
	decodes   []decodeSample
}

// New returns a Supervisor for staId. advisories/reconnector may be nil.
func New(staId string, thresholds Thresholds, advisories Advisories, reconnector Reconnector) *Supervisor {
	return &Supervisor{
		StaID:       staId,
		Thresholds:  thresholds,
		Advisories:  advisories,
		Reconnector: reconnector,
	}
}

// RecordBytes notes that raw bytes were just read from the stream's
// socket, resetting the reconnect-timeout clock.
func (s *Supervisor) RecordBytes(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBytes = now
}

// RecordBatch notes a decoded artifact batch for batchTime (the
// epoch's GNSS time), observed at wall-clock now. It updates the
// rolling latency window and the observation clock used for outage
// detection.
func (s *Supervisor) RecordBatch(batchTime gnsstime.GnssTime, now time.Time) {
	latency := time.Duration(gnsstime.FromTime(now).Sub(batchTime) * float64(time.Second))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastObservation = now
	s.latencies = append(s.latencies, latencySample{at: now, latency: latency})
	s.trimLatencies(now)
}

// RecordDecode notes the outcome of one decode attempt, feeding the
// corrupted-rate check.
func (s *Supervisor) RecordDecode(ok bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodes = append(s.decodes, decodeSample{at: now, ok: ok})
	s.trimDecodes(now)
}

func (s *Supervisor) trimLatencies(now time.Time) {
	cutoff := now.Add(-Interval1day.Duration())
	i := 0
	for ; i < len(s.latencies); i++ {
		if s.latencies[i].at.After(cutoff) {
			break
		}
	}
	s.latencies = s.latencies[i:]
}

func (s *Supervisor) trimDecodes(now time.Time) {
	cutoff := now.Add(-Interval1day.Duration())
	i := 0
	for ; i < len(s.decodes); i++ {
		if s.decodes[i].at.After(cutoff) {
			break
		}
	}
	s.decodes = s.decodes[i:]
}

// Tick runs the periodic checks spec.md §4.7 describes: outage/recovery
// transitions, corrupted-rate transitions, the reconnect-timeout
// callback, and a per-interval latency average report. It is meant to
// be called on a fixed cadence (e.g. every second) from its own
// goroutine.
func (s *Supervisor) Tick(now time.Time) {
	s.mu.Lock()
	lastObservation := s.lastObservation
	lastBytes := s.lastBytes
	latencies := append([]latencySample(nil), s.latencies...)
	decodes := append([]decodeSample(nil), s.decodes...)
	s.mu.Unlock()

	s.checkOutage(now, lastObservation)
	s.checkReconnect(now, lastBytes)
	s.checkCorrupted(now, decodes)
	s.reportLatencies(now, latencies)
}

func (s *Supervisor) checkOutage(now, lastObservation time.Time) {
	if lastObservation.IsZero() {
		return
	}
	silence := now.Sub(lastObservation)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inOutage && silence >= s.Thresholds.FailThreshold {
		s.inOutage = true
		s.outageStableSince = time.Time{}
		if s.Advisories != nil {
			s.Advisories.OnBeginOutage(s.StaID)
		}
		return
	}

	if s.inOutage && silence < s.Thresholds.FailThreshold {
		if s.outageStableSince.IsZero() {
			s.outageStableSince = now
		}
		if now.Sub(s.outageStableSince) >= s.Thresholds.RecoveryThreshold {
			s.inOutage = false
			s.outageStableSince = time.Time{}
			if s.Advisories != nil {
				s.Advisories.OnEndOutage(s.StaID)
			}
		}
	}
}

func (s *Supervisor) checkReconnect(now, lastBytes time.Time) {
	if lastBytes.IsZero() {
		return
	}
	if now.Sub(lastBytes) < s.Thresholds.ReconnectTimeout {
		return
	}
	if s.Reconnector != nil {
		s.Reconnector(s.StaID)
	} else {
		log.Printf("%s: no bytes for %s, no reconnector configured", s.StaID, s.Thresholds.ReconnectTimeout)
	}
}

func (s *Supervisor) checkCorrupted(now time.Time, decodes []decodeSample) {
	window := Interval5min.Duration()
	cutoff := now.Add(-window)

	total, good := 0, 0
	for _, d := range decodes {
		if d.at.Before(cutoff) {
			continue
		}
		total++
		if d.ok {
			good++
		}
	}
	if total == 0 {
		return
	}
	rate := float64(good) / float64(total)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inCorrupted && rate < s.Thresholds.CorruptedRate {
		s.inCorrupted = true
		if s.Advisories != nil {
			s.Advisories.OnBeginCorrupted(s.StaID)
		}
	} else if s.inCorrupted && rate >= s.Thresholds.CorruptedRate {
		s.inCorrupted = false
		if s.Advisories != nil {
			s.Advisories.OnEndCorrupted(s.StaID)
		}
	}
}

func (s *Supervisor) reportLatencies(now time.Time, latencies []latencySample) {
	if s.Advisories == nil {
		return
	}
	for _, interval := range Intervals {
		cutoff := now.Add(-interval.Duration())
		var sum time.Duration
		var count int
		for _, l := range latencies {
			if l.at.Before(cutoff) {
				continue
			}
			sum += l.latency
			count++
		}
		if count == 0 {
			continue
		}
		s.Advisories.OnLatencyUpdate(s.StaID, interval, sum/time.Duration(count))
	}
}
