package ephemeris

import (
	"fmt"
	"sync"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/ssr"
)

// Registry holds the most recently decoded ephemeris per PRN, replacing an
// entry only when a newer one arrives (a strictly later TOC, or the same
// TOC with a changed IOD — a re-broadcast of the same record is a no-op).
// Safe for concurrent use: a stream decoder feeds it while multiple
// consumers evaluate positions.
type Registry struct {
	mu  sync.RWMutex
	byP map[gnss.PRN]Ephemeris
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byP: make(map[gnss.PRN]Ephemeris)}
}

// Put stores eph, replacing any existing entry for its PRN if eph is newer
// (per the TOC/IOD comparison documented on Registry).
func (r *Registry) Put(eph Ephemeris) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prn := eph.PRN()
	existing, ok := r.byP[prn]
	if !ok {
		r.byP[prn] = eph
		return
	}
	if eph.TOC().After(existing.TOC()) {
		r.byP[prn] = eph
		return
	}
	if eph.TOC() == existing.TOC() && eph.IOD() != existing.IOD() {
		r.byP[prn] = eph
	}
}

// Get returns the current ephemeris for prn, if any.
func (r *Registry) Get(prn gnss.PRN) (Ephemeris, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eph, ok := r.byP[prn]
	return eph, ok
}

// Position evaluates prn's current ephemeris at t, optionally folding in
// an SSR orbit/clock correction pair per spec.md §4.5. Either correction
// may be nil.
func (r *Registry) Position(prn gnss.PRN, t gnsstime.GnssTime, orbit *ssr.OrbitCorrection, clock *ssr.ClockCorrection) (State, error) {
	eph, ok := r.Get(prn)
	if !ok {
		return State{}, fmt.Errorf("ephemeris: no broadcast ephemeris stored for %s", prn)
	}
	base, err := eph.Position(t)
	if err != nil {
		return State{}, err
	}
	if orbit == nil && clock == nil {
		return base, nil
	}
	return ApplyCorrection(base, orbit, clock, t), nil
}

// Prune removes every stored ephemeris whose TOC is older than cutoff,
// bounding the registry's size as satellites cycle through broadcast
// updates over a long-running session.
func (r *Registry) Prune(cutoff gnsstime.GnssTime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for prn, eph := range r.byP {
		if eph.TOC().Before(cutoff) {
			delete(r.byP, prn)
		}
	}
}
