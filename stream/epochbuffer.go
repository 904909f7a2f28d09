package stream

import (
	"sort"

	"github.com/de-bkg/gnsshub/gnsstime"
)

// epochQueue is one artifact kind's per-epoch accumulator: entries keyed by
// GnssTime, drained in ascending key order once the decoder's lastTime has
// advanced past them (spec.md §4.6's EpochBuffer/drain-policy invariant).
type epochQueue[T any] struct {
	entries map[gnsstime.GnssTime][]T
}

func newEpochQueue[T any]() *epochQueue[T] {
	return &epochQueue[T]{entries: make(map[gnsstime.GnssTime][]T)}
}

func (q *epochQueue[T]) add(t gnsstime.GnssTime, v T) {
	q.entries[t] = append(q.entries[t], v)
}

// drain removes and returns, in ascending time order, every entry whose key
// is strictly less than lastTime.
func (q *epochQueue[T]) drain(lastTime gnsstime.GnssTime) []Batch[T] {
	var ready []gnsstime.GnssTime
	for t := range q.entries {
		if t.Before(lastTime) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Before(ready[j]) })

	out := make([]Batch[T], 0, len(ready))
	for _, t := range ready {
		out = append(out, Batch[T]{Time: t, Items: q.entries[t]})
		delete(q.entries, t)
	}
	return out
}

// Batch is one epoch's worth of a single artifact kind, ready for dispatch.
type Batch[T any] struct {
	Time  gnsstime.GnssTime
	Items []T
}
