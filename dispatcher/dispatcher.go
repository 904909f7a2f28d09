// Package dispatcher implements the central hub of spec.md §4's C9: it
// multiplexes the decoded artifacts, provider-identity changes, latency
// updates, outage advisories and raw bytes of every mountpoint's stream
// decoder out to whichever consumers have subscribed.
//
// The fan-out structure is grounded on bramburn-gnssgo's
// pkg/caster.InMemorySourceService: one buffered, drop-on-full channel
// per subscriber, so a slow consumer cannot block a stream decoder's
// owner thread (spec.md §5's "producers never block" rule applies here
// just as it does to the upload caster's outBuffer).
package dispatcher

import (
	"sync"

	"github.com/google/uuid"

	"github.com/de-bkg/gnsshub/ssr"
)

// Kind tags which field of an Event is populated.
type Kind int

const (
	KindOrbitCorrections Kind = iota
	KindClockCorrections
	KindCodeBiases
	KindPhaseBiases
	KindVtec
	KindProviderIdChanged
	KindLatencyUpdate
	KindOutage
	KindRawBytes
)

// OutageKind distinguishes the four onOutage variants spec.md §6 names.
type OutageKind int

const (
	OutageBegin OutageKind = iota
	OutageEnd
	OutageCorruptedBegin
	OutageCorruptedEnd
)

// Event is the dispatcher's single wire type, matching the "Consumer
// events" surface of spec.md §6 as one tagged union rather than nine
// separate channels, so a subscriber only needs one receive loop.
type Event struct {
	Kind  Kind
	StaID string

	OrbitCorrections []*ssr.OrbitCorrection
	ClockCorrections []*ssr.ClockCorrection
	CodeBiases       []*ssr.SatCodeBias
	PhaseBiases      []*ssr.SatPhaseBias
	Vtec             *ssr.VtecModel

	LatencySeconds float64
	Outage         OutageKind
	RawBytes       []byte
}

// subscriberQueueSize is the per-subscriber buffered-channel depth;
// beyond this a slow consumer starts losing events rather than
// blocking the publishing stream decoder.
const subscriberQueueSize = 64

type subscriber struct {
	id     uuid.UUID
	events chan Event
}

// Hub is the dispatcher. One Hub instance serves every mountpoint;
// events carry StaID so a subscriber can filter or fan in across
// streams as it sees fit.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[uuid.UUID]*subscriber)}
}

// Subscription is the handle returned by Subscribe: Events delivers
// this subscriber's events in the order the Hub received them from
// each publisher (FIFO per publisher/subscriber pair, since a single
// channel preserves the send order of its single-threaded producer
// loop in Publish).
type Subscription struct {
	ID     uuid.UUID
	Events <-chan Event
}

// Subscribe registers a new consumer and returns its Subscription.
// Call Unsubscribe when done to release the channel.
func (h *Hub) Subscribe() Subscription {
	sub := &subscriber{id: uuid.New(), events: make(chan Event, subscriberQueueSize)}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	return Subscription{ID: sub.id, Events: sub.events}
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		close(sub.events)
	}
}

// Publish fans ev out to every current subscriber. A subscriber whose
// queue is full drops the event rather than stalling the caller, per
// spec.md §5's no-blocking-producer rule.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.events <- ev:
		default:
		}
	}
}

// PublishOrbitCorrections is a convenience wrapper matching the
// stream.Listener callback shape so the wiring in cmd/gnsshub stays
// one call per callback.
func (h *Hub) PublishOrbitCorrections(staId string, batch []*ssr.OrbitCorrection) {
	h.Publish(Event{Kind: KindOrbitCorrections, StaID: staId, OrbitCorrections: batch})
}

func (h *Hub) PublishClockCorrections(staId string, batch []*ssr.ClockCorrection) {
	h.Publish(Event{Kind: KindClockCorrections, StaID: staId, ClockCorrections: batch})
}

func (h *Hub) PublishCodeBiases(staId string, batch []*ssr.SatCodeBias) {
	h.Publish(Event{Kind: KindCodeBiases, StaID: staId, CodeBiases: batch})
}

func (h *Hub) PublishPhaseBiases(staId string, batch []*ssr.SatPhaseBias) {
	h.Publish(Event{Kind: KindPhaseBiases, StaID: staId, PhaseBiases: batch})
}

func (h *Hub) PublishVtec(staId string, v *ssr.VtecModel) {
	h.Publish(Event{Kind: KindVtec, StaID: staId, Vtec: v})
}

func (h *Hub) PublishProviderIdChanged(staId string) {
	h.Publish(Event{Kind: KindProviderIdChanged, StaID: staId})
}

func (h *Hub) PublishLatencyUpdate(staId string, meanLatencySec float64) {
	h.Publish(Event{Kind: KindLatencyUpdate, StaID: staId, LatencySeconds: meanLatencySec})
}

func (h *Hub) PublishOutage(staId string, kind OutageKind) {
	h.Publish(Event{Kind: KindOutage, StaID: staId, Outage: kind})
}

func (h *Hub) PublishRawBytes(staId string, raw []byte) {
	h.Publish(Event{Kind: KindRawBytes, StaID: staId, RawBytes: raw})
}
