package dispatcher

import (
	"time"

	"github.com/de-bkg/gnsshub/ssr"
	"github.com/de-bkg/gnsshub/stream"
	"github.com/de-bkg/gnsshub/supervisor"
)

// StreamListener adapts a Hub into a stream.Listener, so a
// stream.Decoder can publish directly into the dispatcher without its
// owner needing any glue code.
type StreamListener struct {
	Hub *Hub
}

var _ stream.Listener = StreamListener{}

func (l StreamListener) OnProviderChanged(staId string, id ssr.ProviderId) {
	l.Hub.PublishProviderIdChanged(staId)
}

func (l StreamListener) OnOrbitCorrections(staId string, batch stream.Batch[*ssr.OrbitCorrection]) {
	l.Hub.PublishOrbitCorrections(staId, batch.Items)
}

func (l StreamListener) OnClockCorrections(staId string, batch stream.Batch[*ssr.ClockCorrection]) {
	l.Hub.PublishClockCorrections(staId, batch.Items)
}

func (l StreamListener) OnCodeBiases(staId string, batch stream.Batch[*ssr.SatCodeBias]) {
	l.Hub.PublishCodeBiases(staId, batch.Items)
}

func (l StreamListener) OnPhaseBiases(staId string, batch stream.Batch[*ssr.SatPhaseBias]) {
	l.Hub.PublishPhaseBiases(staId, batch.Items)
}

func (l StreamListener) OnVtec(staId string, batch stream.Batch[*ssr.VtecModel]) {
	for _, v := range batch.Items {
		l.Hub.PublishVtec(staId, v)
	}
}

func (l StreamListener) OnWarning(staId string, msg string) {
	// Warnings are operational noise, not part of the consumer event
	// surface spec.md §6 enumerates; left to the owner's logger.
}

// SupervisorAdvisories adapts a Hub into a supervisor.Advisories.
type SupervisorAdvisories struct {
	Hub *Hub
}

var _ supervisor.Advisories = SupervisorAdvisories{}

func (a SupervisorAdvisories) OnBeginOutage(staId string) {
	a.Hub.PublishOutage(staId, OutageBegin)
}

func (a SupervisorAdvisories) OnEndOutage(staId string) {
	a.Hub.PublishOutage(staId, OutageEnd)
}

func (a SupervisorAdvisories) OnBeginCorrupted(staId string) {
	a.Hub.PublishOutage(staId, OutageCorruptedBegin)
}

func (a SupervisorAdvisories) OnEndCorrupted(staId string) {
	a.Hub.PublishOutage(staId, OutageCorruptedEnd)
}

func (a SupervisorAdvisories) OnLatencyUpdate(staId string, interval supervisor.AggregationInterval, avg time.Duration) {
	a.Hub.PublishLatencyUpdate(staId, avg.Seconds())
}
