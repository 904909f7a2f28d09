package stream

import (
	"testing"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/internal/bitio"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/rtcm3"
	"github.com/de-bkg/gnsshub/ssr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// combinedGPSFrame builds a single-satellite RTCM-SSR GPS combined
// orbit+clock message (MT 1060), mirroring decodeOrbitMessage's exact
// field layout so TryDecode accepts it without touching unexported
// ssr package helpers.
func combinedGPSFrame(t *testing.T, epochSec float64, providerID uint32, satNum int8, iod uint64,
	deltaRadial, deltaAlong, deltaCross, dA0 float64) []byte {
	t.Helper()

	w := bitio.NewWriter()
	require.NoError(t, w.Put(1060, 12)) // message number

	require.NoError(t, w.Put(uint64(epochSec), 20)) // epochTime (GPS: 20 bits)
	require.NoError(t, w.Put(2, 4))                 // updateInterval index 2 -> 5s
	require.NoError(t, w.Put(0, 1))                 // multipleMessageIndicator
	require.NoError(t, w.Put(1, 4))                 // message-level IOD
	require.NoError(t, w.Put(uint64(providerID), 16))
	require.NoError(t, w.Put(7, 4)) // solutionId
	require.NoError(t, w.Put(0, 1)) // satelliteReferenceDatum
	require.NoError(t, w.Put(1, 6)) // numSatellites

	require.NoError(t, w.Put(uint64(satNum), 6)) // satelliteId (GPS: 6 bits)
	require.NoError(t, w.Put(iod, 8))            // per-satellite iod (GPS: 8 bits)
	require.NoError(t, w.PutSignedScaled(deltaRadial, 1e-4, 22))
	require.NoError(t, w.PutSignedScaled(deltaAlong, 2.5e-4, 20))
	require.NoError(t, w.PutSignedScaled(deltaCross, 2.5e-4, 20))
	require.NoError(t, w.PutSignedScaled(0, 1e-6, 21))
	require.NoError(t, w.PutSignedScaled(0, 4e-6, 19))
	require.NoError(t, w.PutSignedScaled(0, 4e-6, 19))
	require.NoError(t, w.PutSignedScaled(dA0, 1e-4, 22))
	require.NoError(t, w.PutSignedScaled(0, 1e-6, 21))
	require.NoError(t, w.PutSignedScaled(0, 2e-8, 27))
	w.AlignToByte()

	frame, err := rtcm3.Encode(w.Bytes())
	require.NoError(t, err)
	return frame
}

type recordingListener struct {
	providerChanges []ssr.ProviderId
	orbitBatches    []Batch[*ssr.OrbitCorrection]
	clockBatches    []Batch[*ssr.ClockCorrection]
	warnings        []string
}

func (l *recordingListener) OnProviderChanged(staId string, id ssr.ProviderId) {
	l.providerChanges = append(l.providerChanges, id)
}
func (l *recordingListener) OnOrbitCorrections(staId string, batch Batch[*ssr.OrbitCorrection]) {
	l.orbitBatches = append(l.orbitBatches, batch)
}
func (l *recordingListener) OnClockCorrections(staId string, batch Batch[*ssr.ClockCorrection]) {
	l.clockBatches = append(l.clockBatches, batch)
}
func (l *recordingListener) OnCodeBiases(staId string, batch Batch[*ssr.SatCodeBias])   {}
func (l *recordingListener) OnPhaseBiases(staId string, batch Batch[*ssr.SatPhaseBias]) {}
func (l *recordingListener) OnVtec(staId string, batch Batch[*ssr.VtecModel])           {}
func (l *recordingListener) OnWarning(staId string, msg string) {
	l.warnings = append(l.warnings, msg)
}

func TestDecodeEmitsOrbitAndClockOncePastEpoch(t *testing.T) {
	listener := &recordingListener{}
	dec := NewDecoder("TEST00", listener)

	currentWall := gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 500}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	frame1 := combinedGPSFrame(t, 400, 7, 5, 10, 1.0, 2.0, 3.0, 0.5)
	dec.Decode(frame1, currentWall, now)

	assert.Empty(t, listener.orbitBatches, "nothing drains until a later epoch is observed")
	require.Len(t, listener.providerChanges, 1)
	assert.Equal(t, ssr.ProviderId{ProviderID: 7, SolutionID: 7, IssueOfData: 1}, listener.providerChanges[0])

	frame2 := combinedGPSFrame(t, 430, 7, 6, 11, 1.5, 0, 0, 0.1)
	dec.Decode(frame2, currentWall, now)

	require.Len(t, listener.providerChanges, 1, "same provider on the second message does not re-fire")

	require.Len(t, listener.orbitBatches, 1)
	batch := listener.orbitBatches[0]
	assert.Equal(t, gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 400}, batch.Time)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, gnss.PRN{Sys: gnss.SysGPS, Num: 5}, batch.Items[0].PRN)
	assert.InDelta(t, 1.0, batch.Items[0].DeltaRSW[0], 1e-4)

	require.Len(t, listener.clockBatches, 1)
	clockBatch := listener.clockBatches[0]
	assert.Equal(t, gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 400}, clockBatch.Time)
	require.Len(t, clockBatch.Items, 1)
	assert.Equal(t, uint32(10), clockBatch.Items[0].IOD)
	assert.InDelta(t, 0.5/ssr.SpeedOfLight, clockBatch.Items[0].DClk, 1e-12)
}

func TestDecodeDropsOutOfRangeOrbitAndSkipsItsClock(t *testing.T) {
	listener := &recordingListener{}
	dec := NewDecoder("TEST00", listener)

	currentWall := gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 500}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// deltaRadial of -209.7152m (the most negative 22-bit value at 1e-4m)
	// exceeds the ±209.7151m Table R bound.
	frame1 := combinedGPSFrame(t, 400, 7, 5, 10, -209.7152, 0, 0, 0.5)
	dec.Decode(frame1, currentWall, now)

	frame2 := combinedGPSFrame(t, 430, 7, 6, 11, 1.0, 0, 0, 0.1)
	dec.Decode(frame2, currentWall, now)

	assert.NotEmpty(t, listener.warnings)
	assert.Empty(t, listener.orbitBatches, "the range-violating satellite was dropped, so epoch 400 has no batch")
	assert.NotContains(t, dec.iods, gnss.PRN{Sys: gnss.SysGPS, Num: 5}, "a dropped orbit leaves no cached IOD")
	assert.Empty(t, listener.clockBatches, "the clock is skipped without a cached IOD")
	assert.Contains(t, dec.iods, gnss.PRN{Sys: gnss.SysGPS, Num: 6})
}

func TestDecodeShortBufferWaitsForMoreBytes(t *testing.T) {
	listener := &recordingListener{}
	dec := NewDecoder("TEST00", listener)

	frame := combinedGPSFrame(t, 400, 7, 5, 10, 1.0, 0, 0, 0.1)
	currentWall := gnsstime.GnssTime{Week: 2300, SecondsOfWeek: 500}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	dec.Decode(frame[:len(frame)-2], currentWall, now)
	assert.Empty(t, listener.orbitBatches)
	assert.Empty(t, listener.warnings)

	dec.Decode(frame[len(frame)-2:], currentWall, now)
	frame2 := combinedGPSFrame(t, 430, 7, 6, 11, 1.0, 0, 0, 0.1)
	dec.Decode(frame2, currentWall, now)
	require.Len(t, listener.orbitBatches, 1)
}
