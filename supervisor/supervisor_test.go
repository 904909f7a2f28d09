package supervisor

import (
	"testing"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAdvisories struct {
	beginOutage     int
	endOutage       int
	beginCorrupted  int
	endCorrupted    int
	latencyUpdates  []time.Duration
}

func (r *recordingAdvisories) OnBeginOutage(staId string)    { r.beginOutage++ }
func (r *recordingAdvisories) OnEndOutage(staId string)      { r.endOutage++ }
func (r *recordingAdvisories) OnBeginCorrupted(staId string) { r.beginCorrupted++ }
func (r *recordingAdvisories) OnEndCorrupted(staId string)   { r.endCorrupted++ }
func (r *recordingAdvisories) OnLatencyUpdate(staId string, interval AggregationInterval, avg time.Duration) {
	r.latencyUpdates = append(r.latencyUpdates, avg)
}

func TestOutageBeginsAfterFailThresholdAndEndsAfterRecovery(t *testing.T) {
	adv := &recordingAdvisories{}
	thresholds := Thresholds{FailThreshold: time.Minute, RecoveryThreshold: 30 * time.Second, ReconnectTimeout: time.Hour}
	s := New("TEST00", thresholds, adv, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.RecordBatch(gnsstime.FromTime(base), base)

	s.Tick(base.Add(30 * time.Second))
	assert.Equal(t, 0, adv.beginOutage, "within the fail threshold, no outage yet")

	s.Tick(base.Add(90 * time.Second))
	assert.Equal(t, 1, adv.beginOutage)

	recoverAt := base.Add(91 * time.Second)
	s.RecordBatch(gnsstime.FromTime(recoverAt), recoverAt)
	s.Tick(recoverAt)
	assert.Equal(t, 0, adv.endOutage, "recovery threshold has not elapsed yet")

	s.Tick(recoverAt.Add(31 * time.Second))
	assert.Equal(t, 1, adv.endOutage)
}

func TestReconnectRequestedAfterByteSilence(t *testing.T) {
	var requested []string
	thresholds := Thresholds{FailThreshold: time.Hour, RecoveryThreshold: time.Minute, ReconnectTimeout: 10 * time.Second}
	s := New("TEST00", thresholds, nil, func(staId string) { requested = append(requested, staId) })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.RecordBytes(base)

	s.Tick(base.Add(5 * time.Second))
	assert.Empty(t, requested)

	s.Tick(base.Add(11 * time.Second))
	require.Len(t, requested, 1)
	assert.Equal(t, "TEST00", requested[0])
}

func TestCorruptedRateTransitionsOnDecodeRatio(t *testing.T) {
	adv := &recordingAdvisories{}
	thresholds := DefaultThresholds()
	thresholds.CorruptedRate = 0.5
	s := New("TEST00", thresholds, adv, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		s.RecordDecode(false, base.Add(time.Duration(i)*time.Second))
	}
	for i := 8; i < 10; i++ {
		s.RecordDecode(true, base.Add(time.Duration(i)*time.Second))
	}
	s.Tick(base.Add(10 * time.Second))
	assert.Equal(t, 1, adv.beginCorrupted)

	for i := 10; i < 30; i++ {
		s.RecordDecode(true, base.Add(time.Duration(i)*time.Second))
	}
	s.Tick(base.Add(30 * time.Second))
	assert.Equal(t, 1, adv.endCorrupted)
}

func TestLatencyUpdateReportsPerIntervalAverage(t *testing.T) {
	adv := &recordingAdvisories{}
	s := New("TEST00", DefaultThresholds(), adv, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batchTime := gnsstime.FromTime(base)
	observedAt := base.Add(2 * time.Second)
	s.RecordBatch(batchTime, observedAt)

	s.Tick(observedAt)
	require.NotEmpty(t, adv.latencyUpdates)
	assert.InDelta(t, 2*time.Second, adv.latencyUpdates[0], float64(100*time.Millisecond))
}
