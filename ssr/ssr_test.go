package ssr

import (
	"testing"

	"github.com/de-bkg/gnsshub/internal/bitio"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/rtcm3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURARoundTrip(t *testing.T) {
	for code := uint8(0); code < 63; code++ {
		v := URAToValue(code)
		got := ValueToURA(v)
		assert.LessOrEqual(t, int(got), int(code), "code %d -> %f -> %d", code, v, got)
	}
	assert.Equal(t, URACeiling, URAToValue(63))
	assert.Equal(t, uint8(63), ValueToURA(100))
}

func TestRnxTypeFromIdAnchors(t *testing.T) {
	assert.Equal(t, "1C", rnxTypeFromId(gnss.SysGPS, 0))
	assert.Equal(t, "2C", rnxTypeFromId(gnss.SysGPS, 5))
	assert.Equal(t, "5I", rnxTypeFromId(gnss.SysGPS, 15))
	assert.Equal(t, "1C", rnxTypeFromId(gnss.SysGLO, 0))
	assert.Equal(t, "1B", rnxTypeFromId(gnss.SysGAL, 1))
	assert.Equal(t, "5Q", rnxTypeFromId(gnss.SysGAL, 17))
	assert.Equal(t, "2I", rnxTypeFromId(gnss.SysBDS, 0))
	assert.Equal(t, "", rnxTypeFromId(gnss.SysGPS, 31))
}

func TestIdFromRnxTypeInverse(t *testing.T) {
	id, ok := idFromRnxType(gnss.SysGPS, "1C")
	require.True(t, ok)
	assert.Equal(t, uint8(0), id)

	_, ok = idFromRnxType(gnss.SysGPS, "zz")
	assert.False(t, ok)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		System:                   gnss.SysGPS,
		EpochSec:                 12345,
		UpdateInterval:           30,
		MultipleMessageIndicator: true,
		IOD:                      3,
		Provider:                 ProviderId{ProviderID: 1001, SolutionID: 2, IssueOfData: 3},
		SatelliteReferenceDatum:  true,
		NumSatellites:            5,
	}

	w := bitio.NewWriter()
	require.NoError(t, encodeHeader(w, h, true))

	r := bitio.NewReader(w.Bytes())
	got, err := decodeHeader(r, gnss.SysGPS, true)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestTryDecodeOrbitMessage(t *testing.T) {
	h := Header{
		System:         gnss.SysGPS,
		EpochSec:       400,
		UpdateInterval: 5,
		IOD:            1,
		Provider:       ProviderId{ProviderID: 42, SolutionID: 1},
		NumSatellites:  1,
	}

	w := bitio.NewWriter()
	require.NoError(t, w.Put(1057, 12))
	require.NoError(t, encodeHeader(w, h, true))
	require.NoError(t, w.Put(5, satelliteIdBits(gnss.SysGPS))) // satelliteId
	require.NoError(t, w.Put(10, iodBits(gnss.SysGPS)))        // iod
	require.NoError(t, w.PutSignedScaled(1.0, 1e-4, 22))
	require.NoError(t, w.PutSignedScaled(2.0, 2.5e-4, 20))
	require.NoError(t, w.PutSignedScaled(3.0, 2.5e-4, 20))
	require.NoError(t, w.PutSignedScaled(0.1, 1e-6, 21))
	require.NoError(t, w.PutSignedScaled(0.2, 4e-6, 19))
	require.NoError(t, w.PutSignedScaled(0.3, 4e-6, 19))
	w.AlignToByte()

	frame, err := rtcm3.Encode(w.Bytes())
	require.NoError(t, err)

	state := NewState()
	res, err := TryDecode(frame, state)
	require.NoError(t, err)
	assert.Equal(t, ResultOk, res.Kind)
	assert.Equal(t, EncodingRTCMSSR, res.Encoding)
	assert.Equal(t, len(frame), res.BytesUsed)

	prn := gnss.PRN{Sys: gnss.SysGPS, Num: 5}
	got := state.Orbits[prn]
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, got.DeltaRSW[0], 1e-4)
	assert.InDelta(t, 2.0, got.DeltaRSW[1], 2.5e-4)
	assert.Equal(t, uint32(10), got.IOD)
}

func TestTryDecodeShortBuffer(t *testing.T) {
	state := NewState()
	res, err := TryDecode([]byte{0xD3, 0x00}, state)
	require.NoError(t, err)
	assert.Equal(t, ResultShortBuffer, res.Kind)
}

func TestTryDecodeUnknownMessageNumberIsHardError(t *testing.T) {
	w := bitio.NewWriter()
	require.NoError(t, w.Put(9999, 12))
	w.AlignToByte()
	frame, err := rtcm3.Encode(w.Bytes())
	require.NoError(t, err)

	state := NewState()
	res, err := TryDecode(frame, state)
	require.NoError(t, err)
	assert.Equal(t, ResultHardError, res.Kind)
}

func TestDecodeBadSatIdIsDataMismatch(t *testing.T) {
	h := Header{System: gnss.SysGPS, NumSatellites: 1}
	w := bitio.NewWriter()
	require.NoError(t, w.Put(1058, 12))
	require.NoError(t, encodeHeader(w, h, false))
	require.NoError(t, w.Put(99, satelliteIdBits(gnss.SysGPS)))
	w.AlignToByte()
	frame, err := rtcm3.Encode(w.Bytes())
	require.NoError(t, err)

	state := NewState()
	res, err := TryDecode(frame, state)
	require.NoError(t, err)
	assert.Equal(t, ResultHardError, res.Kind)
}
