package rtcm3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x43, 0xF0, 0x01, 0x02, 0x03, 0x04, 0x05}
	frame, err := Encode(payload)
	require.NoError(t, err)

	got, n, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, payload, got)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, _, err := Decode([]byte{0xD3, 0x00})
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ShortBuffer, fe.Kind)
}

func TestDecodeUnknownPreamble(t *testing.T) {
	_, _, err := Decode([]byte{0xAA, 0x00, 0x00, 0x00, 0x00, 0x00})
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, UnknownData, fe.Kind)
	assert.Equal(t, 1, fe.BytesUsed)
}

func TestDecodeReservedBitsNonzero(t *testing.T) {
	buf := []byte{0xD3, 0x04, 0x00, 0x00, 0x00, 0x00}
	_, _, err := Decode(buf)
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, UnknownData, fe.Kind)
}

func TestDecodeMessageExceedsBuffer(t *testing.T) {
	buf := []byte{0xD3, 0x00, 0x05, 0x01, 0x02}
	_, _, err := Decode(buf)
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, MessageExceedsBuffer, fe.Kind)
}

func TestDecodeCrcMismatch(t *testing.T) {
	payload := []byte{0x43, 0xF0, 0x01}
	frame, err := Encode(payload)
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	_, _, err = Decode(frame)
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, CrcMismatch, fe.Kind)
	assert.Equal(t, len(frame), fe.BytesUsed)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := Encode(make([]byte, MaxPayloadLen+1))
	assert.Error(t, err)
}

func TestMessageNumber(t *testing.T) {
	n, err := MessageNumber([]byte{0xFF, 0xF0})
	require.NoError(t, err)
	assert.Equal(t, 4095, n)
}
