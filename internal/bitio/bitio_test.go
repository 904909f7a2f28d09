package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Put(0xD3, 8))
	require.NoError(t, w.Put(0x3FF, 10))
	require.NoError(t, w.Put(1, 1))

	r := NewReader(w.Bytes())
	v, err := r.Take(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xD3), v)

	v, err = r.Take(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3FF), v)

	v, err = r.Take(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestTakeWideField(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Put(0x0123456789ABCDEF, 64))
	r := NewReader(w.Bytes())
	v, err := r.Take(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789ABCDEF), v)
}

func TestTakeSignedRoundTrip(t *testing.T) {
	cases := []int64{-1, 0, 1, -100, 100, -(1 << 21), (1 << 21) - 1}
	for _, v := range cases {
		w := NewWriter()
		require.NoError(t, w.PutSigned(v, 22))
		r := NewReader(w.Bytes())
		got, err := r.TakeSigned(22)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestTakeSignedScaled(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutSignedScaled(0.1234, 1e-4, 22))
	r := NewReader(w.Bytes())
	got, err := r.TakeSignedScaled(22, 1e-4)
	require.NoError(t, err)
	assert.InDelta(t, 0.1234, got, 1e-4)
}

func TestTakeSignMagnitudeScaled(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutSignMagnitudeScaled(-12.5, 0.5, 9))
	r := NewReader(w.Bytes())
	got, err := r.TakeSignMagnitudeScaled(9, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, -12.5, got, 0.5)
}

func TestShortMessage(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := r.Take(9)
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestSkipAndAlign(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Put(0x1, 1))
	w.AlignToByte()
	require.NoError(t, w.Put(0xAB, 8))

	r := NewReader(w.Bytes())
	v, err := r.Take(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	r.AlignToByte()
	v, err = r.Take(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB), v)
}

func TestMaxWidthFields(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Put(0xFFFFFFFFFFFFFFFF, 64))
	r := NewReader(w.Bytes())
	v, err := r.Take(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), v)
}
