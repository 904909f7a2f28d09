// Package rtcm3 wraps and unwraps RTCM3 transport frames: the 0xD3
// preamble, 10-bit payload length, payload, and trailing 24-bit CRC-Q.
package rtcm3

import (
	"errors"
	"fmt"

	"github.com/de-bkg/gnsshub/internal/crc24q"
)

// Preamble is the fixed first byte of every RTCM3 frame.
const Preamble = 0xD3

// MaxPayloadLen is the largest payload a 10-bit length field can encode.
const MaxPayloadLen = 1023

// FrameErrorKind classifies why Decode could not produce a frame.
type FrameErrorKind int

// Recognised frame decode outcomes.
const (
	// ShortBuffer means the buffer may hold a valid frame once more bytes
	// arrive; the caller must retain it unchanged.
	ShortBuffer FrameErrorKind = iota
	// UnknownData means byte 0 is not the preamble, or the reserved bits
	// are nonzero; the caller should advance one byte and retry.
	UnknownData
	// MessageExceedsBuffer means the declared length exceeds what is
	// currently buffered; the caller must retain the buffer and wait.
	MessageExceedsBuffer
	// CrcMismatch means the trailing CRC-24Q did not verify.
	CrcMismatch
)

func (k FrameErrorKind) String() string {
	switch k {
	case ShortBuffer:
		return "short buffer"
	case UnknownData:
		return "unknown data"
	case MessageExceedsBuffer:
		return "message exceeds buffer"
	case CrcMismatch:
		return "crc mismatch"
	default:
		return "unknown frame error"
	}
}

// FrameError reports a frame-decode failure together with the number of
// bytes the caller should discard to resume (0 means "discard exactly one
// byte"), matching spec.md §4.2's fail-softly contract.
type FrameError struct {
	Kind      FrameErrorKind
	BytesUsed int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("rtcm3: %s", e.Kind)
}

// Unwrap returns ErrShortBuffer for a ShortBuffer error and nil otherwise,
// so errors.Is(err, ErrShortBuffer) matches.
func (e *FrameError) Unwrap() error {
	if e.Kind == ShortBuffer {
		return ErrShortBuffer
	}
	return nil
}

// ErrShortBuffer is returned (wrapped in a FrameError) when the buffer does
// not yet hold enough bytes to make a decision; callers can test with
// errors.Is.
var ErrShortBuffer = errors.New("rtcm3: short buffer")

// Decode attempts to extract one RTCM3 frame's payload from the head of
// buf. On success it returns the payload slice (aliasing buf) and the
// number of bytes consumed including header and CRC. On failure it returns
// a *FrameError describing how the caller should recover.
func Decode(buf []byte) (payload []byte, bytesConsumed int, err error) {
	if len(buf) < 3 {
		return nil, 0, &FrameError{Kind: ShortBuffer}
	}
	if buf[0] != Preamble {
		return nil, 0, &FrameError{Kind: UnknownData, BytesUsed: 1}
	}
	if buf[1]&0xFC != 0 {
		return nil, 0, &FrameError{Kind: UnknownData, BytesUsed: 1}
	}

	length := (int(buf[1]&0x03) << 8) | int(buf[2])
	total := length + 6
	if len(buf) < total {
		return nil, 0, &FrameError{Kind: MessageExceedsBuffer}
	}

	want := crc24q.Checksum(buf[:length+3])
	got := uint32(buf[length+3])<<16 | uint32(buf[length+4])<<8 | uint32(buf[length+5])
	if want != got {
		return nil, 0, &FrameError{Kind: CrcMismatch, BytesUsed: total}
	}

	return buf[3 : length+3], total, nil
}

// Encode wraps payload (which must be at most MaxPayloadLen bytes) in an
// RTCM3 frame with a freshly computed CRC-24Q trailer.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("rtcm3: payload too long: %d bytes", len(payload))
	}

	frame := make([]byte, 3+len(payload)+3)
	frame[0] = Preamble
	frame[1] = byte(len(payload) >> 8 & 0x03)
	frame[2] = byte(len(payload))
	copy(frame[3:], payload)

	crc := crc24q.Checksum(frame[:3+len(payload)])
	frame[3+len(payload)] = byte(crc >> 16)
	frame[3+len(payload)+1] = byte(crc >> 8)
	frame[3+len(payload)+2] = byte(crc)

	return frame, nil
}

// MessageNumber reads the 12-bit message number from the first bytes of a
// decoded frame payload, the convention every RTCM3 message body shares.
func MessageNumber(payload []byte) (int, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("rtcm3: payload too short for message number")
	}
	return int(payload[0])<<4 | int(payload[1])>>4, nil
}
