package rawsink

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig configures a SerialSink's underlying port. Defaults
// match the TOPGNSS-class receivers bramburn-go_ntrip targets.
type SerialConfig struct {
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
	Timeout  time.Duration
}

// DefaultSerialConfig returns the 38400-8-N-1 configuration common to
// low-cost GNSS receivers.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate: 38400,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		Timeout:  500 * time.Millisecond,
	}
}

// SerialSink is a Sink that writes decoded correction bytes to a
// locally attached serial port, and can optionally watch the same port
// for NMEA GGA feedback sentences.
type SerialSink struct {
	port  serial.Port
	onGGA func(GGAFix)
}

// OpenSerialSink opens portName with cfg and returns a ready SerialSink.
func OpenSerialSink(portName string, cfg SerialConfig) (*SerialSink, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("rawsink: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("rawsink: set read timeout: %w", err)
	}
	return &SerialSink{port: port}, nil
}

// Write implements Sink.
func (s *SerialSink) Write(data []byte) (int, error) {
	return s.port.Write(data)
}

// Close implements Sink.
func (s *SerialSink) Close() error {
	return s.port.Close()
}

// OnGGA registers fn to be called for each GGA feedback sentence
// WatchFeedback decodes.
func (s *SerialSink) OnGGA(fn func(GGAFix)) {
	s.onGGA = fn
}

// WatchFeedback reads lines off the serial port until stop is closed,
// decoding NMEA GGA sentences and invoking the OnGGA callback for each.
// It returns nil on a clean stop, or the first read error otherwise.
func (s *SerialSink) WatchFeedback(stop <-chan struct{}) error {
	var buf []byte
	chunk := make([]byte, 256)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := s.port.Read(chunk)
		if err != nil {
			return fmt.Errorf("rawsink: read feedback: %w", err)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, chunk[:n]...)

		for {
			idx := bytes.IndexByte(buf, '\n')
			if idx < 0 {
				break
			}
			line := string(buf[:idx])
			buf = buf[idx+1:]
			if fix, ok := ParseGGA(line); ok && s.onGGA != nil {
				s.onGGA(fix)
			}
		}
	}
}
