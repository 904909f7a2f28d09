package rawsink

import (
	"strings"

	"github.com/adrianmo/go-nmea"
)

// GGAFix is the subset of an NMEA GGA sentence rawsink surfaces as
// feedback from a serial-connected receiver: the receiver's own fix,
// reported back up past the raw-byte passthrough path.
type GGAFix struct {
	Time          string
	Latitude      float64
	Longitude     float64
	FixQuality    string
	NumSatellites int64
	HDOP          float64
	Altitude      float64
}

// ParseGGA decodes a raw NMEA line into a GGAFix. ok is false for any
// non-GGA sentence, blank line, or checksum/parse failure.
func ParseGGA(line string) (fix GGAFix, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return GGAFix{}, false
	}

	s, err := nmea.Parse(line)
	if err != nil {
		return GGAFix{}, false
	}

	gga, isGGA := s.(nmea.GGA)
	if !isGGA {
		return GGAFix{}, false
	}

	return GGAFix{
		Time:          gga.Time.String(),
		Latitude:      gga.Latitude,
		Longitude:     gga.Longitude,
		FixQuality:    gga.FixQuality,
		NumSatellites: gga.NumSatellites,
		HDOP:          gga.HDOP,
		Altitude:      gga.Altitude,
	}, true
}
