package ephemeris

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// timeOfClockFormat is RINEX3/4's fixed-width broadcast epoch layout,
// e.g. "2020  6 17  2  0  0".
const timeOfClockFormat = "2006  1  2 15  4  5"

var sysPerAbbr = map[string]gnss.System{
	"G": gnss.SysGPS,
	"R": gnss.SysGLO,
	"E": gnss.SysGAL,
	"J": gnss.SysQZSS,
	"C": gnss.SysBDS,
	"I": gnss.SysNavIC,
	"S": gnss.SysSBAS,
}

// Decoder reads RINEX navigation records (v3/v4 text format) and
// constructs the typed Ephemeris values the registry needs.
//
// Only the Keplerian 8-line body (GPS/Galileo/QZSS/NavIC/BeiDou D1/D2) and
// the 4-line GLONASS/SBAS polynomial bodies are parsed; the newer 9/10-line
// CNAV/CNV1/CNV2/CNV3 bodies share the same first eight fields this decoder
// reads and are accepted with their trailing lines skipped, since none of
// those extra fields (additional clock/group-delay terms) feed Position.
type Decoder struct {
	sc      *bufio.Scanner
	version float32
	lineNum int
	err     error

	pending string // one line read while probing for a header, not yet consumed
	current Ephemeris
}

// NewDecoder creates a decoder for RINEX navigation data read from r. If a
// header is present its RINEX VERSION / TYPE line is consulted; absent a
// header the stream is assumed to be RINEX3, matching how real-time feeds
// splice in nav data without a file header.
func NewDecoder(r io.Reader) (*Decoder, error) {
	dec := &Decoder{sc: bufio.NewScanner(r), version: 3}

	for dec.sc.Scan() {
		dec.lineNum++
		line := dec.sc.Text()
		if dec.lineNum == 1 && !strings.Contains(line, "RINEX VERSION / TYPE") {
			// No header: the first line already is nav data.
			dec.pending = line
			break
		}
		if len(line) >= 61 && strings.Contains(line[60:], "RINEX VERSION / TYPE") {
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[:20]), 32); err == nil {
				dec.version = float32(v)
			}
		}
		if len(line) >= 73 && strings.Contains(line[60:], "END OF HEADER") {
			break
		}
	}

	return dec, dec.sc.Err()
}

// nextLine returns the pending line saved during header probing before
// falling back to the underlying scanner.
func (dec *Decoder) nextLine() (string, bool) {
	if dec.pending != "" {
		line := dec.pending
		dec.pending = ""
		return line, true
	}
	if !dec.sc.Scan() {
		return "", false
	}
	dec.lineNum++
	return dec.sc.Text(), true
}

// Err returns the first non-EOF error encountered.
func (dec *Decoder) Err() error {
	if dec.err == io.EOF {
		return nil
	}
	return dec.err
}

// Ephemeris returns the most recently decoded record.
func (dec *Decoder) Ephemeris() Ephemeris { return dec.current }

// Next decodes the next navigation record. It returns false at EOF or on
// the first error, which Err then reports.
func (dec *Decoder) Next() bool {
	header, ok := dec.nextLine()
	if !ok {
		dec.err = dec.sc.Err()
		return false
	}
	if len(header) < 3 {
		dec.err = fmt.Errorf("ephemeris: short record header at line %d: %q", dec.lineNum, header)
		return false
	}

	sys, ok := sysPerAbbr[header[:1]]
	if !ok {
		dec.err = fmt.Errorf("ephemeris: unknown satellite system %q at line %d", header[:1], dec.lineNum)
		return false
	}

	nLines := 8
	switch sys {
	case gnss.SysGLO, gnss.SysSBAS:
		nLines = 4
	}

	lines := make([]string, 1, nLines)
	lines[0] = header
	for i := 1; i < nLines; i++ {
		line, ok := dec.nextLine()
		if !ok {
			dec.err = fmt.Errorf("ephemeris: truncated record starting at line %d: %w", dec.lineNum, io.ErrUnexpectedEOF)
			return false
		}
		lines = append(lines, line)
	}

	// Skip any further indented continuation lines of longer record
	// bodies, keeping the next record's header line for the next call.
	for {
		line, ok := dec.nextLine()
		if !ok {
			break
		}
		if line != "" && line[0] != ' ' {
			dec.pending = line
			break
		}
	}

	eph, err := decodeRecord(sys, lines)
	if err != nil {
		dec.err = err
		return false
	}
	dec.current = eph
	return true
}

func decodeRecord(sys gnss.System, lines []string) (Ephemeris, error) {
	prn, toc, err := parsePRNAndToc(sys, lines[0])
	if err != nil {
		return nil, err
	}

	switch sys {
	case gnss.SysGLO:
		return decodeGlonassRecord(prn, toc, lines)
	case gnss.SysSBAS:
		return decodeSbasRecord(prn, toc, lines)
	case gnss.SysBDS:
		k, err := decodeKeplerRecord(prn, toc, lines)
		if err != nil {
			return nil, err
		}
		return NewBDSEphemeris(k), nil
	case gnss.SysGPS:
		k, err := decodeKeplerRecord(prn, toc, lines)
		if err != nil {
			return nil, err
		}
		return NewGPSEphemeris(k), nil
	case gnss.SysQZSS:
		k, err := decodeKeplerRecord(prn, toc, lines)
		if err != nil {
			return nil, err
		}
		return NewQZSSEphemeris(k), nil
	case gnss.SysGAL:
		k, err := decodeKeplerRecord(prn, toc, lines)
		if err != nil {
			return nil, err
		}
		return NewGalileoEphemeris(k), nil
	case gnss.SysNavIC:
		k, err := decodeKeplerRecord(prn, toc, lines)
		if err != nil {
			return nil, err
		}
		return NewNavICEphemeris(k), nil
	default:
		return nil, fmt.Errorf("ephemeris: unsupported satellite system %v", sys)
	}
}

func parsePRNAndToc(sys gnss.System, line string) (gnss.PRN, gnsstime.GnssTime, error) {
	if len(line) < 23 {
		return gnss.PRN{}, gnsstime.GnssTime{}, fmt.Errorf("ephemeris: short epoch line %q", line)
	}
	num, err := strconv.Atoi(strings.TrimSpace(line[1:3]))
	if err != nil {
		return gnss.PRN{}, gnsstime.GnssTime{}, fmt.Errorf("ephemeris: parse satellite number %q: %w", line, err)
	}
	prn := gnss.PRN{Sys: sys, Num: int8(num)}

	ts, err := time.Parse(timeOfClockFormat, line[4:23])
	if err != nil {
		return gnss.PRN{}, gnsstime.GnssTime{}, fmt.Errorf("ephemeris: parse TOC %q: %w", line, err)
	}
	return prn, gnsstime.FromTime(ts.UTC()), nil
}

// parseFloatsNavLine parses a continuation line's four D19.12 fields,
// which follow a four-column indent (4X,4D19.12). A field past the end
// of a short line reads as 0.
func parseFloatsNavLine(s string) (f1, f2, f3, f4 float64, err error) {
	get := func(off int) (float64, error) {
		if len(s) < off+19 {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(s[off:off+19]), 64)
	}
	if f1, err = get(4); err != nil {
		return
	}
	if f2, err = get(23); err != nil {
		return
	}
	if f3, err = get(42); err != nil {
		return
	}
	f4, err = get(61)
	return
}

func decodeKeplerRecord(prn gnss.PRN, toc gnsstime.GnssTime, lines []string) (*KeplerEphemeris, error) {
	if len(lines) < 8 {
		return nil, fmt.Errorf("ephemeris: kepler record needs 8 lines, got %d", len(lines))
	}
	clockBias, err := strconv.ParseFloat(strings.TrimSpace(lines[0][23:23+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse clock bias: %w", err)
	}
	clockDrift, err := strconv.ParseFloat(strings.TrimSpace(lines[0][42:42+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse clock drift: %w", err)
	}
	clockDriftRate, err := strconv.ParseFloat(strings.TrimSpace(lines[0][61:61+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse clock drift rate: %w", err)
	}

	e := &KeplerEphemeris{
		Prn:            prn,
		Toc:            toc,
		ClockBias:      clockBias,
		ClockDrift:     clockDrift,
		ClockDriftRate: clockDriftRate,
	}

	var iode, toeSec, toeWeek, ura, health, iodc float64

	if iode, e.Crs, e.DeltaN, e.M0, err = parseFloatsNavLine(lines[1]); err != nil {
		return nil, err
	}
	if e.Cuc, e.Ecc, e.Cus, e.SqrtA, err = parseFloatsNavLine(lines[2]); err != nil {
		return nil, err
	}
	if toeSec, e.Cic, e.Omega0, e.Cis, err = parseFloatsNavLine(lines[3]); err != nil {
		return nil, err
	}
	if e.I0, e.Crc, e.Omega, e.OmegaDot, err = parseFloatsNavLine(lines[4]); err != nil {
		return nil, err
	}
	if e.IDOT, _, toeWeek, _, err = parseFloatsNavLine(lines[5]); err != nil {
		return nil, err
	}
	if ura, health, e.TGD, iodc, err = parseFloatsNavLine(lines[6]); err != nil {
		return nil, err
	}

	e.IODE = uint32(iode)
	e.IODC = uint32(iodc)
	e.URA = ura
	e.Health = int(health)
	e.Toe = gnsstime.GnssTime{Week: int(toeWeek), SecondsOfWeek: toeSec}.Normalize()

	return e, nil
}

func decodeGlonassRecord(prn gnss.PRN, toc gnsstime.GnssTime, lines []string) (*GlonassEphemeris, error) {
	if len(lines) < 4 {
		return nil, fmt.Errorf("ephemeris: glonass record needs 4 lines, got %d", len(lines))
	}
	// RINEX stores the GLONASS clock field as -TauN, not TauN itself.
	negTauN, err := strconv.ParseFloat(strings.TrimSpace(lines[0][23:23+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse TauN: %w", err)
	}
	gammaN, err := strconv.ParseFloat(strings.TrimSpace(lines[0][42:42+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse GammaN: %w", err)
	}

	e := &GlonassEphemeris{Prn: prn, Toc: toc, TauN: -negTauN, GammaN: gammaN}

	var freq, health float64
	if e.Pos[0], e.Vel[0], e.Acc[0], health, err = parseFloatsNavLine(lines[1]); err != nil {
		return nil, err
	}
	if e.Pos[1], e.Vel[1], e.Acc[1], freq, err = parseFloatsNavLine(lines[2]); err != nil {
		return nil, err
	}
	if e.Pos[2], e.Vel[2], e.Acc[2], _, err = parseFloatsNavLine(lines[3]); err != nil {
		return nil, err
	}
	for i := range e.Pos {
		e.Pos[i] *= 1000
		e.Vel[i] *= 1000
		e.Acc[i] *= 1000
	}
	e.Health = int(health)
	e.FrequencyNumber = int(freq)
	e.IODValue = uint32(toc.SecondsOfWeek)

	return e, nil
}

func decodeSbasRecord(prn gnss.PRN, toc gnsstime.GnssTime, lines []string) (*SbasEphemeris, error) {
	if len(lines) < 4 {
		return nil, fmt.Errorf("ephemeris: sbas record needs 4 lines, got %d", len(lines))
	}
	aGf0, err := strconv.ParseFloat(strings.TrimSpace(lines[0][23:23+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse AGf0: %w", err)
	}
	aGf1, err := strconv.ParseFloat(strings.TrimSpace(lines[0][42:42+19]), 64)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: parse AGf1: %w", err)
	}

	e := &SbasEphemeris{Prn: prn, Toc: toc, Toe: toc, AGf0: aGf0, AGf1: aGf1}

	var health, ura float64
	if _, e.Pos[0], e.Vel[0], e.Acc[0], err = parseFloatsNavLine(lines[1]); err != nil {
		return nil, err
	}
	if e.Pos[1], e.Vel[1], e.Acc[1], health, err = parseFloatsNavLine(lines[2]); err != nil {
		return nil, err
	}
	if e.Pos[2], e.Vel[2], e.Acc[2], ura, err = parseFloatsNavLine(lines[3]); err != nil {
		return nil, err
	}
	for i := range e.Pos {
		e.Pos[i] *= 1000
		e.Vel[i] *= 1000
		e.Acc[i] *= 1000
	}
	e.Health = int(health)
	e.URA = ura

	return e, nil
}
