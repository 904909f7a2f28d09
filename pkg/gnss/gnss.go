// Package gnss contains common constants and type definitions shared by
// every component that deals with a multi-constellation satellite
// identity: the satellite system enum, the PRN (system, number) pair and
// its navigation-message-type flag.
package gnss

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysNavIC
	SysSBAS
	SysMIXED

	// SysIRNSS is an alias for SysNavIC; India's regional system was
	// renamed from IRNSS to NavIC, both names are still in common use.
	SysIRNSS = SysNavIC
)

func (sys System) String() string {
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "IRNSS", "SBAS", "MIXED"}[sys]
}

// Abbr returns the systems' abbreviation used in RINEX.
func (sys System) Abbr() string {
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON renders a System as its RINEX abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return json.Marshal(sys.Abbr())
}

// MaxPRN returns the highest satellite number the RTCM/RINEX encodings
// reserve for this system. Used to range-check satelliteId subrecords.
func (sys System) MaxPRN() int {
	switch sys {
	case SysGPS:
		return 32
	case SysGLO:
		return 24 // RTCM-SSR uses a 5-bit field, IDs run 1..24
	case SysGAL:
		return 36
	case SysQZSS:
		return 10
	case SysBDS:
		return 63
	case SysNavIC:
		return 14
	case SysSBAS:
		return 39 // PRN 120..158 mapped to 1..39 internally
	default:
		return 0
	}
}

// ByAbbr maps a RINEX system abbreviation to its System value.
var ByAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysNavIC,
	"S": SysSBAS,
	"M": SysMIXED,
}

// GNSSForAbbr is a historic alias of ByAbbr, kept for source compatibility.
var GNSSForAbbr = ByAbbr

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems in sitelog manner GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}

// ParseSatSystems parses a combined satellite system string as found in
// NTRIP sourcetables and sitelogs, e.g. "GPS+GLO+GAL+BDS+SBAS+IRNSS".
func ParseSatSystems(s string) (Systems, error) {
	r := strings.NewReplacer("/", "+", "GLONASS", "GLO", "GALILEO", "GAL", "BEIDOU", "BDS")
	s = r.Replace(s)

	parts := strings.Split(s, "+")
	sysList := make(Systems, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		sys, ok := byName[part]
		if !ok {
			return nil, fmt.Errorf("gnss: invalid satellite system: %q", part)
		}
		sysList = append(sysList, sys)
	}

	return sysList, nil
}

var byName = map[string]System{
	"GPS":  SysGPS,
	"GLO":  SysGLO,
	"GAL":  SysGAL,
	"QZSS": SysQZSS,
	"BDS":  SysBDS,
	"IRNSS": SysNavIC,
	"NavIC": SysNavIC,
	"SBAS": SysSBAS,
	"MIXED": SysMIXED,
}

// NavType identifies the broadcast navigation-message type a PRN's
// ephemeris or correction was derived from. Several constellations
// broadcast more than one message type concurrently (e.g. GPS LNAV and
// CNAV), and SSR code/phase-bias records must be tied to the right one.
type NavType int

// Recognised navigation message types.
const (
	NavUndefined NavType = iota
	NavLNAV              // GPS/QZSS legacy navigation
	NavCNAV              // GPS/QZSS civil navigation (L2C/L5)
	NavCNV1              // Galileo/BDS CNAV-1 (B1C)
	NavCNV2              // GPS/BDS CNAV-2 (L1C / B1C variant)
	NavCNV3              // BDS CNAV-3 (B2b)
	NavFDMA              // GLONASS frequency-division navigation
	NavFNAV              // Galileo F/NAV (E5a)
	NavINAV              // Galileo I/NAV (E1/E5b)
	NavD1                // BeiDou D1 (MEO/IGSO)
	NavD2                // BeiDou D2 (GEO)
	NavSBASL1            // SBAS L1 navigation
	NavL1NV              // NavIC L1 navigation
	NavL1OC              // GLONASS L1OC
	NavL3OC              // GLONASS L3OC
)

func (nt NavType) String() string {
	switch nt {
	case NavLNAV:
		return "LNAV"
	case NavCNAV:
		return "CNAV"
	case NavCNV1:
		return "CNV1"
	case NavCNV2:
		return "CNV2"
	case NavCNV3:
		return "CNV3"
	case NavFDMA:
		return "FDMA"
	case NavFNAV:
		return "FNAV"
	case NavINAV:
		return "INAV"
	case NavD1:
		return "D1"
	case NavD2:
		return "D2"
	case NavSBASL1:
		return "SBAS-L1"
	case NavL1NV:
		return "L1NV"
	case NavL1OC:
		return "L1OC"
	case NavL3OC:
		return "L3OC"
	default:
		return "undefined"
	}
}

// PRN identifies a GNSS satellite: a system and a satellite number
// within that system, plus the navigation-message-type flag that
// disambiguates which broadcast variant a correction or ephemeris
// applies to.
type PRN struct {
	Sys     System
	Num     int8
	NavType NavType
}

// NewPRN parses a PRN given in RINEX notation, e.g. "G12", "E07". The
// returned PRN carries NavUndefined; callers that know the message type
// should set it explicitly.
func NewPRN(s string) (PRN, error) {
	if len(s) < 2 {
		return PRN{}, fmt.Errorf("gnss: invalid PRN %q", s)
	}
	sys, ok := ByAbbr[s[:1]]
	if !ok {
		return PRN{}, fmt.Errorf("gnss: invalid satellite system in PRN %q", s)
	}
	num, err := strconv.Atoi(strings.TrimSpace(s[1:]))
	if err != nil {
		return PRN{}, fmt.Errorf("gnss: parse satellite number %q: %w", s, err)
	}
	if num < 1 || num > 255 {
		return PRN{}, fmt.Errorf("gnss: satellite number out of range: %q", s)
	}
	return PRN{Sys: sys, Num: int8(num)}, nil
}

// String is a PRN Stringer, e.g. "G12".
func (prn PRN) String() string {
	return fmt.Sprintf("%s%02d", prn.Sys.Abbr(), prn.Num)
}

// ByPRN implements sort.Interface based on the PRN's system and number.
type ByPRN []PRN

func (p ByPRN) Len() int      { return len(p) }
func (p ByPRN) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p ByPRN) Less(i, j int) bool {
	if p[i].Sys != p[j].Sys {
		return p[i].Sys < p[j].Sys
	}
	return p[i].Num < p[j].Num
}

// Receiver describes a GNSS receiver as found in site logs.
type Receiver struct {
	Type        string
	SatSystems  Systems
	SerialNum   string
	Firmware    string
	ElevCutoff  float64
	DateInstall string
	DateRemove  string
}

// Antenna describes a GNSS antenna as found in site logs.
type Antenna struct {
	Type        string
	SerialNum   string
	RefPoint    string
	EccUp       float64
	EccNorth    float64
	EccEast     float64
	DateInstall string
	DateRemove  string
}
