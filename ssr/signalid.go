package ssr

import "github.com/de-bkg/gnsshub/pkg/gnss"

// rnxTypeFromId maps a per-system 5-bit SSR signalIdentifier to its RINEX-3
// two-character observation code, per spec.md §4.3. Unknown ids (not used
// by the given constellation, or reserved) return "", and the caller drops
// that subrecord's bias entry while keeping the rest of the record, per
// spec.
func rnxTypeFromId(sys gnss.System, id uint8) string {
	switch sys {
	case gnss.SysGPS:
		return gpsSignalIds[id]
	case gnss.SysGLO:
		return glonassSignalIds[id]
	case gnss.SysGAL:
		return galileoSignalIds[id]
	case gnss.SysQZSS:
		return qzssSignalIds[id]
	case gnss.SysBDS:
		return bdsSignalIds[id]
	case gnss.SysSBAS:
		return sbasSignalIds[id]
	default:
		return ""
	}
}

// idFromRnxType is the inverse of rnxTypeFromId: given a system and a
// RINEX-3 two-character observation code, it returns the signalIdentifier
// the encoder should write, and false if the code is not known for that
// system.
func idFromRnxType(sys gnss.System, rnxType string) (uint8, bool) {
	var table [32]string
	switch sys {
	case gnss.SysGPS:
		table = gpsSignalIds
	case gnss.SysGLO:
		table = glonassSignalIds
	case gnss.SysGAL:
		table = galileoSignalIds
	case gnss.SysQZSS:
		table = qzssSignalIds
	case gnss.SysBDS:
		table = bdsSignalIds
	case gnss.SysSBAS:
		table = sbasSignalIds
	default:
		return 0, false
	}
	for id, t := range table {
		if t == rnxType {
			return uint8(id), true
		}
	}
	return 0, false
}

// gpsSignalIds is anchored at spec.md §4.3's worked examples: 0=L1 C/A
// "1C", 5=L2 CA "2C", 15=L5 I "5I".
var gpsSignalIds = [32]string{
	0: "1C", 1: "1P", 2: "1W", 3: "1Y", 4: "1M",
	5: "2C", 6: "2D", 7: "2S", 8: "2L", 9: "2X", 10: "2P", 11: "2W",
	14: "5Q", 15: "5I", 16: "5X",
	17: "1S", 18: "1L", 19: "1X",
}

// glonassSignalIds is anchored at 0=L1 C/A "1C".
var glonassSignalIds = [32]string{
	0: "1C", 1: "1P", 2: "2C", 3: "2P", 4: "4A", 5: "4B", 6: "4X",
	7: "6A", 8: "6B", 9: "6X", 10: "3I", 11: "3Q", 12: "3X",
}

// galileoSignalIds is anchored at 1=E1 B "1B", 17=E5a Q "5Q".
var galileoSignalIds = [32]string{
	0: "1A", 1: "1B", 2: "1C", 3: "1X", 4: "1Z",
	5: "6A", 6: "6B", 7: "6C", 8: "6X", 9: "6Z",
	10: "7I", 11: "7Q", 12: "7X",
	13: "8I", 14: "8Q", 15: "8X",
	16: "5I", 17: "5Q", 18: "5X",
}

var qzssSignalIds = [32]string{
	0: "1C", 1: "1S", 2: "1L", 3: "1X",
	4: "2S", 5: "2L", 6: "2X",
	7: "5I", 8: "5Q", 9: "5X",
	10: "6S", 11: "6L", 12: "6X",
}

// bdsSignalIds is anchored at 0=B1 I "2I".
var bdsSignalIds = [32]string{
	0: "2I", 1: "2Q", 2: "2X",
	3: "6I", 4: "6Q", 5: "6X",
	6: "7I", 7: "7Q", 8: "7X",
	9: "1D", 10: "1P", 11: "1X",
	12: "5D", 13: "5P", 14: "5X",
}

var sbasSignalIds = [32]string{
	0: "1C", 1: "5I", 2: "5Q", 3: "5X",
}
