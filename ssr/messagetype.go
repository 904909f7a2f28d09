package ssr

import "github.com/de-bkg/gnsshub/pkg/gnss"

// rtcmMsgInfo describes what a legacy RTCM-SSR message number decodes into.
type rtcmMsgInfo struct {
	System gnss.System
	Kind   MessageKind
}

// rtcmMessages maps the legacy per-constellation RTCM-SSR message numbers
// (MT 1057-1068, 1240-1270, 1264, 1265) to their system and kind, per
// spec.md §4.3.
var rtcmMessages = map[int]rtcmMsgInfo{
	1057: {gnss.SysGPS, KindOrbit},
	1058: {gnss.SysGPS, KindClock},
	1059: {gnss.SysGPS, KindCodeBias},
	1060: {gnss.SysGPS, KindCombined},
	1061: {gnss.SysGPS, KindURA},
	1062: {gnss.SysGPS, KindHighRateClock},

	1063: {gnss.SysGLO, KindOrbit},
	1064: {gnss.SysGLO, KindClock},
	1065: {gnss.SysGLO, KindCodeBias},
	1066: {gnss.SysGLO, KindCombined},
	1067: {gnss.SysGLO, KindURA},
	1068: {gnss.SysGLO, KindHighRateClock},

	1240: {gnss.SysGAL, KindOrbit},
	1241: {gnss.SysGAL, KindClock},
	1242: {gnss.SysGAL, KindCodeBias},
	1243: {gnss.SysGAL, KindCombined},
	1244: {gnss.SysGAL, KindURA},
	1245: {gnss.SysGAL, KindHighRateClock},

	1246: {gnss.SysQZSS, KindOrbit},
	1247: {gnss.SysQZSS, KindClock},
	1248: {gnss.SysQZSS, KindCodeBias},
	1249: {gnss.SysQZSS, KindCombined},
	1250: {gnss.SysQZSS, KindURA},
	1251: {gnss.SysQZSS, KindHighRateClock},

	1252: {gnss.SysSBAS, KindOrbit},
	1253: {gnss.SysSBAS, KindClock},
	1254: {gnss.SysSBAS, KindCodeBias},
	1255: {gnss.SysSBAS, KindCombined},
	1256: {gnss.SysSBAS, KindURA},
	1257: {gnss.SysSBAS, KindHighRateClock},

	1258: {gnss.SysBDS, KindOrbit},
	1259: {gnss.SysBDS, KindClock},
	1260: {gnss.SysBDS, KindCodeBias},
	1261: {gnss.SysBDS, KindCombined},
	1262: {gnss.SysBDS, KindURA},
	1263: {gnss.SysBDS, KindHighRateClock},

	1264: {gnss.SysMIXED, KindVTEC},

	1265: {gnss.SysGPS, KindPhaseBias},
	1266: {gnss.SysGLO, KindPhaseBias},
	1267: {gnss.SysGAL, KindPhaseBias},
	1268: {gnss.SysQZSS, KindPhaseBias},
	1269: {gnss.SysSBAS, KindPhaseBias},
	1270: {gnss.SysBDS, KindPhaseBias},
}

// igsMessageNumber is the single IGS-SSR envelope message number; the
// correction kind and constellation are carried in an 8-bit subtype field
// inside the payload instead of the message number.
const igsMessageNumber = 4076

// igsBase is the per-system base value the IGS-SSR subtype byte is offset
// from.
var igsBase = map[gnss.System]uint8{
	gnss.SysGPS:  1,
	gnss.SysGLO:  11,
	gnss.SysGAL:  21,
	gnss.SysQZSS: 31,
	gnss.SysBDS:  41,
	gnss.SysSBAS: 51,
}

// igsOffset is the within-system offset for each correction kind, mirroring
// the ORBIT/CLOCK/COMBINED/HR/CBIAS/PBIAS/URA ordering spec.md §4.3
// describes for subtype classification.
var igsOffset = map[MessageKind]uint8{
	KindOrbit:         0,
	KindClock:         1,
	KindCombined:      2,
	KindHighRateClock: 3,
	KindCodeBias:      4,
	KindPhaseBias:     5,
	KindURA:           6,
}

// igsSubtype resolves an 8-bit IGS-SSR subtype byte to its constellation
// and correction kind. VTEC (a system-independent subtype) is handled by
// the caller before this lookup.
func igsSubtype(subtype uint8) (gnss.System, MessageKind, bool) {
	for sys, base := range igsBase {
		if subtype < base {
			continue
		}
		offset := subtype - base
		for kind, off := range igsOffset {
			if off == offset {
				return sys, kind, true
			}
		}
	}
	return 0, 0, false
}

// igsVtecSubtype is the fixed subtype value IGS-SSR uses for its VTEC
// message, which (unlike the other kinds) is not tied to one constellation.
const igsVtecSubtype = 201
