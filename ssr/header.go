package ssr

import (
	"github.com/de-bkg/gnsshub/internal/bitio"
	"github.com/de-bkg/gnsshub/pkg/gnss"
)

// epochTimeBits returns the width of the epochTime header field: 17 bits
// for GLONASS, 20 bits for every other constellation, per spec.md §4.3.
func epochTimeBits(sys gnss.System) int {
	if sys == gnss.SysGLO {
		return 17
	}
	return 20
}

// decodeHeader reads the fields common to every SSR message, per spec.md
// §4.3. hasRefDatum must be true for orbit and combined orbit/clock
// messages, which carry the extra satelliteReferenceDatum bit.
func decodeHeader(r *bitio.Reader, sys gnss.System, hasRefDatum bool) (Header, error) {
	var h Header
	h.System = sys

	epoch, err := r.Take(epochTimeBits(sys))
	if err != nil {
		return Header{}, err
	}
	h.EpochSec = float64(epoch)

	interval, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.UpdateInterval = UpdateIntervals[interval]

	mmi, err := r.Take(1)
	if err != nil {
		return Header{}, err
	}
	h.MultipleMessageIndicator = mmi != 0

	iod, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.IOD = uint8(iod)

	providerID, err := r.Take(16)
	if err != nil {
		return Header{}, err
	}
	solutionID, err := r.Take(4)
	if err != nil {
		return Header{}, err
	}
	h.Provider = ProviderId{ProviderID: uint32(providerID), SolutionID: uint8(solutionID), IssueOfData: h.IOD}

	if hasRefDatum {
		datum, err := r.Take(1)
		if err != nil {
			return Header{}, err
		}
		h.SatelliteReferenceDatum = datum != 0
	}

	numSat, err := r.Take(6)
	if err != nil {
		return Header{}, err
	}
	h.NumSatellites = int(numSat)

	return h, nil
}

// encodeHeader is the symmetric writer for decodeHeader.
func encodeHeader(w *bitio.Writer, h Header, hasRefDatum bool) error {
	if err := w.Put(uint64(h.EpochSec), epochTimeBits(h.System)); err != nil {
		return err
	}
	intervalIdx := uint64(0)
	for i, v := range UpdateIntervals {
		if v == h.UpdateInterval {
			intervalIdx = uint64(i)
			break
		}
	}
	if err := w.Put(intervalIdx, 4); err != nil {
		return err
	}
	mmi := uint64(0)
	if h.MultipleMessageIndicator {
		mmi = 1
	}
	if err := w.Put(mmi, 1); err != nil {
		return err
	}
	if err := w.Put(uint64(h.IOD), 4); err != nil {
		return err
	}
	if err := w.Put(uint64(h.Provider.ProviderID), 16); err != nil {
		return err
	}
	if err := w.Put(uint64(h.Provider.SolutionID), 4); err != nil {
		return err
	}
	if hasRefDatum {
		datum := uint64(0)
		if h.SatelliteReferenceDatum {
			datum = 1
		}
		if err := w.Put(datum, 1); err != nil {
			return err
		}
	}
	return w.Put(uint64(h.NumSatellites), 6)
}

// satelliteIdBits returns the width of the per-satellite satelliteId
// field: 4 bits for QZSS, 5 for GLONASS, 6 otherwise.
func satelliteIdBits(sys gnss.System) int {
	switch sys {
	case gnss.SysQZSS:
		return 4
	case gnss.SysGLO:
		return 5
	default:
		return 6
	}
}

// iodBits returns the width of the per-satellite orbit iod field per
// spec.md §4.3's per-system table.
func iodBits(sys gnss.System) int {
	switch sys {
	case gnss.SysGAL:
		return 10
	case gnss.SysSBAS:
		return 24
	case gnss.SysBDS:
		return 10
	default:
		return 8
	}
}
