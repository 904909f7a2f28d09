package corrlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/pkg/gnss"
	"github.com/de-bkg/gnsshub/ssr"
)

// WriteOrbitBatch emits one ORBIT block for a batch of corrections
// sharing the same epoch, observed at wall-clock now (which drives
// rollover, not the correction's own GNSS time).
func (w *Writer) WriteOrbitBatch(now time.Time, batch []*ssr.OrbitCorrection) error {
	if len(batch) == 0 {
		return nil
	}
	lines := make([]string, len(batch))
	for i, oc := range batch {
		lines[i] = fmt.Sprintf("%s %d %d %g %g %g %g %g %g",
			oc.PRN, oc.UpdateIntervalTag, oc.IOD,
			oc.DeltaRSW[0], oc.DeltaRSW[1], oc.DeltaRSW[2],
			oc.DotDeltaRSW[0], oc.DotDeltaRSW[1], oc.DotDeltaRSW[2])
	}
	t := batch[0].Time
	return w.writeBlock(now, kindOrbit, t.Week, t.SecondsOfWeek, lines)
}

// WriteClockBatch emits one CLOCK block.
func (w *Writer) WriteClockBatch(now time.Time, batch []*ssr.ClockCorrection) error {
	if len(batch) == 0 {
		return nil
	}
	lines := make([]string, len(batch))
	for i, cc := range batch {
		lines[i] = fmt.Sprintf("%s %d %d %g %g %g",
			cc.PRN, cc.UpdateIntervalTag, cc.IOD, cc.DClk, cc.DotDClk, cc.DotDotDClk)
	}
	t := batch[0].Time
	return w.writeBlock(now, kindClock, t.Week, t.SecondsOfWeek, lines)
}

// WriteCodeBiasBatch emits one CBIAS block; each satellite's variable
// number of signal biases is packed as trailing "type:value" pairs.
func (w *Writer) WriteCodeBiasBatch(now time.Time, batch []*ssr.SatCodeBias) error {
	if len(batch) == 0 {
		return nil
	}
	lines := make([]string, len(batch))
	for i, b := range batch {
		line := fmt.Sprintf("%s %d", b.PRN, b.UpdateIntervalTag)
		for _, e := range b.Biases {
			line += fmt.Sprintf(" %s:%g", e.RinexType, e.BiasM)
		}
		lines[i] = line
	}
	t := batch[0].Time
	return w.writeBlock(now, kindCodeBias, t.Week, t.SecondsOfWeek, lines)
}

// WritePhaseBiasBatch emits one PBIAS block.
func (w *Writer) WritePhaseBiasBatch(now time.Time, batch []*ssr.SatPhaseBias) error {
	if len(batch) == 0 {
		return nil
	}
	lines := make([]string, len(batch))
	for i, b := range batch {
		line := fmt.Sprintf("%s %d %g %g", b.PRN, b.UpdateIntervalTag, b.YawAngle, b.YawRate)
		for _, e := range b.Biases {
			line += fmt.Sprintf(" %s:%g:%d:%d:%d", e.RinexType, e.BiasM, e.IntegerIndicator, e.WideLaneIndicator, e.DiscontinuityCounter)
		}
		lines[i] = line
	}
	t := batch[0].Time
	return w.writeBlock(now, kindPhaseBias, t.Week, t.SecondsOfWeek, lines)
}

// WriteVtec emits one VTEC block; each line is one spherical-harmonic
// layer, coefficients flattened row-major after the layer's degree and
// order, from which the reader reshapes them.
func (w *Writer) WriteVtec(now time.Time, v *ssr.VtecModel) error {
	if v == nil {
		return nil
	}
	lines := make([]string, len(v.Layers))
	for i, layer := range v.Layers {
		line := fmt.Sprintf("%g %d %d", layer.HeightM, layer.Degree, layer.Order)
		for d := range layer.C {
			for _, c := range layer.C[d] {
				line += fmt.Sprintf(" C:%g", c)
			}
		}
		for d := range layer.S {
			for _, s := range layer.S[d] {
				line += fmt.Sprintf(" S:%g", s)
			}
		}
		lines[i] = line
	}
	return w.writeBlock(now, kindVtec, v.Time.Week, v.Time.SecondsOfWeek, lines)
}

// DecodeOrbitBlock parses a Block written by WriteOrbitBatch back into
// OrbitCorrections.
func DecodeOrbitBlock(b Block) ([]*ssr.OrbitCorrection, error) {
	t := gnsstime.GnssTime{Week: b.Week, SecondsOfWeek: b.Seconds}
	out := make([]*ssr.OrbitCorrection, 0, len(b.Lines))
	for _, line := range b.Lines {
		var prnStr string
		var tag int
		var iod uint32
		var radial, along, cross, dRadial, dAlong, dCross float64
		if _, err := fmt.Sscanf(line, "%s %d %d %g %g %g %g %g %g",
			&prnStr, &tag, &iod, &radial, &along, &cross, &dRadial, &dAlong, &dCross); err != nil {
			return nil, fmt.Errorf("corrlog: malformed orbit line %q: %w", line, err)
		}
		prn, err := gnss.NewPRN(prnStr)
		if err != nil {
			return nil, err
		}
		out = append(out, &ssr.OrbitCorrection{
			PRN: prn, StaID: b.StaID, Time: t, UpdateIntervalTag: uint8(tag), IOD: iod,
			DeltaRSW:    [3]float64{radial, along, cross},
			DotDeltaRSW: [3]float64{dRadial, dAlong, dCross},
		})
	}
	return out, nil
}

// DecodeClockBlock parses a Block written by WriteClockBatch back into
// ClockCorrections.
func DecodeClockBlock(b Block) ([]*ssr.ClockCorrection, error) {
	t := gnsstime.GnssTime{Week: b.Week, SecondsOfWeek: b.Seconds}
	out := make([]*ssr.ClockCorrection, 0, len(b.Lines))
	for _, line := range b.Lines {
		var prnStr string
		var tag int
		var iod uint32
		var dclk, dotDclk, dotDotDclk float64
		if _, err := fmt.Sscanf(line, "%s %d %d %g %g %g", &prnStr, &tag, &iod, &dclk, &dotDclk, &dotDotDclk); err != nil {
			return nil, fmt.Errorf("corrlog: malformed clock line %q: %w", line, err)
		}
		prn, err := gnss.NewPRN(prnStr)
		if err != nil {
			return nil, err
		}
		out = append(out, &ssr.ClockCorrection{
			PRN: prn, StaID: b.StaID, Time: t, UpdateIntervalTag: uint8(tag), IOD: iod,
			DClk: dclk, DotDClk: dotDclk, DotDotDClk: dotDotDclk,
		})
	}
	return out, nil
}

// DecodeCodeBiasBlock parses a Block written by WriteCodeBiasBatch.
func DecodeCodeBiasBlock(b Block) ([]*ssr.SatCodeBias, error) {
	t := gnsstime.GnssTime{Week: b.Week, SecondsOfWeek: b.Seconds}
	out := make([]*ssr.SatCodeBias, 0, len(b.Lines))
	for _, line := range b.Lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("corrlog: malformed code-bias line %q", line)
		}
		prn, err := gnss.NewPRN(fields[0])
		if err != nil {
			return nil, err
		}
		tag, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed code-bias line %q: %w", line, err)
		}
		rec := &ssr.SatCodeBias{PRN: prn, StaID: b.StaID, Time: t, UpdateIntervalTag: uint8(tag)}
		for _, pair := range fields[2:] {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("corrlog: malformed code-bias entry %q", pair)
			}
			v, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("corrlog: malformed code-bias value %q: %w", pair, err)
			}
			rec.Biases = append(rec.Biases, ssr.CodeBiasEntry{RinexType: parts[0], BiasM: v})
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodePhaseBiasBlock parses a Block written by WritePhaseBiasBatch.
func DecodePhaseBiasBlock(b Block) ([]*ssr.SatPhaseBias, error) {
	t := gnsstime.GnssTime{Week: b.Week, SecondsOfWeek: b.Seconds}
	out := make([]*ssr.SatPhaseBias, 0, len(b.Lines))
	for _, line := range b.Lines {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("corrlog: malformed phase-bias line %q", line)
		}
		prn, err := gnss.NewPRN(fields[0])
		if err != nil {
			return nil, err
		}
		tag, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed phase-bias line %q: %w", line, err)
		}
		yaw, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed phase-bias line %q: %w", line, err)
		}
		yawRate, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed phase-bias line %q: %w", line, err)
		}
		rec := &ssr.SatPhaseBias{PRN: prn, StaID: b.StaID, Time: t, UpdateIntervalTag: uint8(tag), YawAngle: yaw, YawRate: yawRate}
		for _, entry := range fields[4:] {
			parts := strings.SplitN(entry, ":", 5)
			if len(parts) != 5 {
				return nil, fmt.Errorf("corrlog: malformed phase-bias entry %q", entry)
			}
			bias, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("corrlog: malformed phase-bias value %q: %w", entry, err)
			}
			integer, _ := strconv.Atoi(parts[2])
			wideLane, _ := strconv.Atoi(parts[3])
			discontinuity, _ := strconv.Atoi(parts[4])
			rec.Biases = append(rec.Biases, ssr.PhaseBiasEntry{
				RinexType: parts[0], BiasM: bias,
				IntegerIndicator: uint8(integer), WideLaneIndicator: uint8(wideLane), DiscontinuityCounter: uint8(discontinuity),
			})
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeVtecBlock parses a Block written by WriteVtec.
func DecodeVtecBlock(b Block) (*ssr.VtecModel, error) {
	t := gnsstime.GnssTime{Week: b.Week, SecondsOfWeek: b.Seconds}
	v := &ssr.VtecModel{StaID: b.StaID, Time: t}
	for _, line := range b.Lines {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("corrlog: malformed vtec line %q", line)
		}
		height, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed vtec line %q: %w", line, err)
		}
		degree, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed vtec line %q: %w", line, err)
		}
		order, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("corrlog: malformed vtec line %q: %w", line, err)
		}
		layer := ssr.VtecLayer{HeightM: height, Degree: degree, Order: order}

		var cVals, sVals []float64
		for _, tok := range fields[3:] {
			parts := strings.SplitN(tok, ":", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("corrlog: malformed vtec coefficient %q", tok)
			}
			val, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("corrlog: malformed vtec coefficient %q: %w", tok, err)
			}
			switch parts[0] {
			case "C":
				cVals = append(cVals, val)
			case "S":
				sVals = append(sVals, val)
			default:
				return nil, fmt.Errorf("corrlog: unknown vtec coefficient tag %q", parts[0])
			}
		}
		layer.C = reshape(cVals, layer.Degree, layer.Order)
		layer.S = reshape(sVals, layer.Degree, layer.Order)
		v.Layers = append(v.Layers, layer)
	}
	return v, nil
}

// reshape rebuilds the row-major [degree+1][order+1] coefficient grid
// WriteVtec flattened.
func reshape(flat []float64, degree, order int) [][]float64 {
	cols := order + 1
	out := make([][]float64, degree+1)
	for d := range out {
		row := make([]float64, cols)
		for o := 0; o < cols; o++ {
			idx := d*cols + o
			if idx < len(flat) {
				row[o] = flat[idx]
			}
		}
		out[d] = row
	}
	return out
}
