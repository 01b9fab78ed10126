package edf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrAnnotationOverflow is returned when annotations do not fit into the
// annotation signal of a data record.
var ErrAnnotationOverflow = errors.New("edf: annotations exceed record capacity")

// Write encodes an EDF file. digital holds the raw samples of every
// ordinary signal, indexed like h.Signals; entries for annotation signals
// are ignored. The number of data records is taken from the longest
// signal. Annotations are placed in the first annotation signal of the
// record their onset falls into, after the record's time-keeping TAL.
func Write(w io.Writer, h Header, digital [][]int16, annotations []Annotation) error {
	ns := len(h.Signals)
	if ns == 0 {
		return fmt.Errorf("%w: no signals", ErrMalformedHeader)
	}
	if len(digital) != ns {
		return fmt.Errorf("%w: %d data slices for %d signals", ErrMalformedHeader, len(digital), ns)
	}
	if h.RecordDuration <= 0 {
		return fmt.Errorf("%w: record duration %v", ErrMalformedHeader, h.RecordDuration)
	}

	annIdx := -1
	records := 0
	for i, s := range h.Signals {
		if s.SamplesPerRecord < 1 {
			return fmt.Errorf("%w: signal %d has %d samples per record", ErrMalformedHeader, i, s.SamplesPerRecord)
		}
		if s.IsAnnotation() {
			if annIdx < 0 {
				annIdx = i
			}
			continue
		}
		n := (len(digital[i]) + s.SamplesPerRecord - 1) / s.SamplesPerRecord
		records = max(records, n)
	}
	if len(annotations) > 0 && annIdx < 0 {
		return fmt.Errorf("%w: annotations without an annotation signal", ErrMalformedHeader)
	}

	recSecs := h.RecordDuration.Seconds()
	if records == 0 {
		records = 1
		for _, a := range annotations {
			records = max(records, int(a.Onset/recSecs)+1)
		}
	}

	perRecord := make([][]Annotation, records)
	for _, a := range annotations {
		rec := min(max(int(a.Onset/recSecs), 0), records-1)
		perRecord[rec] = append(perRecord[rec], a)
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, h, records)

	for rec := range records {
		for i, s := range h.Signals {
			if s.IsAnnotation() {
				var anns []Annotation
				if i == annIdx {
					anns = perRecord[rec]
				}
				block, err := encodeTALs(float64(rec)*recSecs, anns, 2*s.SamplesPerRecord)
				if err != nil {
					return fmt.Errorf("record %d: %w", rec, err)
				}
				if _, err := bw.Write(block); err != nil {
					return err
				}
				continue
			}

			var sample [2]byte
			for k := range s.SamplesPerRecord {
				var v int16
				if idx := rec*s.SamplesPerRecord + k; idx < len(digital[i]) {
					v = digital[i][idx]
				}
				binary.LittleEndian.PutUint16(sample[:], uint16(v))
				if _, err := bw.Write(sample[:]); err != nil {
					return err
				}
			}
		}
	}

	return bw.Flush()
}

// Quantize converts physical values to digital samples for s, clamping to
// the digital range.
func Quantize(s Signal, physical []float64) []int16 {
	out := make([]int16, len(physical))
	gain := s.Gain()
	for i, p := range physical {
		d := math.Round((p-s.PhysicalMin)/gain) + float64(s.DigitalMin)
		d = math.Max(float64(s.DigitalMin), math.Min(float64(s.DigitalMax), d))
		out[i] = int16(d)
	}
	return out
}

func writeHeader(w *bufio.Writer, h Header, records int) {
	ns := len(h.Signals)
	field := func(s string, width int) {
		if len(s) > width {
			s = s[:width]
		}
		_, _ = w.WriteString(s + strings.Repeat(" ", width-len(s)))
	}

	version := h.Version
	if version == "" {
		version = "0"
	}
	field(version, 8)
	field(h.PatientID, 80)
	field(h.RecordingID, 80)

	st := h.StartTime
	field(fmt.Sprintf("%02d.%02d.%02d", st.Day(), int(st.Month()), st.Year()%100), 8)
	field(fmt.Sprintf("%02d.%02d.%02d", st.Hour(), st.Minute(), st.Second()), 8)
	field(strconv.Itoa(mainHeaderSize+ns*signalHeaderSize), 8)
	field(h.Reserved, 44)
	field(strconv.Itoa(records), 8)
	field(formatNumber(h.RecordDuration.Seconds(), 8), 8)
	field(strconv.Itoa(ns), 4)

	each := func(width int, get func(Signal) string) {
		for _, s := range h.Signals {
			field(get(s), width)
		}
	}
	each(16, func(s Signal) string { return s.Label })
	each(80, func(s Signal) string { return s.TransducerType })
	each(8, func(s Signal) string { return s.PhysicalDimension })
	each(8, func(s Signal) string { return formatNumber(s.PhysicalMin, 8) })
	each(8, func(s Signal) string { return formatNumber(s.PhysicalMax, 8) })
	each(8, func(s Signal) string { return strconv.Itoa(s.DigitalMin) })
	each(8, func(s Signal) string { return strconv.Itoa(s.DigitalMax) })
	each(80, func(s Signal) string { return s.Prefiltering })
	each(8, func(s Signal) string { return strconv.Itoa(s.SamplesPerRecord) })
	each(32, func(s Signal) string { return s.Reserved })
}

// formatNumber renders v in at most width characters.
func formatNumber(v float64, width int) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for prec := width; len(s) > width && prec >= 1; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
	}
	return s
}

func encodeTALs(recordStart float64, anns []Annotation, size int) ([]byte, error) {
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].Onset < anns[j].Onset })

	var sb strings.Builder
	sb.WriteString(formatOnset(recordStart))
	sb.WriteString("\x14\x14\x00")

	for _, a := range anns {
		sb.WriteString(formatOnset(a.Onset))
		if a.Duration > 0 {
			sb.WriteByte(0x15)
			sb.WriteString(strconv.FormatFloat(a.Duration, 'f', -1, 64))
		}
		sb.WriteByte(0x14)
		sb.WriteString(a.Text)
		sb.WriteString("\x14\x00")
	}

	if sb.Len() > size {
		return nil, fmt.Errorf("%w: %d bytes, capacity %d", ErrAnnotationOverflow, sb.Len(), size)
	}

	block := make([]byte, size)
	copy(block, sb.String())
	return block, nil
}

func formatOnset(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v >= 0 {
		s = "+" + s
	}
	return s
}
