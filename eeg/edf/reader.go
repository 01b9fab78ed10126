package edf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Errors returned by the reader.
var (
	ErrMalformedHeader = errors.New("edf: malformed header")
	ErrSignalIndex     = errors.New("edf: signal index out of range")
	ErrNotAnnotation   = errors.New("edf: not an annotation signal")
	ErrTruncated       = errors.New("edf: truncated data record")
)

const (
	mainHeaderSize   = 256
	signalHeaderSize = 256
)

// File is an opened EDF file.
type File struct {
	Header Header

	r          io.ReaderAt
	closer     io.Closer
	recordSize int64
	offsets    []int64
}

// Open opens and parses the EDF file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("edf: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("edf: %w", err)
	}

	ef, err := Read(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ef.closer = f

	return ef, nil
}

// Read parses an EDF file of the given size from r.
func Read(r io.ReaderAt, size int64) (*File, error) {
	main := make([]byte, mainHeaderSize)
	if err := readFullAt(r, main, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	h, ns, err := parseMainHeader(main)
	if err != nil {
		return nil, err
	}

	if h.HeaderBytes != mainHeaderSize+ns*signalHeaderSize {
		return nil, fmt.Errorf("%w: header size %d for %d signals", ErrMalformedHeader, h.HeaderBytes, ns)
	}

	block := make([]byte, ns*signalHeaderSize)
	if err := readFullAt(r, block, mainHeaderSize); err != nil {
		return nil, fmt.Errorf("%w: signal headers: %w", ErrMalformedHeader, err)
	}

	h.Signals, err = parseSignalHeaders(block, ns)
	if err != nil {
		return nil, err
	}

	f := &File{Header: h, r: r, offsets: make([]int64, ns)}
	for i, s := range h.Signals {
		f.offsets[i] = f.recordSize
		f.recordSize += int64(2 * s.SamplesPerRecord)
	}

	if f.recordSize == 0 {
		return nil, fmt.Errorf("%w: empty data record", ErrMalformedHeader)
	}

	avail := (size - int64(h.HeaderBytes)) / f.recordSize
	if f.Header.DataRecords < 0 || int64(f.Header.DataRecords) > avail {
		f.Header.DataRecords = int(avail)
	}

	return f, nil
}

// Close releases the underlying file when opened with [Open].
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Labels returns the signal labels in file order.
func (f *File) Labels() []string {
	labels := make([]string, len(f.Header.Signals))
	for i, s := range f.Header.Signals {
		labels[i] = s.Label
	}
	return labels
}

// SampleRate returns the sampling frequency of signal i in Hz.
func (f *File) SampleRate(i int) float64 {
	if i < 0 || i >= len(f.Header.Signals) {
		return 0
	}
	return float64(f.Header.Signals[i].SamplesPerRecord) / f.Header.RecordDuration.Seconds()
}

// Duration returns the recording length.
func (f *File) Duration() time.Duration {
	return time.Duration(f.Header.DataRecords) * f.Header.RecordDuration
}

// Digital returns the raw samples of signal i.
func (f *File) Digital(i int) ([]int16, error) {
	if i < 0 || i >= len(f.Header.Signals) {
		return nil, fmt.Errorf("%w: %d", ErrSignalIndex, i)
	}

	spr := f.Header.Signals[i].SamplesPerRecord
	out := make([]int16, 0, spr*f.Header.DataRecords)
	buf := make([]byte, 2*spr)

	for rec := range f.Header.DataRecords {
		if err := f.readChunk(buf, rec, i); err != nil {
			return nil, err
		}
		for k := range spr {
			out = append(out, int16(binary.LittleEndian.Uint16(buf[2*k:])))
		}
	}

	return out, nil
}

// Samples returns signal i in physical units.
func (f *File) Samples(i int) ([]float64, error) {
	d, err := f.Digital(i)
	if err != nil {
		return nil, err
	}

	s := &f.Header.Signals[i]
	if s.DigitalMax == s.DigitalMin {
		return nil, fmt.Errorf("%w: signal %q has equal digital extrema", ErrMalformedHeader, s.Label)
	}

	out := make([]float64, len(d))
	for k, v := range d {
		out[k] = s.Physical(v)
	}

	return out, nil
}

// Annotations returns the annotations of every annotation signal in
// record order. Time-keeping entries without text are skipped.
func (f *File) Annotations() ([]Annotation, error) {
	var all []Annotation
	for i := range f.Header.Signals {
		if !f.Header.Signals[i].IsAnnotation() {
			continue
		}
		anns, err := f.SignalAnnotations(i)
		if err != nil {
			return nil, err
		}
		all = append(all, anns...)
	}
	return all, nil
}

// SignalAnnotations decodes the TALs of annotation signal i.
func (f *File) SignalAnnotations(i int) ([]Annotation, error) {
	if i < 0 || i >= len(f.Header.Signals) {
		return nil, fmt.Errorf("%w: %d", ErrSignalIndex, i)
	}
	if !f.Header.Signals[i].IsAnnotation() {
		return nil, fmt.Errorf("%w: %q", ErrNotAnnotation, f.Header.Signals[i].Label)
	}

	buf := make([]byte, 2*f.Header.Signals[i].SamplesPerRecord)
	var out []Annotation
	for rec := range f.Header.DataRecords {
		if err := f.readChunk(buf, rec, i); err != nil {
			return nil, err
		}
		anns, err := parseTALs(buf)
		if err != nil {
			return nil, fmt.Errorf("edf: record %d: %w", rec, err)
		}
		out = append(out, anns...)
	}

	return out, nil
}

func (f *File) readChunk(buf []byte, rec, signal int) error {
	off := int64(f.Header.HeaderBytes) + int64(rec)*f.recordSize + f.offsets[signal]
	if err := readFullAt(f.r, buf, off); err != nil {
		return fmt.Errorf("%w: record %d: %w", ErrTruncated, rec, err)
	}
	return nil
}

// readFullAt accepts io.EOF when the buffer was filled completely.
func readFullAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// parseTALs decodes a block of "+onset[\x15duration]\x14text\x14...\x00"
// entries.
func parseTALs(block []byte) ([]Annotation, error) {
	var out []Annotation
	for _, tal := range bytes.Split(block, []byte{0}) {
		if len(tal) == 0 {
			continue
		}

		parts := strings.Split(string(tal), "\x14")
		timing := strings.SplitN(parts[0], "\x15", 2)

		onset, err := strconv.ParseFloat(timing[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: onset %q", ErrMalformedHeader, timing[0])
		}

		var dur float64
		if len(timing) == 2 && timing[1] != "" {
			if dur, err = strconv.ParseFloat(timing[1], 64); err != nil {
				return nil, fmt.Errorf("%w: duration %q", ErrMalformedHeader, timing[1])
			}
		}

		for _, text := range parts[1:] {
			if text == "" {
				continue
			}
			out = append(out, Annotation{Onset: onset, Duration: dur, Text: text})
		}
	}
	return out, nil
}

type fieldReader struct {
	buf []byte
	pos int
}

func (r *fieldReader) next(n int) string {
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return strings.TrimRight(s, " \x00")
}

func parseMainHeader(b []byte) (Header, int, error) {
	fr := &fieldReader{buf: b}
	var h Header

	h.Version = fr.next(8)
	if h.Version != "0" {
		return h, 0, fmt.Errorf("%w: unsupported version %q", ErrMalformedHeader, h.Version)
	}
	h.PatientID = fr.next(80)
	h.RecordingID = fr.next(80)

	start, err := parseStart(fr.next(8), fr.next(8))
	if err != nil {
		return h, 0, err
	}
	h.StartTime = start

	if h.HeaderBytes, err = parseInt(fr.next(8), "header bytes"); err != nil {
		return h, 0, err
	}
	h.Reserved = fr.next(44)
	if h.DataRecords, err = parseInt(fr.next(8), "data records"); err != nil {
		return h, 0, err
	}

	secs, err := parseFloat(fr.next(8), "record duration")
	if err != nil {
		return h, 0, err
	}
	if !(secs > 0) {
		return h, 0, fmt.Errorf("%w: record duration %v", ErrMalformedHeader, secs)
	}
	h.RecordDuration = time.Duration(math.Round(secs * float64(time.Second)))

	ns, err := parseInt(fr.next(4), "signal count")
	if err != nil {
		return h, 0, err
	}
	if ns < 1 {
		return h, 0, fmt.Errorf("%w: %d signals", ErrMalformedHeader, ns)
	}

	return h, ns, nil
}

func parseSignalHeaders(b []byte, ns int) ([]Signal, error) {
	fr := &fieldReader{buf: b}
	sig := make([]Signal, ns)

	text := func(width int, set func(*Signal, string)) {
		for i := range sig {
			set(&sig[i], fr.next(width))
		}
	}
	var firstErr error
	num := func(width int, name string, set func(*Signal, float64)) {
		for i := range sig {
			v, err := parseFloat(fr.next(width), name)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("signal %d: %w", i, err)
			}
			set(&sig[i], v)
		}
	}

	text(16, func(s *Signal, v string) { s.Label = v })
	text(80, func(s *Signal, v string) { s.TransducerType = v })
	text(8, func(s *Signal, v string) { s.PhysicalDimension = v })
	num(8, "physical minimum", func(s *Signal, v float64) { s.PhysicalMin = v })
	num(8, "physical maximum", func(s *Signal, v float64) { s.PhysicalMax = v })
	num(8, "digital minimum", func(s *Signal, v float64) { s.DigitalMin = int(v) })
	num(8, "digital maximum", func(s *Signal, v float64) { s.DigitalMax = int(v) })
	text(80, func(s *Signal, v string) { s.Prefiltering = v })
	num(8, "samples per record", func(s *Signal, v float64) { s.SamplesPerRecord = int(v) })
	text(32, func(s *Signal, v string) { s.Reserved = v })

	if firstErr != nil {
		return nil, firstErr
	}

	for i, s := range sig {
		if s.SamplesPerRecord < 1 {
			return nil, fmt.Errorf("%w: signal %d has %d samples per record", ErrMalformedHeader, i, s.SamplesPerRecord)
		}
	}

	return sig, nil
}

// parseStart decodes "dd.mm.yy" and "hh.mm.ss". Two-digit years from 85
// map to the 1900s.
func parseStart(date, clock string) (time.Time, error) {
	var d, mo, y, hh, mm, ss int
	if _, err := fmt.Sscanf(date, "%d.%d.%d", &d, &mo, &y); err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q", ErrMalformedHeader, date)
	}
	if _, err := fmt.Sscanf(clock, "%d.%d.%d", &hh, &mm, &ss); err != nil {
		return time.Time{}, fmt.Errorf("%w: start time %q", ErrMalformedHeader, clock)
	}

	if y >= 85 {
		y += 1900
	} else {
		y += 2000
	}

	return time.Date(y, time.Month(mo), d, hh, mm, ss, 0, time.UTC), nil
}

func parseInt(s, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedHeader, name, s)
	}
	return v, nil
}

func parseFloat(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedHeader, name, s)
	}
	return v, nil
}
