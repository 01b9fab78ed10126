package edf

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testHeader() Header {
	eeg := Signal{
		TransducerType:    "AgAgCl electrode",
		PhysicalDimension: "uV",
		PhysicalMin:       -3276.8,
		PhysicalMax:       3276.7,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		Prefiltering:      "HP:0.1Hz",
		SamplesPerRecord:  256,
	}
	left, right := eeg, eeg
	left.Label = "EEG LiOorTop"
	right.Label = "EEG LiOorAchter"

	return Header{
		PatientID:      "X X X X",
		RecordingID:    "Startdate 02-MAR-2017 X X X",
		StartTime:      time.Date(2017, 3, 2, 9, 30, 15, 0, time.UTC),
		Reserved:       "EDF+C",
		RecordDuration: time.Second,
		Signals: []Signal{
			left,
			right,
			{Label: AnnotationLabel, DigitalMin: -32768, DigitalMax: 32767, PhysicalMin: -1, PhysicalMax: 1, SamplesPerRecord: 60},
		},
	}
}

func ramp(n int, offset int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i%1000) - 500 + offset
	}
	return out
}

func encode(t *testing.T, h Header, digital [][]int16, anns []Annotation) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, h, digital, anns); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	h := testHeader()
	digital := [][]int16{ramp(768, 0), ramp(768, 7), nil}
	anns := []Annotation{
		{Onset: 0.5, Text: "begin_absence"},
		{Onset: 1.25, Duration: 0.5, Text: "einde_absence"},
		{Onset: 2, Text: "Note : absence start"},
	}

	data := encode(t, h, digital, anns)
	if want := 256*4 + 3*(2*256+2*256+120); len(data) != want {
		t.Fatalf("encoded %d bytes, want %d", len(data), want)
	}

	f, err := Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if f.Header.DataRecords != 3 {
		t.Fatalf("DataRecords=%d, want 3", f.Header.DataRecords)
	}
	if !f.Header.StartTime.Equal(h.StartTime) {
		t.Fatalf("StartTime=%v, want %v", f.Header.StartTime, h.StartTime)
	}
	if !f.Header.IsEDFPlus() {
		t.Fatal("expected EDF+ header")
	}
	if f.Header.PatientID != h.PatientID {
		t.Fatalf("PatientID=%q", f.Header.PatientID)
	}
	if got := f.Labels(); got[0] != "EEG LiOorTop" || got[2] != AnnotationLabel {
		t.Fatalf("Labels=%q", got)
	}
	if f.SampleRate(0) != 256 {
		t.Fatalf("SampleRate=%v, want 256", f.SampleRate(0))
	}
	if f.Duration() != 3*time.Second {
		t.Fatalf("Duration=%v", f.Duration())
	}

	for i := range 2 {
		d, err := f.Digital(i)
		if err != nil {
			t.Fatalf("Digital(%d): %v", i, err)
		}
		for k := range d {
			if d[k] != digital[i][k] {
				t.Fatalf("signal %d sample %d: %d, want %d", i, k, d[k], digital[i][k])
			}
		}

		p, err := f.Samples(i)
		if err != nil {
			t.Fatalf("Samples(%d): %v", i, err)
		}
		for k := range p {
			if want := float64(digital[i][k]) * 0.1; math.Abs(p[k]-want) > 1e-9 {
				t.Fatalf("signal %d physical %d: %v, want %v", i, k, p[k], want)
			}
		}
	}

	got, err := f.Annotations()
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(got) != len(anns) {
		t.Fatalf("got %d annotations, want %d: %+v", len(got), len(anns), got)
	}
	for i := range anns {
		if got[i] != anns[i] {
			t.Errorf("annotation %d: %+v, want %+v", i, got[i], anns[i])
		}
	}
}

func TestOpenFromDisk(t *testing.T) {
	h := testHeader()
	data := encode(t, h, [][]int16{ramp(512, 0), ramp(512, 1), nil}, nil)

	path := filepath.Join(t.TempDir(), "rec.edf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if f.Header.DataRecords != 2 {
		t.Fatalf("DataRecords=%d, want 2", f.Header.DataRecords)
	}
	anns, err := f.Annotations()
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(anns) != 0 {
		t.Fatalf("time-keeping TALs leaked: %+v", anns)
	}
}

func TestParseTALs(t *testing.T) {
	block := []byte("+0\x14\x14\x00+3.5\x152\x14begin_aanval\x14second\x14\x00-1\x14neg\x14\x00\x00\x00")

	got, err := parseTALs(block)
	if err != nil {
		t.Fatalf("parseTALs: %v", err)
	}

	want := []Annotation{
		{Onset: 3.5, Duration: 2, Text: "begin_aanval"},
		{Onset: 3.5, Duration: 2, Text: "second"},
		{Onset: -1, Text: "neg"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%d: %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := parseTALs([]byte("abc\x14x\x14\x00")); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("bad onset: err=%v", err)
	}
}

func TestReadErrors(t *testing.T) {
	h := testHeader()
	data := encode(t, h, [][]int16{ramp(256, 0), ramp(256, 0), nil}, nil)

	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = '1'
		if _, err := Read(bytes.NewReader(bad), int64(len(bad))); !errors.Is(err, ErrMalformedHeader) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("short header", func(t *testing.T) {
		if _, err := Read(bytes.NewReader(data[:100]), 100); !errors.Is(err, ErrMalformedHeader) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("missing records", func(t *testing.T) {
		cut := data[:256*4+100]
		f, err := Read(bytes.NewReader(cut), int64(len(cut)))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if f.Header.DataRecords != 0 {
			t.Fatalf("DataRecords=%d, want 0", f.Header.DataRecords)
		}
	})

	t.Run("index", func(t *testing.T) {
		f, err := Read(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Samples(5); !errors.Is(err, ErrSignalIndex) {
			t.Fatalf("err=%v", err)
		}
		if _, err := f.SignalAnnotations(0); !errors.Is(err, ErrNotAnnotation) {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestWriteAnnotationOverflow(t *testing.T) {
	h := testHeader()
	h.Signals[2].SamplesPerRecord = 8

	var buf bytes.Buffer
	err := Write(&buf, h, [][]int16{ramp(256, 0), ramp(256, 0), nil},
		[]Annotation{{Onset: 0.1, Text: "a rather long annotation text"}})
	if !errors.Is(err, ErrAnnotationOverflow) {
		t.Fatalf("err=%v, want ErrAnnotationOverflow", err)
	}
}

func TestQuantize(t *testing.T) {
	s := testHeader().Signals[0]
	d := Quantize(s, []float64{0, 1.04, -3276.8, 1e9, -1e9})
	want := []int16{0, 10, -32768, 32767, -32768}
	for i := range want {
		if d[i] != want[i] {
			t.Fatalf("Quantize[%d]=%d, want %d", i, d[i], want[i])
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1, "1"},
		{-3276.8, "-3276.8"},
		{0.001953125, "0.001953"},
		{123456789, "1.23e+08"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.v, 8); got != tt.want {
			t.Errorf("formatNumber(%v)=%q, want %q", tt.v, got, tt.want)
		}
	}
}
