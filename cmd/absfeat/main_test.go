package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-absence/eeg/edf"
	"github.com/cwbudde/algo-absence/eeg/montage"
	"github.com/cwbudde/algo-absence/eeg/store"
)

func writeEDF(t *testing.T, path string, seconds int) {
	t.Helper()

	h := edf.Header{
		StartTime:      time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC),
		Reserved:       "EDF+C",
		RecordDuration: time.Second,
	}
	var digital [][]int16
	for k, name := range montage.EarChannels {
		s := edf.Signal{
			Label:            name,
			PhysicalMin:      -3276.8,
			PhysicalMax:      3276.7,
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: 128,
		}
		h.Signals = append(h.Signals, s)
		x := make([]float64, seconds*128)
		for i := range x {
			x[i] = 30 * math.Sin(2*math.Pi*float64(5+k)*float64(i)/128)
		}
		digital = append(digital, edf.Quantize(s, x))
	}
	h.Signals = append(h.Signals, edf.Signal{
		Label: edf.AnnotationLabel, DigitalMin: -32768, DigitalMax: 32767,
		PhysicalMin: -1, PhysicalMax: 1, SamplesPerRecord: 60,
	})
	digital = append(digital, nil)

	var buf bytes.Buffer
	anns := []edf.Annotation{{Onset: 1, Text: "Absence"}, {Onset: 4, Text: "einde_absence"}}
	if err := edf.Write(&buf, h, digital, anns); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunWritesJSON(t *testing.T) {
	t.Setenv("ABSENCE_SHORTCUT_SINGULAR", "true")
	dir := t.TempDir()
	writeEDF(t, filepath.Join(dir, "Seizure1.EDF"), 8)
	out := filepath.Join(dir, "features")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-out", out, "-naming", "base", "-meta", "-workers", "2", filepath.Join(dir, "*.EDF")},
		&stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}

	recs, err := store.ReadJSON(filepath.Join(out, "Seizure1.json"))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	// 8 s: 7 epochs, 5 records.
	if len(recs) != 5 || len(recs[0].Features) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if _, err := os.Stat(filepath.Join(out, "Seizure1.meta.json")); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if !strings.Contains(stdout.String(), "Seizure1.EDF") || !strings.Contains(stdout.String(), "ok") {
		t.Fatalf("summary:\n%s", stdout.String())
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"bad flag", []string{"-bogus"}, 2},
		{"no input", []string{"-out", dir}, 2},
		{"two globs", []string{"a", "b"}, 2},
		{"bad naming", []string{"-naming", "uuid", "x"}, 2},
		{"no match", []string{"-out", dir, filepath.Join(dir, "*.edf")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.want {
				t.Fatalf("exit %d, want %d: %s", code, tt.want, stderr.String())
			}
		})
	}
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig(flags{postgres: "postgres://localhost/eeg", workers: 3, verbose: true}, []string{"/data/*.edf"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Output.Kind != "postgres" || cfg.Output.PostgresURL != "postgres://localhost/eeg" {
		t.Fatalf("output %+v", cfg.Output)
	}
	if cfg.Pipeline.Workers != 3 || cfg.Pipeline.Input != "/data/*.edf" || cfg.Log.Level != "debug" {
		t.Fatalf("pipeline %+v log %+v", cfg.Pipeline, cfg.Log)
	}
}

func TestLoadConfigMQTTFlag(t *testing.T) {
	cfg, err := loadConfig(flags{mqtt: "tcp://broker:1883", workers: -1}, nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Output.Kind != "mqtt" || cfg.Output.MQTT.Broker != "tcp://broker:1883" {
		t.Fatalf("output %+v", cfg.Output)
	}
}
