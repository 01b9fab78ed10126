package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/annotation"
	"github.com/cwbudde/algo-absence/eeg/quality"
	"github.com/google/uuid"
)

// ErrMalformedRecord is returned when a stored record has the wrong shape.
var ErrMalformedRecord = errors.New("store: malformed record")

// Naming selects the output file name of a recording.
type Naming int

const (
	// NameByIndex writes <index>.json.
	NameByIndex Naming = iota
	// NameByBase writes <source base name>.json.
	NameByBase
)

// ParseNaming resolves "index" or "base".
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(s) {
	case "", "index":
		return NameByIndex, nil
	case "base":
		return NameByBase, nil
	}
	return 0, fmt.Errorf("store: unknown naming %q", s)
}

// JSONSink writes each recording as a JSON array of records
// [label, [features of channel 1], [features of channel 2], ...].
// Non-finite features are written as null.
type JSONSink struct {
	dir      string
	naming   Naming
	metadata bool
}

// JSONOption configures a JSONSink.
type JSONOption func(*JSONSink)

// WithNaming sets the file naming scheme.
func WithNaming(n Naming) JSONOption {
	return func(s *JSONSink) { s.naming = n }
}

// WithMetadata also writes <name>.meta.json with the run identifier,
// source path, channels and events.
func WithMetadata() JSONOption {
	return func(s *JSONSink) { s.metadata = true }
}

// NewJSONSink creates dir if needed.
func NewJSONSink(dir string, opts ...JSONOption) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: make output dir: %w", err)
	}
	s := &JSONSink{dir: dir}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the file a recording is written to.
func (s *JSONSink) Path(rec *Recording) string {
	name := strconv.Itoa(rec.Index)
	if s.naming == NameByBase && rec.Path != "" {
		base := filepath.Base(rec.Path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(s.dir, name+".json")
}

func (s *JSONSink) Write(ctx context.Context, rec *Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.Path(rec)
	if err := writeJSON(path, rec.Records); err != nil {
		return err
	}
	if !s.metadata {
		return nil
	}

	return writeJSON(strings.TrimSuffix(path, ".json")+".meta.json", NewMetadata(rec))
}

// Metadata describes a recording without its records.
type Metadata struct {
	RunID      uuid.UUID          `json:"run_id"`
	Source     string             `json:"source"`
	Channels   []string           `json:"channels"`
	Features   []string           `json:"features"`
	SampleRate float64            `json:"sample_rate"`
	Quality    []quality.Stats    `json:"quality,omitempty"`
	Events     []annotation.Event `json:"events"`
	Records    int                `json:"records"`
	Positives  int                `json:"positives"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewMetadata summarises rec.
func NewMetadata(rec *Recording) Metadata {
	return Metadata{
		RunID:      rec.RunID,
		Source:     rec.Path,
		Channels:   rec.Channels,
		Features:   absence.FeatureNames[:],
		SampleRate: rec.SampleRate,
		Quality:    rec.Quality,
		Events:     rec.Events,
		Records:    len(rec.Records),
		Positives:  rec.Positives(),
		CreatedAt:  rec.CreatedAt,
	}
}

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MarshalJSON encodes the record as [label, [f...], ...].
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.WriteString(strconv.FormatBool(r.Label))
	for _, v := range r.Features {
		buf.WriteString(",[")
		for i, f := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the array form. null features become NaN and
// Epoch is left unset.
func (r *Record) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformedRecord)
	}
	if err := json.Unmarshal(parts[0], &r.Label); err != nil {
		return fmt.Errorf("%w: label: %v", ErrMalformedRecord, err)
	}

	r.Features = make([]absence.Vector, 0, len(parts)-1)
	for c, p := range parts[1:] {
		var vals []*float64
		if err := json.Unmarshal(p, &vals); err != nil {
			return fmt.Errorf("%w: channel %d: %v", ErrMalformedRecord, c, err)
		}
		if len(vals) != absence.NumFeatures {
			return fmt.Errorf("%w: channel %d has %d features", ErrMalformedRecord, c, len(vals))
		}
		var v absence.Vector
		for i, f := range vals {
			if f == nil {
				v[i] = math.NaN()
				continue
			}
			v[i] = *f
		}
		r.Features = append(r.Features, v)
	}
	return nil
}

// ReadJSON loads the records written by a JSONSink. Epoch is restored
// from the record position.
func ReadJSON(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", filepath.Base(path), err)
	}
	for i := range recs {
		recs[i].Epoch = i
	}
	return recs, nil
}
