// Package store persists the feature records of a recording.
//
// A [Recording] holds one [Record] per analysed epoch pair: the epoch
// label and one feature vector per derivation. Sinks decide where the
// records go; [JSONSink] writes one file per recording and the pg
// subpackage writes to PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/annotation"
	"github.com/cwbudde/algo-absence/eeg/quality"
	"github.com/google/uuid"
)

// Record is the output for one epoch pair.
type Record struct {
	// Epoch is the index of the first epoch of the pair.
	Epoch int
	// Label is true when the first epoch lies inside a seizure.
	Label bool
	// Features holds one vector per derivation, in Recording.Channels
	// order.
	Features []absence.Vector
}

// Recording is the feature table of one input file.
type Recording struct {
	RunID uuid.UUID
	// Path of the source file.
	Path string
	// Index is the position of the file within its batch.
	Index int
	// Channels names the derivations.
	Channels   []string
	SampleRate float64
	// Quality holds per-derivation statistics of the source signals.
	Quality   []quality.Stats
	Events    []annotation.Event
	Records   []Record
	CreatedAt time.Time
}

// NewRecording returns an empty recording with a fresh run identifier.
func NewRecording(path string, index int, channels []string, sampleRate float64) *Recording {
	return &Recording{
		RunID:      uuid.New(),
		Path:       path,
		Index:      index,
		Channels:   channels,
		SampleRate: sampleRate,
		CreatedAt:  time.Now().UTC(),
	}
}

// Positives counts the records labelled as seizure.
func (r *Recording) Positives() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Label {
			n++
		}
	}
	return n
}

// Sink receives finished recordings.
type Sink interface {
	Write(ctx context.Context, rec *Recording) error
}

// Multi fans a recording out to several sinks in order and stops at the
// first failure.
type Multi []Sink

func (m Multi) Write(ctx context.Context, rec *Recording) error {
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every recording.
type Discard struct{}

func (Discard) Write(context.Context, *Recording) error { return nil }
