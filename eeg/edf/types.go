package edf

import (
	"strings"
	"time"
)

// AnnotationLabel is the signal label reserved for EDF+ annotations.
const AnnotationLabel = "EDF Annotations"

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version        string        // Version of the data format (always "0")
	PatientID      string        // Local patient identification
	RecordingID    string        // Local recording identification
	StartTime      time.Time     // Start date and time of the recording
	HeaderBytes    int           // Number of bytes in the header
	Reserved       string        // "EDF+C" or "EDF+D" for EDF+ files
	DataRecords    int           // Number of data records
	RecordDuration time.Duration // Duration of a data record
	Signals        []Signal      // Per-signal descriptors
}

// IsEDFPlus reports whether the header declares an EDF+ file.
func (h *Header) IsEDFPlus() bool {
	return strings.HasPrefix(h.Reserved, "EDF+")
}

// Signal describes one signal of the recording.
type Signal struct {
	Label             string  // Signal label, e.g. "EEG LiOorTop"
	TransducerType    string  // Transducer type
	PhysicalDimension string  // Physical dimension, e.g. "uV"
	PhysicalMin       float64 // Physical minimum
	PhysicalMax       float64 // Physical maximum
	DigitalMin        int     // Digital minimum
	DigitalMax        int     // Digital maximum
	Prefiltering      string  // Prefiltering description
	SamplesPerRecord  int     // Samples per data record
	Reserved          string  // Reserved
}

// IsAnnotation reports whether s carries EDF+ annotations.
func (s *Signal) IsAnnotation() bool {
	return strings.TrimSpace(s.Label) == AnnotationLabel
}

// Gain returns the physical units per digital step.
func (s *Signal) Gain() float64 {
	return (s.PhysicalMax - s.PhysicalMin) / float64(s.DigitalMax-s.DigitalMin)
}

// Physical converts a digital sample to physical units.
func (s *Signal) Physical(d int16) float64 {
	return (float64(d)-float64(s.DigitalMin))*s.Gain() + s.PhysicalMin
}

// Annotation is one EDF+ annotation.
type Annotation struct {
	Onset    float64 // Seconds since the start of the recording
	Duration float64 // Seconds, zero when not given
	Text     string
}
