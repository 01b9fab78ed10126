// Package annotation turns free-text EEG annotations into seizure events.
//
// Recordings mark an absence with a begin text ("begin_absence",
// "Absence", "begin_aanval", "Note : absence start") and an end text
// ("einde_absence", "einde_aanval", "Note : absence stop"). Matching is
// case-insensitive and anchored at the start of the text. Interictal
// markings can be included as events on request.
package annotation

import (
	"regexp"
	"slices"

	"github.com/cwbudde/algo-absence/eeg/edf"
	"github.com/montanaflynn/stats"
)

// Event is a seizure interval in seconds from the start of the recording.
type Event struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (e Event) Duration() float64 { return e.End - e.Start }

// Options controls which markings open an event.
type Options struct {
	// Interictal also accepts interictal begin and end markings.
	Interictal bool
}

var (
	beginPatterns = compile(
		`^begin_.*abs.*`,
		`^absence.*`,
		`^begin_aanval.*`,
		`^Note : absence start.*`,
	)
	interictalBegin = compile(
		`^begin_inter.*`,
		`^inter-ictaal.*`,
		`^\(?inter.*`,
	)
	endPatterns = compile(
		`^einde_.*abs.*`,
		`^einde_aanval.*`,
		`^Note : absence stop.*`,
	)
	interictalEnd = compile(
		`^einde_inter.*`,
	)
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

func matchAny(res []*regexp.Regexp, text string) bool {
	return slices.ContainsFunc(res, func(re *regexp.Regexp) bool { return re.MatchString(text) })
}

// IsBegin reports whether text opens an event.
func IsBegin(text string, opts Options) bool {
	return matchAny(beginPatterns, text) || (opts.Interictal && matchAny(interictalBegin, text))
}

// IsEnd reports whether text closes an event.
func IsEnd(text string, opts Options) bool {
	return matchAny(endPatterns, text) || (opts.Interictal && matchAny(interictalEnd, text))
}

// Extract pairs begin and end markings into events, in annotation order.
// A begin while another event is open replaces the open one. An end
// without an open event is ignored, as is an event left open at the end.
func Extract(anns []edf.Annotation, opts Options) []Event {
	var events []Event
	open := false
	var start float64

	for _, a := range anns {
		switch {
		case IsBegin(a.Text, opts):
			start, open = a.Onset, true
		case IsEnd(a.Text, opts):
			if open {
				events = append(events, Event{Start: start, End: a.Onset})
				open = false
			}
		}
	}

	return events
}

// Summary describes a set of events.
type Summary struct {
	Count          int
	MedianDuration float64
	TotalDuration  float64
}

// Summarize computes count, median and total duration.
func Summarize(events []Event) Summary {
	s := Summary{Count: len(events)}
	if len(events) == 0 {
		return s
	}

	durations := make(stats.Float64Data, len(events))
	for i, e := range events {
		durations[i] = e.Duration()
	}

	s.MedianDuration, _ = durations.Median()
	s.TotalDuration, _ = durations.Sum()

	return s
}
